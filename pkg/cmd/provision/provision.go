// Package provision implements airmctl's broker-provisioning commands:
// create or tear down a cluster's RabbitMQ vhost/user/permissions (spec
// §4.1 "Provisioning"), the operator-facing counterpart to the
// POST/DELETE /v1/clusters handlers that call fabric.Admin internally.
package provision

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amd-eai/airm/internal/fabric"
)

// adminFlags are the RabbitMQ management API connection flags shared by
// every subcommand.
type adminFlags struct {
	baseURL  string
	username string
	password string
}

func (f *adminFlags) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.baseURL, "broker-admin-url", "http://localhost:15672/api", "RabbitMQ management API base URL.")
	flags.StringVar(&f.username, "broker-admin-user", "guest", "RabbitMQ management API user.")
	flags.StringVar(&f.password, "broker-admin-password", "guest", "RabbitMQ management API password.")
}

func (f *adminFlags) admin() *fabric.Admin {
	return fabric.NewAdmin(f.baseURL, f.username, f.password)
}

// NewProvisionCommand returns the "provision" command group.
func NewProvisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision or deprovision a cluster's broker vhost",
		Long:  "Provision or deprovision a cluster's broker vhost",
	}

	cmd.AddCommand(newClusterCommand(), newCommonCommand(), newDeprovisionCommand())

	return cmd
}

func newClusterCommand() *cobra.Command {
	flags := &adminFlags{}

	cmd := &cobra.Command{
		Use:   "cluster CLUSTER_ID",
		Short: "Create a cluster's vhost, user, and directional permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := flags.admin().ProvisionCluster(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "amqp_user=%s amqp_password=%s\n", fabric.ClusterUser(args[0]), secret)

			return nil
		},
	}

	flags.addFlags(cmd.Flags())

	return cmd
}

func newCommonCommand() *cobra.Command {
	flags := &adminFlags{}

	cmd := &cobra.Command{
		Use:   "common",
		Short: "Ensure the shared inbound vhost exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.admin().ConfigureCommonVHost(cmd.Context())
		},
	}

	flags.addFlags(cmd.Flags())

	return cmd
}

func newDeprovisionCommand() *cobra.Command {
	flags := &adminFlags{}

	cmd := &cobra.Command{
		Use:   "deprovision CLUSTER_ID",
		Short: "Delete a cluster's broker user and vhost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.admin().DeprovisionCluster(cmd.Context(), args[0])
		},
	}

	flags.addFlags(cmd.Flags())

	return cmd
}
