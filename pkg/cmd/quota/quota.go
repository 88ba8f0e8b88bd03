// Package quota implements airmctl's quota-inspection commands, reading
// directly from the store the way the teacher's "get" commands read
// directly from the Kubernetes API (spec §4.6 "Quota Engine").
package quota

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amd-eai/airm/internal/store"
)

type storeFlags struct {
	postgresDSN string
}

func (f *storeFlags) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.postgresDSN, "postgres-dsn", "", "Postgres connection string (libpq DSN).")
}

// NewQuotaCommand returns the "quota" command group.
func NewQuotaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect project and cluster quota allocation",
		Long:  "Inspect project and cluster quota allocation",
	}

	cmd.AddCommand(newGetCommand(), newListCommand())

	return cmd
}

func newGetCommand() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "get PROJECT_ID",
		Short: "Print a single project's quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.Context(), flags.postgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()

			q, err := st.GetQuotaByProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			w := newQuotaWriter(cmd.OutOrStdout())
			defer w.Flush()

			fmt.Fprintf(w, "PROJECT\tSTATUS\tCPU_MC\tMEMORY_B\tEPHEMERAL_B\tGPU\n")
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", q.ProjectID, q.Status,
				q.Resources.CPUMillicores, q.Resources.MemoryBytes, q.Resources.EphemeralBytes, q.Resources.GPUCount)

			return nil
		},
	}

	flags.addFlags(cmd.Flags())

	return cmd
}

func newListCommand() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "list CLUSTER_ID",
		Short: "List every active quota allocated against a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusterID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.Context(), flags.postgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()

			quotas, err := st.ListActiveQuotasByCluster(cmd.Context(), clusterID)
			if err != nil {
				return err
			}

			w := newQuotaWriter(cmd.OutOrStdout())
			defer w.Flush()

			fmt.Fprintf(w, "PROJECT\tSTATUS\tCPU_MC\tMEMORY_B\tEPHEMERAL_B\tGPU\n")

			for _, q := range quotas {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", q.ProjectID, q.Status,
					q.Resources.CPUMillicores, q.Resources.MemoryBytes, q.Resources.EphemeralBytes, q.Resources.GPUCount)
			}

			return nil
		},
	}

	flags.addFlags(cmd.Flags())

	return cmd
}

func newQuotaWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}
