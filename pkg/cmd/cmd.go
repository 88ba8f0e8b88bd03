/*
Copyright 2022 EscherCloud.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"github.com/amd-eai/airm/pkg/cmd/health"
	"github.com/amd-eai/airm/pkg/cmd/provision"
	"github.com/amd-eai/airm/pkg/cmd/quota"
	"github.com/amd-eai/airm/pkg/constants"

	"github.com/spf13/cobra"

	"k8s.io/kubectl/pkg/util/templates"
)

var (
	rootLongDesc = templates.LongDesc(`
	AIRM operator CLI.

	This tool is the operator-facing counterpart to the airm-controller and
	airm-dispatcher services: it provisions and tears down a cluster's
	RabbitMQ broker identity, inspects quota allocation directly from the
	store, and tails a dispatcher's health endpoint. It does not talk to
	Kubernetes directly; that is the dispatcher's job.`)
)

// newRootCommand returns the root command and all its subordinates.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   constants.Application,
		Short: "AIRM operator CLI.",
		Long:  rootLongDesc,
	}

	commands := []*cobra.Command{
		newVersionCommand(),
		provision.NewProvisionCommand(),
		quota.NewQuotaCommand(),
		health.NewHealthCommand(),
	}

	cmd.AddCommand(commands...)

	return cmd
}

// Generate creates a hierarchy of cobra commands for the application.  It can
// also be used to walk the structure and generate HTML documentation for example.
func Generate() *cobra.Command {
	return newRootCommand()
}
