// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/univscript/univscript/internal/executor"
)

func newCallCommand(app *App, global *globalOptions) *cobra.Command {
	var step executor.RawCallStep

	cmd := &cobra.Command{
		Use:   "call --runtime NAME [--params PARAMS]",
		Short: "Run a runtime executable without a script",
		Long: `Run a runtime executable with parameters only.

Parameters may reference build parameters and environment variables as
${NAME}. The runtime environment blocks and RUNTIME_HOME apply as for exec.`,
		Example: `  univscript call -r python --params "--version"
  univscript call -r groovy --params '-e "println 1+1"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStep(cmd.Context(), app, global, step)
		},
	}

	cmd.Flags().StringVarP(&step.RuntimeName, "runtime", "r", "", "runtime installation name (required)")
	cmd.Flags().StringVarP(&step.Parameters, "params", "p", "", "parameters passed to the runtime")
	cmd.Flags().BoolVar(&step.IgnoreFailedExecution, "ignore-failure", false, "report a non-zero exit code as a warning and exit 0")
	_ = cmd.MarkFlagRequired("runtime")

	return cmd
}
