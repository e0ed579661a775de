package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/tasks"
)

// enginesCmd defers to the task surface. The application is assembled at run
// time so --config has been parsed by then; flag parsing is delegated to the
// task subtree.
var enginesCmd = &cobra.Command{
	Use:                "engines",
	Short:              "Inspect and install registered units",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, holder, err := newApplication(app.NewLogger())
		if err != nil {
			return err
		}
		if holder != nil {
			defer holder.Stop()
		}
		sub := tasks.Command(a)
		sub.SetArgs(args)
		sub.SetOut(cmd.OutOrStdout())
		sub.SetErr(cmd.ErrOrStderr())
		return sub.ExecuteContext(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
