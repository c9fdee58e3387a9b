package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer line-delimited JSON requests on stdin",
		Long: "Read one JSON request per line from stdin and write one JSON response\n" +
			"per line to stdout until stdin closes. Logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			return application.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
