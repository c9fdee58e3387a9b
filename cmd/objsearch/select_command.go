package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type selectResult struct {
	Identifier string `json:"identifier"`
	Layer      int    `json:"layer"`
	Attempts   int    `json:"attempts"`
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "select <identifier>",
		Short: "Place an effect on the host timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			if _, ok := application.Index().Lookup(id); !ok {
				application.Logger().Warn("%s is not in the catalog", id)
			}

			out, err := application.Select(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, selectResult{Identifier: id, Layer: out.Layer, Attempts: out.Attempts})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Placed %s on layer %d (%d %s)\n",
				id, out.Layer, out.Attempts, plural(out.Attempts, "attempt", "attempts"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
