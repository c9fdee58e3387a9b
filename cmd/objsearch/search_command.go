package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type searchHit struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Score      *int   `json:"score,omitempty"`
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON bool
		scores bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Rank catalog effects against a query",
		Long: "Rank catalog effects against a query. Words are joined with spaces;\n" +
			"an empty query lists the whole catalog in file order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			application, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}

			hits := application.Rank(strings.Join(args, " "))
			if limit > 0 && len(hits) > limit {
				hits = hits[:limit]
			}

			if asJSON {
				out := make([]searchHit, len(hits))
				for i, h := range hits {
					out[i] = searchHit{Identifier: h.Candidate.Identifier, Label: h.Candidate.Label}
					if scores {
						score := h.Score
						out[i].Score = &score
					}
				}
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(w, "No matching effects")
				return nil
			}

			headers := []string{"#", "Identifier", "Label"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft}
			if scores {
				headers = append(headers, "Score")
				aligns = append(aligns, alignRight)
			}
			rows := make([][]string, len(hits))
			for i, h := range hits {
				row := []string{strconv.Itoa(i + 1), h.Candidate.Identifier, h.Candidate.Label}
				if scores {
					row = append(row, strconv.Itoa(h.Score))
				}
				rows[i] = row
			}
			fmt.Fprintln(w, renderTable(w, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&scores, "scores", false, "Include match scores")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n results (0 for all)")
	return cmd
}
