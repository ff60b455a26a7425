package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/knowledge"
)

func newKnowledgeCommand(root *rootOptions) *cobra.Command {
	var (
		path     string
		category string
		track    string
	)

	cmd := &cobra.Command{
		Use:   "knowledge <query...>",
		Short: "Search the case law and procedure knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.Track(strings.ToLower(track))
			if track != "" && !t.Valid() {
				return fmt.Errorf("unknown track %q: use small_claims, fast_track or multi_track", track)
			}

			kb, err := knowledge.Load(path)
			if err != nil {
				return err
			}
			cases, procedures := kb.Size()
			root.logger(cmd).Debug("defencectl.knowledge.loaded", "cases", cases, "procedures", procedures)

			result := kb.Lookup(strings.Join(args, " "), category, t)
			out := cmd.OutOrStdout()
			if len(result.Cases) == 0 && len(result.Procedures) == 0 {
				fmt.Fprintln(out, "No matching cases or procedures.")
				return nil
			}
			if len(result.Cases) > 0 {
				fmt.Fprintln(out, "Cases:")
				for _, c := range result.Cases {
					fmt.Fprintf(out, "  %s %s\n    %s\n", c.CaseName, c.Citation, c.Summary)
				}
			}
			if len(result.Procedures) > 0 {
				fmt.Fprintln(out, "Procedures:")
				for _, p := range result.Procedures {
					fmt.Fprintf(out, "  %s\n    %s\n", p.Title, p.Summary)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "knowledge YAML file (default: built-in knowledge base)")
	cmd.Flags().StringVar(&category, "category", "", "legal category, e.g. contract_dispute")
	cmd.Flags().StringVar(&track, "track", "", "court track: small_claims, fast_track or multi_track")
	return cmd
}
