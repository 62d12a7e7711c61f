package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/call-pipeline/internal/model"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backlog counts by classification",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.BacklogStats(ctx)
		if err != nil {
			return err
		}
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		writeBacklogStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func writeBacklogStats(w io.Writer, s *model.BacklogStats) {
	fmt.Fprintf(w, "Meetings:     %d\n", s.Total)
	fmt.Fprintf(w, "Processed:    %d\n", s.Processed)
	fmt.Fprintf(w, "Unprocessed:  %d\n", s.Unprocessed)
	fmt.Fprintf(w, "Unclassified: %d\n", s.Unclassified)
	for _, c := range model.AllCategories() {
		fmt.Fprintf(w, "  %-10s %d\n", c, s.ByClassification[c])
	}
	fmt.Fprintf(w, "Calls:        %d\n", s.Calls)
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(statsCmd)
}
