package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/call-pipeline/internal/classify"
	anthropicpkg "github.com/sells-group/call-pipeline/pkg/anthropic"
)

var classifyNoLLM bool

var classifyCmd = &cobra.Command{
	Use:   "classify <external-id>",
	Short: "Dry-run the classifier on one stored meeting",
	Long:  "Classifies one stored meeting and prints the category and the deciding tier. The store is never modified.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		meeting, err := st.GetRawMeeting(ctx, args[0])
		if err != nil {
			return err
		}
		if meeting == nil {
			return eris.Errorf("meeting %s not found", args[0])
		}

		out := cmd.OutOrStdout()
		c := classify.New(classifyConfig(cfg), nil, nil)
		if classifyNoLLM {
			res, ok, err := c.Rules(*meeting)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "%s: inconclusive (scores sales=%d partner=%d internal=%d)\n",
					meeting.ExternalID, res.Scores.Sales, res.Scores.Partner, res.Scores.Internal)
				return nil
			}
			printClassification(cmd, meeting.ExternalID, res)
			return nil
		}

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required for the model tier (CALLPIPE_ANTHROPIC_KEY); use --no-llm")
		}
		client := anthropicpkg.NewClient(anthropicpkg.Options{
			APIKey:     cfg.Anthropic.Key,
			BaseURL:    cfg.Anthropic.BaseURL,
			MaxRetries: cfg.Anthropic.MaxRetries,
		})
		res, err := classify.New(classifyConfig(cfg), client, nil).Classify(ctx, *meeting)
		if err != nil {
			return err
		}
		printClassification(cmd, meeting.ExternalID, res)
		return nil
	},
}

func printClassification(cmd *cobra.Command, externalID string, res classify.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (tier=%s) %s\n", externalID, res.Category, res.Tier, res.Reason)
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyNoLLM, "no-llm", false, "report inconclusive instead of calling the model tier")
	rootCmd.AddCommand(classifyCmd)
}
