package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/call-pipeline/internal/pipeline"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify and extract every unprocessed meeting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		limit := processLimit
		if limit < 0 {
			limit = cfg.Pipeline.BatchLimit
		}

		stats, err := env.Runner.Run(ctx, limit)
		if stats != nil {
			fmt.Fprint(cmd.OutOrStdout(), pipeline.FormatReport(stats))
		}
		return err
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", -1, "max meetings to process (0 = whole backlog, default from config)")
	rootCmd.AddCommand(processCmd)
}
