package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the closed objection and technology vocabularies",
	Long:  "Inserts the objection types and technologies extraction results are linked against. Existing entries are kept, so seeding can be repeated.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return seedStore(ctx, st, seedFile)
	},
}

// seedStore seeds st from path, or from the built-in vocabulary when path
// is empty.
func seedStore(ctx context.Context, st store.Store, path string) error {
	var vocab *store.Vocabulary
	var err error
	if path == "" {
		vocab, err = store.DefaultVocabulary()
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "read vocabulary file")
		}
		vocab, err = store.ParseVocabulary(data)
	}
	if err != nil {
		return err
	}

	res, err := store.Seed(ctx, st, vocab)
	if err != nil {
		return err
	}
	zap.L().Info("vocabulary seeded",
		zap.Int("objection_types_added", res.ObjectionTypes),
		zap.Int("technologies_added", res.Technologies),
	)
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "vocabulary YAML file (default: built-in vocabulary)")
	rootCmd.AddCommand(seedCmd)
}
