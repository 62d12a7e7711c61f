package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/model"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert transcript records from a JSON or JSON-lines file",
	Long:  "Reads transcript-source records and upserts them as raw meetings keyed by external id. Classification and processed state of existing meetings are left untouched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "open import file")
		}
		defer f.Close() //nolint:errcheck

		meetings, err := readMeetings(f)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertRawMeetings(ctx, meetings)
		if err != nil {
			return eris.Wrap(err, "upsert meetings")
		}

		zap.L().Info("import complete",
			zap.Int("records", len(meetings)),
			zap.Int64("upserted", n),
			zap.String("file", importFile),
		)
		return nil
	},
}

// importRecord is one transcript-source record. Metadata may be given as a
// nested object or as the top-level participant, summary, and transcript
// fields.
type importRecord struct {
	ExternalID   string          `json:"external_id"`
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	MeetingDate  *time.Time      `json:"meeting_date"`
	Date         *time.Time      `json:"date"`
	DurationSecs int             `json:"duration_secs"`
	Duration     float64         `json:"duration"`
	Metadata     json.RawMessage `json:"metadata"`

	model.MeetingMetadata
}

func (r importRecord) toMeeting() (model.RawMeeting, error) {
	m := model.RawMeeting{
		ExternalID:   strings.TrimSpace(r.ExternalID),
		Title:        r.Title,
		MeetingDate:  r.MeetingDate,
		DurationSecs: r.DurationSecs,
		Metadata:     r.Metadata,
	}
	if m.ExternalID == "" {
		m.ExternalID = strings.TrimSpace(r.ID)
	}
	if m.ExternalID == "" {
		return m, eris.New("record has no external_id")
	}
	if m.MeetingDate == nil {
		m.MeetingDate = r.Date
	}
	if m.DurationSecs == 0 && r.Duration > 0 {
		m.DurationSecs = int(r.Duration)
	}
	if len(bytes.TrimSpace(m.Metadata)) == 0 {
		raw, err := json.Marshal(r.MeetingMetadata)
		if err != nil {
			return m, eris.Wrapf(err, "encode metadata for %s", m.ExternalID)
		}
		m.Metadata = raw
	}
	return m, nil
}

// readMeetings decodes a JSON array of records or one record per line.
func readMeetings(r io.Reader) ([]model.RawMeeting, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "read input")
	}

	var records []importRecord
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, eris.Wrap(err, "decode JSON array")
		}
	} else {
		dec := json.NewDecoder(br)
		for {
			var rec importRecord
			err := dec.Decode(&rec)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, eris.Wrapf(err, "decode record %d", len(records)+1)
			}
			records = append(records, rec)
		}
	}

	meetings := make([]model.RawMeeting, 0, len(records))
	for i, rec := range records {
		m, err := rec.toMeeting()
		if err != nil {
			return nil, eris.Wrapf(err, "record %d", i+1)
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a JSON array or JSON-lines file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
