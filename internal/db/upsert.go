package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a keyed bulk upsert. Rows are matched on Key. On conflict
// every other listed column is overwritten; columns not listed (pipeline
// state such as classification or processed_at) are left as they are.
type Upsert struct {
	Table   string
	Key     string
	Columns []string
}

func (u Upsert) validate(rows [][]any) error {
	if len(u.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if !slices.Contains(u.Columns, u.Key) {
		return eris.Errorf("db: upsert: key %q is not among the columns", u.Key)
	}
	for i, r := range rows {
		if len(r) != len(u.Columns) {
			return eris.Errorf("db: upsert: row %d has %d values, want %d", i, len(r), len(u.Columns))
		}
	}
	return nil
}

func (u Upsert) stage() pgx.Identifier {
	return pgx.Identifier{"_stage_" + u.Table}
}

// mergeSQL moves staged rows into the target table.
func (u Upsert) mergeSQL() string {
	cols := make([]string, len(u.Columns))
	var set []string
	for i, c := range u.Columns {
		q := pgx.Identifier{c}.Sanitize()
		cols[i] = q
		if c != u.Key {
			set = append(set, q+" = EXCLUDED."+q)
		}
	}
	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	list := strings.Join(cols, ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		pgx.Identifier{u.Table}.Sanitize(), list, list,
		u.stage().Sanitize(), pgx.Identifier{u.Key}.Sanitize(), action)
}

// BulkUpsert COPYs rows into a transaction-scoped staging table and merges
// them into the target with one INSERT ... ON CONFLICT. rows must not repeat
// a key; Postgres rejects an upsert that touches the same row twice.
func BulkUpsert(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := u.validate(rows); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		u.stage().Sanitize(), pgx.Identifier{u.Table}.Sanitize())
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, u.stage(), u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into staging table for %s", u.Table)
	}

	tag, err := tx.Exec(ctx, u.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}
