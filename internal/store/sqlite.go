package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/call-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode and foreign keys. The pool is pinned to one connection so the
// pragmas hold for every statement.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_meetings (
	id             TEXT PRIMARY KEY,
	external_id    TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	meeting_date   DATETIME,
	duration_secs  INTEGER NOT NULL DEFAULT 0,
	metadata       TEXT NOT NULL DEFAULT '{}',
	classification TEXT,
	processed_at   DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	first_seen_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS team_members (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prospect_contacts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	company_id TEXT REFERENCES companies(id),
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS objection_types (
	id          TEXT PRIMARY KEY,
	key         TEXT NOT NULL UNIQUE,
	label       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS technologies (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS calls (
	id                TEXT PRIMARY KEY,
	raw_meeting_id    TEXT NOT NULL UNIQUE REFERENCES raw_meetings(id),
	call_type         TEXT NOT NULL,
	offering_pitched  TEXT NOT NULL,
	company_id        TEXT NOT NULL REFERENCES companies(id),
	outcome           TEXT NOT NULL,
	deal_size         REAL,
	quality_score     INTEGER NOT NULL CHECK (quality_score BETWEEN 1 AND 10),
	quality_rationale TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	transcript        TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	meeting_date      DATETIME,
	duration_secs     INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS call_team_members (
	call_id        TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	team_member_id TEXT NOT NULL REFERENCES team_members(id),
	PRIMARY KEY (call_id, team_member_id)
);

CREATE TABLE IF NOT EXISTS call_prospects (
	call_id     TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	prospect_id TEXT NOT NULL REFERENCES prospect_contacts(id),
	PRIMARY KEY (call_id, prospect_id)
);

CREATE TABLE IF NOT EXISTS call_technologies (
	call_id       TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	technology_id TEXT NOT NULL REFERENCES technologies(id),
	PRIMARY KEY (call_id, technology_id)
);

CREATE TABLE IF NOT EXISTS call_objections (
	id                TEXT PRIMARY KEY,
	call_id           TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	objection_type_id TEXT NOT NULL REFERENCES objection_types(id),
	quote             TEXT NOT NULL DEFAULT '',
	context           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS call_counter_responses (
	id                TEXT PRIMARY KEY,
	call_id           TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	objection_type_id TEXT NOT NULL REFERENCES objection_types(id),
	response          TEXT NOT NULL DEFAULT '',
	effectiveness     TEXT NOT NULL DEFAULT 'unknown'
);

CREATE TABLE IF NOT EXISTS call_follow_ups (
	id       TEXT PRIMARY KEY,
	call_id  TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	action   TEXT NOT NULL,
	assignee TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS call_prospect_questions (
	id       TEXT PRIMARY KEY,
	call_id  TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	question TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS call_key_quotes (
	id      TEXT PRIMARY KEY,
	call_id TEXT NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
	speaker TEXT NOT NULL DEFAULT '',
	text    TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_raw_meetings_unprocessed ON raw_meetings(meeting_date) WHERE processed_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_raw_meetings_classification ON raw_meetings(classification);
CREATE INDEX IF NOT EXISTS idx_prospect_contacts_name ON prospect_contacts(name);
CREATE INDEX IF NOT EXISTS idx_technologies_lower_name ON technologies(lower(name));
CREATE INDEX IF NOT EXISTS idx_calls_company_id ON calls(company_id);
CREATE INDEX IF NOT EXISTS idx_call_objections_call_id ON call_objections(call_id);
CREATE INDEX IF NOT EXISTS idx_call_counter_responses_call_id ON call_counter_responses(call_id);
CREATE INDEX IF NOT EXISTS idx_call_follow_ups_call_id ON call_follow_ups(call_id);
CREATE INDEX IF NOT EXISTS idx_call_prospect_questions_call_id ON call_prospect_questions(call_id);
CREATE INDEX IF NOT EXISTS idx_call_key_quotes_call_id ON call_key_quotes(call_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Raw meetings ---

func (s *SQLiteStore) UpsertRawMeetings(ctx context.Context, meetings []model.RawMeeting) (int64, error) {
	meetings = dedupeMeetings(meetings)
	if len(meetings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert raw meetings: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_meetings (id, external_id, title, meeting_date, duration_secs, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			title = excluded.title,
			meeting_date = excluded.meeting_date,
			duration_secs = excluded.duration_secs,
			metadata = excluded.metadata`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert raw meetings: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var total int64
	for _, m := range meetings {
		res, err := stmt.ExecContext(ctx,
			uuid.New().String(), m.ExternalID, m.Title, utcPtr(m.MeetingDate), m.DurationSecs, metadataText(m),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert raw meeting %s", m.ExternalID)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert raw meetings: commit")
	}
	return total, nil
}

const sqliteMeetingColumns = `id, external_id, title, meeting_date, duration_secs, metadata, classification, processed_at, created_at`

func (s *SQLiteStore) GetRawMeeting(ctx context.Context, externalID string) (*model.RawMeeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMeetingColumns+` FROM raw_meetings WHERE external_id = ?`,
		externalID,
	)
	m, err := scanSQLiteMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get raw meeting %s", externalID)
	}
	return m, nil
}

func (s *SQLiteStore) ListUnprocessed(ctx context.Context, limit int) ([]model.RawMeeting, error) {
	query := `SELECT ` + sqliteMeetingColumns + ` FROM raw_meetings WHERE processed_at IS NULL ORDER BY meeting_date IS NULL, meeting_date, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unprocessed")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RawMeeting
	for rows.Next() {
		m, err := scanSQLiteMeeting(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw meeting")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate raw meetings")
}

func (s *SQLiteStore) SetClassification(ctx context.Context, meetingID string, category model.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_meetings SET classification = ? WHERE id = ?`,
		string(category), meetingID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set classification %s", meetingID)
	}
	return checkRowsAffected(res, "raw meeting", meetingID)
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, meetingID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_meetings SET processed_at = ? WHERE id = ?`,
		at.UTC(), meetingID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark processed %s", meetingID)
	}
	return checkRowsAffected(res, "raw meeting", meetingID)
}

func (s *SQLiteStore) BacklogStats(ctx context.Context) (*model.BacklogStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT classification, processed_at IS NOT NULL, COUNT(*) FROM raw_meetings GROUP BY 1, 2`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: backlog stats")
	}

	stats := newBacklogStats()
	for rows.Next() {
		var class sql.NullString
		var processed bool
		var n int
		if err := rows.Scan(&class, &processed, &n); err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan backlog stats")
		}
		var classPtr *string
		if class.Valid {
			classPtr = &class.String
		}
		addBacklogRow(stats, classPtr, processed, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: iterate backlog stats")
	}
	rows.Close() //nolint:errcheck

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&stats.Calls); err != nil {
		return nil, eris.Wrap(err, "sqlite: count calls")
	}
	return stats, nil
}

// --- Entities ---

func (s *SQLiteStore) lookupID(ctx context.Context, query, arg, what string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: find %s %q", what, arg)
	}
	return id, nil
}

func (s *SQLiteStore) FindCompanyByName(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM companies WHERE name = ?`, name, "company")
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, name string, firstSeen time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, first_seen_at) VALUES (?, ?, ?)`,
		id, name, firstSeen.UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: create company %q", name)
	}
	return id, nil
}

func (s *SQLiteStore) FindTeamMemberByEmail(ctx context.Context, email string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM team_members WHERE email = ?`, email, "team member")
}

func (s *SQLiteStore) CreateTeamMember(ctx context.Context, name, email string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_members (id, name, email) VALUES (?, ?, ?)`,
		id, name, email,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: create team member %q", email)
	}
	return id, nil
}

func (s *SQLiteStore) FindProspectByName(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM prospect_contacts WHERE name = ? ORDER BY created_at, id LIMIT 1`, name, "prospect")
}

func (s *SQLiteStore) CreateProspect(ctx context.Context, name, role, companyID string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prospect_contacts (id, name, role, company_id) VALUES (?, ?, ?, ?)`,
		id, name, role, nullIfEmpty(companyID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: create prospect %q", name)
	}
	return id, nil
}

// --- Closed vocabularies ---

func (s *SQLiteStore) FindObjectionType(ctx context.Context, key string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM objection_types WHERE key = ?`, key, "objection type")
}

func (s *SQLiteStore) FindTechnology(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM technologies WHERE lower(name) = lower(?)`, name, "technology")
}

func (s *SQLiteStore) SeedObjectionTypes(ctx context.Context, types []model.ObjectionType) (int, error) {
	inserted := 0
	for _, ot := range types {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO objection_types (id, key, label, description) VALUES (?, ?, ?, ?) ON CONFLICT (key) DO NOTHING`,
			uuid.New().String(), ot.Key, ot.Label, ot.Description,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: seed objection type %s", ot.Key)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

func (s *SQLiteStore) SeedTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	inserted := 0
	for _, t := range techs {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO technologies (id, name, category) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), t.Name, t.Category,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: seed technology %s", t.Name)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// --- Calls ---

func (s *SQLiteStore) CreateCall(ctx context.Context, call *model.Call) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (id, raw_meeting_id, call_type, offering_pitched, company_id, outcome, deal_size, quality_score, quality_rationale, title, transcript, summary, meeting_date, duration_secs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, call.RawMeetingID, string(call.CallType), string(call.OfferingPitched), call.CompanyID,
		string(call.Outcome), call.DealSize, call.QualityScore, call.QualityRationale,
		call.Title, call.Transcript, call.Summary, utcPtr(call.MeetingDate), call.DurationSecs, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: create call for %s", call.RawMeetingID)
	}
	call.ID = id
	call.CreatedAt = now
	return id, nil
}

func (s *SQLiteStore) GetCallByRawMeeting(ctx context.Context, rawMeetingID string) (*model.Call, error) {
	var c model.Call
	var callType, offering, outcome string
	var dealSize sql.NullFloat64
	var meetingDate sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, raw_meeting_id, call_type, offering_pitched, company_id, outcome, deal_size, quality_score, quality_rationale, title, transcript, summary, meeting_date, duration_secs, created_at
		FROM calls WHERE raw_meeting_id = ?`,
		rawMeetingID,
	).Scan(&c.ID, &c.RawMeetingID, &callType, &offering, &c.CompanyID, &outcome, &dealSize,
		&c.QualityScore, &c.QualityRationale, &c.Title, &c.Transcript, &c.Summary,
		&meetingDate, &c.DurationSecs, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get call for %s", rawMeetingID)
	}
	c.CallType = model.CallType(callType)
	c.OfferingPitched = model.Offering(offering)
	c.Outcome = model.Outcome(outcome)
	if dealSize.Valid {
		c.DealSize = &dealSize.Float64
	}
	if meetingDate.Valid {
		c.MeetingDate = &meetingDate.Time
	}
	return &c, nil
}

func (s *SQLiteStore) CallDetailCounts(ctx context.Context, callID string) (*model.CallDetailCounts, error) {
	var c model.CallDetailCounts
	err := s.db.QueryRowContext(ctx, callDetailCountsQuery("?1"), callID).Scan(
		&c.TeamMembers, &c.Prospects, &c.Technologies, &c.Objections,
		&c.FollowUps, &c.ProspectQuestions, &c.KeyQuotes, &c.CounterResponses,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: count call details %s", callID)
	}
	return &c, nil
}

func (s *SQLiteStore) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "sqlite: %s", what)
	}
	return nil
}

func (s *SQLiteStore) LinkTeamMember(ctx context.Context, callID, memberID string) error {
	return s.exec(ctx, "link team member",
		`INSERT INTO call_team_members (call_id, team_member_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		callID, memberID)
}

func (s *SQLiteStore) LinkProspect(ctx context.Context, callID, prospectID string) error {
	return s.exec(ctx, "link prospect",
		`INSERT INTO call_prospects (call_id, prospect_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		callID, prospectID)
}

func (s *SQLiteStore) LinkTechnology(ctx context.Context, callID, technologyID string) error {
	return s.exec(ctx, "link technology",
		`INSERT INTO call_technologies (call_id, technology_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		callID, technologyID)
}

func (s *SQLiteStore) AddObjection(ctx context.Context, callID, objectionTypeID string, o model.ObjectionRef) error {
	return s.exec(ctx, "add objection",
		`INSERT INTO call_objections (id, call_id, objection_type_id, quote, context) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), callID, objectionTypeID, o.Quote, o.Context)
}

func (s *SQLiteStore) AddCounterResponse(ctx context.Context, callID, objectionTypeID string, r model.CounterResponse) error {
	return s.exec(ctx, "add counter response",
		`INSERT INTO call_counter_responses (id, call_id, objection_type_id, response, effectiveness) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), callID, objectionTypeID, r.Response, string(r.Effectiveness))
}

func (s *SQLiteStore) AddFollowUp(ctx context.Context, callID string, f model.FollowUp) error {
	return s.exec(ctx, "add follow up",
		`INSERT INTO call_follow_ups (id, call_id, action, assignee) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), callID, f.Action, f.Assignee)
}

func (s *SQLiteStore) AddProspectQuestion(ctx context.Context, callID, question string) error {
	return s.exec(ctx, "add prospect question",
		`INSERT INTO call_prospect_questions (id, call_id, question) VALUES (?, ?, ?)`,
		uuid.New().String(), callID, question)
}

func (s *SQLiteStore) AddKeyQuote(ctx context.Context, callID string, q model.KeyQuote) error {
	return s.exec(ctx, "add key quote",
		`INSERT INTO call_key_quotes (id, call_id, speaker, text, context) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), callID, q.Speaker, q.Text, q.Context)
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanSQLiteMeeting(row scannable) (*model.RawMeeting, error) {
	var m model.RawMeeting
	var metadata string
	var class sql.NullString
	var meetingDate, processedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.ExternalID, &m.Title, &meetingDate, &m.DurationSecs,
		&metadata, &class, &processedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Metadata = []byte(metadata)
	if class.Valid {
		c := model.Category(class.String)
		m.Classification = &c
	}
	if meetingDate.Valid {
		m.MeetingDate = &meetingDate.Time
	}
	if processedAt.Valid {
		m.ProcessedAt = &processedAt.Time
	}
	return &m, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
