package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/call-pipeline/internal/db"
	"github.com/sells-group/call-pipeline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS raw_meetings (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	external_id    TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	meeting_date   TIMESTAMPTZ,
	duration_secs  INTEGER NOT NULL DEFAULT 0,
	metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
	classification TEXT,
	processed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS team_members (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prospect_contacts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	company_id TEXT REFERENCES companies(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	deal_size         DOUBLE PRECISION,
	quality_score     INTEGER NOT NULL CHECK (quality_score BETWEEN 1 AND 10),
	quality_rationale TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	transcript        TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	meeting_date      TIMESTAMPTZ,
	duration_secs     INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Raw meetings ---

const meetingColumns = `id, external_id, title, meeting_date, duration_secs, metadata, classification, processed_at, created_at`

// meetingUpsert refreshes the ingested fields only; classification and
// processed_at belong to the pipeline.
var meetingUpsert = db.Upsert{
	Table:   "raw_meetings",
	Key:     "external_id",
	Columns: []string{"external_id", "title", "meeting_date", "duration_secs", "metadata"},
}

func (s *PostgresStore) UpsertRawMeetings(ctx context.Context, meetings []model.RawMeeting) (int64, error) {
	meetings = dedupeMeetings(meetings)
	rows := make([][]any, 0, len(meetings))
	for _, m := range meetings {
		rows = append(rows, []any{m.ExternalID, m.Title, m.MeetingDate, m.DurationSecs, []byte(metadataText(m))})
	}
	n, err := db.BulkUpsert(ctx, s.pool, meetingUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert raw meetings")
	}
	return n, nil
}

func (s *PostgresStore) GetRawMeeting(ctx context.Context, externalID string) (*model.RawMeeting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM raw_meetings WHERE external_id = $1`,
		externalID,
	)
	m, err := scanPostgresMeeting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get raw meeting %s", externalID)
	}
	return m, nil
}

func (s *PostgresStore) ListUnprocessed(ctx context.Context, limit int) ([]model.RawMeeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM raw_meetings WHERE processed_at IS NULL ORDER BY meeting_date IS NULL, meeting_date, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unprocessed")
	}
	defer rows.Close()

	var out []model.RawMeeting
	for rows.Next() {
		m, err := scanPostgresMeeting(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw meeting")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate raw meetings")
}

func (s *PostgresStore) SetClassification(ctx context.Context, meetingID string, category model.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_meetings SET classification = $1 WHERE id = $2`,
		string(category), meetingID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set classification %s", meetingID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: raw meeting not found: %s", meetingID)
	}
	return nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, meetingID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_meetings SET processed_at = $1 WHERE id = $2`,
		at.UTC(), meetingID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark processed %s", meetingID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: raw meeting not found: %s", meetingID)
	}
	return nil
}

func (s *PostgresStore) BacklogStats(ctx context.Context) (*model.BacklogStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT classification, processed_at IS NOT NULL, COUNT(*) FROM raw_meetings GROUP BY 1, 2`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: backlog stats")
	}
	defer rows.Close()

	stats := newBacklogStats()
	for rows.Next() {
		var class *string
		var processed bool
		var n int
		if err := rows.Scan(&class, &processed, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan backlog stats")
		}
		addBacklogRow(stats, class, processed, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate backlog stats")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM calls`).Scan(&stats.Calls); err != nil {
		return nil, eris.Wrap(err, "postgres: count calls")
	}
	return stats, nil
}

// --- Entities ---

func (s *PostgresStore) lookupID(ctx context.Context, query, arg, what string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, query, arg).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: find %s %q", what, arg)
	}
	return id, nil
}

func (s *PostgresStore) FindCompanyByName(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM companies WHERE name = $1`, name, "company")
}

func (s *PostgresStore) CreateCompany(ctx context.Context, name string, firstSeen time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, first_seen_at) VALUES ($1, $2, $3)`,
		id, name, firstSeen.UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: create company %q", name)
	}
	return id, nil
}

func (s *PostgresStore) FindTeamMemberByEmail(ctx context.Context, email string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM team_members WHERE email = $1`, email, "team member")
}

func (s *PostgresStore) CreateTeamMember(ctx context.Context, name, email string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO team_members (id, name, email) VALUES ($1, $2, $3)`,
		id, name, email,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: create team member %q", email)
	}
	return id, nil
}

func (s *PostgresStore) FindProspectByName(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM prospect_contacts WHERE name = $1 ORDER BY created_at, id LIMIT 1`, name, "prospect")
}

func (s *PostgresStore) CreateProspect(ctx context.Context, name, role, companyID string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prospect_contacts (id, name, role, company_id) VALUES ($1, $2, $3, $4)`,
		id, name, role, nullIfEmpty(companyID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: create prospect %q", name)
	}
	return id, nil
}

// --- Closed vocabularies ---

func (s *PostgresStore) FindObjectionType(ctx context.Context, key string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM objection_types WHERE key = $1`, key, "objection type")
}

func (s *PostgresStore) FindTechnology(ctx context.Context, name string) (string, error) {
	return s.lookupID(ctx, `SELECT id FROM technologies WHERE lower(name) = lower($1)`, name, "technology")
}

func (s *PostgresStore) SeedObjectionTypes(ctx context.Context, types []model.ObjectionType) (int, error) {
	inserted := 0
	for _, ot := range types {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO objection_types (id, key, label, description) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
			uuid.New().String(), ot.Key, ot.Label, ot.Description,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: seed objection type %s", ot.Key)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) SeedTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	inserted := 0
	for _, t := range techs {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO technologies (id, name, category) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), t.Name, t.Category,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: seed technology %s", t.Name)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// --- Calls ---

func (s *PostgresStore) CreateCall(ctx context.Context, call *model.Call) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO calls (id, raw_meeting_id, call_type, offering_pitched, company_id, outcome, deal_size, quality_score, quality_rationale, title, transcript, summary, meeting_date, duration_secs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, call.RawMeetingID, string(call.CallType), string(call.OfferingPitched), call.CompanyID,
		string(call.Outcome), call.DealSize, call.QualityScore, call.QualityRationale,
		call.Title, call.Transcript, call.Summary, call.MeetingDate, call.DurationSecs, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: create call for %s", call.RawMeetingID)
	}
	call.ID = id
	call.CreatedAt = now
	return id, nil
}

func (s *PostgresStore) GetCallByRawMeeting(ctx context.Context, rawMeetingID string) (*model.Call, error) {
	var c model.Call
	var callType, offering, outcome string
	err := s.pool.QueryRow(ctx,
		`SELECT id, raw_meeting_id, call_type, offering_pitched, company_id, outcome, deal_size, quality_score, quality_rationale, title, transcript, summary, meeting_date, duration_secs, created_at
		FROM calls WHERE raw_meeting_id = $1`,
		rawMeetingID,
	).Scan(&c.ID, &c.RawMeetingID, &callType, &offering, &c.CompanyID, &outcome, &c.DealSize,
		&c.QualityScore, &c.QualityRationale, &c.Title, &c.Transcript, &c.Summary,
		&c.MeetingDate, &c.DurationSecs, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get call for %s", rawMeetingID)
	}
	c.CallType = model.CallType(callType)
	c.OfferingPitched = model.Offering(offering)
	c.Outcome = model.Outcome(outcome)
	return &c, nil
}

func (s *PostgresStore) CallDetailCounts(ctx context.Context, callID string) (*model.CallDetailCounts, error) {
	var c model.CallDetailCounts
	err := s.pool.QueryRow(ctx, callDetailCountsQuery("$1"), callID).Scan(
		&c.TeamMembers, &c.Prospects, &c.Technologies, &c.Objections,
		&c.FollowUps, &c.ProspectQuestions, &c.KeyQuotes, &c.CounterResponses,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: count call details %s", callID)
	}
	return &c, nil
}

func (s *PostgresStore) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: %s", what)
	}
	return nil
}

func (s *PostgresStore) LinkTeamMember(ctx context.Context, callID, memberID string) error {
	return s.exec(ctx, "link team member",
		`INSERT INTO call_team_members (call_id, team_member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		callID, memberID)
}

func (s *PostgresStore) LinkProspect(ctx context.Context, callID, prospectID string) error {
	return s.exec(ctx, "link prospect",
		`INSERT INTO call_prospects (call_id, prospect_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		callID, prospectID)
}

func (s *PostgresStore) LinkTechnology(ctx context.Context, callID, technologyID string) error {
	return s.exec(ctx, "link technology",
		`INSERT INTO call_technologies (call_id, technology_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		callID, technologyID)
}

func (s *PostgresStore) AddObjection(ctx context.Context, callID, objectionTypeID string, o model.ObjectionRef) error {
	return s.exec(ctx, "add objection",
		`INSERT INTO call_objections (id, call_id, objection_type_id, quote, context) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), callID, objectionTypeID, o.Quote, o.Context)
}

func (s *PostgresStore) AddCounterResponse(ctx context.Context, callID, objectionTypeID string, r model.CounterResponse) error {
	return s.exec(ctx, "add counter response",
		`INSERT INTO call_counter_responses (id, call_id, objection_type_id, response, effectiveness) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), callID, objectionTypeID, r.Response, string(r.Effectiveness))
}

func (s *PostgresStore) AddFollowUp(ctx context.Context, callID string, f model.FollowUp) error {
	return s.exec(ctx, "add follow up",
		`INSERT INTO call_follow_ups (id, call_id, action, assignee) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), callID, f.Action, f.Assignee)
}

func (s *PostgresStore) AddProspectQuestion(ctx context.Context, callID, question string) error {
	return s.exec(ctx, "add prospect question",
		`INSERT INTO call_prospect_questions (id, call_id, question) VALUES ($1, $2, $3)`,
		uuid.New().String(), callID, question)
}

func (s *PostgresStore) AddKeyQuote(ctx context.Context, callID string, q model.KeyQuote) error {
	return s.exec(ctx, "add key quote",
		`INSERT INTO call_key_quotes (id, call_id, speaker, text, context) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), callID, q.Speaker, q.Text, q.Context)
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanPostgresMeeting(row scannable) (*model.RawMeeting, error) {
	var m model.RawMeeting
	var metadata []byte
	var class *string
	if err := row.Scan(&m.ID, &m.ExternalID, &m.Title, &m.MeetingDate, &m.DurationSecs,
		&metadata, &class, &m.ProcessedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Metadata = metadata
	if class != nil {
		c := model.Category(*class)
		m.Classification = &c
	}
	return &m, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func addBacklogRow(stats *model.BacklogStats, class *string, processed bool, n int) {
	stats.Total += n
	if processed {
		stats.Processed += n
	} else {
		stats.Unprocessed += n
	}
	if class == nil || *class == "" {
		stats.Unclassified += n
		return
	}
	stats.ByClassification[model.Category(*class)] += n
}

// callDetailCountsQuery counts dependent rows per table. p is the dialect's
// placeholder for the call id, repeated once per subquery.
func callDetailCountsQuery(p string) string {
	sub := func(table string) string {
		return `(SELECT COUNT(*) FROM ` + table + ` WHERE call_id = ` + p + `)`
	}
	return `SELECT ` +
		sub("call_team_members") + `, ` +
		sub("call_prospects") + `, ` +
		sub("call_technologies") + `, ` +
		sub("call_objections") + `, ` +
		sub("call_follow_ups") + `, ` +
		sub("call_prospect_questions") + `, ` +
		sub("call_key_quotes") + `, ` +
		sub("call_counter_responses")
}
