// Package store persists candidates, sessions and analysis results in a
// single SQLite database file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/talentscout/screener/internal/screening"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage failure")
)

// lockStripes bounds the number of mutexes used to serialize writes per
// session id.
const lockStripes = 32

// Store is the single durable handle shared by the interview flow, the
// analysis pass and the dashboard. Writes for the same session id are
// serialized; reads may run concurrently with writes.
type Store struct {
	db    *sql.DB
	locks [lockStripes]sync.Mutex
}

// Open opens the SQLite database at path. The schema is managed separately
// by Init so that opening an uninitialized database stays cheap and the
// operator surface controls schema lifecycle.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", errors.Join(ErrStorage, err))
	}

	// In-memory SQLite gives every connection its own database. Keep a
	// single connection so schema and data survive across goroutines.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", errors.Join(ErrStorage, err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", errors.Join(ErrStorage, err))
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitOutcome reports what Init did, so the operator surface can
// distinguish a fresh schema from a no-op and from a destructive rebuild.
type InitOutcome int

const (
	// SchemaCreated means the schema did not exist and was created.
	SchemaCreated InitOutcome = iota
	// SchemaExists means the schema was already present and left untouched.
	SchemaExists
	// SchemaRecreated means existing tables were dropped and rebuilt,
	// destroying previous data.
	SchemaRecreated
)

func (o InitOutcome) String() string {
	switch o {
	case SchemaCreated:
		return "created"
	case SchemaExists:
		return "already exists"
	case SchemaRecreated:
		return "recreated"
	default:
		return "unknown"
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		qa_pairs TEXT NOT NULL DEFAULT '[]',
		analysis TEXT,
		overall_score REAL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (candidate_id) REFERENCES candidates(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_candidate ON sessions(candidate_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_stage ON sessions(stage)`,
}

// Init creates the schema. When the schema already exists it is a no-op
// unless force is set, in which case all tables are dropped and rebuilt.
func (s *Store) Init(ctx context.Context, force bool) (InitOutcome, error) {
	exists, err := s.schemaExists(ctx)
	if err != nil {
		return SchemaExists, err
	}

	if exists && !force {
		return SchemaExists, nil
	}

	outcome := SchemaCreated
	if exists {
		outcome = SchemaRecreated
		for _, table := range []string{"sessions", "candidates"} {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return outcome, fmt.Errorf("drop table %s: %w", table, errors.Join(ErrStorage, err))
			}
		}
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return outcome, fmt.Errorf("create schema: %w", errors.Join(ErrStorage, err))
		}
	}

	return outcome, nil
}

func (s *Store) schemaExists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('candidates', 'sessions')`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", errors.Join(ErrStorage, err))
	}
	return count > 0, nil
}

// SaveCandidate inserts a candidate record. Candidates are immutable, so a
// duplicate insert is a caller bug and surfaces as a storage failure.
func (s *Store) SaveCandidate(ctx context.Context, c *screening.Candidate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, name, email, phone, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Role, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save candidate %s: %w", c.ID, errors.Join(ErrStorage, err))
	}
	return nil
}

// DeleteCandidate removes a candidate record. The foreign key constraint
// refuses deletion while any session still references the candidate.
func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete candidate %s: %w", id, errors.Join(ErrStorage, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete candidate %s: %w", id, errors.Join(ErrStorage, err))
	}
	if affected == 0 {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetCandidate retrieves a candidate by id.
func (s *Store) GetCandidate(ctx context.Context, id string) (*screening.Candidate, error) {
	var c screening.Candidate
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, role, created_at FROM candidates WHERE id = ?`,
		id).Scan(&c.ID, &c.Name, &c.Email, &phone, &c.Role, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", id, errors.Join(ErrStorage, err))
	}
	c.Phone = phone.String
	return &c, nil
}

// SaveSession upserts the session, fully overwriting its stored state
// including the serialized pair list. The call is atomic: on error the
// previously stored state is unchanged. Writes for the same session id
// never interleave.
func (s *Store) SaveSession(ctx context.Context, session *screening.Session) error {
	pairs, err := json.Marshal(session.Pairs)
	if err != nil {
		return fmt.Errorf("marshal pairs for session %s: %w", session.ID, err)
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, candidate_id, stage, qa_pairs, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			qa_pairs = excluded.qa_pairs,
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		session.ID, session.CandidateID, string(session.Stage), string(pairs),
		session.Completed, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, errors.Join(ErrStorage, err))
	}
	return nil
}

// LoadSession retrieves a session by id.
func (s *Store) LoadSession(ctx context.Context, id string) (*screening.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, candidate_id, stage, qa_pairs, completed, created_at, updated_at FROM sessions WHERE id = ?`,
		id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, errors.Join(ErrStorage, err))
	}
	return session, nil
}

// FindSessionByEmail retrieves the session belonging to the candidate with
// the given email, used to resume an abandoned interview.
func (s *Store) FindSessionByEmail(ctx context.Context, email string) (*screening.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.candidate_id, s.stage, s.qa_pairs, s.completed, s.created_at, s.updated_at
		 FROM sessions s JOIN candidates c ON c.id = s.candidate_id
		 WHERE c.email = ?
		 ORDER BY s.created_at DESC LIMIT 1`,
		email)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session for %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session for %s: %w", email, errors.Join(ErrStorage, err))
	}
	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*screening.Session, error) {
	var session screening.Session
	var stage, pairs string

	if err := row.Scan(&session.ID, &session.CandidateID, &stage, &pairs,
		&session.Completed, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}

	parsed, err := screening.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	session.Stage = parsed

	if err := json.Unmarshal([]byte(pairs), &session.Pairs); err != nil {
		return nil, fmt.Errorf("unmarshal pairs: %w", err)
	}
	if session.Pairs == nil {
		session.Pairs = []screening.QAPair{}
	}

	return &session, nil
}

// SaveAnalysis attaches the analysis result to its session, overwriting any
// previous result.
func (s *Store) SaveAnalysis(ctx context.Context, sessionID string, result *screening.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis for session %s: %w", sessionID, err)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET analysis = ?, overall_score = ? WHERE id = ?`,
		string(payload), result.Overall, sessionID)
	if err != nil {
		return fmt.Errorf("save analysis for session %s: %w", sessionID, errors.Join(ErrStorage, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save analysis for session %s: %w", sessionID, errors.Join(ErrStorage, err))
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// LoadAnalysis retrieves the analysis attached to a session, or ErrNotFound
// when the session has none yet.
func (s *Store) LoadAnalysis(ctx context.Context, sessionID string) (*screening.AnalysisResult, error) {
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis FROM sessions WHERE id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis for session %s: %w", sessionID, errors.Join(ErrStorage, err))
	}
	if !payload.Valid || payload.String == "" {
		return nil, fmt.Errorf("analysis for session %s: %w", sessionID, ErrNotFound)
	}

	var result screening.AnalysisResult
	if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
		return nil, fmt.Errorf("unmarshal analysis for session %s: %w", sessionID, err)
	}
	return &result, nil
}

// Filter narrows ListSessions. Zero values match everything.
type Filter struct {
	Stage    screening.Stage
	MinScore *float64
}

// Summary is one row of the dashboard listing: session state joined with
// candidate identity and the overall score when analysis has run.
type Summary struct {
	SessionID   string          `json:"session_id"`
	CandidateID string          `json:"candidate_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Stage       screening.Stage `json:"stage"`
	Questions   int             `json:"questions"`
	Completed   bool            `json:"completed"`
	Score       *float64        `json:"score,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ListSessions returns session summaries matching the filter, newest first.
func (s *Store) ListSessions(ctx context.Context, filter Filter) ([]Summary, error) {
	query := `SELECT s.id, s.candidate_id, c.name, c.email, c.role, s.stage, s.qa_pairs, s.completed, s.overall_score, s.updated_at
		 FROM sessions s JOIN candidates c ON c.id = s.candidate_id`
	var conds []string
	var args []any

	if filter.Stage != "" {
		conds = append(conds, "s.stage = ?")
		args = append(args, string(filter.Stage))
	}
	if filter.MinScore != nil {
		conds = append(conds, "s.overall_score >= ?")
		args = append(args, *filter.MinScore)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", errors.Join(ErrStorage, err))
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		var stage, pairs string
		var score sql.NullFloat64
		if err := rows.Scan(&sum.SessionID, &sum.CandidateID, &sum.Name, &sum.Email, &sum.Role,
			&stage, &pairs, &sum.Completed, &score, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", errors.Join(ErrStorage, err))
		}

		parsed, err := screening.ParseStage(stage)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sum.Stage = parsed

		var qa []screening.QAPair
		if err := json.Unmarshal([]byte(pairs), &qa); err != nil {
			return nil, fmt.Errorf("list sessions: unmarshal pairs: %w", err)
		}
		sum.Questions = len(qa)

		if score.Valid {
			v := score.Float64
			sum.Score = &v
		}

		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", errors.Join(ErrStorage, err))
	}
	return summaries, nil
}

// Detail is a session joined with its candidate and analysis for the
// dashboard's single-session view.
type Detail struct {
	Candidate screening.Candidate       `json:"candidate"`
	Session   screening.Session         `json:"session"`
	Analysis  *screening.AnalysisResult `json:"analysis,omitempty"`
}

// GetDetail retrieves the joined view of one session.
func (s *Store) GetDetail(ctx context.Context, sessionID string) (*Detail, error) {
	session, err := s.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	candidate, err := s.GetCandidate(ctx, session.CandidateID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Candidate: *candidate, Session: *session}

	analysis, err := s.LoadAnalysis(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil {
		detail.Analysis = analysis
	}

	return detail, nil
}

func (s *Store) sessionLock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
