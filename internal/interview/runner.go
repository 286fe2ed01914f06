// Package interview drives a single candidate conversation through the
// staged screening flow, persisting after every accepted answer.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/question"
	"github.com/talentscout/screener/internal/screening"
)

var (
	// ErrValidation is returned when caller input is rejected. The session
	// state is unchanged and the call may be retried with corrected input.
	ErrValidation = errors.New("invalid input")
	// ErrSessionClosed is returned when an operation is attempted on a
	// session that has already reached its terminal stage.
	ErrSessionClosed = errors.New("session closed")
)

// Store is the slice of persistence the runner needs.
type Store interface {
	SaveCandidate(ctx context.Context, c *screening.Candidate) error
	GetCandidate(ctx context.Context, id string) (*screening.Candidate, error)
	SaveSession(ctx context.Context, s *screening.Session) error
	FindSessionByEmail(ctx context.Context, email string) (*screening.Session, error)
}

// Analyzer scores a finished session. It is invoked once, when the session
// transitions into its terminal stage.
type Analyzer interface {
	Run(ctx context.Context, sessionID string) error
}

// CandidateInfo is the identity collected before the first question.
type CandidateInfo struct {
	Name  string
	Email string
	Phone string
	Role  string
}

// Config carries the runner's collaborators. Generator and Analyzer are
// optional; without a generator every question comes from the static
// catalog.
type Config struct {
	Generator question.Source
	Analyzer  Analyzer
	Plan      screening.Plan
	Logger    *zap.Logger
}

// Runner owns one conversation session. It is not safe for concurrent use;
// each interview gets its own runner.
type Runner struct {
	store     Store
	static    *question.Static
	generator question.Source
	analyzer  Analyzer
	plan      screening.Plan
	logger    *zap.Logger
	now       func() time.Time

	session   *screening.Session
	candidate *screening.Candidate
	pending   string
}

// New builds a runner around the given store and static catalog.
func New(store Store, static *question.Static, cfg Config) *Runner {
	plan := cfg.Plan
	if plan == nil {
		plan = screening.DefaultPlan()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		store:     store,
		static:    static,
		generator: cfg.Generator,
		analyzer:  cfg.Analyzer,
		plan:      plan,
		logger:    logger,
		now:       time.Now,
	}
}

// SetGenerator installs a question source built after the candidate is
// known. It must be called before the next question is fetched.
func (r *Runner) SetGenerator(gen question.Source) {
	r.generator = gen
}

// Session returns the current session state, or nil before Start or Resume.
func (r *Runner) Session() *screening.Session {
	return r.session
}

// Candidate returns the candidate under interview, or nil before Start or
// Resume.
func (r *Runner) Candidate() *screening.Candidate {
	return r.candidate
}

// Start validates the candidate identity, persists it, and opens a new
// session at the first stage.
func (r *Runner) Start(ctx context.Context, info CandidateInfo) (*screening.Session, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: candidate name is required", ErrValidation)
	}
	email := strings.TrimSpace(info.Email)
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, fmt.Errorf("%w: candidate email %q is not valid", ErrValidation, info.Email)
	}
	role := strings.TrimSpace(info.Role)
	if role == "" {
		return nil, fmt.Errorf("%w: desired role is required", ErrValidation)
	}

	now := r.now().UTC()
	candidate := &screening.Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(info.Phone),
		Role:      role,
		CreatedAt: now,
	}
	session := &screening.Session{
		ID:          uuid.NewString(),
		CandidateID: candidate.ID,
		Stage:       screening.Stages()[0],
		Pairs:       []screening.QAPair{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.SaveCandidate(ctx, candidate); err != nil {
		return nil, err
	}
	if err := r.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	r.candidate = candidate
	r.session = session
	r.pending = ""

	r.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("candidate", candidate.Name),
		zap.String("role", candidate.Role))

	return session, nil
}

// Resume loads the most recent session for the candidate with the given
// email, picking up exactly where the last accepted answer left off.
func (r *Runner) Resume(ctx context.Context, email string) (*screening.Session, error) {
	session, err := r.store.FindSessionByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	candidate, err := r.store.GetCandidate(ctx, session.CandidateID)
	if err != nil {
		return nil, err
	}

	r.session = session
	r.candidate = candidate
	r.pending = ""

	r.logger.Info("session resumed",
		zap.String("session_id", session.ID),
		zap.String("stage", string(session.Stage)),
		zap.Int("answers", len(session.Pairs)))

	return session, nil
}

// NextQuestion returns the question the candidate should answer next.
// Repeated calls without an intervening answer return the same question.
// When a generator is configured its failures fall back to the static
// catalog, so a broken model never stalls the interview.
func (r *Runner) NextQuestion(ctx context.Context) (string, error) {
	if r.session == nil {
		return "", fmt.Errorf("%w: no active session", ErrValidation)
	}
	if r.session.Stage.Terminal() {
		return "", fmt.Errorf("session %s: %w", r.session.ID, ErrSessionClosed)
	}
	if r.pending != "" {
		return r.pending, nil
	}

	q, err := r.fetch(ctx)
	if err != nil {
		return "", err
	}

	r.pending = q
	return q, nil
}

func (r *Runner) fetch(ctx context.Context) (string, error) {
	stage := r.session.Stage
	prior := r.session.Pairs

	if r.generator != nil {
		q, err := r.generator.Next(ctx, stage, prior)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, question.ErrGeneration) {
			return "", err
		}
		r.logger.Warn("question generation failed, falling back to catalog",
			zap.String("stage", string(stage)),
			zap.Error(err))
	}

	return r.static.Next(ctx, stage, prior)
}

// SubmitAnswer records the candidate's answer to the pending question,
// advancing the stage when its planned question count is met. When no
// question is pending one is fetched first, so callers may drive the
// interview through SubmitAnswer alone. The in-memory session only moves
// after the new state is persisted.
func (r *Runner) SubmitAnswer(ctx context.Context, raw string) (*screening.QAPair, error) {
	if r.session == nil {
		return nil, fmt.Errorf("%w: no active session", ErrValidation)
	}
	if r.session.Stage.Terminal() {
		return nil, fmt.Errorf("session %s: %w", r.session.ID, ErrSessionClosed)
	}

	if r.pending == "" {
		if _, err := r.NextQuestion(ctx); err != nil {
			return nil, err
		}
	}

	norm := screening.Normalize(raw)
	if norm.Text == "" {
		return nil, fmt.Errorf("%w: answer is empty", ErrValidation)
	}

	pair := screening.QAPair{
		Stage:           r.session.Stage,
		Sequence:        r.session.NextSequence(),
		Question:        r.pending,
		RawAnswer:       raw,
		Answer:          norm.Text,
		ExperienceYears: norm.ExperienceYears,
		AskedAt:         r.now().UTC(),
	}

	next := r.session.Clone()
	next.Pairs = append(next.Pairs, pair)
	for !next.Stage.Terminal() && next.StageCount(next.Stage) >= r.plan.Questions(next.Stage) {
		next.Stage = next.Stage.Next()
	}
	if next.Stage.Terminal() {
		next.Completed = true
	}
	next.UpdatedAt = r.now().UTC()

	if err := r.store.SaveSession(ctx, next); err != nil {
		return nil, err
	}

	finished := next.Stage.Terminal() && !r.session.Stage.Terminal()
	r.session = next
	r.pending = ""

	if finished {
		r.logger.Info("session completed",
			zap.String("session_id", next.ID),
			zap.Int("answers", len(next.Pairs)))
		r.analyze(ctx, next.ID)
	}

	return &next.Pairs[len(next.Pairs)-1], nil
}

// analyze runs the configured analyzer. A scoring failure is logged, not
// surfaced: the answers are already safely persisted.
func (r *Runner) analyze(ctx context.Context, sessionID string) {
	if r.analyzer == nil {
		return
	}
	if err := r.analyzer.Run(ctx, sessionID); err != nil {
		r.logger.Warn("analysis failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
