package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentscout/screener/internal/screening"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	outcome, err := s.Init(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, SchemaCreated, outcome)

	return s
}

func newTestCandidate(t *testing.T, s *Store, email string) *screening.Candidate {
	t.Helper()

	c := &screening.Candidate{
		ID:        uuid.NewString(),
		Name:      "Ava Chen",
		Email:     email,
		Phone:     "+1 555 0000",
		Role:      "Engineer",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveCandidate(context.Background(), c))
	return c
}

func newTestSession(c *screening.Candidate) *screening.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &screening.Session{
		ID:          uuid.NewString(),
		CandidateID: c.ID,
		Stage:       screening.StageIntro,
		Pairs:       []screening.QAPair{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInitOutcomes(t *testing.T) {
	ctx := context.Background()

	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	outcome, err := s.Init(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, SchemaCreated, outcome)

	// Second init without force is a no-op and preserves data.
	c := newTestCandidate(t, s, "ava@example.com")

	outcome, err = s.Init(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, SchemaExists, outcome)

	got, err := s.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)

	// Forced init drops everything.
	outcome, err = s.Init(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, SchemaRecreated, outcome)

	_, err = s.GetCandidate(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	session := newTestSession(c)
	years := 5
	session.Pairs = append(session.Pairs, screening.QAPair{
		Stage:           screening.StageIntro,
		Sequence:        0,
		Question:        "Tell me about yourself.",
		RawAnswer:       "  I have 5 Years of experience  ",
		Answer:          "i have 5 years of experience",
		ExperienceYears: &years,
		AskedAt:         time.Now().UTC().Truncate(time.Second),
	})
	session.Stage = screening.StageTechnical

	require.NoError(t, s.SaveSession(ctx, session))

	got, err := s.LoadSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.CandidateID, got.CandidateID)
	assert.Equal(t, screening.StageTechnical, got.Stage)
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, session.Pairs[0], got.Pairs[0])
	assert.False(t, got.Completed)
}

func TestSaveSessionOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))

	session.Stage = screening.StageDone
	session.Completed = true
	session.Pairs = append(session.Pairs, screening.QAPair{
		Stage:    screening.StageIntro,
		Question: "q",
		Answer:   "a",
	})
	require.NoError(t, s.SaveSession(ctx, session))

	got, err := s.LoadSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, screening.StageDone, got.Stage)
	assert.True(t, got.Completed)
	assert.Len(t, got.Pairs, 1)
}

func TestLoadSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSessionByEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "resume@example.com")

	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))

	got, err := s.FindSessionByEmail(ctx, "resume@example.com")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = s.FindSessionByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSessionUnknownCandidate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := newTestSession(&screening.Candidate{ID: "no-such-candidate"})
	err := s.SaveSession(ctx, session)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestDeleteCandidate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	// Deletion is refused while a session references the candidate.
	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))
	assert.ErrorIs(t, s.DeleteCandidate(ctx, c.ID), ErrStorage)

	lone := &screening.Candidate{
		ID: uuid.NewString(), Name: "Ben", Email: "ben@example.com",
		Role: "Analyst", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveCandidate(ctx, lone))
	require.NoError(t, s.DeleteCandidate(ctx, lone.ID))

	assert.ErrorIs(t, s.DeleteCandidate(ctx, "missing"), ErrNotFound)
}

func TestAnalysisOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))

	first := &screening.AnalysisResult{
		SessionID: session.ID,
		Overall:   4.5,
		Summary:   "first pass",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveAnalysis(ctx, session.ID, first))

	second := &screening.AnalysisResult{
		SessionID: session.ID,
		Overall:   7.2,
		Summary:   "second pass",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveAnalysis(ctx, session.ID, second))

	got, err := s.LoadAnalysis(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "second pass", got.Summary)
	assert.Equal(t, 7.2, got.Overall)
}

func TestSaveAnalysisUnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveAnalysis(context.Background(), "missing", &screening.AnalysisResult{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadAnalysisAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))

	_, err := s.LoadAnalysis(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newTestCandidate(t, s, "a@example.com")
	b := &screening.Candidate{
		ID: uuid.NewString(), Name: "Ben", Email: "b@example.com",
		Role: "Analyst", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveCandidate(ctx, b))

	sa := newTestSession(a)
	sa.Stage = screening.StageTechnical
	require.NoError(t, s.SaveSession(ctx, sa))

	sb := newTestSession(b)
	sb.Stage = screening.StageDone
	sb.Completed = true
	require.NoError(t, s.SaveSession(ctx, sb))
	require.NoError(t, s.SaveAnalysis(ctx, sb.ID, &screening.AnalysisResult{
		SessionID: sb.ID, Overall: 8.0, CreatedAt: time.Now().UTC(),
	}))

	all, err := s.ListSessions(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	technical, err := s.ListSessions(ctx, Filter{Stage: screening.StageTechnical})
	require.NoError(t, err)
	require.Len(t, technical, 1)
	assert.Equal(t, sa.ID, technical[0].SessionID)
	assert.Nil(t, technical[0].Score)

	min := 5.0
	scored, err := s.ListSessions(ctx, Filter{MinScore: &min})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, sb.ID, scored[0].SessionID)
	require.NotNil(t, scored[0].Score)
	assert.Equal(t, 8.0, *scored[0].Score)
}

func TestGetDetail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newTestCandidate(t, s, "ava@example.com")

	session := newTestSession(c)
	require.NoError(t, s.SaveSession(ctx, session))

	detail, err := s.GetDetail(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, detail.Candidate.ID)
	assert.Equal(t, session.ID, detail.Session.ID)
	assert.Nil(t, detail.Analysis)

	require.NoError(t, s.SaveAnalysis(ctx, session.ID, &screening.AnalysisResult{
		SessionID: session.ID, Overall: 6.1, CreatedAt: time.Now().UTC(),
	}))

	detail, err = s.GetDetail(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Analysis)
	assert.Equal(t, 6.1, detail.Analysis.Overall)
}
