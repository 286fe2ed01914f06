package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentscout/screener/internal/screening"
	"github.com/talentscout/screener/internal/store"
)

type fakeStore struct {
	summaries []store.Summary
	details   map[string]*store.Detail
	listErr   error

	lastFilter store.Filter
}

func (f *fakeStore) ListSessions(_ context.Context, filter store.Filter) ([]store.Summary, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeStore) GetDetail(_ context.Context, id string) (*store.Detail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return d, nil
}

func newTestServer(f *fakeStore) *Server {
	return New(f, nil)
}

func doRequest(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(newTestServer(&fakeStore{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestListSessions(t *testing.T) {
	score := 7.5
	f := &fakeStore{summaries: []store.Summary{{
		SessionID: "s1",
		Name:      "Ava",
		Email:     "ava@example.com",
		Role:      "Engineer",
		Stage:     screening.StageDone,
		Questions: 5,
		Completed: true,
		Score:     &score,
		UpdatedAt: time.Now().UTC(),
	}}}

	rec := doRequest(newTestServer(f), "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sessions []store.Summary `json:"sessions"`
		Count    int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "Ava", body.Sessions[0].Name)
	require.NotNil(t, body.Sessions[0].Score)
	assert.Equal(t, 7.5, *body.Sessions[0].Score)
}

func TestListSessionsEmpty(t *testing.T) {
	rec := doRequest(newTestServer(&fakeStore{}), "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessions":[]`)
}

func TestListSessionsStageFilter(t *testing.T) {
	f := &fakeStore{}
	rec := doRequest(newTestServer(f), "/api/sessions?stage=technical")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, screening.StageTechnical, f.lastFilter.Stage)
}

func TestListSessionsMinScoreFilter(t *testing.T) {
	f := &fakeStore{}
	rec := doRequest(newTestServer(f), "/api/sessions?min_score=6.5")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.lastFilter.MinScore)
	assert.Equal(t, 6.5, *f.lastFilter.MinScore)
}

func TestListSessionsBadFilters(t *testing.T) {
	s := newTestServer(&fakeStore{})

	rec := doRequest(s, "/api/sessions?stage=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, "/api/sessions?min_score=high")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessionsStoreFailure(t *testing.T) {
	f := &fakeStore{listErr: errors.New("disk on fire")}
	rec := doRequest(newTestServer(f), "/api/sessions")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestGetSession(t *testing.T) {
	f := &fakeStore{details: map[string]*store.Detail{
		"s1": {
			Candidate: screening.Candidate{ID: "c1", Name: "Ava", Email: "ava@example.com", Role: "Engineer"},
			Session: screening.Session{
				ID:          "s1",
				CandidateID: "c1",
				Stage:       screening.StageDone,
				Completed:   true,
				Pairs: []screening.QAPair{
					{Stage: screening.StageIntro, Sequence: 0, Question: "Tell me about yourself.", Answer: "hi, i am ava"},
				},
			},
			Analysis: &screening.AnalysisResult{SessionID: "s1", Overall: 8.0},
		},
	}}

	rec := doRequest(newTestServer(f), "/api/sessions/s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail store.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Ava", detail.Candidate.Name)
	require.Len(t, detail.Session.Pairs, 1)
	require.NotNil(t, detail.Analysis)
	assert.Equal(t, 8.0, detail.Analysis.Overall)
}

func TestGetSessionNotFound(t *testing.T) {
	rec := doRequest(newTestServer(&fakeStore{details: map[string]*store.Detail{}}), "/api/sessions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexRendersStats(t *testing.T) {
	score := 6.0
	f := &fakeStore{summaries: []store.Summary{
		{SessionID: "s1", Name: "Ava", Stage: screening.StageDone, Completed: true, Score: &score, UpdatedAt: time.Now()},
		{SessionID: "s2", Name: "Ben", Stage: screening.StageTechnical, UpdatedAt: time.Now()},
	}}

	rec := doRequest(newTestServer(f), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ava")
	assert.Contains(t, rec.Body.String(), "Ben")
	assert.Contains(t, rec.Body.String(), "Screening Dashboard")
}
