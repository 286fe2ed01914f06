package question

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/screening"
)

func TestStaticServesInOrder(t *testing.T) {
	t.Parallel()

	static, err := parseCatalog([]byte(`
stages:
  technical:
    - "first"
    - "second"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	q1, err := static.Next(ctx, screening.StageTechnical, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q1 != "first" {
		t.Fatalf("expected first question, got %q", q1)
	}

	prior := []screening.QAPair{{Stage: screening.StageTechnical, Question: "first", RawAnswer: "a"}}
	q2, err := static.Next(ctx, screening.StageTechnical, prior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q2 != "second" {
		t.Fatalf("expected second question, got %q", q2)
	}
}

func TestStaticExhausted(t *testing.T) {
	t.Parallel()

	static, err := parseCatalog([]byte(`
stages:
  technical:
    - "first"
    - "second"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prior := []screening.QAPair{
		{Stage: screening.StageTechnical, Question: "first", RawAnswer: "a"},
		{Stage: screening.StageTechnical, Question: "second", RawAnswer: "b"},
	}

	_, err = static.Next(context.Background(), screening.StageTechnical, prior)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestStaticIgnoresOtherStages(t *testing.T) {
	t.Parallel()

	static, err := parseCatalog([]byte(`
stages:
  intro:
    - "hello"
  technical:
    - "deep dive"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An answered intro pair must not advance the technical cursor.
	prior := []screening.QAPair{{Stage: screening.StageIntro, Question: "hello", RawAnswer: "hi"}}
	q, err := static.Next(context.Background(), screening.StageTechnical, prior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != "deep dive" {
		t.Fatalf("unexpected question: %q", q)
	}
}

func TestStaticRejectsDoneStage(t *testing.T) {
	t.Parallel()

	if _, err := parseCatalog([]byte("stages:\n  done:\n    - \"nope\"\n")); err == nil {
		t.Fatal("expected error for DONE stage in catalog")
	}
}

func TestDefaultCatalogCoversDefaultPlan(t *testing.T) {
	t.Parallel()

	static, err := NewStatic()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := static.Covers(screening.DefaultPlan()); err != nil {
		t.Fatalf("default catalog must cover the default plan: %v", err)
	}
}

type stubQuestionGenerator struct {
	text string
	err  error
}

func (s *stubQuestionGenerator) GenerateQuestion(_ context.Context, _ *ai.QuestionRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func TestGeneratedWrapsFailures(t *testing.T) {
	t.Parallel()

	candidate := &screening.Candidate{ID: "c1", Name: "Ava", Role: "Engineer"}
	gen := NewGenerated(&stubQuestionGenerator{err: errors.New("timeout")}, candidate, time.Second)

	_, err := gen.Next(context.Background(), screening.StageTechnical, nil)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGeneratedReturnsText(t *testing.T) {
	t.Parallel()

	candidate := &screening.Candidate{ID: "c1", Name: "Ava", Role: "Engineer"}
	gen := NewGenerated(&stubQuestionGenerator{text: "Why Go?"}, candidate, time.Second)

	q, err := gen.Next(context.Background(), screening.StageTechnical, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != "Why Go?" {
		t.Fatalf("unexpected question: %q", q)
	}
}
