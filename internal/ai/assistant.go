package ai

import (
	"context"

	"github.com/talentscout/screener/internal/screening"
)

// QuestionRequest carries the context a generator needs to produce the next
// interview question.
type QuestionRequest struct {
	Stage     screening.Stage
	Candidate *screening.Candidate
	Prior     []screening.QAPair
}

// ScoreCard is the qualitative verdict returned by a scoring provider. Raw
// keeps the unparsed provider output for debugging.
type ScoreCard struct {
	Overall   float64  `json:"overall"`
	Strengths []string `json:"strengths"`
	Concerns  []string `json:"concerns"`
	Verdict   string   `json:"verdict"`
	Raw       string   `json:"-"`
}

// QuestionGenerator produces one interview question from an external model.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, req *QuestionRequest) (string, error)
}

// Scorer produces a qualitative assessment of a finished interview.
type Scorer interface {
	ScoreAnswers(ctx context.Context, candidate *screening.Candidate, pairs []screening.QAPair) (*ScoreCard, error)
}
