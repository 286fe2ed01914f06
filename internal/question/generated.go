package question

import (
	"context"
	"fmt"
	"time"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/screening"
)

const defaultGenerateTimeout = 15 * time.Second

// Generated delegates to an external generator, passing the session's prior
// pairs as context. One call per question, bounded by a fixed timeout, no
// retries: a failure surfaces as ErrGeneration and the caller falls back to
// the static catalog for that turn.
type Generated struct {
	generator ai.QuestionGenerator
	candidate *screening.Candidate
	timeout   time.Duration
}

// NewGenerated creates a generated source for one candidate's interview.
func NewGenerated(generator ai.QuestionGenerator, candidate *screening.Candidate, timeout time.Duration) *Generated {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}

	return &Generated{
		generator: generator,
		candidate: candidate,
		timeout:   timeout,
	}
}

// Next implements Source.
func (g *Generated) Next(ctx context.Context, stage screening.Stage, prior []screening.QAPair) (string, error) {
	if stage.Terminal() {
		return "", fmt.Errorf("stage %s takes no questions", stage)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.generator.GenerateQuestion(ctx, &ai.QuestionRequest{
		Stage:     stage,
		Candidate: g.candidate,
		Prior:     prior,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	return text, nil
}
