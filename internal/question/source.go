// Package question supplies interview questions, either from a fixed
// per-stage catalog or from an external generator.
package question

import (
	"context"
	"errors"

	"github.com/talentscout/screener/internal/screening"
)

var (
	// ErrExhausted is returned by the static source when a stage's list has
	// no questions left. It indicates a mismatch between the interview plan
	// and the catalog, a configuration defect.
	ErrExhausted = errors.New("question catalog exhausted for stage")

	// ErrGeneration is returned by the generated source when the external
	// generator fails or times out. Callers fall back to the static source
	// for that turn.
	ErrGeneration = errors.New("question generation failed")
)

// Source supplies the next question for a stage. Prior pairs carry the
// conversation so far; implementations decide how much of it they use.
type Source interface {
	Next(ctx context.Context, stage screening.Stage, prior []screening.QAPair) (string, error)
}
