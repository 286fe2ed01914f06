package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/screening"
)

const defaultScoreTimeout = 20 * time.Second

// Store is the slice of persistence the pass needs.
type Store interface {
	LoadSession(ctx context.Context, id string) (*screening.Session, error)
	GetCandidate(ctx context.Context, id string) (*screening.Candidate, error)
	SaveAnalysis(ctx context.Context, sessionID string, result *screening.AnalysisResult) error
}

// Pass scores a session and persists the result. The heuristic always runs;
// when a model scorer is configured its output enriches the result, and a
// model failure degrades back to the heuristic alone.
type Pass struct {
	store   Store
	scorer  ai.Scorer
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a pass. scorer may be nil; logger may be nil.
func New(store Store, scorer ai.Scorer, logger *zap.Logger) *Pass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{
		store:   store,
		scorer:  scorer,
		timeout: defaultScoreTimeout,
		logger:  logger,
	}
}

// Run scores the session and overwrites any previously stored result.
func (p *Pass) Run(ctx context.Context, sessionID string) error {
	session, err := p.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	result := Score(session)

	if p.scorer != nil {
		if card, err := p.scoreWithModel(ctx, session); err != nil {
			p.logger.Warn("model scoring failed, keeping heuristic result",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			merge(result, card)
		}
	}

	if err := p.store.SaveAnalysis(ctx, sessionID, result); err != nil {
		return err
	}

	p.logger.Info("analysis saved",
		zap.String("session_id", sessionID),
		zap.Float64("overall", result.Overall))
	return nil
}

func (p *Pass) scoreWithModel(ctx context.Context, session *screening.Session) (*ai.ScoreCard, error) {
	candidate, err := p.store.GetCandidate(ctx, session.CandidateID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.scorer.ScoreAnswers(ctx, candidate, session.Pairs)
}

// merge folds the model's judgement into the heuristic result. The model
// owns the overall score and the qualitative text; stage scores stay
// heuristic.
func merge(result *screening.AnalysisResult, card *ai.ScoreCard) {
	result.Overall = card.Overall

	var b strings.Builder
	if card.Verdict != "" {
		b.WriteString(card.Verdict)
	}
	if len(card.Strengths) > 0 {
		fmt.Fprintf(&b, "\nStrengths: %s", strings.Join(card.Strengths, "; "))
	}
	if len(card.Concerns) > 0 {
		fmt.Fprintf(&b, "\nConcerns: %s", strings.Join(card.Concerns, "; "))
	}
	result.Qualitative = strings.TrimSpace(b.String())
}
