package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/screening"
	"go.uber.org/zap"
)

//go:embed scoring_prompt.md
var scoringPromptTemplate string

// Scorer asks Gemini for a qualitative verdict on a finished interview.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer creates a Scorer backed by the provided content generator.
func NewScorer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// ScoreAnswers implements ai.Scorer.
func (s *Scorer) ScoreAnswers(ctx context.Context, candidate *screening.Candidate, pairs []screening.QAPair) (*ai.ScoreCard, error) {
	if candidate == nil {
		return nil, fmt.Errorf("candidate is required")
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no answers to score")
	}

	candidatePayload := map[string]any{
		"name": candidate.Name,
		"role": candidate.Role,
	}

	candidateJSON, err := json.MarshalIndent(candidatePayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	prompt := buildScoringPrompt(string(candidateJSON), transcript(pairs))

	s.logger.Debug("gemini scoring request",
		zap.String("candidate_id", candidate.ID),
		zap.Int("pairs", len(pairs)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini scoring response",
		zap.String("candidate_id", candidate.ID),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	card, err := parseScoreCard(raw)
	if err != nil {
		return nil, err
	}

	card.Raw = raw
	return card, nil
}

func buildScoringPrompt(candidateJSON, transcript string) string {
	template := scoringPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nTranscript:\n{{TRANSCRIPT}}\n\nJSON verdict:"
	}

	prompt := strings.ReplaceAll(template, "{{CANDIDATE_JSON}}", candidateJSON)
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", transcript)
	return prompt
}

func parseScoreCard(raw string) (*ai.ScoreCard, error) {
	cleaned := stripFences(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini verdict: %w", err)
	}

	// Models occasionally return numbers as strings; coerce before decoding.
	if v, ok := data["overall"]; ok {
		data["overall"] = coerceFloat(v)
	}

	var card ai.ScoreCard
	cfg := &mapstructure.DecoderConfig{
		Result:  &card,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build verdict decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini verdict: %w", err)
	}

	if math.IsNaN(card.Overall) {
		card.Overall = 0
	}
	card.Verdict = strings.TrimSpace(card.Verdict)

	return &card, nil
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
