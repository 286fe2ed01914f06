package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/screening"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed question_prompt.md
var questionPromptTemplate string

const defaultMaxLogLength = 200

// stageGuidance steers the model toward the kind of question each stage asks.
var stageGuidance = map[screening.Stage]string{
	screening.StageIntro:     "A warm opening question about the candidate's background and motivation for the role.",
	screening.StageTechnical: "A technical question probing depth in the candidate's stated stack. Build on earlier answers where possible.",
	screening.StageHR:        "A behavioural question about teamwork, conflict or working style.",
	screening.StageClosing:   "A short closing question about expectations, availability or questions for the team.",
}

// Interviewer asks Gemini for the next interview question. The result is
// treated as opaque text.
type Interviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewInterviewer creates a question generator backed by the provided content generator.
func NewInterviewer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Interviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Interviewer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// GenerateQuestion implements ai.QuestionGenerator.
func (i *Interviewer) GenerateQuestion(ctx context.Context, req *ai.QuestionRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("question request is required")
	}
	if req.Candidate == nil {
		return "", fmt.Errorf("candidate is required")
	}

	candidatePayload := map[string]any{
		"name": req.Candidate.Name,
		"role": req.Candidate.Role,
	}

	candidateJSON, err := json.MarshalIndent(candidatePayload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	prompt := buildQuestionPrompt(req.Stage, string(candidateJSON), transcript(req.Prior))

	i.logger.Debug("gemini question request",
		zap.String("stage", string(req.Stage)),
		zap.Int("prior_pairs", len(req.Prior)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, i.maxLogLen)),
	)

	raw, err := i.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	i.logger.Debug("gemini question response",
		zap.String("stage", string(req.Stage)),
		zap.String("response_preview", logger.TruncateForLog(raw, i.maxLogLen)),
	)

	question := stripFences(raw)
	if question == "" {
		return "", fmt.Errorf("gemini returned an empty question")
	}

	return question, nil
}

func buildQuestionPrompt(stage screening.Stage, candidateJSON, transcript string) string {
	template := questionPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nTranscript:\n{{TRANSCRIPT}}\n\nAsk the next {{STAGE}} question:"
	}

	guidance := stageGuidance[stage]
	prompt := strings.ReplaceAll(template, "{{STAGE}}", string(stage))
	prompt = strings.ReplaceAll(prompt, "{{STAGE_GUIDANCE}}", guidance)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_JSON}}", candidateJSON)
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", transcript)
	return prompt
}

// transcript renders prior exchanges as plain text context for the model.
func transcript(pairs []screening.QAPair) string {
	if len(pairs) == 0 {
		return "(no questions asked yet)"
	}

	var builder strings.Builder
	for _, pair := range pairs {
		fmt.Fprintf(&builder, "[%s] Q%d: %s\n", pair.Stage, pair.Sequence+1, pair.Question)
		fmt.Fprintf(&builder, "A%d: %s\n", pair.Sequence+1, pair.RawAnswer)
	}
	return strings.TrimSpace(builder.String())
}

// stripFences removes a surrounding markdown code block when the model wraps
// its answer in one.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
