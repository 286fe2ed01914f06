package screening

import "fmt"

// Stage is one phase of the interview. Stages only ever move forward, one
// step at a time, until StageDone is reached.
type Stage string

const (
	StageIntro     Stage = "INTRO"
	StageTechnical Stage = "TECHNICAL"
	StageHR        Stage = "HR"
	StageClosing   Stage = "CLOSING"
	StageDone      Stage = "DONE"
)

// stageOrder defines the single allowed transition path.
var stageOrder = []Stage{StageIntro, StageTechnical, StageHR, StageClosing, StageDone}

// Stages returns the interview stages in their forward order, including StageDone.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Next returns the stage that follows s. StageDone is terminal and returns itself.
func (s Stage) Next() Stage {
	for i, stage := range stageOrder {
		if stage == s && i < len(stageOrder)-1 {
			return stageOrder[i+1]
		}
	}
	return StageDone
}

// Terminal reports whether s is the final stage.
func (s Stage) Terminal() bool {
	return s == StageDone
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, stage := range stageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// ParseStage converts a stored stage value back into a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown interview stage: %q", raw)
	}
	return s, nil
}
