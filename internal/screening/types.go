// Package screening holds the domain model shared by the interview flow, the
// persistence store, the analysis pass and the dashboard.
package screening

import "time"

// Candidate is the identity record created once at interview start. It is
// immutable after creation; completion is tracked on the Session.
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// QAPair is one question/answer exchange. Pairs are append-only within a
// session and immutable once written.
type QAPair struct {
	Stage     Stage     `json:"stage"`
	Sequence  int       `json:"sequence"`
	Question  string    `json:"question"`
	RawAnswer string    `json:"raw_answer"`
	// Answer is the normalized form of RawAnswer used for comparison and
	// scoring.
	Answer          string    `json:"answer"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
	AskedAt         time.Time `json:"asked_at"`
}

// Session is the full state of one candidate's interview.
type Session struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Stage       Stage     `json:"stage"`
	Pairs       []QAPair  `json:"pairs"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StageCount returns how many pairs have been recorded for the given stage.
func (s *Session) StageCount(stage Stage) int {
	count := 0
	for _, p := range s.Pairs {
		if p.Stage == stage {
			count++
		}
	}
	return count
}

// NextSequence returns the sequence index the next pair must carry. Sequence
// indexes are gapless and strictly increasing from zero.
func (s *Session) NextSequence() int {
	return len(s.Pairs)
}

// Clone returns a deep copy of the session. The interview flow mutates a
// clone and swaps it in only after a successful save, keeping in-memory and
// stored state consistent.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Pairs = make([]QAPair, len(s.Pairs))
	copy(clone.Pairs, s.Pairs)
	return &clone
}

// AnalysisResult is the derived summary attached to a completed session.
// Exactly one exists per DONE session; re-running the analysis overwrites it.
type AnalysisResult struct {
	SessionID   string            `json:"session_id"`
	StageScores map[Stage]float64 `json:"stage_scores"`
	Overall     float64           `json:"overall"`
	Summary     string            `json:"summary"`
	// Qualitative carries the optional LLM verdict. Empty when scoring
	// degraded to heuristics only.
	Qualitative string    `json:"qualitative,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Plan maps each asking stage to the number of questions it holds. StageDone
// never appears in a plan.
type Plan map[Stage]int

// DefaultPlan is the standard five-question screening script spread across
// the four asking stages.
func DefaultPlan() Plan {
	return Plan{
		StageIntro:     1,
		StageTechnical: 2,
		StageHR:        1,
		StageClosing:   1,
	}
}

// Questions returns the configured question count for a stage.
func (p Plan) Questions(stage Stage) int {
	return p[stage]
}

// Total returns the number of questions across all stages.
func (p Plan) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}
