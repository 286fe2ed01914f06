// Package analysis turns a finished interview transcript into stage scores
// and a summary for the dashboard.
package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/talentscout/screener/internal/screening"
)

// techKeywords are signals of substance in technical answers. Matching is
// case-insensitive against the normalized answer text.
var techKeywords = []string{
	"api", "architecture", "cache", "concurren", "database", "debug",
	"deploy", "design", "docker", "kubernetes", "latency", "microservice",
	"monitor", "performance", "queue", "scal", "schema", "security",
	"sql", "test",
}

// Score computes the deterministic heuristic result for a session. It is a
// pure function of the transcript: the same pairs always produce the same
// scores.
func Score(session *screening.Session) *screening.AnalysisResult {
	byStage := map[screening.Stage][]screening.QAPair{}
	for _, pair := range session.Pairs {
		byStage[pair.Stage] = append(byStage[pair.Stage], pair)
	}

	scores := map[screening.Stage]float64{}
	for stage, pairs := range byStage {
		scores[stage] = stageScore(stage, pairs)
	}

	var overall float64
	if len(scores) > 0 {
		for _, s := range scores {
			overall += s
		}
		overall = round1(overall / float64(len(scores)))
	}

	return &screening.AnalysisResult{
		SessionID:   session.ID,
		StageScores: scores,
		Overall:     overall,
		Summary:     summarize(session, scores),
		CreatedAt:   time.Now().UTC(),
	}
}

func stageScore(stage screening.Stage, pairs []screening.QAPair) float64 {
	if len(pairs) == 0 {
		return 0
	}

	var total float64
	for _, pair := range pairs {
		switch stage {
		case screening.StageTechnical:
			total += technicalScore(pair.Answer)
		case screening.StageHR:
			total += lengthScore(pair.Answer)
		default:
			total += presenceScore(pair.Answer)
		}
	}
	return round1(total / float64(len(pairs)))
}

// technicalScore rewards recognizable engineering vocabulary and enough
// words to carry an explanation.
func technicalScore(answer string) float64 {
	score := 2.0
	for _, kw := range techKeywords {
		if strings.Contains(answer, kw) {
			score++
		}
		if score >= 7 {
			break
		}
	}
	score += math.Min(3, float64(wordCount(answer))/30)
	return math.Min(10, round1(score))
}

// lengthScore maps answer length to fixed tiers. Behavioral answers are
// judged on effort, not vocabulary.
func lengthScore(answer string) float64 {
	switch words := wordCount(answer); {
	case words < 5:
		return 3
	case words < 20:
		return 6
	case words < 60:
		return 8
	default:
		return 9
	}
}

// presenceScore gives credit for showing up with anything beyond a
// one-liner. Intro and closing answers carry no scoring signal.
func presenceScore(answer string) float64 {
	score := 5 + math.Min(5, float64(wordCount(answer))/6)
	return round1(score)
}

func summarize(session *screening.Session, scores map[screening.Stage]float64) string {
	var parts []string
	for _, stage := range screening.Stages() {
		if s, ok := scores[stage]; ok {
			parts = append(parts, fmt.Sprintf("%s %.1f", strings.ToLower(string(stage)), s))
		}
	}
	header := fmt.Sprintf("%d answers", len(session.Pairs))
	if years := maxYears(session.Pairs); years != nil {
		header += fmt.Sprintf(", %d years of experience mentioned", *years)
	}
	if len(parts) == 0 {
		return header
	}
	return header + "; " + strings.Join(parts, ", ")
}

func maxYears(pairs []screening.QAPair) *int {
	var max *int
	for _, pair := range pairs {
		if pair.ExperienceYears == nil {
			continue
		}
		if max == nil || *pair.ExperienceYears > *max {
			v := *pair.ExperienceYears
			max = &v
		}
	}
	return max
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
