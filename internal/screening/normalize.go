package screening

import (
	"regexp"
	"strconv"
	"strings"
)

// Normalized is the result of cleaning a raw candidate answer. Pattern
// extraction fails soft: when nothing matches, the structured fields stay
// unset and only the cleaned text is returned.
type Normalized struct {
	// Text is the cleaned, lowercased form used for comparison and scoring.
	Text string
	// Original preserves the candidate's casing after whitespace cleanup.
	Original string
	// ExperienceYears is set when the answer mentions a number of years of
	// experience, nil otherwise.
	ExperienceYears *int
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	yearsPattern  = regexp.MustCompile(`(\d{1,2})\s*\+?\s*(?:years?|yrs?)\b`)
)

// Normalize cleans raw answer text. It is a pure function and never fails:
// normalizing the same input twice yields identical output.
func Normalize(raw string) Normalized {
	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")

	n := Normalized{
		Text:     strings.ToLower(cleaned),
		Original: cleaned,
	}

	if m := yearsPattern.FindStringSubmatch(n.Text); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil {
			n.ExperienceYears = &years
		}
	}

	return n
}
