package question

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"github.com/talentscout/screener/internal/screening"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// catalogFile is the YAML layout of a question catalog.
type catalogFile struct {
	Stages map[string][]string `yaml:"stages"`
}

// Static serves questions from a fixed per-stage ordered list. It is
// deterministic: the question returned depends only on how many pairs the
// session already holds for the stage, which also makes resuming an
// interview safe.
type Static struct {
	catalog map[screening.Stage][]string
}

// NewStatic builds a static source from the embedded default catalog.
func NewStatic() (*Static, error) {
	return parseCatalog(defaultCatalog)
}

// LoadStatic builds a static source from a YAML catalog file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question catalog %q: %w", path, err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Static, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing question catalog: %w", err)
	}

	catalog := make(map[screening.Stage][]string, len(file.Stages))
	for name, questions := range file.Stages {
		stage, err := screening.ParseStage(strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("question catalog: %w", err)
		}
		if stage.Terminal() {
			return nil, fmt.Errorf("question catalog: stage %s takes no questions", stage)
		}

		cleaned := make([]string, 0, len(questions))
		for _, q := range questions {
			if q = strings.TrimSpace(q); q != "" {
				cleaned = append(cleaned, q)
			}
		}
		catalog[stage] = cleaned
	}

	return &Static{catalog: catalog}, nil
}

// Next implements Source. The prior pair count for the stage selects the
// next catalog entry.
func (s *Static) Next(_ context.Context, stage screening.Stage, prior []screening.QAPair) (string, error) {
	if stage.Terminal() {
		return "", fmt.Errorf("stage %s takes no questions", stage)
	}

	asked := 0
	for _, p := range prior {
		if p.Stage == stage {
			asked++
		}
	}

	list := s.catalog[stage]
	if asked >= len(list) {
		return "", fmt.Errorf("%w: %s has %d questions, %d already asked", ErrExhausted, stage, len(list), asked)
	}

	return list[asked], nil
}

// Count returns how many questions the catalog holds for a stage.
func (s *Static) Count(stage screening.Stage) int {
	return len(s.catalog[stage])
}

// Covers reports whether the catalog can serve the whole plan on its own,
// which is required for the generation fallback to always succeed.
func (s *Static) Covers(plan screening.Plan) error {
	for stage, want := range plan {
		if have := s.Count(stage); have < want {
			return fmt.Errorf("catalog covers %d of %d %s questions", have, want, stage)
		}
	}
	return nil
}
