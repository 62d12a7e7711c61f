package store

import (
	"context"
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/call-pipeline/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

// Vocabulary is the closed objection-type and technology vocabulary the
// writer links extraction results against.
type Vocabulary struct {
	ObjectionTypes []model.ObjectionType `yaml:"objection_types"`
	Technologies   []model.Technology    `yaml:"technologies"`
}

// DefaultVocabulary parses the embedded seed file.
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(seedYAML)
}

// ParseVocabulary parses a vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "store: parse vocabulary")
	}
	for i, ot := range v.ObjectionTypes {
		if ot.Key == "" {
			return nil, eris.Errorf("store: objection type %d has no key", i)
		}
	}
	for i, t := range v.Technologies {
		if t.Name == "" {
			return nil, eris.Errorf("store: technology %d has no name", i)
		}
	}
	return &v, nil
}

// SeedResult reports how many vocabulary rows were newly inserted.
type SeedResult struct {
	ObjectionTypes int
	Technologies   int
}

// Seed inserts the vocabulary into the store. Existing entries are left
// untouched, so seeding is idempotent.
func Seed(ctx context.Context, st Store, v *Vocabulary) (*SeedResult, error) {
	ot, err := st.SeedObjectionTypes(ctx, v.ObjectionTypes)
	if err != nil {
		return nil, eris.Wrap(err, "store: seed objection types")
	}
	tech, err := st.SeedTechnologies(ctx, v.Technologies)
	if err != nil {
		return nil, eris.Wrap(err, "store: seed technologies")
	}
	return &SeedResult{ObjectionTypes: ot, Technologies: tech}, nil
}
