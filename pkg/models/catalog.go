package models

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the fixed quiz vocabulary: the selectable values for every
// quiz screen. Free-text note entries extend PreferredNotes per user but
// never mutate the catalog itself.
type Catalog struct {
	ScentFamilies         []string `yaml:"scent_families"`
	Occasions             []string `yaml:"occasions"`
	Moods                 []string `yaml:"moods"`
	ProjectionPreferences []string `yaml:"projection_preferences"`
	SeasonClimates        []string `yaml:"season_climates"`
	BudgetRanges          []string `yaml:"budget_ranges"`
	PreferredNotes        []string `yaml:"preferred_notes"`
}

// LoadCatalog parses the embedded vocabulary. It fails only if the embedded
// file is malformed or a section is empty, which is a build defect.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	sections := map[string][]string{
		"scent_families":         c.ScentFamilies,
		"occasions":              c.Occasions,
		"moods":                  c.Moods,
		"projection_preferences": c.ProjectionPreferences,
		"season_climates":        c.SeasonClimates,
		"budget_ranges":          c.BudgetRanges,
		"preferred_notes":        c.PreferredNotes,
	}
	for name, values := range sections {
		if len(values) == 0 {
			return nil, fmt.Errorf("catalog section %s is empty", name)
		}
	}

	return &c, nil
}

// Contains reports whether value is present in the given vocabulary list.
func Contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
