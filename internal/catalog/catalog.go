// Package catalog loads the achievement catalog from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Achievements []models.Achievement `yaml:"achievements"`
}

// Default returns the built-in catalog.
func Default() ([]models.Achievement, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) ([]models.Achievement, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog. Positions follow document order.
func Parse(data []byte) ([]models.Achievement, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Achievements) == 0 {
		return nil, fmt.Errorf("catalog has no achievements")
	}

	for i := range f.Achievements {
		a := &f.Achievements[i]
		if a.ID == "" {
			return nil, fmt.Errorf("achievement %d has no id", i)
		}
		if a.Name == "" {
			a.Name = a.ID
		}
		if a.Threshold <= 0 {
			return nil, fmt.Errorf("achievement %q: threshold must be positive", a.ID)
		}
		if a.XPReward < 0 || a.PointsReward < 0 {
			return nil, fmt.Errorf("achievement %q: rewards must not be negative", a.ID)
		}
		if a.XPReward > progression.MaxReward || a.PointsReward > progression.MaxReward {
			return nil, fmt.Errorf("achievement %q: rewards must not exceed %d", a.ID, progression.MaxReward)
		}
		a.Position = i
	}

	// The evaluator rejects duplicate ids and unknown requirement kinds.
	if _, err := progression.NewEvaluator(f.Achievements); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return f.Achievements, nil
}
