package config

import (
	"fmt"
	"os"

	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// LoadRules reads a rule replacement map from a YAML or JSON file. An empty path
// returns nil, which selects the built-in rules.
func LoadRules(path string) (criteria.RuleSet, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules, err := criteria.ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}
