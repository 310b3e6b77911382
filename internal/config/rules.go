package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// LoadSelectorRules reads a strategy rule override file. An empty path means
// run with the built-in rules; a present but unreadable or malformed file is
// a startup error rather than a silent fallback.
func LoadSelectorRules(path string) (domain.SelectorRules, error) {
	if path == "" {
		return domain.DefaultSelectorRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SelectorRules{}, fmt.Errorf("read selector rules: %w", err)
	}

	var rules domain.SelectorRules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return domain.SelectorRules{}, domain.WrapError(domain.ErrInvalidInput, "parse selector rules", err)
	}
	return rules.Normalize(), nil
}
