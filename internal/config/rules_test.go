package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

func TestLoadSelectorRulesEmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadSelectorRules("")
	if err != nil {
		t.Fatalf("LoadSelectorRules() error = %v", err)
	}
	if len(rules.RecencyKeywords) == 0 || rules.MinQueryTokens != 3 {
		t.Fatalf("rules = %+v", rules)
	}
}

func TestLoadSelectorRulesPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := []byte("recency_keywords: [\"breaking\", \"today\"]\nmin_query_tokens: 2\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	rules, err := LoadSelectorRules(path)
	if err != nil {
		t.Fatalf("LoadSelectorRules() error = %v", err)
	}
	if len(rules.RecencyKeywords) != 2 || rules.RecencyKeywords[0] != "breaking" {
		t.Fatalf("recency keywords = %v", rules.RecencyKeywords)
	}
	if rules.MinQueryTokens != 2 {
		t.Fatalf("min tokens = %d", rules.MinQueryTokens)
	}
	if rules.RewriteSuffix == "" || len(rules.DocumentMarkers) == 0 {
		t.Fatalf("expected defaults to fill omitted fields, got %+v", rules)
	}
}

func TestLoadSelectorRulesMissingFileFails(t *testing.T) {
	if _, err := LoadSelectorRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadSelectorRulesMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("recency_keywords: {broken"), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	_, err := LoadSelectorRules(path)
	if err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
