package domain

// SelectorRules is the rule table strategy selection evaluates, kept as one
// value so deployments can override the trigger sets without rebuilding.
type SelectorRules struct {
	RecencyKeywords []string `yaml:"recency_keywords" json:"recency_keywords"`
	DocumentMarkers []string `yaml:"document_markers" json:"document_markers"`
	QuoteMarkers    []string `yaml:"quote_markers" json:"quote_markers"`
	RewriteSuffix   string   `yaml:"rewrite_suffix" json:"rewrite_suffix"`
	MinQueryTokens  int      `yaml:"min_query_tokens" json:"min_query_tokens"`
}

// DefaultSelectorRules returns the built-in trigger sets. The mixed-language
// keyword lists mirror the corpora the engine is deployed against.
func DefaultSelectorRules() SelectorRules {
	return SelectorRules{
		RecencyKeywords: []string{"最新", "新闻", "实时", "current", "latest"},
		DocumentMarkers: []string{"文档"},
		QuoteMarkers:    []string{`"`, "`"},
		RewriteSuffix:   " 相关信息和详细内容",
		MinQueryTokens:  3,
	}
}

// Normalize fills empty fields from the defaults so a partial override file
// never disables a rule class by accident.
func (r SelectorRules) Normalize() SelectorRules {
	def := DefaultSelectorRules()
	out := r
	if len(out.RecencyKeywords) == 0 {
		out.RecencyKeywords = def.RecencyKeywords
	}
	if len(out.DocumentMarkers) == 0 {
		out.DocumentMarkers = def.DocumentMarkers
	}
	if len(out.QuoteMarkers) == 0 {
		out.QuoteMarkers = def.QuoteMarkers
	}
	if out.RewriteSuffix == "" {
		out.RewriteSuffix = def.RewriteSuffix
	}
	if out.MinQueryTokens <= 0 {
		out.MinQueryTokens = def.MinQueryTokens
	}
	return out
}
