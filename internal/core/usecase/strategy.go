package usecase

import (
	"strings"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

const (
	defaultResultLimit    = 10
	defaultScoreThreshold = 0.5

	// Hybrid fusion weights are a fixed default and intentionally not
	// overridable through SearchContext.
	hybridVectorWeight  = 0.7
	hybridKeywordWeight = 0.3
)

// StrategyPlanner turns a free-text query plus call context into a
// RetrievalPlan. Selection is a short ordered rule list; first match wins.
type StrategyPlanner struct {
	rules domain.SelectorRules
}

func NewStrategyPlanner(rules domain.SelectorRules) *StrategyPlanner {
	return &StrategyPlanner{rules: rules.Normalize()}
}

// Plan rewrites the query if it is too short, selects a strategy from the
// rewritten text, and assembles parameters and the fallback entry. The
// original query is preserved verbatim for traceability.
func (p *StrategyPlanner) Plan(query string, sctx domain.SearchContext) domain.RetrievalPlan {
	rewritten := p.rewriteQuery(query)
	strategy := p.selectStrategy(rewritten, sctx)

	return domain.RetrievalPlan{
		StrategyType:  strategy,
		DataSource:    dataSourceFor(strategy),
		Query:         rewritten,
		OriginalQuery: query,
		Filters:       sctx.Filters,
		Parameters:    buildParameters(sctx, strategy),
		Fallback:      fallbackFor(strategy),
	}
}

// rewriteQuery expands queries under the token threshold with the fixed
// elaboration suffix. An empty query has zero tokens and is always expanded.
func (p *StrategyPlanner) rewriteQuery(query string) string {
	if len(strings.Fields(query)) < p.rules.MinQueryTokens {
		return query + p.rules.RewriteSuffix
	}
	return query
}

func (p *StrategyPlanner) selectStrategy(query string, sctx domain.SearchContext) domain.SearchStrategy {
	lowered := strings.ToLower(query)

	if containsAny(lowered, p.rules.RecencyKeywords) {
		return domain.StrategyWeb
	}
	if sctx.DocType == "pdf" || containsAny(query, p.rules.DocumentMarkers) {
		return domain.StrategyVector
	}
	if containsAny(query, p.rules.QuoteMarkers) {
		return domain.StrategyKeyword
	}
	return domain.StrategyHybrid
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func dataSourceFor(strategy domain.SearchStrategy) string {
	switch strategy {
	case domain.StrategyVector, domain.StrategyHybrid:
		return domain.SourceVectorStore
	case domain.StrategyKeyword:
		return domain.SourceKeywordIndex
	case domain.StrategyWeb:
		return domain.SourceWebSearch
	case domain.StrategyCRM:
		return domain.SourceCRMAPI
	default:
		return "unknown"
	}
}

// fallbackFor returns the secondary strategy tried on an empty primary
// dispatch. Web and CRM have no fallback.
func fallbackFor(strategy domain.SearchStrategy) *domain.FallbackPlan {
	var next domain.SearchStrategy
	switch strategy {
	case domain.StrategyVector, domain.StrategyHybrid:
		next = domain.StrategyKeyword
	case domain.StrategyKeyword:
		next = domain.StrategyWeb
	default:
		return nil
	}
	return &domain.FallbackPlan{
		StrategyType: next,
		DataSource:   dataSourceFor(next),
	}
}

func buildParameters(sctx domain.SearchContext, strategy domain.SearchStrategy) domain.SearchParameters {
	params := domain.SearchParameters{
		Limit:          defaultResultLimit,
		ScoreThreshold: defaultScoreThreshold,
	}
	if sctx.Limit > 0 {
		params.Limit = sctx.Limit
	}
	if sctx.ScoreThreshold != nil {
		params.ScoreThreshold = *sctx.ScoreThreshold
	}

	switch strategy {
	case domain.StrategyVector:
		params.SearchFields = []string{"content", "summary"}
	case domain.StrategyKeyword:
		params.SearchFields = []string{"title", "content", "keywords"}
	case domain.StrategyHybrid:
		params.VectorWeight = hybridVectorWeight
		params.KeywordWeight = hybridKeywordWeight
	}
	return params
}
