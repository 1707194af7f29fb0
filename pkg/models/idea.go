// Package models contains domain models for inspo.
package models

// ComplexityLevel classifies how hard an idea is to build.
type ComplexityLevel string

const (
	ComplexityMVP     ComplexityLevel = "mvp"
	ComplexityMedium  ComplexityLevel = "medium"
	ComplexityComplex ComplexityLevel = "complex"
)

// TargetMarket classifies who an idea is for.
type TargetMarket string

const (
	TargetB2B        TargetMarket = "b2b"
	TargetB2C        TargetMarket = "b2c"
	TargetEnterprise TargetMarket = "enterprise"
	TargetConsumer   TargetMarket = "consumer"
)

// Tag is a (category, value) label attached to ideas. The category set is
// open-ended text at the storage layer; industry, technology, complexity
// and target_market are the categories the filter UI knows about.
type Tag struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Tag category names used by the filter surface.
const (
	TagCategoryIndustry     = "industry"
	TagCategoryTechnology   = "technology"
	TagCategoryComplexity   = "complexity"
	TagCategoryTargetMarket = "target_market"
)

// MarketData holds market analysis attached to an idea.
type MarketData struct {
	MarketSize           string   `json:"market_size,omitempty"`
	Competitors          []string `json:"competitors"`
	TechnicalFeasibility string   `json:"technical_feasibility,omitempty"`
	DevelopmentTimeline  string   `json:"development_timeline,omitempty"`
}

// Idea is a stored app/business concept with descriptive text and metadata.
type Idea struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Summary          string      `json:"summary"`
	Description      string      `json:"description"`
	SupportingLogic  string      `json:"supporting_logic"`
	GeneratedAt      string      `json:"generated_date"`
	GeneratedAtEpoch int64       `json:"-"`
	Tags             []Tag       `json:"tags"`
	MarketData       *MarketData `json:"market_data,omitempty"`
}

// IdeaCard is the trimmed representation used for list/card display.
type IdeaCard struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Tags        []Tag  `json:"tags"`
	GeneratedAt string `json:"generated_date"`
}

// CardSummaryLimit is the maximum summary length on idea cards.
const CardSummaryLimit = 150

// Card converts an idea to its card representation, truncating the summary.
func (i *Idea) Card() IdeaCard {
	return IdeaCard{
		ID:          i.ID,
		Title:       i.Title,
		Summary:     TruncateText(i.Summary, CardSummaryLimit),
		Tags:        i.Tags,
		GeneratedAt: i.GeneratedAt,
	}
}

// TruncateText shortens s to at most limit characters, appending "..." when
// anything was cut. Limits count characters, not bytes, so multi-byte text
// is never split mid-rune.
func TruncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// IdeaFilters is the recognized set of optional filter options for idea
// queries. Zero values mean "not supplied". Epoch bounds are milliseconds.
type IdeaFilters struct {
	Search        string
	Industry      []string
	TargetMarket  []string
	Complexity    []string
	Technology    []string
	DateFromEpoch int64
	DateToEpoch   int64
	Limit         int
	Offset        int
}

// HasTagFilter reports whether any tag-category filter is supplied. The tag
// join is only added to the query when this is true.
func (f *IdeaFilters) HasTagFilter() bool {
	return len(f.Industry) > 0 || len(f.TargetMarket) > 0 ||
		len(f.Complexity) > 0 || len(f.Technology) > 0
}

// WithoutPagination returns a copy with limit/offset cleared, for counting.
func (f IdeaFilters) WithoutPagination() IdeaFilters {
	f.Limit = 0
	f.Offset = 0
	return f
}

// GenerationLogEntry is an append-only record of one generation attempt.
type GenerationLogEntry struct {
	ID                   int64   `json:"id"`
	Timestamp            string  `json:"timestamp"`
	TimestampEpoch       int64   `json:"-"`
	Success              bool    `json:"success"`
	ErrorMessage         string  `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds,omitempty"`
	IdeaID               *int64  `json:"idea_id,omitempty"`
}

// SystemStatus summarizes generation health for the stats endpoint.
type SystemStatus struct {
	TotalIdeas    int     `json:"total_ideas"`
	LastGen       *string `json:"last_generation"`
	NextScheduled *string `json:"next_scheduled"`
	SystemHealthy bool    `json:"system_healthy"`
}

// TagSummary describes the available values for one tag category.
type TagSummary struct {
	Category string   `json:"category"`
	Values   []string `json:"values"`
	Count    int      `json:"count"`
}
