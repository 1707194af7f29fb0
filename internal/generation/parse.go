package generation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/dailyinspo/inspo/pkg/models"
)

// Validation limits for generated ideas.
const (
	MaxTitleLen   = 200
	MaxSummaryLen = 500
)

// Defaults applied when the assistant omits market analysis details.
const (
	DefaultMarketSize  = "Not specified"
	DefaultFeasibility = "Not assessed"
	DefaultTimeline    = "Not estimated"
)

// rawIdea mirrors the JSON structure the assistant is asked to produce.
type rawIdea struct {
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	Description     string          `json:"description"`
	SupportingLogic string          `json:"supporting_logic"`
	Tags            []models.Tag    `json:"tags"`
	MarketAnalysis  *marketAnalysis `json:"market_analysis"`
}

type marketAnalysis struct {
	MarketSize           string   `json:"market_size"`
	Competitors          []string `json:"competitors"`
	TechnicalFeasibility string   `json:"technical_feasibility"`
	DevelopmentTimeline  string   `json:"development_timeline"`
}

// extractJSON isolates the JSON object in an assistant response. The
// assistant sometimes wraps the object in prose, so everything outside the
// first '{' and the last '}' is discarded.
func extractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return response[start : end+1], nil
}

// parseIdea extracts and decodes the idea JSON from a raw response.
func parseIdea(response string) (*rawIdea, error) {
	content, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var idea rawIdea
	if err := json.Unmarshal([]byte(content), &idea); err != nil {
		return nil, fmt.Errorf("failed to parse idea JSON: %w", err)
	}
	return &idea, nil
}

// validateIdea checks the structural requirements of a parsed idea.
func validateIdea(idea *rawIdea) error {
	if strings.TrimSpace(idea.Title) == "" {
		return fmt.Errorf("missing required field: title")
	}
	if utf8.RuneCountInString(idea.Title) > MaxTitleLen {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLen)
	}
	if strings.TrimSpace(idea.Summary) == "" {
		return fmt.Errorf("missing required field: summary")
	}
	if utf8.RuneCountInString(idea.Summary) > MaxSummaryLen {
		return fmt.Errorf("summary too long (max %d characters)", MaxSummaryLen)
	}
	if strings.TrimSpace(idea.Description) == "" {
		return fmt.Errorf("missing required field: description")
	}
	if strings.TrimSpace(idea.SupportingLogic) == "" {
		return fmt.Errorf("missing required field: supporting_logic")
	}
	if len(idea.Tags) == 0 {
		return fmt.Errorf("tags must be a non-empty list")
	}
	for _, t := range idea.Tags {
		if t.Category == "" || t.Value == "" {
			return fmt.Errorf("invalid tag structure: category and value are required")
		}
	}
	if idea.MarketAnalysis == nil {
		return fmt.Errorf("missing required field: market_analysis")
	}
	return nil
}

// enhanceIdea converts a validated raw idea into the domain model, stamping
// the generation time, filling market data defaults and backfilling the
// complexity and target_market tags when absent.
func enhanceIdea(idea *rawIdea, now time.Time) *models.Idea {
	out := &models.Idea{
		Title:            idea.Title,
		Summary:          idea.Summary,
		Description:      idea.Description,
		SupportingLogic:  idea.SupportingLogic,
		Tags:             append([]models.Tag{}, idea.Tags...),
		GeneratedAt:      now.Format(time.RFC3339),
		GeneratedAtEpoch: now.UnixMilli(),
	}

	ma := idea.MarketAnalysis
	md := &models.MarketData{
		MarketSize:           ma.MarketSize,
		Competitors:          ma.Competitors,
		TechnicalFeasibility: ma.TechnicalFeasibility,
		DevelopmentTimeline:  ma.DevelopmentTimeline,
	}
	if md.MarketSize == "" {
		md.MarketSize = DefaultMarketSize
	}
	if md.Competitors == nil {
		md.Competitors = []string{}
	}
	if md.TechnicalFeasibility == "" {
		md.TechnicalFeasibility = DefaultFeasibility
	}
	if md.DevelopmentTimeline == "" {
		md.DevelopmentTimeline = DefaultTimeline
	}
	out.MarketData = md

	have := make(map[string]bool, len(out.Tags))
	for _, t := range out.Tags {
		have[t.Category] = true
	}
	if !have[models.TagCategoryComplexity] {
		out.Tags = append(out.Tags, models.Tag{
			Category: models.TagCategoryComplexity,
			Value:    string(models.ComplexityMedium),
		})
	}
	if !have[models.TagCategoryTargetMarket] {
		out.Tags = append(out.Tags, models.Tag{
			Category: models.TagCategoryTargetMarket,
			Value:    string(models.TargetB2C),
		})
	}

	return out
}
