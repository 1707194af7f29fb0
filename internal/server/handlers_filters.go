package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/pkg/models"
)

// Offered even before any idea carries these tags.
var (
	defaultComplexityLevels = []string{
		string(models.ComplexityMVP),
		string(models.ComplexityMedium),
		string(models.ComplexityComplex),
	}
	defaultTargetMarkets = []string{
		string(models.TargetB2B),
		string(models.TargetB2C),
		string(models.TargetEnterprise),
		string(models.TargetConsumer),
	}
)

func (s *Service) handleAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.ideaStore.GetAvailableTags(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tags")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve tags")
		return
	}

	categories := make([]string, 0, len(tags))
	for category := range tags {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	summaries := make([]models.TagSummary, 0, len(categories))
	for _, category := range categories {
		values := tags[category]
		summaries = append(summaries, models.TagSummary{
			Category: category,
			Values:   values,
			Count:    len(values),
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *Service) handleTagCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	tags, err := s.ideaStore.GetAvailableTags(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tags")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve tags")
		return
	}

	values, ok := tags[category]
	if !ok {
		writeError(w, http.StatusNotFound, "Tag category not found")
		return
	}

	writeJSON(w, http.StatusOK, values)
}

func (s *Service) handleIndustries(w http.ResponseWriter, r *http.Request) {
	s.writeCategoryValues(w, r, models.TagCategoryIndustry, nil)
}

func (s *Service) handleTechnologies(w http.ResponseWriter, r *http.Request) {
	s.writeCategoryValues(w, r, models.TagCategoryTechnology, nil)
}

func (s *Service) handleComplexityLevels(w http.ResponseWriter, r *http.Request) {
	s.writeCategoryValues(w, r, models.TagCategoryComplexity, defaultComplexityLevels)
}

func (s *Service) handleTargetMarkets(w http.ResponseWriter, r *http.Request) {
	s.writeCategoryValues(w, r, models.TagCategoryTargetMarket, defaultTargetMarkets)
}

// writeCategoryValues returns the stored values for one tag category,
// falling back to the category defaults when nothing is stored yet.
func (s *Service) writeCategoryValues(w http.ResponseWriter, r *http.Request, category string, defaults []string) {
	tags, err := s.ideaStore.GetAvailableTags(r.Context())
	if err != nil {
		log.Error().Err(err).Str("category", category).Msg("Failed to list tags")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve tags")
		return
	}

	values := tags[category]
	if len(values) == 0 {
		values = defaults
	}
	if values == nil {
		values = []string{}
	}

	writeJSON(w, http.StatusOK, values)
}

// filterRequest is the JSON body accepted by the validate endpoint and
// mirrors the search query parameters.
type filterRequest struct {
	Search       string   `json:"search"`
	Industry     []string `json:"industry"`
	TargetMarket []string `json:"target_market"`
	Complexity   []string `json:"complexity"`
	Technology   []string `json:"technology"`
	DateFrom     string   `json:"date_from"`
	DateTo       string   `json:"date_to"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
}

func (f *filterRequest) toFilters() models.IdeaFilters {
	filters := models.IdeaFilters{
		Search:       f.Search,
		Industry:     f.Industry,
		TargetMarket: f.TargetMarket,
		Complexity:   f.Complexity,
		Technology:   f.Technology,
		Limit:        f.Limit,
		Offset:       f.Offset,
	}
	if t, err := time.Parse("2006-01-02", f.DateFrom); err == nil {
		filters.DateFromEpoch = t.UnixMilli()
	}
	if t, err := time.Parse("2006-01-02", f.DateTo); err == nil {
		filters.DateToEpoch = t.AddDate(0, 0, 1).UnixMilli() - 1
	}
	return filters
}

func (s *Service) handleValidateFilters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter payload")
		return
	}

	// Pagination never affects whether a combination matches anything.
	count, err := s.ideaStore.CountWithFilters(r.Context(), req.toFilters().WithoutPagination())
	if err != nil {
		log.Error().Err(err).Msg("Failed to validate filters")
		writeError(w, http.StatusInternalServerError, "Failed to validate filters")
		return
	}

	message := "No ideas match the selected filters"
	if count > 0 {
		message = fmt.Sprintf("Found %d matching ideas", count)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":          count > 0,
		"expected_count": count,
		"message":        message,
	})
}
