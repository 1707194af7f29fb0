package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/pkg/models"
)

// List pagination bounds.
const (
	defaultListLimit = 50
	maxListLimit     = 100

	defaultRecentDays = 7
	maxRecentDays     = 30
	recentLimit       = 100

	// A weekday generation cadence means a healthy system has successes
	// within the last week.
	healthWindow    = 7 * 24 * time.Hour
	healthThreshold = 0.7
)

func (s *Service) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	ideas, err := s.ideaStore.GetWithFilters(r.Context(), models.IdeaFilters{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list ideas")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve ideas")
		return
	}

	writeJSON(w, http.StatusOK, toCards(ideas))
}

func (s *Service) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	idea, err := s.ideaStore.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("idea_id", id).Msg("Failed to get idea")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve idea")
		return
	}
	if idea == nil {
		writeError(w, http.StatusNotFound, "Idea not found")
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

func (s *Service) handleSearchIdeas(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)

	ideas, err := s.ideaStore.GetWithFilters(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search ideas")
		writeError(w, http.StatusInternalServerError, "Failed to search ideas")
		return
	}

	total, err := s.ideaStore.CountWithFilters(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count search results")
		writeError(w, http.StatusInternalServerError, "Failed to search ideas")
		return
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ideas":       toCards(ideas),
		"total_count": total,
		"has_more":    filters.Offset+limit < total,
	})
}

func (s *Service) handleRandomIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := s.ideaStore.GetRandom(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get random idea")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve random idea")
		return
	}
	if idea == nil {
		writeError(w, http.StatusNotFound, "No ideas available")
		return
	}

	writeJSON(w, http.StatusOK, idea.Card())
}

func (s *Service) handleRecentIdeas(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultRecentDays, 1, maxRecentDays)
	since := time.Now().AddDate(0, 0, -days)

	ideas, err := s.ideaStore.GetWithFilters(r.Context(), models.IdeaFilters{
		DateFromEpoch: since.UnixMilli(),
		Limit:         recentLimit,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list recent ideas")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve recent ideas")
		return
	}

	writeJSON(w, http.StatusOK, toCards(ideas))
}

func (s *Service) handleIdeaStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.ideaStore.TotalCount(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count ideas")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	lastGen, err := s.logStore.LastSuccess(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up last generation")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	rate, err := s.logStore.SuccessRate(r.Context(), healthWindow)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute success rate")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	var nextScheduled *string
	if s.scheduler != nil {
		next := s.scheduler.NextScheduled().Format(time.RFC3339)
		nextScheduled = &next
	}

	writeJSON(w, http.StatusOK, models.SystemStatus{
		TotalIdeas:    total,
		LastGen:       lastGen,
		NextScheduled: nextScheduled,
		SystemHealthy: rate > healthThreshold,
	})
}

func (s *Service) handleGenerateIdea(w http.ResponseWriter, r *http.Request) {
	maxBefore, err := s.ideaStore.MaxID(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to record idea watermark")
		writeError(w, http.StatusInternalServerError, "Failed to generate idea")
		return
	}

	// The subprocess carries its own timeout; detach from the request
	// context so a dropped client does not kill a run in progress.
	id, found, err := s.generateCmd.Run(s.ctx)
	if err != nil {
		log.Error().Err(err).Msg("Generation command failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate idea")
		return
	}

	if !found {
		// No ID marker in the output. Fall back to the newest idea
		// created after the watermark, if any.
		maxAfter, maxErr := s.ideaStore.MaxID(r.Context())
		if maxErr != nil || maxAfter <= maxBefore {
			log.Error().Err(maxErr).Msg("Generation produced no identifiable idea")
			writeError(w, http.StatusInternalServerError, "Failed to generate idea")
			return
		}
		id = maxAfter
	}

	idea, err := s.ideaStore.GetByID(r.Context(), id)
	if err != nil || idea == nil {
		log.Error().Err(err).Int64("idea_id", id).Msg("Generated idea missing from store")
		writeError(w, http.StatusInternalServerError, "Failed to generate idea")
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

func (s *Service) handleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	deleted, err := s.ideaStore.Delete(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("idea_id", id).Msg("Failed to delete idea")
		writeError(w, http.StatusInternalServerError, "Failed to delete idea")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Idea not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Idea deleted successfully"})
}

// filtersFromQuery parses the search query string into filters. Repeated
// tag parameters are OR-combined within a category.
func filtersFromQuery(r *http.Request) models.IdeaFilters {
	q := r.URL.Query()

	f := models.IdeaFilters{
		Search:       q.Get("q"),
		Industry:     q["industry"],
		TargetMarket: q["target_market"],
		Complexity:   q["complexity"],
		Technology:   q["technology"],
		Limit:        queryInt(r, "limit", defaultListLimit, 1, maxListLimit),
		Offset:       queryInt(r, "offset", 0, 0, 1<<30),
	}

	if from := q.Get("date_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			f.DateFromEpoch = t.UnixMilli()
		}
	}
	if to := q.Get("date_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			// Inclusive upper bound, so take the end of the day.
			f.DateToEpoch = t.AddDate(0, 0, 1).UnixMilli() - 1
		}
	}

	return f
}

func toCards(ideas []*models.Idea) []models.IdeaCard {
	cards := make([]models.IdeaCard, 0, len(ideas))
	for _, idea := range ideas {
		cards = append(cards, idea.Card())
	}
	return cards
}

// queryInt parses an integer query parameter, clamping to [min, max] and
// falling back to def when absent or malformed.
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid identifier")
		return 0, false
	}
	return id, true
}
