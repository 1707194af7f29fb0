package gorm

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailyinspo/inspo/pkg/models"
)

// IdeaStore handles idea persistence, tag association and filtered reads.
type IdeaStore struct {
	db *Store
}

// NewIdeaStore creates a new idea store.
func NewIdeaStore(db *Store) *IdeaStore {
	return &IdeaStore{db: db}
}

// Insert stores an idea with its tags and optional market data in a single
// transaction. Tags are deduplicated globally: an existing (category, value)
// row is reused, a missing one is created. Returns the new idea ID.
func (s *IdeaStore) Insert(ctx context.Context, idea *models.Idea) (int64, error) {
	row := Idea{
		Title:            idea.Title,
		Summary:          idea.Summary,
		Description:      idea.Description,
		SupportingLogic:  idea.SupportingLogic,
		GeneratedAt:      idea.GeneratedAt,
		GeneratedAtEpoch: idea.GeneratedAtEpoch,
	}

	err := s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert idea: %w", err)
		}

		for _, t := range idea.Tags {
			tag := Tag{Category: t.Category, Value: t.Value}
			if err := tx.Where("category = ? AND value = ?", t.Category, t.Value).
				FirstOrCreate(&tag).Error; err != nil {
				return fmt.Errorf("failed to upsert tag %s/%s: %w", t.Category, t.Value, err)
			}
			link := IdeaTag{IdeaID: row.ID, TagID: tag.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link tag %s/%s: %w", t.Category, t.Value, err)
			}
		}

		if md := idea.MarketData; md != nil {
			mdRow := MarketData{
				IdeaID:               row.ID,
				MarketSize:           nullString(md.MarketSize),
				Competitors:          models.JSONStringArray(md.Competitors),
				TechnicalFeasibility: nullString(md.TechnicalFeasibility),
				DevelopmentTimeline:  nullString(md.DevelopmentTimeline),
			}
			if err := tx.Create(&mdRow).Error; err != nil {
				return fmt.Errorf("failed to insert market data: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	idea.ID = row.ID
	idea.GeneratedAt = row.GeneratedAt
	idea.GeneratedAtEpoch = row.GeneratedAtEpoch
	return row.ID, nil
}

// GetByID loads one idea with its tags and market data.
// Returns (nil, nil) when the idea does not exist.
func (s *IdeaStore) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	var row Idea
	if err := s.db.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idea %d: %w", id, err)
	}

	idea := rowToIdea(&row)
	if err := s.loadTags(ctx, []*models.Idea{idea}); err != nil {
		return nil, err
	}
	if err := s.loadMarketData(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

// GetWithFilters returns the ideas matching the supplied filters, newest
// first, paginated. Supplied tag categories combine with OR; an idea matches
// if any supplied category matches. No filters returns the newest page of
// everything.
func (s *IdeaStore) GetWithFilters(ctx context.Context, f models.IdeaFilters) ([]*models.Idea, error) {
	pred := buildIdeaPredicate(f)
	query, args := pred.selectSQL(f.Limit, f.Offset)

	var rows []Idea
	if err := s.db.DB.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query ideas: %w", err)
	}

	ideas := make([]*models.Idea, 0, len(rows))
	for i := range rows {
		ideas = append(ideas, rowToIdea(&rows[i]))
	}
	if err := s.loadTags(ctx, ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// CountWithFilters returns the total number of ideas matching the filters,
// ignoring pagination. Built from the same predicate as GetWithFilters so
// the two always agree.
func (s *IdeaStore) CountWithFilters(ctx context.Context, f models.IdeaFilters) (int, error) {
	pred := buildIdeaPredicate(f.WithoutPagination())
	query, args := pred.countSQL()

	var count int
	if err := s.db.DB.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}
	return count, nil
}

// GetRandom returns a uniformly random idea, or (nil, nil) when the store
// is empty.
func (s *IdeaStore) GetRandom(ctx context.Context) (*models.Idea, error) {
	var id int64
	err := s.db.DB.WithContext(ctx).
		Raw("SELECT id FROM ideas ORDER BY RANDOM() LIMIT 1").Scan(&id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to pick random idea: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// GetAvailableTags returns, per category, the distinct tag values attached
// to at least one idea, sorted alphabetically. Orphaned tag rows are
// excluded.
func (s *IdeaStore) GetAvailableTags(ctx context.Context) (map[string][]string, error) {
	type catValue struct {
		Category string
		Value    string
	}
	var rows []catValue
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT DISTINCT t.category, t.value
		 FROM tags t JOIN idea_tags it ON t.id = it.tag_id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query available tags: %w", err)
	}

	out := make(map[string][]string)
	for _, r := range rows {
		out[r.Category] = append(out[r.Category], r.Value)
	}
	for _, values := range out {
		sort.Strings(values)
	}
	return out, nil
}

// Delete removes an idea. Tag links, market data and project connections go
// with it through cascading deletes; generation log references are nulled.
// Returns whether a row was actually deleted.
func (s *IdeaStore) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.DB.WithContext(ctx).Delete(&Idea{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete idea %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MaxID returns the highest idea ID, 0 when the store is empty. Used as a
// fallback to locate a freshly generated idea when the generator's output
// marker is missing.
func (s *IdeaStore) MaxID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.DB.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(id), 0) FROM ideas").Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max idea id: %w", err)
	}
	return id, nil
}

// TotalCount returns the number of stored ideas.
func (s *IdeaStore) TotalCount(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.DB.WithContext(ctx).Model(&Idea{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}
	return int(count), nil
}

// RecentTitles returns up to limit (title, summary) pairs of the newest
// ideas, for building generation context. Summaries are returned in full;
// callers truncate to taste.
func (s *IdeaStore) RecentTitles(ctx context.Context, limit int) ([]models.IdeaCard, error) {
	var rows []Idea
	err := s.db.DB.WithContext(ctx).
		Order("generated_at_epoch DESC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent ideas: %w", err)
	}

	cards := make([]models.IdeaCard, 0, len(rows))
	for i := range rows {
		cards = append(cards, models.IdeaCard{
			ID:          rows[i].ID,
			Title:       rows[i].Title,
			Summary:     rows[i].Summary,
			GeneratedAt: rows[i].GeneratedAt,
		})
	}
	return cards, nil
}

// loadTags attaches tags to each idea in a single query.
func (s *IdeaStore) loadTags(ctx context.Context, ideas []*models.Idea) error {
	if len(ideas) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(ideas))
	byID := make(map[int64]*models.Idea, len(ideas))
	for _, idea := range ideas {
		ids = append(ids, idea.ID)
		byID[idea.ID] = idea
		idea.Tags = []models.Tag{}
	}

	type taggedRow struct {
		IdeaID   int64
		Category string
		Value    string
	}
	var rows []taggedRow
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT it.idea_id, t.category, t.value
		 FROM idea_tags it JOIN tags t ON it.tag_id = t.id
		 WHERE it.idea_id IN ?
		 ORDER BY t.category, t.value`, ids).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}

	for _, r := range rows {
		if idea, ok := byID[r.IdeaID]; ok {
			idea.Tags = append(idea.Tags, models.Tag{Category: r.Category, Value: r.Value})
		}
	}
	return nil
}

// loadMarketData attaches market data to an idea, if any exists.
func (s *IdeaStore) loadMarketData(ctx context.Context, idea *models.Idea) error {
	var row MarketData
	err := s.db.DB.WithContext(ctx).Where("idea_id = ?", idea.ID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return fmt.Errorf("failed to load market data: %w", err)
	}

	idea.MarketData = &models.MarketData{
		MarketSize:           stringOrEmpty(row.MarketSize),
		Competitors:          []string(row.Competitors),
		TechnicalFeasibility: stringOrEmpty(row.TechnicalFeasibility),
		DevelopmentTimeline:  stringOrEmpty(row.DevelopmentTimeline),
	}
	return nil
}

func rowToIdea(row *Idea) *models.Idea {
	return &models.Idea{
		ID:               row.ID,
		Title:            row.Title,
		Summary:          row.Summary,
		Description:      row.Description,
		SupportingLogic:  row.SupportingLogic,
		GeneratedAt:      row.GeneratedAt,
		GeneratedAtEpoch: row.GeneratedAtEpoch,
	}
}
