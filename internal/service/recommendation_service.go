package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ecosort/recycle-assistant/internal/cache"
	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/metrics"
	"github.com/ecosort/recycle-assistant/internal/recommend"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Recommendation is an item suggested to a user.
type Recommendation struct {
	ItemID   uint   `json:"item_id"`
	ItemName string `json:"item_name"`
}

type RecommendationSettings struct {
	MinUsers        int
	MinInteractions int
	TopK            int
	CacheTTL        time.Duration
}

func RecommendationSettingsFromConfig(cfg *config.Config) RecommendationSettings {
	return RecommendationSettings{
		MinUsers:        cfg.RecommendMinUsers,
		MinInteractions: cfg.RecommendMinInteractions,
		TopK:            cfg.RecommendTopK,
		CacheTTL:        cfg.RecommendCacheTTL,
	}
}

// RecommendationService records item views and turns the view log into
// per-user suggestions. The cache is optional.
type RecommendationService struct {
	repos    *repository.Repositories
	cache    cache.Store
	settings RecommendationSettings
}

func NewRecommendationService(repos *repository.Repositories, store cache.Store, settings RecommendationSettings) *RecommendationService {
	return &RecommendationService{repos: repos, cache: store, settings: settings}
}

func recommendationKey(userID uint) string {
	return "rec:" + strconv.FormatUint(uint64(userID), 10)
}

// LogView appends a view event. Repeated views are all kept.
func (s *RecommendationService) LogView(ctx context.Context, userID, itemID uint) (*domain.History, error) {
	if _, err := s.repos.Item.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("%w: lookup item: %v", domain.ErrStorage, err)
	}

	entry := &domain.History{
		UserID:   userID,
		ItemID:   itemID,
		ViewedAt: time.Now(),
	}
	if err := s.repos.History.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: record view: %v", domain.ErrStorage, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, recommendationKey(userID)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate cached recommendations")
		}
	}
	return entry, nil
}

// GetRecommendations returns suggestions for userID, or an empty list while
// the log is too small to say anything useful.
func (s *RecommendationService) GetRecommendations(ctx context.Context, actorID, userID uint) ([]Recommendation, error) {
	if actorID != userID {
		return nil, ErrNotOwner
	}
	start := time.Now()

	if cached, ok := s.cached(ctx, userID); ok {
		metrics.RecordRecommendation("cached", time.Since(start))
		return cached, nil
	}

	stats, err := s.repos.History.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: history stats: %v", domain.ErrStorage, err)
	}
	if stats.DistinctUsers < int64(s.settings.MinUsers) || stats.Interactions < int64(s.settings.MinInteractions) {
		metrics.RecordRecommendation("below_threshold", time.Since(start))
		return []Recommendation{}, nil
	}

	own, err := s.repos.History.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: history count: %v", domain.ErrStorage, err)
	}
	if own == 0 {
		metrics.RecordRecommendation("no_history", time.Since(start))
		return []Recommendation{}, nil
	}

	rows, err := s.repos.History.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list interactions: %v", domain.ErrStorage, err)
	}
	interactions := make([]recommend.Interaction, len(rows))
	for i, r := range rows {
		interactions[i] = recommend.Interaction{UserID: r.UserID, ItemID: r.ItemID}
	}

	ids := recommend.CollaborativeFilter(interactions, userID, s.settings.TopK)

	// items deleted since they were viewed are dropped here
	items, err := s.repos.Item.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve items: %v", domain.ErrStorage, err)
	}
	result := make([]Recommendation, 0, len(items))
	for _, item := range items {
		result = append(result, Recommendation{ItemID: item.ID, ItemName: item.Name})
	}

	s.store(ctx, userID, result)
	metrics.RecordRecommendation("computed", time.Since(start))
	return result, nil
}

func (s *RecommendationService) cached(ctx context.Context, userID uint) ([]Recommendation, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, err := s.cache.Get(ctx, recommendationKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logging.Ctx(ctx).Warn().Err(err).Msg("recommendation cache read failed")
		}
		return nil, false
	}
	var out []Recommendation
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *RecommendationService) store(ctx context.Context, userID uint, recs []Recommendation) {
	if s.cache == nil || s.settings.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, recommendationKey(userID), b, s.settings.CacheTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("recommendation cache write failed")
	}
}
