// Package ratings records user ratings and keeps each title's stored
// aggregate in step with its ratings.
package ratings

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

// Store is the rating persistence the service needs.
type Store interface {
	Upsert(ctx context.Context, rt *models.Rating) (bool, error)
	Scores(ctx context.Context, ref models.MediaRef) ([]int, error)
}

// Titles writes aggregates to the parent title of a rating.
type Titles interface {
	Exists(ctx context.Context, ref models.MediaRef) error
	UpdateRatingSummary(ctx context.Context, ref models.MediaRef, s models.RatingSummary) error
}

// Aggregate computes the mean score rounded to one decimal place.
func Aggregate(scores []int) models.RatingSummary {
	if len(scores) == 0 {
		return models.RatingSummary{}
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	mean := float64(sum) / float64(len(scores))
	return models.RatingSummary{
		AverageRating: math.Round(mean*10) / 10,
		TotalRatings:  len(scores),
	}
}

// Result describes the outcome of Rate.
type Result struct {
	Rating           *models.Rating       `json:"rating"`
	Created          bool                 `json:"created"`
	Summary          models.RatingSummary `json:"summary"`
	AggregateUpdated bool                 `json:"aggregateUpdated"`
}

type Service struct {
	store  Store
	titles Titles
	logger hclog.Logger
}

func NewService(store Store, titles Titles, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{store: store, titles: titles, logger: logger.Named("ratings")}
}

// Rate stores userID's score for a title and refreshes the title's
// aggregate. A second rating by the same user replaces the first. The
// rating write stands even when the aggregate refresh fails.
func (s *Service) Rate(ctx context.Context, userID uuid.UUID, ref models.MediaRef, score int, review string) (*Result, error) {
	if err := s.titles.Exists(ctx, ref); err != nil {
		return nil, err
	}

	rt := &models.Rating{
		UserID:    userID,
		MediaType: ref.MediaType,
		MediaID:   ref.MediaID,
		Score:     score,
		Review:    review,
	}
	created, err := s.store.Upsert(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}

	res := &Result{Rating: rt, Created: created}
	summary, err := s.Recompute(ctx, ref)
	if err != nil {
		s.logger.Warn("aggregate refresh failed", "media_type", ref.MediaType, "media_id", ref.MediaID, "error", err)
		return res, nil
	}
	res.Summary = summary
	res.AggregateUpdated = true
	return res, nil
}

// Recompute reads every score for a title and stores the aggregate. Running
// it again with no new ratings writes the same values.
func (s *Service) Recompute(ctx context.Context, ref models.MediaRef) (models.RatingSummary, error) {
	scores, err := s.store.Scores(ctx, ref)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("load scores: %w", err)
	}
	summary := Aggregate(scores)
	if err := s.titles.UpdateRatingSummary(ctx, ref, summary); err != nil {
		return models.RatingSummary{}, fmt.Errorf("store aggregate: %w", err)
	}
	return summary, nil
}

// RecomputeAll refreshes several titles, logging failures and carrying on.
// It returns the number refreshed.
func (s *Service) RecomputeAll(ctx context.Context, refs []models.MediaRef) int {
	n := 0
	for _, ref := range refs {
		if _, err := s.Recompute(ctx, ref); err != nil {
			s.logger.Warn("aggregate refresh failed", "media_type", ref.MediaType, "media_id", ref.MediaID, "error", err)
			continue
		}
		n++
	}
	return n
}
