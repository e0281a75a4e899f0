package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

// The stores below are satisfied by the repository package.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	// Register creates a self-registered account and sets its role: admin
	// for the first account, user for every later one.
	Register(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]*models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*models.UserStats, error)
}

type MovieStore interface {
	Create(ctx context.Context, m *models.Movie) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	List(ctx context.Context, f repository.CatalogFilter) ([]*models.Movie, int, error)
	Update(ctx context.Context, m *models.Movie) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.ContentStatus) error
	UpdateRatingSummary(ctx context.Context, id uuid.UUID, s models.RatingSummary) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*models.CatalogStats, error)
}

type ShowStore interface {
	CreateShow(ctx context.Context, s *models.TVShow) error
	GetShowByID(ctx context.Context, id uuid.UUID) (*models.TVShow, error)
	ListShows(ctx context.Context, f repository.CatalogFilter) ([]*models.TVShow, int, error)
	UpdateShow(ctx context.Context, s *models.TVShow) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.ContentStatus) error
	UpdateRatingSummary(ctx context.Context, id uuid.UUID, s models.RatingSummary) error
	DeleteShow(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*models.CatalogStats, error)
}

type RatingStore interface {
	Upsert(ctx context.Context, rt *models.Rating) (bool, error)
	Scores(ctx context.Context, ref models.MediaRef) ([]int, error)
	GetForUser(ctx context.Context, userID uuid.UUID, ref models.MediaRef) (*models.Rating, error)
	RatedBy(ctx context.Context, userID uuid.UUID) ([]models.MediaRef, error)
}

type ContactStore interface {
	Create(ctx context.Context, c *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, f repository.ContactFilter) ([]*models.Contact, int, error)
	Update(ctx context.Context, c *models.Contact) error
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	Reply(ctx context.Context, id uuid.UUID, reply models.ContactReply) (*models.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*models.ContactStats, error)
}

// titles routes rating aggregate writes to the right catalog store.
type titles struct {
	movies MovieStore
	shows  ShowStore
}

func (t titles) Exists(ctx context.Context, ref models.MediaRef) error {
	switch ref.MediaType {
	case models.MediaMovie:
		_, err := t.movies.GetByID(ctx, ref.MediaID)
		return err
	case models.MediaTVShow:
		_, err := t.shows.GetShowByID(ctx, ref.MediaID)
		return err
	}
	return fmt.Errorf("unknown media type %q", ref.MediaType)
}

func (t titles) UpdateRatingSummary(ctx context.Context, ref models.MediaRef, s models.RatingSummary) error {
	switch ref.MediaType {
	case models.MediaMovie:
		return t.movies.UpdateRatingSummary(ctx, ref.MediaID, s)
	case models.MediaTVShow:
		return t.shows.UpdateRatingSummary(ctx, ref.MediaID, s)
	}
	return fmt.Errorf("unknown media type %q", ref.MediaType)
}
