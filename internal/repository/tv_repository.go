package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

const tvColumns = `id, title, year, description, image_url, images, imdb_rating,
	average_rating, total_ratings, genre, status, number_of_seasons, episode_count, episodes,
	created_by, created_at, updated_at`

type TVRepository struct {
	db *sql.DB
}

func NewTVRepository(db *sql.DB) *TVRepository {
	return &TVRepository{db: db}
}

func scanShow(row rowScanner) (*models.TVShow, error) {
	s := &models.TVShow{}
	err := row.Scan(&s.ID, &s.Title, &s.Year, &s.Description, &s.ImageURL, &s.Images,
		&s.IMDBRating, &s.AverageRating, &s.TotalRatings, &s.Genre, &s.Status,
		&s.NumberOfSeasons, &s.EpisodeCount, &s.Episodes,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// syncEpisodeCount keeps episode_count derived from the list when one exists.
func syncEpisodeCount(s *models.TVShow) {
	if s.Episodes == nil {
		s.Episodes = models.Episodes{}
	}
	if len(s.Episodes) > 0 {
		s.EpisodeCount = len(s.Episodes)
	}
	if s.NumberOfSeasons < 1 {
		s.NumberOfSeasons = 1
	}
	if s.Images == nil {
		s.Images = pq.StringArray{}
	}
}

func (r *TVRepository) CreateShow(ctx context.Context, s *models.TVShow) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}
	syncEpisodeCount(s)
	query := `
		INSERT INTO tv_shows (id, title, year, description, image_url, images, imdb_rating,
		                      genre, status, number_of_seasons, episode_count, episodes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING average_rating, total_ratings, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.Title, s.Year, s.Description, s.ImageURL,
		s.Images, s.IMDBRating, s.Genre, s.Status, s.NumberOfSeasons, s.EpisodeCount,
		s.Episodes, s.CreatedBy,
	).Scan(&s.AverageRating, &s.TotalRatings, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err, "tv show")
}

func (r *TVRepository) GetShowByID(ctx context.Context, id uuid.UUID) (*models.TVShow, error) {
	s, err := scanShow(r.db.QueryRowContext(ctx,
		`SELECT `+tvColumns+` FROM tv_shows WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "tv show")
	}
	return s, nil
}

func (r *TVRepository) ListShows(ctx context.Context, f CatalogFilter) ([]*models.TVShow, int, error) {
	where, args, next := buildCatalogFilter(f, 1)

	total, err := countRows(ctx, r.db, "tv_shows", where, args)
	if err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs := f.Page.clause(next)
	query := `SELECT ` + tvColumns + ` FROM tv_shows` + where + catalogOrder(f.Sort) + pageSQL
	rows, err := r.db.QueryContext(ctx, query, append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	shows := []*models.TVShow{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, 0, err
		}
		shows = append(shows, s)
	}
	return shows, total, rows.Err()
}

func (r *TVRepository) UpdateShow(ctx context.Context, s *models.TVShow) error {
	syncEpisodeCount(s)
	query := `
		UPDATE tv_shows
		SET title = $1, year = $2, description = $3, image_url = $4, images = $5,
		    imdb_rating = $6, genre = $7, status = $8, number_of_seasons = $9,
		    episode_count = $10, episodes = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING average_rating, total_ratings, created_by, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Title, s.Year, s.Description, s.ImageURL,
		s.Images, s.IMDBRating, s.Genre, s.Status, s.NumberOfSeasons, s.EpisodeCount,
		s.Episodes, s.ID,
	).Scan(&s.AverageRating, &s.TotalRatings, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err, "tv show")
}

func (r *TVRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.ContentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tv_shows SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "tv show")
}

func (r *TVRepository) UpdateRatingSummary(ctx context.Context, id uuid.UUID, s models.RatingSummary) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tv_shows SET average_rating = $1, total_ratings = $2 WHERE id = $3`,
		s.AverageRating, s.TotalRatings, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "tv show")
}

func (r *TVRepository) DeleteShow(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ratings WHERE media_type = $1 AND media_id = $2`, models.MediaTVShow, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tv_shows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(result, "tv show"); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TVRepository) Stats(ctx context.Context, since time.Time) (*models.CatalogStats, error) {
	stats, err := catalogStats(ctx, r.db, "tv_shows", since)
	if err != nil {
		return nil, err
	}
	var episodes int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(episode_count), 0) FROM tv_shows`).Scan(&episodes); err != nil {
		return nil, fmt.Errorf("tv_shows episode stats: %w", err)
	}
	stats.TotalEpisodes = &episodes
	return stats, nil
}
