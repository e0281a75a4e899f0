package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

const movieColumns = `id, title, year, description, image_url, images, movie_url, imdb_rating,
	average_rating, total_ratings, genre, status, created_by, created_at, updated_at`

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	m := &models.Movie{}
	err := row.Scan(&m.ID, &m.Title, &m.Year, &m.Description, &m.ImageURL, &m.Images,
		&m.MovieURL, &m.IMDBRating, &m.AverageRating, &m.TotalRatings, &m.Genre,
		&m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MovieRepository) Create(ctx context.Context, m *models.Movie) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Images == nil {
		m.Images = pq.StringArray{}
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	query := `
		INSERT INTO movies (id, title, year, description, image_url, images, movie_url,
		                    imdb_rating, genre, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING average_rating, total_ratings, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.Title, m.Year, m.Description, m.ImageURL,
		m.Images, m.MovieURL, m.IMDBRating, m.Genre, m.Status, m.CreatedBy,
	).Scan(&m.AverageRating, &m.TotalRatings, &m.CreatedAt, &m.UpdatedAt)
	return mapError(err, "movie")
}

func (r *MovieRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "movie")
	}
	return m, nil
}

// List returns one page of movies matching f and the total match count.
func (r *MovieRepository) List(ctx context.Context, f CatalogFilter) ([]*models.Movie, int, error) {
	where, args, next := buildCatalogFilter(f, 1)

	total, err := countRows(ctx, r.db, "movies", where, args)
	if err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs := f.Page.clause(next)
	query := `SELECT ` + movieColumns + ` FROM movies` + where + catalogOrder(f.Sort) + pageSQL
	rows, err := r.db.QueryContext(ctx, query, append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movies := []*models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, m)
	}
	return movies, total, rows.Err()
}

// Update writes the editable fields. Derived rating fields are never
// written here; they come back refreshed from the row.
func (r *MovieRepository) Update(ctx context.Context, m *models.Movie) error {
	if m.Images == nil {
		m.Images = pq.StringArray{}
	}
	query := `
		UPDATE movies
		SET title = $1, year = $2, description = $3, image_url = $4, images = $5,
		    movie_url = $6, imdb_rating = $7, genre = $8, status = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING average_rating, total_ratings, created_by, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, m.Title, m.Year, m.Description, m.ImageURL,
		m.Images, m.MovieURL, m.IMDBRating, m.Genre, m.Status, m.ID,
	).Scan(&m.AverageRating, &m.TotalRatings, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return mapError(err, "movie")
}

func (r *MovieRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.ContentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movies SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "movie")
}

// UpdateRatingSummary stores the derived aggregate. It does not touch
// updated_at, which tracks admin edits.
func (r *MovieRepository) UpdateRatingSummary(ctx context.Context, id uuid.UUID, s models.RatingSummary) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movies SET average_rating = $1, total_ratings = $2 WHERE id = $3`,
		s.AverageRating, s.TotalRatings, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "movie")
}

// Delete removes the movie and its ratings together.
func (r *MovieRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ratings WHERE media_type = $1 AND media_id = $2`, models.MediaMovie, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(result, "movie"); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MovieRepository) Stats(ctx context.Context, since time.Time) (*models.CatalogStats, error) {
	return catalogStats(ctx, r.db, "movies", since)
}
