package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert stores the user's rating for a title, replacing any earlier one.
// It reports whether a new row was inserted.
func (r *RatingRepository) Upsert(ctx context.Context, rt *models.Rating) (bool, error) {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	query := `
		INSERT INTO ratings (id, user_id, media_type, media_id, score, review)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, media_type, media_id)
		DO UPDATE SET score = EXCLUDED.score, review = EXCLUDED.review, updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, rt.ID, rt.UserID, rt.MediaType, rt.MediaID,
		rt.Score, rt.Review,
	).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt, &inserted)
	if err != nil {
		return false, mapError(err, "rating")
	}
	return inserted, nil
}

func (r *RatingRepository) GetForUser(ctx context.Context, userID uuid.UUID, ref models.MediaRef) (*models.Rating, error) {
	rt := &models.Rating{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, media_type, media_id, score, review, created_at, updated_at
		FROM ratings WHERE user_id = $1 AND media_type = $2 AND media_id = $3`,
		userID, ref.MediaType, ref.MediaID,
	).Scan(&rt.ID, &rt.UserID, &rt.MediaType, &rt.MediaID, &rt.Score, &rt.Review,
		&rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "rating")
	}
	return rt, nil
}

// Scores returns every score recorded for a title.
func (r *RatingRepository) Scores(ctx context.Context, ref models.MediaRef) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT score FROM ratings WHERE media_type = $1 AND media_id = $2`,
		ref.MediaType, ref.MediaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []int{}
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// RatedBy lists the titles a user has rated.
func (r *RatingRepository) RatedBy(ctx context.Context, userID uuid.UUID) ([]models.MediaRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT media_type, media_id FROM ratings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MediaRef
	for rows.Next() {
		var ref models.MediaRef
		if err := rows.Scan(&ref.MediaType, &ref.MediaID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
