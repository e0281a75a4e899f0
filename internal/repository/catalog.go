package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

// CatalogFilter narrows movie and TV show listings.
type CatalogFilter struct {
	Search    string
	Genre     string
	Year      int
	MinRating float64
	Status    models.ContentStatus
	Sort      string
	Page
}

// buildCatalogFilter builds the WHERE fragment shared by movies and TV shows.
// paramStart is the next parameter index.
func buildCatalogFilter(f CatalogFilter, paramStart int) (string, []interface{}, int) {
	var wheres []string
	var args []interface{}
	p := paramStart

	if s := strings.TrimSpace(f.Search); s != "" {
		wheres = append(wheres, fmt.Sprintf(`(title ILIKE $%d OR description ILIKE $%d)`, p, p))
		args = append(args, likePattern(s))
		p++
	}
	if f.Genre != "" {
		wheres = append(wheres, fmt.Sprintf(`LOWER(genre) = LOWER($%d)`, p))
		args = append(args, f.Genre)
		p++
	}
	if f.Year > 0 {
		wheres = append(wheres, fmt.Sprintf(`year = $%d`, p))
		args = append(args, f.Year)
		p++
	}
	if f.MinRating > 0 {
		wheres = append(wheres, fmt.Sprintf(`average_rating >= $%d`, p))
		args = append(args, f.MinRating)
		p++
	}
	if f.Status != "" {
		wheres = append(wheres, fmt.Sprintf(`status = $%d`, p))
		args = append(args, string(f.Status))
		p++
	}
	return whereClause(wheres), args, p
}

func catalogOrder(sort string) string {
	switch sort {
	case "oldest":
		return " ORDER BY created_at ASC, id"
	case "title":
		return " ORDER BY LOWER(title) ASC, id"
	case "year":
		return " ORDER BY year DESC, id"
	case "rating":
		return " ORDER BY average_rating DESC, total_ratings DESC, id"
	case "imdb":
		return " ORDER BY imdb_rating DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func countRows(ctx context.Context, db *sql.DB, table, where string, args []interface{}) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+where, args...).Scan(&total)
	return total, err
}

// catalogStats runs the dashboard rollup for a catalog table. Only trusted
// table names are passed in.
func catalogStats(ctx context.Context, db *sql.DB, table string, since time.Time) (*models.CatalogStats, error) {
	stats := &models.CatalogStats{ByGenre: map[string]int{}}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'inactive'),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COALESCE(AVG(average_rating) FILTER (WHERE status = 'active' AND total_ratings > 0), 0),
		       COALESCE(SUM(total_ratings), 0)
		FROM `+table, since,
	).Scan(&stats.Total, &stats.Active, &stats.Inactive, &stats.NewThisMonth,
		&stats.AverageRating, &stats.TotalRatings)
	if err != nil {
		return nil, fmt.Errorf("%s stats: %w", table, err)
	}
	stats.AverageRating = round1(stats.AverageRating)

	// Genres differing only in case or padding share one bucket.
	rows, err := db.QueryContext(ctx,
		`SELECT MIN(TRIM(genre)), COUNT(*) FROM `+table+` GROUP BY LOWER(TRIM(genre))`)
	if err != nil {
		return nil, fmt.Errorf("%s genre stats: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var genre string
		var n int
		if err := rows.Scan(&genre, &n); err != nil {
			return nil, err
		}
		if genre == "" {
			genre = "unknown"
		}
		stats.ByGenre[genre] += n
	}
	return stats, rows.Err()
}
