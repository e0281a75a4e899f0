package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

const userColumns = `id, name, email, password_hash, role, status, last_login_at, created_at, updated_at`

// registerLock serializes self-registration so only one account can claim
// the first-admin slot.
const registerLock int64 = 0x6e6b6d68

type UserFilter struct {
	Role   models.UserRole
	Status models.UserStatus
	Search string
	Page
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

const insertUser = `
	INSERT INTO users (id, name, email, password_hash, role, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, insertUser, user.ID, user.Name, user.Email,
		user.PasswordHash, user.Role, user.Status,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err, "user")
}

// Register creates a self-registered account. The role is decided inside a
// transaction holding registerLock: admin when the table is empty, user
// otherwise.
func (r *UserRepository) Register(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, registerLock); err != nil {
		return err
	}
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return err
	}
	user.Role = models.RoleUser
	if !exists {
		user.Role = models.RoleAdmin
	}
	err = tx.QueryRowContext(ctx, insertUser, user.ID, user.Name, user.Email,
		user.PasswordHash, user.Role, user.Status,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapError(err, "user")
	}
	return tx.Commit()
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]*models.User, int, error) {
	var wheres []string
	var args []interface{}
	p := 1
	if f.Role != "" {
		wheres = append(wheres, fmt.Sprintf(`role = $%d`, p))
		args = append(args, string(f.Role))
		p++
	}
	if f.Status != "" {
		wheres = append(wheres, fmt.Sprintf(`status = $%d`, p))
		args = append(args, string(f.Status))
		p++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		wheres = append(wheres, fmt.Sprintf(`(name ILIKE $%d OR email ILIKE $%d)`, p, p))
		args = append(args, likePattern(s))
		p++
	}
	where := whereClause(wheres)

	total, err := countRows(ctx, r.db, "users", where, args)
	if err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs := f.Page.clause(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY created_at DESC, id`+pageSQL,
		append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, role = $3, status = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		user.Name, user.Email, user.Role, user.Status, user.ID,
	).Scan(&user.UpdatedAt)
	return mapError(err, "user")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "user")
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "user")
}

func (r *UserRepository) Stats(ctx context.Context, since time.Time) (*models.UserStats, error) {
	stats := &models.UserStats{
		ByRole:   map[models.UserRole]int{models.RoleAdmin: 0, models.RoleUser: 0},
		ByStatus: map[models.UserStatus]int{models.UserActive: 0, models.UserInactive: 0},
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT role, status, COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
		FROM users GROUP BY role, status`, since)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role models.UserRole
		var status models.UserStatus
		var n, recent int
		if err := rows.Scan(&role, &status, &n, &recent); err != nil {
			return nil, err
		}
		stats.ByRole[role] += n
		stats.ByStatus[status] += n
		stats.Total += n
		stats.NewThisMonth += recent
	}
	return stats, rows.Err()
}
