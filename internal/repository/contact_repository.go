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

const contactColumns = `id, name, email, phone, subject, message, status, priority,
	reply_message, replied_by, replied_at, ip_address, created_at, updated_at`

type ContactFilter struct {
	Status   models.ContactStatus
	Priority models.ContactPriority
	Search   string
	Page
}

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func scanContact(row rowScanner) (*models.Contact, error) {
	c := &models.Contact{}
	var replyMessage sql.NullString
	var repliedBy *uuid.UUID
	var repliedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message, &c.Status,
		&c.Priority, &replyMessage, &repliedBy, &repliedAt, &c.IPAddress, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if replyMessage.Valid {
		c.Reply = &models.ContactReply{
			Message:   replyMessage.String,
			RepliedBy: repliedBy,
			RepliedAt: repliedAt.Time,
		}
	}
	return c, nil
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.ContactNew
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	query := `
		INSERT INTO contacts (id, name, email, phone, subject, message, status, priority, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.Subject,
		c.Message, c.Status, c.Priority, c.IPAddress,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapError(err, "contact")
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "contact")
	}
	return c, nil
}

func (r *ContactRepository) List(ctx context.Context, f ContactFilter) ([]*models.Contact, int, error) {
	var wheres []string
	var args []interface{}
	p := 1
	if f.Status != "" {
		wheres = append(wheres, fmt.Sprintf(`status = $%d`, p))
		args = append(args, string(f.Status))
		p++
	}
	if f.Priority != "" {
		wheres = append(wheres, fmt.Sprintf(`priority = $%d`, p))
		args = append(args, string(f.Priority))
		p++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		wheres = append(wheres, fmt.Sprintf(`(name ILIKE $%d OR email ILIKE $%d OR subject ILIKE $%d)`, p, p, p))
		args = append(args, likePattern(s))
		p++
	}
	where := whereClause(wheres)

	total, err := countRows(ctx, r.db, "contacts", where, args)
	if err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs := f.Page.clause(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts`+where+` ORDER BY created_at DESC, id`+pageSQL,
		append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

// Update writes status and priority.
func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE contacts SET status = $1, priority = $2, updated_at = NOW()
		WHERE id = $3 RETURNING updated_at`,
		c.Status, c.Priority, c.ID,
	).Scan(&c.UpdatedAt)
	return mapError(err, "contact")
}

// MarkRead moves a new message to read; other statuses are left alone.
func (r *ContactRepository) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET status = 'read', updated_at = NOW()
		WHERE id = $1 AND status = 'new'`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// Reply records the admin reply and marks the message replied.
func (r *ContactRepository) Reply(ctx context.Context, id uuid.UUID, reply models.ContactReply) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET reply_message = $1, replied_by = $2, replied_at = $3, status = 'replied', updated_at = NOW()
		WHERE id = $4
		RETURNING `+contactColumns,
		reply.Message, reply.RepliedBy, reply.RepliedAt, id))
	if err != nil {
		return nil, mapError(err, "contact")
	}
	return c, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "contact")
}

func (r *ContactRepository) Stats(ctx context.Context, since time.Time) (*models.ContactStats, error) {
	stats := &models.ContactStats{
		ByStatus:   map[models.ContactStatus]int{},
		ByPriority: map[models.ContactPriority]int{},
	}
	for _, s := range models.ContactStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range models.ContactPriorities {
		stats.ByPriority[p] = 0
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COUNT(*) FILTER (WHERE status IN ('new', 'read'))
		FROM contacts`, since,
	).Scan(&stats.Total, &stats.NewThisMonth, &stats.Unreplied)
	if err != nil {
		return nil, fmt.Errorf("contact stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, priority, COUNT(*) FROM contacts GROUP BY status, priority`)
	if err != nil {
		return nil, fmt.Errorf("contact group stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status models.ContactStatus
		var priority models.ContactPriority
		var n int
		if err := rows.Scan(&status, &priority, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] += n
		stats.ByPriority[priority] += n
	}
	return stats, rows.Err()
}
