package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ──────────────────── Enums ────────────────────

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type ContentStatus string

const (
	StatusActive   ContentStatus = "active"
	StatusInactive ContentStatus = "inactive"
)

// Toggle flips active and inactive.
func (s ContentStatus) Toggle() ContentStatus {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaTVShow MediaType = "tvshow"
)

type ContactStatus string

const (
	ContactNew     ContactStatus = "new"
	ContactRead    ContactStatus = "read"
	ContactReplied ContactStatus = "replied"
	ContactClosed  ContactStatus = "closed"
)

var ContactStatuses = []ContactStatus{ContactNew, ContactRead, ContactReplied, ContactClosed}

type ContactPriority string

const (
	PriorityLow    ContactPriority = "low"
	PriorityMedium ContactPriority = "medium"
	PriorityHigh   ContactPriority = "high"
	PriorityUrgent ContactPriority = "urgent"
)

var ContactPriorities = []ContactPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ──────────────────── User ────────────────────

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsActive() bool { return u.Status == UserActive }

// ──────────────────── Catalog ────────────────────

type Movie struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Title         string         `json:"title" db:"title"`
	Year          int            `json:"year" db:"year"`
	Description   string         `json:"description" db:"description"`
	ImageURL      string         `json:"imageUrl" db:"image_url"`
	Images        pq.StringArray `json:"images" db:"images"`
	MovieURL      string         `json:"movieUrl" db:"movie_url"`
	IMDBRating    float64        `json:"imdbRating" db:"imdb_rating"`
	AverageRating float64        `json:"averageRating" db:"average_rating"`
	TotalRatings  int            `json:"totalRatings" db:"total_ratings"`
	Genre         string         `json:"genre" db:"genre"`
	Status        ContentStatus  `json:"status" db:"status"`
	CreatedBy     *uuid.UUID     `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}

type TVShow struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	Year            int            `json:"year" db:"year"`
	Description     string         `json:"description" db:"description"`
	ImageURL        string         `json:"imageUrl" db:"image_url"`
	Images          pq.StringArray `json:"images" db:"images"`
	IMDBRating      float64        `json:"imdbRating" db:"imdb_rating"`
	AverageRating   float64        `json:"averageRating" db:"average_rating"`
	TotalRatings    int            `json:"totalRatings" db:"total_ratings"`
	Genre           string         `json:"genre" db:"genre"`
	Status          ContentStatus  `json:"status" db:"status"`
	NumberOfSeasons int            `json:"numberOfSeasons" db:"number_of_seasons"`
	EpisodeCount    int            `json:"episodeCount" db:"episode_count"`
	Episodes        Episodes       `json:"episodes" db:"episodes"`
	CreatedBy       *uuid.UUID     `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// Episode is one entry of a show's flat, globally numbered episode list.
// SeasonNumber is zero when the season was never recorded.
type Episode struct {
	EpisodeNumber int    `json:"episodeNumber"`
	EpisodeURL    string `json:"episodeUrl"`
	EpisodeTitle  string `json:"episodeTitle"`
	SeasonNumber  int    `json:"seasonNumber,omitempty"`
}

// Episodes is stored as a JSONB document.
type Episodes []Episode

func (e Episodes) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

func (e *Episodes) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*e = Episodes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("episodes: unsupported scan type %T", src)
	}
	out := Episodes{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("episodes: %w", err)
	}
	*e = out
	return nil
}

// ──────────────────── Ratings ────────────────────

type Rating struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	MediaType MediaType `json:"mediaType" db:"media_type"`
	MediaID   uuid.UUID `json:"mediaId" db:"media_id"`
	Score     int       `json:"rating" db:"score"`
	Review    string    `json:"review,omitempty" db:"review"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MediaRef points at a rated title.
type MediaRef struct {
	MediaType MediaType `json:"mediaType"`
	MediaID   uuid.UUID `json:"mediaId"`
}

// RatingSummary is the derived aggregate stored on a title.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

// ──────────────────── Contacts ────────────────────

type Contact struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Email     string          `json:"email" db:"email"`
	Phone     string          `json:"phone,omitempty" db:"phone"`
	Subject   string          `json:"subject" db:"subject"`
	Message   string          `json:"message" db:"message"`
	Status    ContactStatus   `json:"status" db:"status"`
	Priority  ContactPriority `json:"priority" db:"priority"`
	Reply     *ContactReply   `json:"reply,omitempty" db:"-"`
	IPAddress string          `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

type ContactReply struct {
	Message   string     `json:"message" db:"reply_message"`
	RepliedBy *uuid.UUID `json:"repliedBy,omitempty" db:"replied_by"`
	RepliedAt time.Time  `json:"repliedAt" db:"replied_at"`
}

// ──────────────────── Statistics ────────────────────

type ContactStats struct {
	Total        int                     `json:"total"`
	ByStatus     map[ContactStatus]int   `json:"byStatus"`
	ByPriority   map[ContactPriority]int `json:"byPriority"`
	NewThisMonth int                     `json:"newThisMonth"`
	Unreplied    int                     `json:"unreplied"`
}

type CatalogStats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	ByGenre       map[string]int `json:"byGenre"`
	NewThisMonth  int            `json:"newThisMonth"`
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
	TotalEpisodes *int           `json:"totalEpisodes,omitempty"`
}

type UserStats struct {
	Total        int                `json:"total"`
	ByRole       map[UserRole]int   `json:"byRole"`
	ByStatus     map[UserStatus]int `json:"byStatus"`
	NewThisMonth int                `json:"newThisMonth"`
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
