package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/images"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/notifications"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

func notFound(entity string) error { return fmt.Errorf("%s %w", entity, repository.ErrNotFound) }

func window(n int, p repository.Page) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

// ──────────────────── Users ────────────────────

type fakeUsers struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	onDelete func(id uuid.UUID)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(u)
}

func (f *fakeUsers) Register(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Role = models.RoleUser
	if len(f.users) == 0 {
		u.Role = models.RoleAdmin
	}
	return f.insert(u)
}

func (f *fakeUsers) insert(u *models.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %w", repository.ErrConflict)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]*models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(u.Email, q) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	start, end := window(len(out), filter.Page)
	return append([]*models.User{}, out[start:end]...), len(out), nil
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[u.ID]
	if !ok {
		return notFound("user")
	}
	for id, other := range f.users {
		if id != u.ID && other.Email == u.Email {
			return fmt.Errorf("user %w", repository.ErrConflict)
		}
	}
	cp := *u
	cp.PasswordHash = existing.PasswordHash
	cp.UpdatedAt = time.Now().UTC()
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return notFound("user")
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return notFound("user")
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	if _, ok := f.users[id]; !ok {
		f.mu.Unlock()
		return notFound("user")
	}
	delete(f.users, id)
	f.mu.Unlock()
	if f.onDelete != nil {
		f.onDelete(id)
	}
	return nil
}

func (f *fakeUsers) Stats(_ context.Context, since time.Time) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.UserStats{
		ByRole:   map[models.UserRole]int{models.RoleUser: 0, models.RoleAdmin: 0},
		ByStatus: map[models.UserStatus]int{models.UserActive: 0, models.UserInactive: 0},
	}
	for _, u := range f.users {
		st.Total++
		st.ByRole[u.Role]++
		st.ByStatus[u.Status]++
		if !u.CreatedAt.Before(since) {
			st.NewThisMonth++
		}
	}
	return st, nil
}

// ──────────────────── Catalog ────────────────────

func matchesCatalog(f repository.CatalogFilter, title, desc, genre string, year int, avg float64, status models.ContentStatus) bool {
	if f.Status != "" && status != f.Status {
		return false
	}
	if f.Genre != "" && !strings.EqualFold(genre, f.Genre) {
		return false
	}
	if f.Year > 0 && year != f.Year {
		return false
	}
	if f.MinRating > 0 && avg < f.MinRating {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" &&
		!strings.Contains(strings.ToLower(title), q) && !strings.Contains(strings.ToLower(desc), q) {
		return false
	}
	return true
}

type fakeMovies struct {
	mu     sync.Mutex
	movies map[uuid.UUID]*models.Movie
	// summaryErr fails aggregate writes when set.
	summaryErr error
}

func newFakeMovies() *fakeMovies {
	return &fakeMovies{movies: map[uuid.UUID]*models.Movie{}}
}

func copyMovie(m *models.Movie) *models.Movie {
	cp := *m
	cp.Images = append(pq.StringArray{}, m.Images...)
	return &cp
}

func (f *fakeMovies) Create(_ context.Context, m *models.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Images == nil {
		m.Images = pq.StringArray{}
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	m.AverageRating, m.TotalRatings = 0, 0
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	f.movies[m.ID] = copyMovie(m)
	return nil
}

func (f *fakeMovies) GetByID(_ context.Context, id uuid.UUID) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return nil, notFound("movie")
	}
	return copyMovie(m), nil
}

func (f *fakeMovies) List(_ context.Context, filter repository.CatalogFilter) ([]*models.Movie, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Movie
	for _, m := range f.movies {
		if matchesCatalog(filter, m.Title, m.Description, m.Genre, m.Year, m.AverageRating, m.Status) {
			out = append(out, copyMovie(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	start, end := window(len(out), filter.Page)
	return append([]*models.Movie{}, out[start:end]...), len(out), nil
}

func (f *fakeMovies) Update(_ context.Context, m *models.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.movies[m.ID]
	if !ok {
		return notFound("movie")
	}
	m.AverageRating, m.TotalRatings = existing.AverageRating, existing.TotalRatings
	m.UpdatedAt = time.Now().UTC()
	f.movies[m.ID] = copyMovie(m)
	return nil
}

func (f *fakeMovies) SetStatus(_ context.Context, id uuid.UUID, status models.ContentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return notFound("movie")
	}
	m.Status = status
	return nil
}

func (f *fakeMovies) UpdateRatingSummary(_ context.Context, id uuid.UUID, s models.RatingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return f.summaryErr
	}
	m, ok := f.movies[id]
	if !ok {
		return notFound("movie")
	}
	m.AverageRating, m.TotalRatings = s.AverageRating, s.TotalRatings
	return nil
}

func (f *fakeMovies) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.movies[id]; !ok {
		return notFound("movie")
	}
	delete(f.movies, id)
	return nil
}

func (f *fakeMovies) Stats(_ context.Context, since time.Time) (*models.CatalogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.CatalogStats{ByGenre: map[string]int{}}
	for _, m := range f.movies {
		st.Total++
		if m.Status == models.StatusActive {
			st.Active++
		} else {
			st.Inactive++
		}
		st.ByGenre[m.Genre]++
		st.TotalRatings += m.TotalRatings
		if !m.CreatedAt.Before(since) {
			st.NewThisMonth++
		}
	}
	return st, nil
}

func (f *fakeMovies) put(m *models.Movie) *models.Movie {
	if err := f.Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}

type fakeShows struct {
	mu    sync.Mutex
	shows map[uuid.UUID]*models.TVShow
}

func newFakeShows() *fakeShows {
	return &fakeShows{shows: map[uuid.UUID]*models.TVShow{}}
}

func copyShow(s *models.TVShow) *models.TVShow {
	cp := *s
	cp.Images = append(pq.StringArray{}, s.Images...)
	cp.Episodes = append(models.Episodes{}, s.Episodes...)
	return &cp
}

func syncShow(s *models.TVShow) {
	if s.Episodes == nil {
		s.Episodes = models.Episodes{}
	}
	if len(s.Episodes) > 0 {
		s.EpisodeCount = len(s.Episodes)
	}
	if s.NumberOfSeasons < 1 {
		s.NumberOfSeasons = 1
	}
}

func (f *fakeShows) CreateShow(_ context.Context, s *models.TVShow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}
	syncShow(s)
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	f.shows[s.ID] = copyShow(s)
	return nil
}

func (f *fakeShows) GetShowByID(_ context.Context, id uuid.UUID) (*models.TVShow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shows[id]
	if !ok {
		return nil, notFound("tv show")
	}
	return copyShow(s), nil
}

func (f *fakeShows) ListShows(_ context.Context, filter repository.CatalogFilter) ([]*models.TVShow, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TVShow
	for _, s := range f.shows {
		if matchesCatalog(filter, s.Title, s.Description, s.Genre, s.Year, s.AverageRating, s.Status) {
			out = append(out, copyShow(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	start, end := window(len(out), filter.Page)
	return append([]*models.TVShow{}, out[start:end]...), len(out), nil
}

func (f *fakeShows) UpdateShow(_ context.Context, s *models.TVShow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.shows[s.ID]
	if !ok {
		return notFound("tv show")
	}
	syncShow(s)
	s.AverageRating, s.TotalRatings = existing.AverageRating, existing.TotalRatings
	f.shows[s.ID] = copyShow(s)
	return nil
}

func (f *fakeShows) SetStatus(_ context.Context, id uuid.UUID, status models.ContentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shows[id]
	if !ok {
		return notFound("tv show")
	}
	s.Status = status
	return nil
}

func (f *fakeShows) UpdateRatingSummary(_ context.Context, id uuid.UUID, sum models.RatingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shows[id]
	if !ok {
		return notFound("tv show")
	}
	s.AverageRating, s.TotalRatings = sum.AverageRating, sum.TotalRatings
	return nil
}

func (f *fakeShows) DeleteShow(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shows[id]; !ok {
		return notFound("tv show")
	}
	delete(f.shows, id)
	return nil
}

func (f *fakeShows) Stats(_ context.Context, since time.Time) (*models.CatalogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	episodes := 0
	st := &models.CatalogStats{ByGenre: map[string]int{}, TotalEpisodes: &episodes}
	for _, s := range f.shows {
		st.Total++
		if s.Status == models.StatusActive {
			st.Active++
		} else {
			st.Inactive++
		}
		st.ByGenre[s.Genre]++
		episodes += s.EpisodeCount
	}
	return st, nil
}

func (f *fakeShows) put(s *models.TVShow) *models.TVShow {
	if err := f.CreateShow(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}

// ──────────────────── Ratings ────────────────────

type ratingKey struct {
	user uuid.UUID
	ref  models.MediaRef
}

type fakeRatings struct {
	mu      sync.Mutex
	ratings map[ratingKey]*models.Rating
}

func newFakeRatings() *fakeRatings {
	return &fakeRatings{ratings: map[ratingKey]*models.Rating{}}
}

func (f *fakeRatings) Upsert(_ context.Context, rt *models.Rating) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ratingKey{rt.UserID, models.MediaRef{MediaType: rt.MediaType, MediaID: rt.MediaID}}
	now := time.Now().UTC()
	if existing, ok := f.ratings[key]; ok {
		existing.Score, existing.Review, existing.UpdatedAt = rt.Score, rt.Review, now
		*rt = *existing
		return false, nil
	}
	rt.ID = uuid.New()
	rt.CreatedAt, rt.UpdatedAt = now, now
	cp := *rt
	f.ratings[key] = &cp
	return true, nil
}

func (f *fakeRatings) Scores(_ context.Context, ref models.MediaRef) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for k, rt := range f.ratings {
		if k.ref == ref {
			out = append(out, rt.Score)
		}
	}
	return out, nil
}

func (f *fakeRatings) GetForUser(_ context.Context, userID uuid.UUID, ref models.MediaRef) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.ratings[ratingKey{userID, ref}]
	if !ok {
		return nil, notFound("rating")
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeRatings) RatedBy(_ context.Context, userID uuid.UUID) ([]models.MediaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MediaRef
	for k := range f.ratings {
		if k.user == userID {
			out = append(out, k.ref)
		}
	}
	return out, nil
}

// deleteUser mirrors the foreign key cascade.
func (f *fakeRatings) deleteUser(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.ratings {
		if k.user == userID {
			delete(f.ratings, k)
		}
	}
}

func (f *fakeRatings) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ratings)
}

// ──────────────────── Contacts ────────────────────

type fakeContacts struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*models.Contact
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{contacts: map[uuid.UUID]*models.Contact{}}
}

func copyContact(c *models.Contact) *models.Contact {
	cp := *c
	if c.Reply != nil {
		r := *c.Reply
		cp.Reply = &r
	}
	return &cp
}

func (f *fakeContacts) Create(_ context.Context, c *models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.ContactNew
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	f.contacts[c.ID] = copyContact(c)
	return nil
}

func (f *fakeContacts) GetByID(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, notFound("contact")
	}
	return copyContact(c), nil
}

func (f *fakeContacts) List(_ context.Context, filter repository.ContactFilter) ([]*models.Contact, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Contact
	for _, c := range f.contacts {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && c.Priority != filter.Priority {
			continue
		}
		out = append(out, copyContact(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	start, end := window(len(out), filter.Page)
	return append([]*models.Contact{}, out[start:end]...), len(out), nil
}

func (f *fakeContacts) Update(_ context.Context, c *models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.contacts[c.ID]
	if !ok {
		return notFound("contact")
	}
	existing.Status, existing.Priority = c.Status, c.Priority
	return nil
}

func (f *fakeContacts) MarkRead(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.Status != models.ContactNew {
		return false, nil
	}
	c.Status = models.ContactRead
	return true, nil
}

func (f *fakeContacts) Reply(_ context.Context, id uuid.UUID, reply models.ContactReply) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, notFound("contact")
	}
	c.Reply = &reply
	c.Status = models.ContactReplied
	return copyContact(c), nil
}

func (f *fakeContacts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contacts[id]; !ok {
		return notFound("contact")
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContacts) Stats(_ context.Context, since time.Time) (*models.ContactStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.ContactStats{
		ByStatus:   map[models.ContactStatus]int{},
		ByPriority: map[models.ContactPriority]int{},
	}
	for _, c := range f.contacts {
		st.Total++
		st.ByStatus[c.Status]++
		st.ByPriority[c.Priority]++
		if c.Status == models.ContactNew || c.Status == models.ContactRead {
			st.Unreplied++
		}
	}
	return st, nil
}

// ──────────────────── Mail and images ────────────────────

type fakeMailer struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg notifications.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []notifications.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.Message{}, f.sent...)
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, file string) (*images.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if !images.IsDataURI(file) {
		return nil, errors.New("not a data uri")
	}
	f.uploads++
	id := fmt.Sprintf("moviehub/img%d", f.uploads)
	return &images.Upload{URL: "https://res.cloudinary.test/" + id + ".png", PublicID: id}, nil
}
