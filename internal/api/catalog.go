package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/images"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

const catalogPageSize = 12

// titleFields are the editable fields movies and shows share.
type titleFields struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Year        int      `json:"year" validate:"required,gte=1888,lte=2100"`
	Description string   `json:"description" validate:"required,min=10,max=2000"`
	ImageURL    string   `json:"imageUrl" validate:"omitempty,url|datauri"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,omitempty,url|datauri"`
	IMDBRating  float64  `json:"imdbRating" validate:"gte=0,lte=10"`
	Genre       string   `json:"genre" validate:"max=50"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

// resolveImages uploads any data URI images and returns the hosted
// cover URL and gallery.
func (s *Server) resolveImages(w http.ResponseWriter, r *http.Request, f *titleFields) (string, []string, bool) {
	cover, err := images.Resolve(r.Context(), s.uploader, []string{f.ImageURL})
	var gallery []string
	if err == nil {
		gallery, err = images.Resolve(r.Context(), s.uploader, f.Images)
	}
	switch {
	case errors.Is(err, images.ErrNotConfigured):
		s.respondError(w, http.StatusBadRequest, "image upload is not configured; send image URLs instead")
		return "", nil, false
	case err != nil:
		s.logger.Warn("image upload failed", "error", err)
		s.respondError(w, http.StatusBadGateway, "image upload failed")
		return "", nil, false
	}

	imageURL := ""
	if len(cover) > 0 {
		imageURL = cover[0]
	} else if len(gallery) > 0 {
		imageURL = gallery[0]
	}
	return imageURL, gallery, true
}

// catalogFilter reads list filters. Only admins may filter by status;
// everyone else sees active titles only.
func catalogFilter(r *http.Request) (repository.CatalogFilter, httputil.Page) {
	q := r.URL.Query()
	page := httputil.ParsePage(q, catalogPageSize)
	f := repository.CatalogFilter{
		Search:    q.Get("search"),
		Genre:     strings.TrimSpace(q.Get("genre")),
		Year:      httputil.QueryInt(q, "year", 0),
		MinRating: httputil.QueryFloat(q, "minRating", 0),
		Sort:      q.Get("sort"),
		Page:      repository.Page{Limit: page.Limit, Offset: page.Offset()},
	}
	if strings.EqualFold(f.Genre, "all") {
		f.Genre = ""
	}
	if isAdmin(r) {
		switch st := models.ContentStatus(q.Get("status")); st {
		case models.StatusActive, models.StatusInactive:
			f.Status = st
		}
	} else {
		f.Status = models.StatusActive
	}
	return f, page
}

// visible hides inactive titles from everyone but admins.
func visible(r *http.Request, status models.ContentStatus) bool {
	return status == models.StatusActive || isAdmin(r)
}

type StatusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// nextStatus reads an optional {status} body. An empty body toggles.
func (s *Server) nextStatus(w http.ResponseWriter, r *http.Request, current models.ContentStatus) (models.ContentStatus, bool) {
	var req StatusRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if !s.check(w, &req) {
		return "", false
	}
	if req.Status == "" {
		return current.Toggle(), true
	}
	return models.ContentStatus(req.Status), true
}

type RateRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=10"`
	Review string `json:"review" validate:"max=1000"`
}

type RateResponse struct {
	Rating           *models.Rating `json:"rating"`
	AverageRating    float64        `json:"averageRating"`
	TotalRatings     int            `json:"totalRatings"`
	AggregateUpdated bool           `json:"aggregateUpdated"`
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request, ref models.MediaRef) {
	var req RateRequest
	if !s.decode(w, r, &req) {
		return
	}
	user := auth.UserFromContext(r.Context())

	res, err := s.rater.Rate(r.Context(), user.ID, ref, req.Rating, strings.TrimSpace(req.Review))
	if err != nil {
		s.respondStoreError(w, r, err, titleNoun(ref.MediaType))
		return
	}

	status, msg := http.StatusOK, "Rating updated successfully"
	if res.Created {
		status, msg = http.StatusCreated, "Rating submitted successfully"
	}
	httputil.OK(w, status, msg, RateResponse{
		Rating:           res.Rating,
		AverageRating:    res.Summary.AverageRating,
		TotalRatings:     res.Summary.TotalRatings,
		AggregateUpdated: res.AggregateUpdated,
	})
}

type UserRatingResponse struct {
	UserRating    *models.Rating `json:"userRating"`
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
}

func (s *Server) userRating(w http.ResponseWriter, r *http.Request, ref models.MediaRef, summary models.RatingSummary) {
	user := auth.UserFromContext(r.Context())
	rt, err := s.ratings.GetForUser(r.Context(), user.ID, ref)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", UserRatingResponse{
		UserRating:    rt,
		AverageRating: summary.AverageRating,
		TotalRatings:  summary.TotalRatings,
	})
}

func titleNoun(t models.MediaType) string {
	if t == models.MediaTVShow {
		return "tv show"
	}
	return "movie"
}

// ──────────────────── Downloads ────────────────────

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9 ._\-()]+`)

// attachmentName builds a safe download filename from a title and the
// media URL's extension.
func attachmentName(title, mediaURL string) string {
	name := strings.Join(strings.Fields(unsafeFilename.ReplaceAllString(title, "")), " ")
	if name == "" {
		name = "download"
	}
	ext := ".mp4"
	if u, err := url.Parse(mediaURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); len(e) > 1 && len(e) <= 5 {
			ext = e
		}
	}
	return name + ext
}

// stream proxies mediaURL to the client as an attachment.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, mediaURL, filename string) {
	u, err := url.Parse(mediaURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.respondError(w, http.StatusNotFound, "no downloadable file for this title")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, mediaURL, nil)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("download upstream failed", "url", mediaURL, "error", err)
		s.respondError(w, http.StatusBadGateway, "media source is unavailable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("download upstream status", "url", mediaURL, "status", resp.StatusCode)
		s.respondError(w, http.StatusBadGateway, fmt.Sprintf("media source returned %d", resp.StatusCode))
		return
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("download interrupted", "url", mediaURL, "error", err)
	}
}
