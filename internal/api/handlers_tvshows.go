package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/seasons"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/validation"
)

type EpisodeRequest struct {
	EpisodeNumber int    `json:"episodeNumber" validate:"gte=0"`
	EpisodeURL    string `json:"episodeUrl" validate:"max=2048"`
	EpisodeTitle  string `json:"episodeTitle" validate:"max=200"`
	SeasonNumber  int    `json:"seasonNumber" validate:"gte=0"`
}

type SeasonRequest struct {
	SeasonNumber int              `json:"seasonNumber" validate:"required,gte=1,lte=100"`
	Episodes     []EpisodeRequest `json:"episodes" validate:"max=500,dive"`
}

// ShowRequest carries episodes either as the flat stored list or grouped
// by season, never both.
type ShowRequest struct {
	titleFields
	NumberOfSeasons int              `json:"numberOfSeasons" validate:"gte=0,lte=100"`
	EpisodeCount    int              `json:"episodeCount" validate:"gte=0"`
	Episodes        []EpisodeRequest `json:"episodes" validate:"omitempty,max=2000,dive"`
	Seasons         []SeasonRequest  `json:"seasons" validate:"omitempty,max=100,dive"`
}

type SeasonsResponse struct {
	ShowID          uuid.UUID        `json:"showId"`
	NumberOfSeasons int              `json:"numberOfSeasons"`
	Strategy        seasons.Strategy `json:"strategy"`
	Seasons         []seasons.Season `json:"seasons"`
}

func (s *Server) handleListShows(w http.ResponseWriter, r *http.Request) {
	f, page := catalogFilter(r)
	shows, total, err := s.shows.ListShows(r.Context(), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !isAdmin(r) {
		for _, t := range shows {
			t.CreatedBy = nil
		}
	}
	httputil.List(w, shows, page, total)
}

func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	show, ok := s.loadShow(w, r)
	if !ok {
		return
	}
	if !isAdmin(r) {
		show.CreatedBy = nil
	}
	httputil.OK(w, http.StatusOK, "", show)
}

func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	var req ShowRequest
	if !s.decode(w, r, &req) {
		return
	}
	user := auth.UserFromContext(r.Context())
	show := &models.TVShow{CreatedBy: &user.ID, Status: models.StatusActive}
	if !s.applyShow(w, r, show, &req) {
		return
	}

	if err := s.shows.CreateShow(r.Context(), show); err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	s.logger.Info("tv show created", "show_id", show.ID, "title", show.Title,
		"episodes", len(show.Episodes), "by", user.ID)
	httputil.OK(w, http.StatusCreated, "TV show created successfully", show)
}

// handleUpdateShow replaces the editable fields. Episodes are kept when the
// body sends neither episodes nor seasons.
func (s *Server) handleUpdateShow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tv show")
	if !ok {
		return
	}
	var req ShowRequest
	if !s.decode(w, r, &req) {
		return
	}
	show, err := s.shows.GetShowByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	if !s.applyShow(w, r, show, &req) {
		return
	}

	if err := s.shows.UpdateShow(r.Context(), show); err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	httputil.OK(w, http.StatusOK, "TV show updated successfully", show)
}

func (s *Server) handleDeleteShow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tv show")
	if !ok {
		return
	}
	if err := s.shows.DeleteShow(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	s.logger.Info("tv show deleted", "show_id", id)
	httputil.OK(w, http.StatusOK, "TV show deleted successfully", nil)
}

func (s *Server) handleShowStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tv show")
	if !ok {
		return
	}
	show, err := s.shows.GetShowByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	next, ok := s.nextStatus(w, r, show.Status)
	if !ok {
		return
	}
	if err := s.shows.SetStatus(r.Context(), id, next); err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return
	}
	show.Status = next
	httputil.OK(w, http.StatusOK, "TV show status updated to "+string(next), show)
}

func (s *Server) handleShowStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.shows.Stats(r.Context(), s.monthStart())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", stats)
}

// handleShowSeasons returns the episode list grouped into seasons.
func (s *Server) handleShowSeasons(w http.ResponseWriter, r *http.Request) {
	show, ok := s.loadShow(w, r)
	if !ok {
		return
	}
	grouping, err := s.grouper.Group(show.Episodes, show.NumberOfSeasons)
	if err != nil {
		s.respondGroupingError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", SeasonsResponse{
		ShowID:          show.ID,
		NumberOfSeasons: show.NumberOfSeasons,
		Strategy:        grouping.Strategy,
		Seasons:         grouping.Seasons,
	})
}

func (s *Server) handleRateShow(w http.ResponseWriter, r *http.Request) {
	show, ok := s.loadShow(w, r)
	if !ok {
		return
	}
	s.rate(w, r, models.MediaRef{MediaType: models.MediaTVShow, MediaID: show.ID})
}

func (s *Server) handleGetShowRating(w http.ResponseWriter, r *http.Request) {
	show, ok := s.loadShow(w, r)
	if !ok {
		return
	}
	s.userRating(w, r, models.MediaRef{MediaType: models.MediaTVShow, MediaID: show.ID},
		models.RatingSummary{AverageRating: show.AverageRating, TotalRatings: show.TotalRatings})
}

// handleDownloadEpisode streams one episode, chosen with ?episode=n
// (default 1).
func (s *Server) handleDownloadEpisode(w http.ResponseWriter, r *http.Request) {
	show, ok := s.loadShow(w, r)
	if !ok {
		return
	}
	n := httputil.QueryInt(r.URL.Query(), "episode", 1)
	var ep *models.Episode
	for i := range show.Episodes {
		if show.Episodes[i].EpisodeNumber == n {
			ep = &show.Episodes[i]
			break
		}
	}
	if ep == nil || strings.TrimSpace(ep.EpisodeURL) == "" {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("episode %d not found", n))
		return
	}

	s.logger.Info("episode download", "show_id", show.ID, "episode", n,
		"user_id", auth.UserFromContext(r.Context()).ID)
	name := fmt.Sprintf("%s - Episode %d", show.Title, n)
	s.stream(w, r, ep.EpisodeURL, attachmentName(name, ep.EpisodeURL))
}

func (s *Server) loadShow(w http.ResponseWriter, r *http.Request) (*models.TVShow, bool) {
	id, ok := pathID(w, r, "tv show")
	if !ok {
		return nil, false
	}
	show, err := s.shows.GetShowByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "tv show")
		return nil, false
	}
	if !visible(r, show.Status) {
		s.respondError(w, http.StatusNotFound, "tv show not found")
		return nil, false
	}
	return show, true
}

// applyShow copies req onto show, resolving images and episodes. The
// result must group under the configured strategy.
func (s *Server) applyShow(w http.ResponseWriter, r *http.Request, show *models.TVShow, req *ShowRequest) bool {
	if req.Episodes != nil && req.Seasons != nil {
		httputil.WriteValidation(w, validation.Errors{{
			Field:   "seasons",
			Message: "send either episodes or seasons, not both",
		}})
		return false
	}

	imageURL, gallery, ok := s.resolveImages(w, r, &req.titleFields)
	if !ok {
		return false
	}

	seasonCount := 0
	switch {
	case req.Seasons != nil:
		grouped := make([]seasons.Season, len(req.Seasons))
		for i, sr := range req.Seasons {
			grouped[i] = seasons.Season{SeasonNumber: sr.SeasonNumber, Episodes: toEpisodes(sr.Episodes)}
			if sr.SeasonNumber > seasonCount {
				seasonCount = sr.SeasonNumber
			}
		}
		if len(grouped) > seasonCount {
			seasonCount = len(grouped)
		}
		show.Episodes = seasons.Flatten(grouped)
	case req.Episodes != nil:
		show.Episodes = seasons.Normalize(toEpisodes(req.Episodes))
	}

	switch {
	case req.NumberOfSeasons > 0:
		show.NumberOfSeasons = req.NumberOfSeasons
	case seasonCount > 0:
		show.NumberOfSeasons = seasonCount
	case show.NumberOfSeasons < 1:
		show.NumberOfSeasons = 1
	}

	if _, err := s.grouper.Group(show.Episodes, show.NumberOfSeasons); err != nil {
		s.respondGroupingError(w, r, err)
		return false
	}

	show.Title = strings.TrimSpace(req.Title)
	show.Year = req.Year
	show.Description = strings.TrimSpace(req.Description)
	show.ImageURL = imageURL
	show.Images = gallery
	show.IMDBRating = req.IMDBRating
	show.Genre = strings.TrimSpace(req.Genre)
	if req.Status != "" {
		show.Status = models.ContentStatus(req.Status)
	}
	if len(show.Episodes) > 0 {
		show.EpisodeCount = len(show.Episodes)
	} else {
		show.EpisodeCount = req.EpisodeCount
	}
	return true
}

func (s *Server) respondGroupingError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, seasons.ErrIncompleteSeasonData) {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.serverError(w, r, err)
}

func toEpisodes(in []EpisodeRequest) []models.Episode {
	out := make([]models.Episode, len(in))
	for i, e := range in {
		out[i] = models.Episode{
			EpisodeNumber: e.EpisodeNumber,
			EpisodeURL:    e.EpisodeURL,
			EpisodeTitle:  e.EpisodeTitle,
			SeasonNumber:  e.SeasonNumber,
		}
	}
	return out
}
