package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/seasons"
)

func showBody() map[string]interface{} {
	return map[string]interface{}{
		"title":       "Dark",
		"year":        2017,
		"description": "A missing child sets four families on a hunt through time.",
		"imageUrl":    "https://img.moviehub.test/dark.jpg",
		"imdbRating":  8.7,
		"genre":       "Sci-Fi",
	}
}

func flatEpisodes(n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{
			"episodeNumber": i + 1,
			"episodeUrl":    fmt.Sprintf("https://cdn.moviehub.test/dark/ep%d.mp4", i+1),
		}
	}
	return out
}

func TestCreateShowFromSeasons(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)

	var grouped []map[string]interface{}
	for s := 1; s <= 3; s++ {
		var eps []map[string]interface{}
		for e := 1; e <= 3; e++ {
			eps = append(eps, map[string]interface{}{
				"episodeUrl":   fmt.Sprintf("https://cdn.moviehub.test/dark/%d-%d.mp4", s, e),
				"episodeTitle": "",
			})
		}
		grouped = append(grouped, map[string]interface{}{"seasonNumber": s, "episodes": eps})
	}
	// A blank URL is dropped without leaving a gap.
	grouped[1]["episodes"] = append(grouped[1]["episodes"].([]map[string]interface{}),
		map[string]interface{}{"episodeUrl": "  "})

	body := showBody()
	body["seasons"] = grouped

	var show models.TVShow
	decodeData(t, env.do(http.MethodPost, "/api/tvshows", body, token), http.StatusCreated, &show)
	assert.Equal(t, 3, show.NumberOfSeasons)
	assert.Equal(t, 9, show.EpisodeCount)
	require.Len(t, show.Episodes, 9)
	for i, ep := range show.Episodes {
		assert.Equal(t, i+1, ep.EpisodeNumber)
		assert.Equal(t, fmt.Sprintf("Episode %d", i+1), ep.EpisodeTitle)
	}
	assert.Equal(t, 2, show.Episodes[3].SeasonNumber)

	var view SeasonsResponse
	decodeData(t, env.do(http.MethodGet, "/api/tvshows/"+show.ID.String()+"/seasons", nil, ""), http.StatusOK, &view)
	assert.Equal(t, seasons.StrategyExplicit, view.Strategy)
	require.Len(t, view.Seasons, 3)
	for i, s := range view.Seasons {
		assert.Equal(t, i+1, s.SeasonNumber)
		assert.Len(t, s.Episodes, 3)
	}
}

func TestShowSeasonsPositional(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)

	body := showBody()
	body["numberOfSeasons"] = 3
	body["episodes"] = flatEpisodes(9)

	var show models.TVShow
	decodeData(t, env.do(http.MethodPost, "/api/tvshows", body, token), http.StatusCreated, &show)

	var view SeasonsResponse
	decodeData(t, env.do(http.MethodGet, "/api/tvshows/"+show.ID.String()+"/seasons", nil, ""), http.StatusOK, &view)
	assert.Equal(t, seasons.StrategyPositional, view.Strategy)
	assert.Equal(t, 3, view.NumberOfSeasons)
	require.Len(t, view.Seasons, 3)
	assert.Equal(t, []int{1, 2, 3}, episodeNumbers(view.Seasons[0]))
	assert.Equal(t, []int{4, 5, 6}, episodeNumbers(view.Seasons[1]))
	assert.Equal(t, []int{7, 8, 9}, episodeNumbers(view.Seasons[2]))
}

func episodeNumbers(s seasons.Season) []int {
	out := make([]int, len(s.Episodes))
	for i, ep := range s.Episodes {
		out[i] = ep.EpisodeNumber
	}
	return out
}

func TestCreateShowRejectsEpisodesAndSeasons(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)

	body := showBody()
	body["episodes"] = flatEpisodes(1)
	body["seasons"] = []map[string]interface{}{{"seasonNumber": 1, "episodes": flatEpisodes(1)}}

	rec := env.do(http.MethodPost, "/api/tvshows", body, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldErrors(decodeEnvelope(t, rec)), "seasons")
	assert.Empty(t, env.shows.shows)
}

func TestCreateShowStrictGrouping(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Config.SeasonGrouping = "markers" })
	_, token := env.seedUser("admin", models.RoleAdmin)

	body := showBody()
	body["numberOfSeasons"] = 2
	body["episodes"] = []map[string]interface{}{
		{"episodeNumber": 1, "episodeUrl": "https://cdn.moviehub.test/dark/S01E01.mp4"},
		{"episodeNumber": 2, "episodeUrl": "https://cdn.moviehub.test/dark/finale.mp4"},
	}
	rec := env.do(http.MethodPost, "/api/tvshows", body, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.shows.shows)

	body["episodes"] = []map[string]interface{}{
		{"episodeNumber": 1, "episodeUrl": "https://cdn.moviehub.test/dark/S01E01.mp4"},
		{"episodeNumber": 2, "episodeUrl": "https://cdn.moviehub.test/dark/S02E01.mp4"},
	}
	var show models.TVShow
	decodeData(t, env.do(http.MethodPost, "/api/tvshows", body, token), http.StatusCreated, &show)

	var view SeasonsResponse
	decodeData(t, env.do(http.MethodGet, "/api/tvshows/"+show.ID.String()+"/seasons", nil, ""), http.StatusOK, &view)
	assert.Equal(t, seasons.StrategyMarkers, view.Strategy)
	assert.Len(t, view.Seasons, 2)
}

func TestUpdateShowKeepsEpisodesWhenOmitted(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)
	show := env.shows.put(&models.TVShow{
		Title:           "Dark",
		NumberOfSeasons: 2,
		Episodes: models.Episodes{
			{EpisodeNumber: 1, EpisodeURL: "https://cdn.moviehub.test/1.mp4", EpisodeTitle: "Secrets"},
			{EpisodeNumber: 2, EpisodeURL: "https://cdn.moviehub.test/2.mp4", EpisodeTitle: "Lies"},
		},
	})

	body := showBody()
	body["title"] = "Dark (2017)"
	var got models.TVShow
	decodeData(t, env.do(http.MethodPut, "/api/tvshows/"+show.ID.String(), body, token), http.StatusOK, &got)
	assert.Equal(t, "Dark (2017)", got.Title)
	assert.Equal(t, 2, got.NumberOfSeasons)
	assert.Len(t, got.Episodes, 2)
	assert.Equal(t, 2, got.EpisodeCount)

	body["episodes"] = flatEpisodes(0)
	body["episodeCount"] = 10
	decodeData(t, env.do(http.MethodPut, "/api/tvshows/"+show.ID.String(), body, token), http.StatusOK, &got)
	assert.Empty(t, got.Episodes)
	assert.Equal(t, 10, got.EpisodeCount)
}

func TestToggleShowStatusTwice(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)
	show := env.shows.put(&models.TVShow{Title: "Toggle"})
	path := "/api/tvshows/" + show.ID.String() + "/status"

	var got models.TVShow
	decodeData(t, env.do(http.MethodPatch, path, nil, token), http.StatusOK, &got)
	assert.Equal(t, models.StatusInactive, got.Status)
	decodeData(t, env.do(http.MethodPatch, path, nil, token), http.StatusOK, &got)
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestRateShow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("ana", models.RoleUser)
	show := env.shows.put(&models.TVShow{Title: "Rated"})

	var got RateResponse
	decodeData(t, env.do(http.MethodPost, "/api/tvshows/"+show.ID.String()+"/rate", map[string]int{"rating": 9}, token),
		http.StatusCreated, &got)
	assert.Equal(t, models.MediaTVShow, got.Rating.MediaType)
	assert.Equal(t, 9.0, env.shows.shows[show.ID].AverageRating)

	var mine UserRatingResponse
	decodeData(t, env.do(http.MethodGet, "/api/tvshows/"+show.ID.String()+"/rating", nil, token), http.StatusOK, &mine)
	assert.Equal(t, 9, mine.UserRating.Score)
	assert.Equal(t, 1, mine.TotalRatings)
}

func TestDownloadEpisode(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("episode:" + r.URL.Path))
	}))
	defer upstream.Close()

	env := newTestEnv(t, func(d *Deps) { d.HTTPClient = upstream.Client() })
	_, token := env.seedUser("ana", models.RoleUser)
	show := env.shows.put(&models.TVShow{
		Title: "Dark",
		Episodes: models.Episodes{
			{EpisodeNumber: 1, EpisodeURL: upstream.URL + "/e1.mp4"},
			{EpisodeNumber: 2, EpisodeURL: upstream.URL + "/e2.mp4"},
		},
	})
	base := "/api/tvshows/" + show.ID.String() + "/download?token=" + token

	rec := env.do(http.MethodGet, base+"&episode=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "episode:/e2.mp4", rec.Body.String())
	assert.Equal(t, `attachment; filename="Dark - Episode 2.mp4"`, rec.Header().Get("Content-Disposition"))

	rec = env.do(http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "episode:/e1.mp4", rec.Body.String())

	rec = env.do(http.MethodGet, base+"&episode=7", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "episode 7 not found", decodeEnvelope(t, rec).Message)
}

func TestShowStats(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)
	env.shows.put(&models.TVShow{Title: "A", Genre: "Drama", EpisodeCount: 8})
	env.shows.put(&models.TVShow{Title: "B", Genre: "Drama", Status: models.StatusInactive,
		Episodes: models.Episodes{{EpisodeNumber: 1, EpisodeURL: "https://cdn.test/1.mp4"}}})

	var got models.CatalogStats
	decodeData(t, env.do(http.MethodGet, "/api/tvshows/stats", nil, token), http.StatusOK, &got)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Inactive)
	require.NotNil(t, got.TotalEpisodes)
	assert.Equal(t, 9, *got.TotalEpisodes)
}
