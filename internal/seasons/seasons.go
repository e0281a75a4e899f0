// Package seasons converts between a show's flat, globally numbered episode
// list and the grouped-by-season view editors work with.
package seasons

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

// ErrIncompleteSeasonData is returned by the strict strategies when an
// episode lacks the data the strategy groups by.
var ErrIncompleteSeasonData = errors.New("incomplete season data")

type Strategy string

const (
	StrategyAuto       Strategy = "auto"
	StrategyExplicit   Strategy = "explicit"
	StrategyMarkers    Strategy = "markers"
	StrategyPositional Strategy = "positional"
)

// ParseStrategy maps a config value to a Strategy. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyExplicit:
		return StrategyExplicit, nil
	case StrategyMarkers:
		return StrategyMarkers, nil
	case StrategyPositional:
		return StrategyPositional, nil
	}
	return "", fmt.Errorf("unknown season grouping strategy %q", s)
}

// Season is one group of the grouped view.
type Season struct {
	SeasonNumber int              `json:"seasonNumber"`
	Episodes     []models.Episode `json:"episodes"`
}

// Grouping is the result of Group.
type Grouping struct {
	Strategy Strategy `json:"strategy"`
	Seasons  []Season `json:"seasons"`
}

var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)s(\d{1,2})e\d+`),
	regexp.MustCompile(`(?i)season[_\-\s]?(\d+)`),
	regexp.MustCompile(`(?i)/s(\d+)/`),
}

// DetectSeason extracts a season number from an episode URL. It recognizes
// s01e02, season_02 (also season-2, "season 2", season2) and /s02/.
func DetectSeason(url string) (int, bool) {
	for _, re := range markerPatterns {
		m := re.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		return n, true
	}
	return 0, false
}

type Grouper struct {
	Strategy Strategy
}

func NewGrouper(s Strategy) *Grouper {
	if s == "" {
		s = StrategyAuto
	}
	return &Grouper{Strategy: s}
}

// Group splits episodes into at most numberOfSeasons seasons. Episodes are
// ordered by episode number first. One strategy is applied to the whole
// show; seasons with no episodes are left out.
func (g *Grouper) Group(episodes []models.Episode, numberOfSeasons int) (*Grouping, error) {
	if numberOfSeasons < 1 {
		numberOfSeasons = 1
	}
	sorted := make([]models.Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EpisodeNumber < sorted[j].EpisodeNumber
	})

	strategy := g.Strategy
	if strategy == "" || strategy == StrategyAuto {
		strategy = pick(sorted)
	}

	assign := make([]int, len(sorted))
	switch strategy {
	case StrategyExplicit:
		for i, ep := range sorted {
			if ep.SeasonNumber < 1 {
				return nil, fmt.Errorf("episode %d has no season number: %w", ep.EpisodeNumber, ErrIncompleteSeasonData)
			}
			assign[i] = clamp(ep.SeasonNumber, numberOfSeasons)
		}
	case StrategyMarkers:
		for i, ep := range sorted {
			n, ok := DetectSeason(ep.EpisodeURL)
			if !ok {
				return nil, fmt.Errorf("episode %d url has no season marker: %w", ep.EpisodeNumber, ErrIncompleteSeasonData)
			}
			assign[i] = clamp(n, numberOfSeasons)
		}
	case StrategyPositional:
		size := (len(sorted) + numberOfSeasons - 1) / numberOfSeasons
		for i := range sorted {
			assign[i] = i/size + 1
		}
	default:
		return nil, fmt.Errorf("unknown season grouping strategy %q", strategy)
	}

	buckets := map[int][]models.Episode{}
	for i, ep := range sorted {
		buckets[assign[i]] = append(buckets[assign[i]], ep)
	}

	out := &Grouping{Strategy: strategy, Seasons: []Season{}}
	for n := 1; n <= numberOfSeasons; n++ {
		if eps, ok := buckets[n]; ok {
			out.Seasons = append(out.Seasons, Season{SeasonNumber: n, Episodes: eps})
		}
	}
	return out, nil
}

func pick(episodes []models.Episode) Strategy {
	if len(episodes) == 0 {
		return StrategyPositional
	}
	explicit, markers := true, true
	for _, ep := range episodes {
		if ep.SeasonNumber < 1 {
			explicit = false
		}
		if _, ok := DetectSeason(ep.EpisodeURL); !ok {
			markers = false
		}
	}
	switch {
	case explicit:
		return StrategyExplicit
	case markers:
		return StrategyMarkers
	default:
		return StrategyPositional
	}
}

func clamp(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// Flatten turns the grouped view back into the stored list: seasons in
// ascending order, blank URLs dropped, episodes renumbered from 1 and
// blank titles defaulted to "Episode {n}".
func Flatten(seasons []Season) models.Episodes {
	ordered := make([]Season, len(seasons))
	copy(ordered, seasons)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SeasonNumber < ordered[j].SeasonNumber
	})

	out := models.Episodes{}
	for _, s := range ordered {
		for _, ep := range s.Episodes {
			if strings.TrimSpace(ep.EpisodeURL) == "" {
				continue
			}
			n := len(out) + 1
			out = append(out, models.Episode{
				EpisodeNumber: n,
				EpisodeURL:    strings.TrimSpace(ep.EpisodeURL),
				EpisodeTitle:  title(ep.EpisodeTitle, n),
				SeasonNumber:  s.SeasonNumber,
			})
		}
	}
	return out
}

// Normalize applies Flatten's cleanup to a flat submission. Stored season
// numbers are kept.
func Normalize(episodes []models.Episode) models.Episodes {
	sorted := make([]models.Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EpisodeNumber < sorted[j].EpisodeNumber
	})

	out := models.Episodes{}
	for _, ep := range sorted {
		if strings.TrimSpace(ep.EpisodeURL) == "" {
			continue
		}
		n := len(out) + 1
		out = append(out, models.Episode{
			EpisodeNumber: n,
			EpisodeURL:    strings.TrimSpace(ep.EpisodeURL),
			EpisodeTitle:  title(ep.EpisodeTitle, n),
			SeasonNumber:  ep.SeasonNumber,
		})
	}
	return out
}

func title(t string, n int) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return fmt.Sprintf("Episode %d", n)
}
