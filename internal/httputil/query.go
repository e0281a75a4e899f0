package httputil

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

const MaxLimit = 100

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads page and limit, clamping to sane bounds. Bad values fall
// back to the defaults.
func ParsePage(q url.Values, defaultLimit int) Page {
	page := QueryInt(q, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := QueryInt(q, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

func QueryInt(q url.Values, key string, fallback int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return fallback
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return fallback
	}
	return i
}

func QueryFloat(q url.Values, key string, fallback float64) float64 {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return fallback
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fallback
	}
	return f
}
