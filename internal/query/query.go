// Package query filters, searches, sorts and pages an in-memory episode
// collection. Every function returns a new slice and leaves its input
// untouched.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"podread/internal/models"
)

const (
	// SearchPageSize is the page size of full-text search results.
	SearchPageSize = 20
	// ChannelPageSize is the page size of channel listings.
	ChannelPageSize = 10
)

// Direction selects the date ordering used by SortByDate.
type Direction int

const (
	Newest Direction = iota
	Oldest
)

// ParseDirection maps "oldest" to Oldest and anything else to Newest.
func ParseDirection(value string) Direction {
	if strings.EqualFold(strings.TrimSpace(value), "oldest") {
		return Oldest
	}
	return Newest
}

// FilterByChannel returns the episodes whose channel equals name, ignoring case.
func FilterByChannel(episodes []models.Episode, name string) []models.Episode {
	result := make([]models.Episode, 0)
	for _, ep := range episodes {
		if strings.EqualFold(ep.Channel, name) {
			result = append(result, ep)
		}
	}
	return result
}

// Search returns the page of episodes containing every whitespace-separated
// term of query in their title, channel or content. A blank query matches
// nothing.
func Search(episodes []models.Episode, query string, page int) models.SearchResult {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return models.SearchResult{Episodes: []models.Episode{}}
	}

	matched := make([]models.Episode, 0)
	for _, ep := range episodes {
		text := strings.ToLower(ep.Title + " " + ep.Channel + " " + ep.Content)
		if containsAll(text, terms) {
			matched = append(matched, ep)
		}
	}

	return models.SearchResult{
		Episodes: Paginate(matched, page, SearchPageSize),
		Total:    len(matched),
		HasMore:  HasMore(len(matched), page, SearchPageSize),
	}
}

func containsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// Paginate returns the 1-indexed page of size items. Pages outside the
// collection yield an empty slice.
func Paginate(episodes []models.Episode, page, size int) []models.Episode {
	if page < 1 || page > pageCount(len(episodes), size) {
		return []models.Episode{}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(episodes) {
		end = len(episodes)
	}

	result := make([]models.Episode, end-start)
	copy(result, episodes[start:end])
	return result
}

// HasMore reports whether pages follow page for total items.
func HasMore(total, page, size int) bool {
	return page >= 1 && page < pageCount(total, size)
}

// pageCount never multiplies by page, so huge page numbers cannot overflow.
func pageCount(total, size int) int {
	if size < 1 || total < 1 {
		return 0
	}
	return (total-1)/size + 1
}

// ChannelPage returns one page of a channel's episodes.
func ChannelPage(episodes []models.Episode, channel string, page int) []models.Episode {
	return Paginate(FilterByChannel(episodes, channel), page, ChannelPageSize)
}

// SortByDate orders episodes by their parsed publish date. The sort is
// stable and episodes with unparseable dates always come last.
func SortByDate(episodes []models.Episode, dir Direction) []models.Episode {
	type keyed struct {
		ep    models.Episode
		at    time.Time
		valid bool
	}

	items := make([]keyed, len(episodes))
	for i, ep := range episodes {
		at, ok := ParseDate(ep.PublishedAt)
		items[i] = keyed{ep: ep, at: at, valid: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.valid != b.valid {
			return a.valid
		}
		if !a.valid {
			return false
		}
		if dir == Oldest {
			return a.at.Before(b.at)
		}
		return a.at.After(b.at)
	})

	result := make([]models.Episode, len(items))
	for i, item := range items {
		result[i] = item.ep
	}
	return result
}

// ParseDate parses the loosely formatted publish dates found in the
// dataset, interpreting zone-less values as UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	at, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// FindBySlug looks up an episode and its neighbours in collection order.
// An unknown slug reports ok=false.
func FindBySlug(episodes []models.Episode, slug string) (ep models.Episode, prev, next *models.Neighbor, ok bool) {
	for i := range episodes {
		if episodes[i].Slug != slug {
			continue
		}
		if i > 0 {
			prev = neighbor(episodes[i-1])
		}
		if i < len(episodes)-1 {
			next = neighbor(episodes[i+1])
		}
		return episodes[i], prev, next, true
	}
	return models.Episode{}, nil, nil, false
}

func neighbor(ep models.Episode) *models.Neighbor {
	return &models.Neighbor{Slug: ep.Slug, Title: ep.Title, Channel: ep.Channel}
}
