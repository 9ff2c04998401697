package server

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"podread/internal/models"
	"podread/internal/query"
)

// FeedSize is the number of newest episodes published in the RSS feed.
const FeedSize = 50

// episodePath prefixes the API resource each feed item links to.
const episodePath = "/api/episodes/"

func (h *serverHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	base := h.feedBaseURL(r)
	if base == nil {
		zerolog.Ctx(r.Context()).Error().Msg("unable to determine feed base URL")
		writeError(w, r, http.StatusInternalServerError, "feed unavailable")
		return
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return
	}

	data, err := h.buildRSSFeed(base, episodes)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to build RSS feed")
		writeError(w, r, http.StatusInternalServerError, "feed unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write RSS feed")
	}
}

// feedBaseURL prefers the configured site URL and falls back to the request.
func (h *serverHandler) feedBaseURL(r *http.Request) *url.URL {
	if h.feed.BaseURL != "" {
		if parsed, err := url.Parse(h.feed.BaseURL); err == nil && parsed.Scheme != "" && parsed.Host != "" {
			parsed.Path = strings.TrimRight(parsed.Path, "/")
			parsed.RawQuery = ""
			return parsed
		}
	}

	scheme := "http"
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		if candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0]); candidate != "" {
			scheme = candidate
		}
	} else if r.TLS != nil {
		scheme = "https"
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		return nil
	}

	return &url.URL{Scheme: scheme, Host: host}
}

func (h *serverHandler) buildRSSFeed(base *url.URL, episodes []models.Episode) ([]byte, error) {
	newest := query.SortByDate(episodes, query.Newest)
	if len(newest) > FeedSize {
		newest = newest[:FeedSize]
	}

	feedURL := *base
	feedURL.Path = base.Path + "/feed.xml"

	channelLink := *base
	if channelLink.Path == "" {
		channelLink.Path = "/"
	}

	lastBuild := time.Time{}
	for _, ep := range newest {
		if published, ok := query.ParseDate(ep.PublishedAt); ok && published.After(lastBuild) {
			lastBuild = published
		}
	}
	if lastBuild.IsZero() {
		lastBuild = time.Now().UTC()
	}

	rss := rssFeed{
		Version:  "2.0",
		AtomNS:   "http://www.w3.org/2005/Atom",
		ITunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		Channel: rssChannel{
			Title:         h.feed.Title,
			Link:          channelLink.String(),
			Description:   h.feed.Description,
			Language:      h.feed.Language,
			LastBuildDate: lastBuild.UTC().Format(time.RFC1123Z),
			Generator:     "podread",
			AtomLink: rssAtomLink{
				Href: feedURL.String(),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			ITunesAuthor: h.feed.Author,
		},
	}

	for _, ep := range newest {
		link := *base
		link.Path = base.Path + episodePath + ep.Slug

		item := rssItem{
			Title:          ep.Title,
			Link:           link.String(),
			GUID:           rssGUID{IsPermaLink: "false", Value: ep.Slug},
			Description:    episodeDescription(ep),
			Category:       ep.Channel,
			ITunesDuration: ep.Duration,
			ITunesAuthor:   ep.Channel,
		}
		if published, ok := query.ParseDate(ep.PublishedAt); ok {
			item.PubDate = published.Format(time.RFC1123Z)
		}

		rss.Channel.Items = append(rss.Channel.Items, item)
	}

	output, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), output...), nil
}

// episodeDescription summarizes an episode without exposing its body.
func episodeDescription(ep models.Episode) string {
	parts := make([]string, 0, 3)
	if ep.Channel != "" {
		parts = append(parts, ep.Channel)
	}
	if ep.Duration != "" {
		parts = append(parts, ep.Duration)
	}
	parts = append(parts, strconv.Itoa(summary(ep).ReadingTime)+" min read")
	if ep.IsPremium {
		parts = append(parts, "premium")
	}
	return strings.Join(parts, " · ")
}

type rssFeed struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Link          string      `xml:"link"`
	Description   string      `xml:"description"`
	Language      string      `xml:"language,omitempty"`
	LastBuildDate string      `xml:"lastBuildDate"`
	Generator     string      `xml:"generator"`
	AtomLink      rssAtomLink `xml:"atom:link"`
	ITunesAuthor  string      `xml:"itunes:author,omitempty"`
	Items         []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string  `xml:"title"`
	Link           string  `xml:"link"`
	GUID           rssGUID `xml:"guid"`
	PubDate        string  `xml:"pubDate,omitempty"`
	Description    string  `xml:"description"`
	Category       string  `xml:"category,omitempty"`
	ITunesDuration string  `xml:"itunes:duration,omitempty"`
	ITunesAuthor   string  `xml:"itunes:author,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}
