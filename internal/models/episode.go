package models

// Episode is a single podcast-summary article from the static dataset.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	PublishedAt string `json:"publishedAt"`
	Duration    string `json:"duration"`
	URL         string `json:"url"`
	Views       string `json:"views"`
	Content     string `json:"content"`
	IsPremium   bool   `json:"isPremium"`
	Slug        string `json:"slug"`
}

// EpisodeSummary is the list view of an episode. It never carries the body.
type EpisodeSummary struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	PublishedAt string `json:"publishedAt"`
	Duration    string `json:"duration,omitempty"`
	URL         string `json:"url,omitempty"`
	Views       string `json:"views,omitempty"`
	IsPremium   bool   `json:"isPremium"`
	ReadingTime int    `json:"readingTime"`
}

// Heading is a level-2 section marker used by the navigation panel.
type Heading struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChannelInfo aggregates the episodes published by one channel.
type ChannelInfo struct {
	Name          string `json:"name"`
	EpisodeCount  int    `json:"episodeCount"`
	LatestEpisode string `json:"latestEpisode"`
}

// SearchResult is one page of full-text search matches.
type SearchResult struct {
	Episodes []Episode `json:"episodes"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"hasMore"`
}

// Neighbor identifies an adjacent episode for previous/next navigation.
type Neighbor struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Channel string `json:"channel"`
}
