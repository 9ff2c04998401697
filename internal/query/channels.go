package query

import (
	"sort"

	"podread/internal/models"
)

// Channels folds the collection into per-channel counts, most populated
// first. Ties keep the order in which channels first appear.
//
// LatestEpisode is the lexical maximum of PublishedAt, which only matches
// the chronological latest when every date shares a sortable format.
func Channels(episodes []models.Episode) []models.ChannelInfo {
	index := make(map[string]int)
	channels := make([]models.ChannelInfo, 0)

	for _, ep := range episodes {
		i, ok := index[ep.Channel]
		if !ok {
			index[ep.Channel] = len(channels)
			channels = append(channels, models.ChannelInfo{
				Name:          ep.Channel,
				EpisodeCount:  1,
				LatestEpisode: ep.PublishedAt,
			})
			continue
		}
		channels[i].EpisodeCount++
		if ep.PublishedAt > channels[i].LatestEpisode {
			channels[i].LatestEpisode = ep.PublishedAt
		}
	}

	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].EpisodeCount > channels[j].EpisodeCount
	})
	return channels
}
