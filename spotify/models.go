package spotify

// Artist is the projection of a Spotify artist object.
type Artist struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Track is the projection of a Spotify track object. Artists keep the order
// returned by Spotify.
type Track struct {
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	URI     string   `json:"uri"`
	Type    string   `json:"type"`
}

// ArtistNames returns the artist names in upstream order.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// User is the projection of the current user's profile. Email and Product
// are only present when the granted scopes allow them.
type User struct {
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	Country     string  `json:"country"`
	Product     *string `json:"product"`
}

// PlaybackState is the projection of /me/player. Item is nil when nothing is
// loaded or the item is not a track.
type PlaybackState struct {
	IsPlaying            bool   `json:"is_playing"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *Track `json:"item"`
}

// An absent type is read as a track.
func (s *PlaybackState) dropNonTrack() {
	if s.CurrentlyPlayingType != "" && s.CurrentlyPlayingType != "track" {
		s.Item = nil
	}
	if s.Item != nil && s.Item.Type != "" && s.Item.Type != "track" {
		s.Item = nil
	}
}

// SavedTrack is one entry of the user's library.
type SavedTrack struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// TopItem covers both artists and tracks returned by /me/top/{type}; only the
// fields common to both are kept.
type TopItem struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// ItemType selects the kind of top items.
type ItemType string

const (
	ItemTypeTracks  ItemType = "tracks"
	ItemTypeArtists ItemType = "artists"
)

// TimeRange selects the affinity window of top items.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

type paging[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type searchResponse struct {
	Tracks *paging[Track] `json:"tracks"`
}
