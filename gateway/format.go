package gateway

import (
	"strings"

	"github.com/jrsteele09/go-spotify-mcp/spotify"
)

const entrySeparator = ", "

// describeTrack renders "<name> by <artist>, <artist>" keeping artist order.
func describeTrack(t spotify.Track) string {
	return t.Name + " by " + strings.Join(t.ArtistNames(), entrySeparator)
}

// joinEntries joins list entries in upstream order.
func joinEntries(entries []string) string {
	return strings.Join(entries, entrySeparator)
}
