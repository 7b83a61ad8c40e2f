package registry

import (
	"fmt"
	"strings"
)

// LinkBuilder derives publisher and viewer endpoints from configuration.
// None of the hosts, ports, or base paths are hard-coded; they come from
// the environment at startup.
type LinkBuilder struct {
	RTMPHost      string // media server ingest host
	RTMPPort      int    // media server ingest port
	PublicBaseURL string // base URL of the viewer-facing frontend
	HLSBasePath   string // path prefix under which HLS playlists are served
}

// RTMPURL returns the ingest address a broadcaster publishes to.
func (b *LinkBuilder) RTMPURL(key StreamKey) string {
	return fmt.Sprintf("rtmp://%s:%d/live/%s", b.RTMPHost, b.RTMPPort, key)
}

// ViewerURL returns the address a viewer opens to watch a room.
func (b *LinkBuilder) ViewerURL(id RoomID) string {
	return fmt.Sprintf("%s/room/%s", strings.TrimRight(b.PublicBaseURL, "/"), id)
}

// HLSURL returns the playlist path for a room's stream.
func (b *LinkBuilder) HLSURL(key StreamKey) string {
	return fmt.Sprintf("%s/%s.m3u8", strings.TrimRight(b.HLSBasePath, "/"), key)
}
