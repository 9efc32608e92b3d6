// Package playlist renders the M3U playlist consumed by IPTV clients.
package playlist

import (
	"bytes"
	"fmt"
	"io"
)

// Item is one playlist entry.
type Item struct {
	ChannelID   string
	Name        string
	LogoURL     string
	GracenoteID string // omitted from output when empty
	ChNo        int    // tvg-chno, omitted when 0
	URL         string // local play URL
}

// WriteM3U renders items in the attribute dialect Channels DVR understands:
// channel-id, tvg-logo, tvc-guide-stationid and an optional tvg-chno.
func WriteM3U(w io.Writer, items []Item) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		buf.WriteString(fmt.Sprintf(`#EXTINF:-1 channel-id="frndly-%s" tvg-logo="%s"`, it.ChannelID, it.LogoURL))
		if it.GracenoteID != "" {
			buf.WriteString(fmt.Sprintf(` tvc-guide-stationid="%s"`, it.GracenoteID))
		}
		if it.ChNo > 0 {
			buf.WriteString(fmt.Sprintf(` tvg-chno="%d"`, it.ChNo))
		}
		buf.WriteString("," + it.Name + "\n")
		buf.WriteString(it.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}
