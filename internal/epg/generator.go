package epg

import (
	"time"

	"github.com/ftv2g/ftv2g/internal/frndly"
)

const timeLayout = "20060102150405 -0700"

// ChannelID derives the XMLTV channel id for an upstream channel.
func ChannelID(id string) string {
	return "frndly-" + id
}

// Generate builds an XMLTV document from the channel listing, the guide
// programs and a logo resolver. Channels without guide data still get a
// channel element so clients can match them.
func Generate(channels []frndly.Channel, programs map[string][]frndly.Program, logoURL func(ref string) string) *TV {
	tv := &TV{Generator: "ftv2g"}

	for _, ch := range channels {
		entry := Channel{
			ID:          ChannelID(ch.ID),
			DisplayName: []string{ch.Title},
		}
		if logoURL != nil {
			if src := logoURL(ch.LogoRef); src != "" {
				entry.Icon = &Icon{Src: src}
			}
		}
		tv.Channels = append(tv.Channels, entry)

		for _, p := range programs[ch.ID] {
			tv.Programs = append(tv.Programs, Programme{
				Start:   formatMS(p.StartMS),
				Stop:    formatMS(p.EndMS),
				Channel: ChannelID(ch.ID),
				Title:   Title{Value: p.Title},
				Desc:    p.Description,
			})
		}
	}
	return tv
}

func formatMS(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timeLayout)
}
