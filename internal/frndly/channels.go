package frndly

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/ftv2g/ftv2g/internal/metrics"
)

const noChannelsGuidance = "no channels returned; this is most likely due to your IP address location. " +
	"Set FTV2G_IP to an address from a supported location (e.g. FTV2G_IP=72.229.28.185 for Manhattan, New York). " +
	"This may not work with all channels."

// Channels fetches the channel listing. An empty upstream list reliably
// indicates a geographic access restriction, so it is an error, never an
// empty result. Banner placeholder rows are filtered out.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	raw, err := c.get(ctx, "channels", c.apiBase+"/v1/tvguide/channels", url.Values{"skip_tabs": {"0"}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []channelRow `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &Error{Sentinel: ErrRequest, Operation: "channels", Err: err}
	}
	if len(payload.Data) == 0 {
		return nil, &Error{Sentinel: ErrNoChannels, Operation: "channels", Message: noChannelsGuidance}
	}

	out := make([]Channel, 0, len(payload.Data))
	for _, row := range payload.Data {
		if truthy(row.Metadata.IsChannelBanner) {
			continue
		}
		out = append(out, Channel{
			ID:      row.ID.String(),
			Title:   row.Display.Title,
			LogoRef: row.Display.ImageURL,
		})
	}
	metrics.RecordChannels(len(out))
	return out, nil
}
