package frndly

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const daySeconds = 86400

// Guide fetches the schedule for the given channel ids, one request per
// 24-hour window starting at start (epoch seconds, 0 means "whatever the
// upstream considers current"), accumulating each channel's programs across
// windows in arrival order.
func (c *Client) Guide(ctx context.Context, channelIDs []string, start int64, days int) (map[string][]Program, error) {
	programs := make(map[string][]Program)

	for day := 0; day < days; day++ {
		params := url.Values{
			"channel_ids": {strings.Join(channelIDs, ",")},
			"page":        {"0"},
		}
		if start > 0 {
			end := start + daySeconds
			params.Set("start_time", strconv.FormatInt(start*1000, 10))
			params.Set("end_time", strconv.FormatInt(end*1000, 10))
			start = end
		}

		raw, err := c.get(ctx, "guide", c.guideBase+"/v1/static/tvguide", params)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Data []guideRow `json:"data"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, &Error{Sentinel: ErrRequest, Operation: "guide", Err: err}
		}
		for _, row := range payload.Data {
			id := row.ChannelID.String()
			for _, p := range row.Programs {
				startMS, _ := p.Display.Markers.StartTime.Value.Int64()
				endMS, _ := p.Display.Markers.EndTime.Value.Int64()
				programs[id] = append(programs[id], Program{
					Title:       p.Display.Title,
					Description: p.Display.Description,
					StartMS:     startMS,
					EndMS:       endMS,
					Path:        p.Target.Path,
				})
			}
		}
	}
	return programs, nil
}
