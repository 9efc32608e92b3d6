package frndly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	xlog "github.com/ftv2g/ftv2g/internal/log"
	"github.com/ftv2g/ftv2g/internal/metrics"
)

// Play resolves a channel slug or bare numeric id to a playable stream URL.
//
// A purely numeric input is treated as a channel id: the guide is consulted
// for the program covering "now" and its target path is resolved. Any other
// input resolves directly as channel/live/<slug>; when the slug carries a
// trailing numeric id (the playlist encodes "<slug>-<id>") a failed slug
// resolution falls back to the id path.
func (c *Client) Play(ctx context.Context, slug string) (StreamResult, error) {
	logger := xlog.WithContext(ctx, c.logger)

	if isDigits(slug) {
		path, err := c.livePath(ctx, slug)
		if err != nil {
			metrics.RecordPlayback("failure")
			return StreamResult{}, err
		}
		return c.resolve(ctx, path)
	}

	base, id := splitSlugID(slug)
	res, err := c.resolve(ctx, "channel/live/"+base)
	if err == nil || id == "" {
		return res, err
	}

	logger.Warn().Err(err).Str(xlog.FieldSlug, base).Str(xlog.FieldChannel, id).
		Msg("slug playback failed, falling back to channel id")
	path, perr := c.livePath(ctx, id)
	if perr != nil {
		metrics.RecordPlayback("failure")
		return StreamResult{}, perr
	}
	return c.resolve(ctx, path)
}

// livePath finds the stream path of the program covering "now" for the
// given channel id.
func (c *Client) livePath(ctx context.Context, channelID string) (string, error) {
	now := c.clock()
	programs, err := c.Guide(ctx, []string{channelID}, now.Unix(), 1)
	if err != nil {
		return "", err
	}

	nowMS := now.UnixMilli()
	for _, p := range programs[channelID] {
		if p.StartMS <= nowMS && nowMS <= p.EndMS && p.Path != "" {
			return p.Path, nil
		}
	}
	return "", &Error{
		Sentinel:  ErrNoLiveProgram,
		Operation: "play",
		Message:   fmt.Sprintf("unable to find a live program for channel %s; check that your system clock is correct", channelID),
	}
}

// resolve turns a stream path into the final signed media URL via the
// stream-page endpoint.
func (c *Client) resolve(ctx context.Context, path string) (StreamResult, error) {
	logger := xlog.WithContext(ctx, c.logger)

	params := url.Values{
		"path":        {path},
		"code":        {path},
		"include_ads": {"false"},
		"is_casted":   {"true"},
	}
	raw, err := c.get(ctx, "stream", c.apiBase+"/v1/page/stream", params)
	if err != nil {
		metrics.RecordPlayback("failure")
		return StreamResult{}, err
	}

	var page streamPage
	if jsonErr := json.Unmarshal(raw, &page); jsonErr != nil || len(page.Streams) == 0 || page.Streams[0].URL == "" {
		metrics.RecordPlayback("failure")
		return StreamResult{}, &Error{
			Sentinel:  ErrStreamResolution,
			Operation: "play",
			Message:   fmt.Sprintf("unable to find a live stream for %s", path),
		}
	}

	streamURL := page.Streams[0].URL
	streamType := page.Streams[0].StreamType

	// The player settings carry the program start in ms; the CDN honors
	// start/startTime offsets in seconds.
	if len(page.PlayerSettings) > 0 {
		if ms, err := page.PlayerSettings[0].Value.Int64(); err == nil && ms > 0 {
			s := strconv.FormatInt(ms/1000, 10)
			streamURL += "&start=" + s + "&startTime=" + s
		}
	}

	if strings.TrimSpace(strings.ToLower(streamType)) == "widevine" {
		metrics.RecordPlayback("unsupported")
		return StreamResult{}, &Error{
			Sentinel:  ErrUnsupportedStream,
			Operation: "play",
			Message:   fmt.Sprintf("unsupported stream type %s (%s)", streamType, streamURL),
		}
	}

	// Release the upstream per-stream concurrency slot. Best effort: a
	// failure never affects the resolved URL.
	if key := page.SessionInfo.StreamPollKey; key != "" {
		if err := c.postForm(ctx, c.apiBase+"/v1/stream/session/end", url.Values{"poll_key": {key}}); err != nil {
			logger.Warn().Err(err).Str(xlog.FieldPath, path).Msg("failed to send end-stream notification")
		}
	}

	logger.Info().Str(xlog.FieldPath, path).Str(xlog.FieldURL, streamURL).Msg("stream resolved")
	metrics.RecordPlayback("success")
	return StreamResult{URL: streamURL, Type: streamType}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitSlugID splits "<slug>-<id>" into its parts. The id is empty when the
// input has no trailing numeric segment.
func splitSlugID(s string) (slug, id string) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || !isDigits(s[i+1:]) {
		return s, ""
	}
	return s[:i], s[i+1:]
}
