// Package jobs holds the background workers of the gateway: the session
// keep-alive loop and the optional artifact refresh that mirrors the
// playlist and guide endpoints to files on disk.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ftv2g/ftv2g/internal/epg"
	"github.com/ftv2g/ftv2g/internal/frndly"
	xlog "github.com/ftv2g/ftv2g/internal/log"
	"github.com/ftv2g/ftv2g/internal/playlist"
)

// Client is the slice of the frndly client the jobs need.
type Client interface {
	Channels(ctx context.Context) ([]frndly.Channel, error)
	Guide(ctx context.Context, channelIDs []string, start int64, days int) (map[string][]frndly.Program, error)
	LiveMap(ctx context.Context) frndly.LiveMap
	LogoURL(ref string, size int) string
	KeepAlive(ctx context.Context) error
}

// Status represents the outcome of the last refresh run.
type Status struct {
	LastRun  time.Time `json:"last_run"`
	Channels int       `json:"channels"`
	Error    string    `json:"error,omitempty"`
}

// Config holds the settings for refresh runs.
type Config struct {
	DataDir   string
	BaseURL   string // advertised base for play links, e.g. http://127.0.0.1:8183
	GuideDays int
	LogoSize  int
}

// Refresh fetches the lineup and guide and writes playlist.m3u and
// epg.xml under DataDir. Writes are atomic so readers never see a
// partial file.
func Refresh(ctx context.Context, cfg Config, cl Client) (*Status, error) {
	logger := xlog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Str("event", "refresh.start").Msg("starting refresh")

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is empty")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	channels, err := cl.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}
	liveMap := cl.LiveMap(ctx)

	items := make([]playlist.Item, 0, len(channels))
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
		slug := ch.ID
		gracenote := ""
		if entry, ok := liveMap[ch.ID]; ok {
			slug = entry.Slug + "-" + ch.ID
			gracenote = entry.GracenoteID
		}
		items = append(items, playlist.Item{
			ChannelID:   ch.ID,
			Name:        ch.Title,
			LogoURL:     cl.LogoURL(ch.LogoRef, cfg.LogoSize),
			GracenoteID: gracenote,
			URL:         cfg.BaseURL + "/play/" + slug,
		})
	}

	var m3u bytes.Buffer
	if err := playlist.WriteM3U(&m3u, items); err != nil {
		return nil, fmt.Errorf("render playlist: %w", err)
	}
	playlistPath := filepath.Join(cfg.DataDir, "playlist.m3u")
	if err := renameio.WriteFile(playlistPath, m3u.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write playlist: %w", err)
	}
	logger.Info().
		Str("event", "playlist.write").
		Str("path", playlistPath).
		Int("channels", len(items)).
		Msg("playlist written")

	programs, err := cl.Guide(ctx, ids, time.Now().Unix(), cfg.GuideDays)
	if err != nil {
		// The playlist is already on disk; report the guide failure
		// without discarding it.
		logger.Warn().
			Err(err).
			Str("event", "epg.failed").
			Msg("guide fetch failed")
		return &Status{LastRun: time.Now(), Channels: len(items), Error: err.Error()}, nil
	}

	tv := epg.Generate(channels, programs, func(ref string) string {
		return cl.LogoURL(ref, cfg.LogoSize)
	})
	var xml bytes.Buffer
	if err := epg.Write(&xml, tv); err != nil {
		return nil, fmt.Errorf("render xmltv: %w", err)
	}
	epgPath := filepath.Join(cfg.DataDir, "epg.xml")
	if err := renameio.WriteFile(epgPath, xml.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write xmltv: %w", err)
	}
	logger.Info().
		Str("event", "epg.write").
		Str("path", epgPath).
		Int("channels", len(items)).
		Msg("xmltv written")

	status := &Status{LastRun: time.Now(), Channels: len(items)}
	logger.Info().
		Str("event", "refresh.success").
		Int("channels", status.Channels).
		Msg("refresh completed")
	return status, nil
}
