package frndly

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/google/renameio/v2"

	xlog "github.com/ftv2g/ftv2g/internal/log"
)

// LiveMap fetches the third-party channel enrichment document. It is best
// effort by contract: any fetch or parse failure yields an empty map, never
// an error. When a snapshot path is configured, the last good map is kept on
// disk and used as fallback.
func (c *Client) LiveMap(ctx context.Context) LiveMap {
	logger := xlog.WithContext(ctx, c.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.liveMapURL, nil)
	if err != nil {
		return c.liveMapFallback()
	}
	res, err := c.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str(xlog.FieldURL, c.liveMapURL).Msg("live map fetch failed")
		return c.liveMapFallback()
	}
	defer res.Body.Close()

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		logger.Warn().Err(err).Str(xlog.FieldURL, c.liveMapURL).Msg("live map parse failed")
		return c.liveMapFallback()
	}

	m := parseLiveMap(doc)
	c.writeLiveMapSnapshot(m)
	return m
}

// parseLiveMap accepts both document shapes: the array form
// ["<gracenote>", "<slug>"] and the object form {"slug": ..., "gracenote": ...}.
// Unparseable entries are skipped.
func parseLiveMap(doc map[string]json.RawMessage) LiveMap {
	m := make(LiveMap, len(doc))
	for id, raw := range doc {
		var arr []string
		if err := json.Unmarshal(raw, &arr); err == nil && len(arr) >= 2 {
			m[id] = LiveMapEntry{GracenoteID: arr[0], Slug: arr[1]}
			continue
		}
		var obj struct {
			Slug        string `json:"slug"`
			Gracenote   string `json:"gracenote"`
			GracenoteID string `json:"gracenote_id"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Slug != "" {
			gn := obj.Gracenote
			if gn == "" {
				gn = obj.GracenoteID
			}
			m[id] = LiveMapEntry{GracenoteID: gn, Slug: obj.Slug}
		}
	}
	return m
}

// writeLiveMapSnapshot persists the last good map atomically. Best effort;
// failures are logged at debug and ignored.
func (c *Client) writeLiveMapSnapshot(m LiveMap) {
	if c.snapshotPath == "" || len(m) == 0 {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := renameio.WriteFile(c.snapshotPath, data, 0o644); err != nil {
		c.logger.Debug().Err(err).Str(xlog.FieldPath, c.snapshotPath).Msg("live map snapshot write failed")
	}
}

// liveMapFallback loads the on-disk snapshot when the fetch failed. Returns
// an empty map when no snapshot is available.
func (c *Client) liveMapFallback() LiveMap {
	if c.snapshotPath == "" {
		return LiveMap{}
	}
	data, err := os.ReadFile(c.snapshotPath)
	if err != nil {
		return LiveMap{}
	}
	var m LiveMap
	if err := json.Unmarshal(data, &m); err != nil {
		return LiveMap{}
	}
	c.logger.Debug().Str(xlog.FieldPath, c.snapshotPath).Int("entries", len(m)).Msg("using live map snapshot")
	return m
}
