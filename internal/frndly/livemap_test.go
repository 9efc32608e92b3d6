package frndly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveMapServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLiveMapArrayForm(t *testing.T) {
	srv := liveMapServer(t, `{"123":["12345","hallmark-channel"],"124":["67890","game-show-network"]}`)
	c := New(Credentials{Username: "u", Password: "p"}, WithLiveMapURL(srv.URL))

	m := c.LiveMap(context.Background())
	require.Len(t, m, 2)
	assert.Equal(t, LiveMapEntry{GracenoteID: "12345", Slug: "hallmark-channel"}, m["123"])
}

func TestLiveMapObjectForm(t *testing.T) {
	srv := liveMapServer(t, `{"123":{"slug":"hallmark-channel","gracenote":"12345"},"124":{"slug":"gsn","gracenote_id":"67890"}}`)
	c := New(Credentials{Username: "u", Password: "p"}, WithLiveMapURL(srv.URL))

	m := c.LiveMap(context.Background())
	require.Len(t, m, 2)
	assert.Equal(t, "12345", m["123"].GracenoteID)
	assert.Equal(t, "67890", m["124"].GracenoteID)
}

func TestLiveMapFetchFailureReturnsEmpty(t *testing.T) {
	srv := liveMapServer(t, `{}`)
	srv.Close()
	c := New(Credentials{Username: "u", Password: "p"}, WithLiveMapURL(srv.URL))

	m := c.LiveMap(context.Background())
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestLiveMapParseFailureReturnsEmpty(t *testing.T) {
	srv := liveMapServer(t, `{not-json`)
	c := New(Credentials{Username: "u", Password: "p"}, WithLiveMapURL(srv.URL))

	m := c.LiveMap(context.Background())
	assert.Empty(t, m)
}

func TestLiveMapSnapshotFallback(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "livemap.json")
	srv := liveMapServer(t, `{"123":["12345","hallmark-channel"]}`)
	c := New(Credentials{Username: "u", Password: "p"},
		WithLiveMapURL(srv.URL), WithLiveMapSnapshot(snap))

	// First fetch succeeds and writes the snapshot.
	m := c.LiveMap(context.Background())
	require.Len(t, m, 1)

	// Upstream goes away; the snapshot keeps enrichment working.
	srv.Close()
	m = c.LiveMap(context.Background())
	require.Len(t, m, 1)
	assert.Equal(t, "hallmark-channel", m["123"].Slug)
}

func TestLogoURL(t *testing.T) {
	c := New(Credentials{Username: "u", Password: "p"})

	url := c.LogoURL("bucket1,hallmark.png", 400)
	assert.Equal(t, "https://d229kpbsb5jevy.cloudfront.net/frndlytv/400/400/content/bucket1/logos/hallmark.png", url)

	assert.Empty(t, c.LogoURL("no-comma", 400))
	assert.Empty(t, c.LogoURL("", 400))
}
