package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftv2g/ftv2g/internal/cache"
	"github.com/ftv2g/ftv2g/internal/config"
	"github.com/ftv2g/ftv2g/internal/frndly"
)

type stubClient struct {
	channels     []frndly.Channel
	channelsErr  error
	channelCalls int

	guide    map[string][]frndly.Program
	guideErr error

	playResult frndly.StreamResult
	playErr    error
	playSlugs  []string

	liveMap frndly.LiveMap
}

func (s *stubClient) Channels(context.Context) ([]frndly.Channel, error) {
	s.channelCalls++
	return s.channels, s.channelsErr
}

func (s *stubClient) Guide(context.Context, []string, int64, int) (map[string][]frndly.Program, error) {
	return s.guide, s.guideErr
}

func (s *stubClient) Play(_ context.Context, slug string) (frndly.StreamResult, error) {
	s.playSlugs = append(s.playSlugs, slug)
	return s.playResult, s.playErr
}

func (s *stubClient) LiveMap(context.Context) frndly.LiveMap {
	if s.liveMap == nil {
		return frndly.LiveMap{}
	}
	return s.liveMap
}

func (s *stubClient) LogoURL(ref string, size int) string {
	if ref == "" {
		return ""
	}
	return "https://cdn.example.com/" + ref
}

func (s *stubClient) HasSession() bool     { return true }
func (s *stubClient) LastLogin() time.Time { return time.Unix(1_700_000_000, 0) }

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Username = "u"
	cfg.Password = "p"
	cfg.RateLimitRPM = 0 // not under test here
	return cfg
}

func newTestServer(stub *stubClient) *Server {
	return NewServer(testConfig(), stub, cache.NewMemory())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestPlaylistRendersChannels(t *testing.T) {
	stub := &stubClient{
		channels: []frndly.Channel{
			{ID: "123", Title: "Hallmark Channel", LogoRef: "b,h.png"},
			{ID: "999", Title: "Unmapped Channel", LogoRef: "b,u.png"},
		},
		liveMap: frndly.LiveMap{
			"123": {Slug: "hallmark-channel", GracenoteID: "12345"},
		},
	}
	rec := get(t, newTestServer(stub), "/playlist.m3u")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "#EXTM3U")
	assert.Contains(t, body, `channel-id="frndly-123"`)
	assert.Contains(t, body, `tvc-guide-stationid="12345"`)
	assert.Contains(t, body, "/play/hallmark-channel-123")

	// A channel absent from the live map still appears, addressed by its
	// raw id and without a stationid attribute.
	assert.Contains(t, body, `channel-id="frndly-999"`)
	assert.Contains(t, body, "/play/999")
	assert.NotContains(t, body, `channel-id="frndly-999" tvg-logo="https://cdn.example.com/b,u.png" tvc-guide-stationid`)
}

func TestPlaylistFilters(t *testing.T) {
	stub := &stubClient{
		channels: []frndly.Channel{
			{ID: "1", Title: "One"},
			{ID: "2", Title: "Two"},
			{ID: "3", Title: "Three"},
		},
	}
	rec := get(t, newTestServer(stub), "/playlist.m3u?include=1,3&start_chno=10")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `channel-id="frndly-1"`)
	assert.NotContains(t, body, `channel-id="frndly-2"`)
	assert.Contains(t, body, `tvg-chno="10"`)
	assert.Contains(t, body, `tvg-chno="11"`)

	rec = get(t, newTestServer(stub), "/playlist.m3u?exclude=2")
	body = rec.Body.String()
	assert.Contains(t, body, `channel-id="frndly-3"`)
	assert.NotContains(t, body, `channel-id="frndly-2"`)
}

func TestPlaylistUpstreamFailure(t *testing.T) {
	stub := &stubClient{
		channelsErr: &frndly.Error{Sentinel: frndly.ErrNoChannels, Operation: "channels", Message: "geo restriction"},
	}
	rec := get(t, newTestServer(stub), "/playlist.m3u")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "geo restriction")
}

func TestPlaylistServedFromCache(t *testing.T) {
	stub := &stubClient{channels: []frndly.Channel{{ID: "1", Title: "One"}}}
	s := newTestServer(stub)

	first := get(t, s, "/playlist.m3u")
	second := get(t, s, "/playlist.m3u")

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, stub.channelCalls, "second request must come from the cache")
}

func TestEPGRendersGuide(t *testing.T) {
	stub := &stubClient{
		channels: []frndly.Channel{{ID: "123", Title: "Hallmark Channel", LogoRef: "b,h.png"}},
		guide: map[string][]frndly.Program{
			"123": {{Title: "Morning Show", StartMS: 1_700_000_000_000, EndMS: 1_700_003_600_000}},
		},
	}
	rec := get(t, newTestServer(stub), "/epg.xml")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<channel id="frndly-123">`)
	assert.Contains(t, body, "Morning Show")
	assert.Contains(t, body, `start="20231114221320 +0000"`)
}

func TestPlayRedirects(t *testing.T) {
	stub := &stubClient{
		playResult: frndly.StreamResult{URL: "https://cdn.example.com/live.m3u8", Type: "hls"},
	}
	rec := get(t, newTestServer(stub), "/play/hallmark-channel-123")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://cdn.example.com/live.m3u8", rec.Header().Get("Location"))
	assert.Equal(t, []string{"hallmark-channel-123"}, stub.playSlugs)
}

func TestPlayErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&frndly.Error{Sentinel: frndly.ErrNoLiveProgram, Message: "nothing live"}, http.StatusNotFound},
		{&frndly.Error{Sentinel: frndly.ErrUnsupportedStream, Message: "widevine"}, http.StatusNotFound},
		{&frndly.Error{Sentinel: frndly.ErrAuthentication, Message: "rejected"}, http.StatusUnauthorized},
		{&frndly.Error{Sentinel: frndly.ErrRequest, Message: "no response"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		stub := &stubClient{playErr: tc.err}
		rec := get(t, newTestServer(stub), "/play/123")
		assert.Equal(t, tc.code, rec.Code, "error: %v", tc.err)
	}
}

func TestStatusPage(t *testing.T) {
	stub := &stubClient{}
	rec := get(t, newTestServer(stub), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/playlist.m3u")
	assert.Contains(t, rec.Body.String(), "session held")
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(&stubClient{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	rec := get(t, newTestServer(&stubClient{}), "/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
