package frndly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuideDecodesPrograms(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	ms.SetPrograms("123",
		ProgramFixture{Title: "Morning Show", StartMS: 1000, EndMS: 2000, Path: "channel/live/morning"},
		ProgramFixture{Title: "Evening Show", StartMS: 2000, EndMS: 3000, Path: "channel/live/evening"},
	)
	c := newTestClient(t, ms)

	programs, err := c.Guide(context.Background(), []string{"123"}, 0, 1)
	require.NoError(t, err)

	want := map[string][]Program{
		"123": {
			{Title: "Morning Show", StartMS: 1000, EndMS: 2000, Path: "channel/live/morning"},
			{Title: "Evening Show", StartMS: 2000, EndMS: 3000, Path: "channel/live/evening"},
		},
	}
	if diff := cmp.Diff(want, programs); diff != "" {
		t.Errorf("guide mismatch (-want +got):\n%s", diff)
	}
}

func TestGuideWindowsAccumulate(t *testing.T) {
	// A raw fake here instead of MockServer: the test needs to see the
	// per-window start/end parameters.
	var mu sync.Mutex
	var windows [][2]int64

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/get/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"sessionId":"s"}}`))
	})
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":true}`))
	})
	mux.HandleFunc("/auth/user/info", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":false}`))
	})
	mux.HandleFunc("/v1/static/tvguide", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.ParseInt(r.URL.Query().Get("start_time"), 10, 64)
		end, _ := strconv.ParseInt(r.URL.Query().Get("end_time"), 10, 64)
		mu.Lock()
		windows = append(windows, [2]int64{start, end})
		n := len(windows)
		mu.Unlock()
		body := `{"response":{"data":[{"channelId":123,"programs":[` +
			`{"display":{"title":"P` + strconv.Itoa(n) + `","markers":{"startTime":{"value":1},"endTime":{"value":2}}},"target":{"path":"p` + strconv.Itoa(n) + `"}}]}]}}`
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Credentials{Username: "u", Password: "p"}, WithAPIBase(srv.URL), WithGuideBase(srv.URL))

	const start = int64(1_700_000_000)
	programs, err := c.Guide(context.Background(), []string{"123"}, start, 3)
	require.NoError(t, err)

	require.Len(t, windows, 3)
	assert.Equal(t, [2]int64{start * 1000, (start + daySeconds) * 1000}, windows[0])
	assert.Equal(t, [2]int64{(start + daySeconds) * 1000, (start + 2*daySeconds) * 1000}, windows[1])
	assert.Equal(t, [2]int64{(start + 2*daySeconds) * 1000, (start + 3*daySeconds) * 1000}, windows[2])

	// Programs accumulate across windows in arrival order.
	require.Len(t, programs["123"], 3)
	assert.Equal(t, "P1", programs["123"][0].Title)
	assert.Equal(t, "P3", programs["123"][2].Title)
}
