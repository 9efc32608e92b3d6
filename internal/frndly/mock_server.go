package frndly

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a configurable stand-in for the upstream service, used by
// tests in this package and in the api package.
type MockServer struct {
	*httptest.Server

	mu sync.Mutex

	// Call counters.
	TokenCalls   int
	SigninCalls  int
	ProbeCalls   int
	ChannelCalls int
	GuideCalls   int
	StreamCalls  int
	EndCalls     int

	probeOK    bool
	signinFail string // non-empty makes sign-in fail with this message

	// failLeft data requests return an error envelope before recovering.
	failLeft int
	failCode int
	failMsg  string

	channels []ChannelFixture
	programs map[string][]ProgramFixture

	streamURL     string
	streamType    string
	pollKey       string
	playerStartMS int64

	tokenDelay time.Duration

	issued  int
	session string // token the data endpoints accept
}

// ChannelFixture is one channel row served by the mock.
type ChannelFixture struct {
	ID     int
	Title  string
	Logo   string // "bucket,path"
	Banner bool
}

// ProgramFixture is one guide entry served by the mock.
type ProgramFixture struct {
	Title   string
	StartMS int64
	EndMS   int64
	Path    string
}

// NewMockServer starts a mock upstream with sensible default data.
func NewMockServer() *MockServer {
	m := &MockServer{
		programs:   make(map[string][]ProgramFixture),
		streamURL:  "https://cdn.example.com/live/master.m3u8?token=abc",
		streamType: "hls",
		pollKey:    "poll-key-1",
	}
	m.channels = []ChannelFixture{
		{ID: 123, Title: "Hallmark Channel", Logo: "bucket1,hallmark.png"},
		{ID: 124, Title: "Game Show Network", Logo: "bucket1,gsn.png"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/get/token", m.handleToken)
	mux.HandleFunc("/auth/signin", m.handleSignin)
	mux.HandleFunc("/auth/user/info", m.handleProbe)
	mux.HandleFunc("/v1/tvguide/channels", m.handleChannels)
	mux.HandleFunc("/v1/static/tvguide", m.handleGuide)
	mux.HandleFunc("/v1/page/stream", m.handleStream)
	mux.HandleFunc("/v1/stream/session/end", m.handleEnd)

	m.Server = httptest.NewServer(mux)
	return m
}

// SetChannels replaces the channel fixtures.
func (m *MockServer) SetChannels(rows ...ChannelFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = rows
}

// SetPrograms replaces the guide fixtures for one channel.
func (m *MockServer) SetPrograms(channelID string, rows ...ProgramFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[channelID] = rows
}

// SetStream configures the resolved stream.
func (m *MockServer) SetStream(url, streamType, pollKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamURL, m.streamType, m.pollKey = url, streamType, pollKey
}

// SetPlayerStartMS configures the playerSettings start value.
func (m *MockServer) SetPlayerStartMS(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerStartMS = ms
}

// SetProbeOK controls the whoami probe result.
func (m *MockServer) SetProbeOK(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeOK = ok
}

// FailSignin makes subsequent sign-ins fail with the given upstream message.
func (m *MockServer) FailSignin(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signinFail = msg
}

// FailNext makes the next n data requests answer with an error envelope.
func (m *MockServer) FailNext(n, code int, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLeft, m.failCode, m.failMsg = n, code, msg
}

func (m *MockServer) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// consumeFailure reports whether this data request should fail and writes
// the error envelope if so. Caller must hold m.mu.
func (m *MockServer) consumeFailure(w http.ResponseWriter) bool {
	if m.failLeft <= 0 {
		return false
	}
	m.failLeft--
	m.write(w, map[string]any{
		"error": map[string]any{"code": m.failCode, "message": m.failMsg},
	})
	return true
}

// SetTokenDelay slows the token endpoint down. Used to force login flights
// to overlap in concurrency tests.
func (m *MockServer) SetTokenDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenDelay = d
}

func (m *MockServer) handleToken(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	delay := m.tokenDelay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenCalls++
	m.issued++
	m.session = fmt.Sprintf("sess-%d", m.issued)
	m.write(w, map[string]any{"response": map[string]any{"sessionId": m.session}})
}

func (m *MockServer) handleSignin(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SigninCalls++
	if m.signinFail != "" {
		m.write(w, map[string]any{
			"status": false,
			"error":  map[string]any{"code": 401, "message": m.signinFail},
		})
		return
	}
	m.write(w, map[string]any{"status": true})
}

func (m *MockServer) handleProbe(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeCalls++
	m.write(w, map[string]any{"status": m.probeOK})
}

func (m *MockServer) handleChannels(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChannelCalls++
	if m.consumeFailure(w) {
		return
	}
	rows := make([]map[string]any, 0, len(m.channels))
	for _, ch := range m.channels {
		row := map[string]any{
			"id": ch.ID,
			"display": map[string]any{
				"title":    ch.Title,
				"imageUrl": ch.Logo,
			},
		}
		if ch.Banner {
			row["metadata"] = map[string]any{"isChannelBanner": true}
		}
		rows = append(rows, row)
	}
	m.write(w, map[string]any{"response": map[string]any{"data": rows}})
}

func (m *MockServer) handleGuide(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GuideCalls++
	if m.consumeFailure(w) {
		return
	}
	var data []map[string]any
	for _, id := range splitCommaList(r.URL.Query().Get("channel_ids")) {
		progs := make([]map[string]any, 0, len(m.programs[id]))
		for _, p := range m.programs[id] {
			progs = append(progs, map[string]any{
				"display": map[string]any{
					"title": p.Title,
					"markers": map[string]any{
						"startTime": map[string]any{"value": p.StartMS},
						"endTime":   map[string]any{"value": p.EndMS},
					},
				},
				"target": map[string]any{"path": p.Path},
			})
		}
		data = append(data, map[string]any{"channelId": id, "programs": progs})
	}
	m.write(w, map[string]any{"response": map[string]any{"data": data}})
}

func (m *MockServer) handleStream(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamCalls++
	if m.consumeFailure(w) {
		return
	}
	resp := map[string]any{
		"streams": []map[string]any{
			{"url": m.streamURL, "streamType": m.streamType},
		},
		"sessionInfo": map[string]any{"streamPollKey": m.pollKey},
	}
	if m.playerStartMS > 0 {
		resp["playerSettings"] = []map[string]any{{"value": m.playerStartMS}}
	}
	m.write(w, map[string]any{"response": resp})
}

func (m *MockServer) handleEnd(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndCalls++
	m.write(w, map[string]any{"status": true})
}

func splitCommaList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
