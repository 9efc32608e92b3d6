// Package frndly implements the client for the Frndly TV (revlet) API:
// session lifecycle, authenticated requests with a single re-login retry,
// channel listing, guide lookup and stream resolution.
package frndly

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	xlog "github.com/ftv2g/ftv2g/internal/log"
)

const (
	defaultAPIBase    = "https://frndlytv-api.revlet.net/service/api"
	defaultGuideBase  = "https://frndlytv-tvguideapi.revlet.net/service/api"
	defaultLiveMapURL = "https://i.mjh.nz/frndly_tv/app.json"
	defaultLogoBase   = "https://d229kpbsb5jevy.cloudfront.net"

	defaultUserAgent = "okhttp/3.12.5"
	defaultTimeout   = 15 * time.Second

	// forceLoginAfter bounds how long KeepAlive trusts a session before
	// forcing a fresh sign-in.
	forceLoginAfter = 5 * time.Hour
)

// Client talks to the upstream service. It is safe for concurrent use: the
// session token is guarded by a RWMutex and logins are collapsed through a
// singleflight group.
type Client struct {
	creds  Credentials
	http   *http.Client
	logger zerolog.Logger

	apiBase      string
	guideBase    string
	liveMapURL   string
	logoBase     string
	snapshotPath string // optional on-disk live-map snapshot

	clock func() time.Time

	mu        sync.RWMutex
	session   string
	lastLogin time.Time

	loginGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout for upstream calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithAPIBase overrides the API base URL. Used by tests.
func WithAPIBase(u string) Option {
	return func(c *Client) { c.apiBase = u }
}

// WithGuideBase overrides the guide API base URL. Used by tests.
func WithGuideBase(u string) Option {
	return func(c *Client) { c.guideBase = u }
}

// WithLiveMapURL overrides the live map document URL.
func WithLiveMapURL(u string) Option {
	return func(c *Client) { c.liveMapURL = u }
}

// WithLogoBase overrides the logo CDN base URL.
func WithLogoBase(u string) Option {
	return func(c *Client) { c.logoBase = u }
}

// WithLiveMapSnapshot enables a best-effort on-disk snapshot of the last
// good live map at the given path.
func WithLiveMapSnapshot(path string) Option {
	return func(c *Client) { c.snapshotPath = path }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.clock = now }
}

// New returns a client for the given account. Device descriptors missing
// from creds are filled with the stock Android TV identity the upstream
// expects.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds.withDefaults(),
		http:       &http.Client{Timeout: defaultTimeout},
		logger:     xlog.WithComponent("frndly"),
		apiBase:    defaultAPIBase,
		guideBase:  defaultGuideBase,
		liveMapURL: defaultLiveMapURL,
		logoBase:   defaultLogoBase,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sessionID returns a consistent snapshot of the current session token.
func (c *Client) sessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(token string) {
	c.mu.Lock()
	c.session = token
	c.lastLogin = c.clock()
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.session = ""
	c.mu.Unlock()
}

// LastLogin reports when the current session was established. Zero when no
// login has succeeded yet.
func (c *Client) LastLogin() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLogin
}

// HasSession reports whether a session token is currently held.
func (c *Client) HasSession() bool {
	return c.sessionID() != ""
}

// headers builds the header set for an upstream call. session overrides the
// held token when non-empty; the token step of a login passes its fresh
// token here before it is committed.
func (c *Client) headers(session string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", defaultUserAgent)
	h.Set("Box-Id", c.creds.BoxID)
	h.Set("Tenant-Code", c.creds.TenantCode)
	if c.creds.ForwardedIP != "" {
		h.Set("X-Forwarded-For", c.creds.ForwardedIP)
	}
	if session == "" {
		session = c.sessionID()
	}
	if session != "" {
		h.Set("Session-Id", session)
	}
	return h
}
