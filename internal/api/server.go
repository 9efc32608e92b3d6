// Package api provides the local HTTP surface of the gateway: playlist,
// guide, playback redirects and operational endpoints.
package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ftv2g/ftv2g/internal/cache"
	"github.com/ftv2g/ftv2g/internal/config"
	"github.com/ftv2g/ftv2g/internal/frndly"
	xlog "github.com/ftv2g/ftv2g/internal/log"
)

// ServiceClient is the slice of the frndly client the handlers need.
type ServiceClient interface {
	Channels(ctx context.Context) ([]frndly.Channel, error)
	Guide(ctx context.Context, channelIDs []string, start int64, days int) (map[string][]frndly.Program, error)
	Play(ctx context.Context, slug string) (frndly.StreamResult, error)
	LiveMap(ctx context.Context) frndly.LiveMap
	LogoURL(ref string, size int) string
	HasSession() bool
	LastLogin() time.Time
}

// Server wires the service client to the HTTP routes.
type Server struct {
	cfg    config.Config
	client ServiceClient
	cache  cache.Cache
	logger zerolog.Logger
	clock  func() time.Time
}

// NewServer builds the gateway server. cache may be nil to disable output
// caching.
func NewServer(cfg config.Config, client ServiceClient, c cache.Cache) *Server {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Server{
		cfg:    cfg,
		client: client,
		cache:  c,
		logger: xlog.WithComponent("api"),
		clock:  time.Now,
	}
}

// Router assembles the chi router with the canonical middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Metrics())
	r.Use(RequestLogger(s.logger))
	if s.cfg.RateLimitRPM > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitRPM, time.Minute))
	}

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/playlist.m3u", s.handlePlaylist)
	r.Get("/epg.xml", s.handleEPG)
	r.Get("/play/{slug}", s.handlePlay)
	r.Method("GET", "/metrics", promhttp.Handler())
	return r
}
