package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ftv2g/ftv2g/internal/epg"
	"github.com/ftv2g/ftv2g/internal/frndly"
	xlog "github.com/ftv2g/ftv2g/internal/log"
	"github.com/ftv2g/ftv2g/internal/playlist"
)

// statusFor maps client failure kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, frndly.ErrConfiguration), errors.Is(err, frndly.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, frndly.ErrNoLiveProgram), errors.Is(err, frndly.ErrUnsupportedStream):
		return http.StatusNotFound
	case errors.Is(err, frndly.ErrNoChannels), errors.Is(err, frndly.ErrRequest), errors.Is(err, frndly.ErrStreamResolution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) error(w http.ResponseWriter, r *http.Request, err error) {
	logger := xlog.WithContext(r.Context(), s.logger)
	logger.Error().Err(err).
		Str(xlog.FieldPath, r.URL.Path).Msg("request failed")
	http.Error(w, "Error: "+err.Error(), statusFor(err))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	session := "no session"
	if s.client.HasSession() {
		session = "session held since " + s.client.LastLogin().Format("2006-01-02 15:04:05 MST")
	}
	fmt.Fprintf(w, "ftv2g\n\nPlaylist URL: http://%s/playlist.m3u\nEPG URL: http://%s/epg.xml\nUpstream: %s\n",
		r.Host, r.Host, session)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := "playlist|" + r.Host + "|" + r.URL.RawQuery

	if body, ok := s.cache.Get(ctx, key); ok {
		w.Header().Set("Content-Type", "audio/x-mpegurl")
		_, _ = w.Write(body)
		return
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		s.error(w, r, err)
		return
	}
	liveMap := s.client.LiveMap(ctx)

	q := r.URL.Query()
	include := splitFilter(q.Get("include"))
	exclude := splitFilter(q.Get("exclude"))
	chno := 0
	if v := q.Get("start_chno"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			chno = n
		}
	}

	items := make([]playlist.Item, 0, len(channels))
	for _, ch := range channels {
		if (len(include) > 0 && !include[ch.ID]) || exclude[ch.ID] {
			continue
		}
		// A channel missing from the live map still plays: the raw id
		// doubles as the slug and the guide attribute is omitted.
		slug := ch.ID
		gracenote := ""
		if entry, ok := liveMap[ch.ID]; ok {
			slug = entry.Slug + "-" + ch.ID
			gracenote = entry.GracenoteID
		}
		item := playlist.Item{
			ChannelID:   ch.ID,
			Name:        ch.Title,
			LogoURL:     s.client.LogoURL(ch.LogoRef, s.cfg.LogoSize),
			GracenoteID: gracenote,
			URL:         fmt.Sprintf("http://%s/play/%s", r.Host, slug),
		}
		if chno > 0 {
			item.ChNo = chno
			chno++
		}
		items = append(items, item)
	}

	var buf bytes.Buffer
	if err := playlist.WriteM3U(&buf, items); err != nil {
		s.error(w, r, err)
		return
	}
	s.cache.Set(ctx, key, buf.Bytes(), s.cfg.CacheTTL)

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const key = "epg"

	if body, ok := s.cache.Get(ctx, key); ok {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = w.Write(body)
		return
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		s.error(w, r, err)
		return
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	programs, err := s.client.Guide(ctx, ids, s.clock().Unix(), s.cfg.GuideDays)
	if err != nil {
		s.error(w, r, err)
		return
	}

	tv := epg.Generate(channels, programs, func(ref string) string {
		return s.client.LogoURL(ref, s.cfg.LogoSize)
	})

	var buf bytes.Buffer
	if err := epg.Write(&buf, tv); err != nil {
		s.error(w, r, err)
		return
	}
	s.cache.Set(ctx, key, buf.Bytes(), s.cfg.CacheTTL)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	res, err := s.client.Play(r.Context(), slug)
	if err != nil {
		s.error(w, r, err)
		return
	}
	http.Redirect(w, r, res.URL, http.StatusFound)
}

func splitFilter(s string) map[string]bool {
	out := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = true
		}
	}
	return out
}
