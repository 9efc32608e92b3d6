package frndly

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	xlog "github.com/ftv2g/ftv2g/internal/log"
	"github.com/ftv2g/ftv2g/internal/metrics"
)

// Login establishes an authenticated session. Concurrent callers collapse to
// a single sign-in flight; every caller observes that flight's result.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Username == "" || c.creds.Password == "" {
		return &Error{
			Sentinel:  ErrConfiguration,
			Operation: "login",
			Message:   "set FTV2G_USERNAME and FTV2G_PASSWORD",
		}
	}
	_, err, _ := c.loginGroup.Do("login", func() (any, error) {
		return nil, c.login(ctx)
	})
	return err
}

// login runs the probe / token / sign-in sequence. Callers must go through
// Login so flights are serialized.
func (c *Client) login(ctx context.Context) error {
	logger := xlog.WithContext(ctx, c.logger)

	// Cheap path: an existing session that still answers the whoami probe
	// does not need a fresh sign-in. A probe failure falls through silently.
	if c.sessionID() != "" && c.probe(ctx) {
		logger.Debug().Str(xlog.FieldEvent, "login.probe_ok").Msg("existing session still valid")
		metrics.RecordLogin("probe")
		return nil
	}

	logger.Info().Str(xlog.FieldEvent, "login.start").Msg("signing in")

	token, err := c.deviceToken(ctx)
	if err != nil {
		c.clearSession()
		metrics.RecordLogin("failure")
		return err
	}

	if err := c.signIn(ctx, token); err != nil {
		c.clearSession()
		metrics.RecordLogin("failure")
		return err
	}

	c.setSession(token)
	metrics.RecordLogin("success")
	logger.Info().Str(xlog.FieldEvent, "login.ok").Msg("signed in")
	return nil
}

// probe hits the lightweight whoami endpoint with the current session.
// Purely an optimization: any failure reports false and the caller performs
// a full login.
func (c *Client) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/auth/user/info", nil)
	if err != nil {
		return false
	}
	req.Header = c.headers("")
	res, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return false
	}
	return env.Status != nil && *env.Status
}

// deviceToken performs the device-registration step and returns a fresh
// session token. The token is not yet authenticated; signIn must follow.
func (c *Client) deviceToken(ctx context.Context) (string, error) {
	params := url.Values{
		"box_id":            {c.creds.BoxID},
		"device_id":         {strconv.Itoa(c.creds.DeviceID)},
		"tenant_code":       {c.creds.TenantCode},
		"device_sub_type":   {c.creds.DeviceSubType},
		"product":           {c.creds.TenantCode},
		"display_lang_code": {c.creds.DisplayLang},
		"timezone":          {c.creds.Timezone},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v1/get/token?"+params.Encode(), nil)
	if err != nil {
		return "", &Error{Sentinel: ErrAuthentication, Operation: "get token", Err: err}
	}
	// Device registration must not reuse a stale session header.
	h := c.headers("")
	h.Del("Session-Id")
	req.Header = h

	res, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Sentinel: ErrAuthentication, Operation: "get token", Err: err}
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return "", &Error{Sentinel: ErrAuthentication, Operation: "get token", Err: err}
	}
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if env.Response == nil || json.Unmarshal(env.Response, &payload) != nil || payload.SessionID == "" {
		msg := "no session token in response"
		code := 0
		if env.Error != nil {
			msg = env.Error.Message
			code = env.Error.Code
		}
		return "", &Error{Sentinel: ErrAuthentication, Operation: "get token", Code: code, Message: msg}
	}
	return payload.SessionID, nil
}

// signIn exchanges the account credentials plus the fresh token for an
// authenticated session.
func (c *Client) signIn(ctx context.Context, token string) error {
	payload, err := json.Marshal(map[string]any{
		"login_id":     c.creds.Username,
		"login_key":    c.creds.Password,
		"login_mode":   1,
		"os_version":   c.creds.OSVersion,
		"app_version":  c.creds.AppVersion,
		"manufacturer": c.creds.Manufacturer,
	})
	if err != nil {
		return &Error{Sentinel: ErrAuthentication, Operation: "sign in", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/auth/signin", bytes.NewReader(payload))
	if err != nil {
		return &Error{Sentinel: ErrAuthentication, Operation: "sign in", Err: err}
	}
	req.Header = c.headers(token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Sentinel: ErrAuthentication, Operation: "sign in", Err: err}
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return &Error{Sentinel: ErrAuthentication, Operation: "sign in", Err: err}
	}
	if env.Status == nil || !*env.Status {
		msg := "sign-in failed"
		code := 0
		if env.Error != nil {
			msg = env.Error.Message
			code = env.Error.Code
		}
		return &Error{Sentinel: ErrAuthentication, Operation: "sign in", Code: code, Message: msg}
	}
	return nil
}

// KeepAlive refreshes the session periodically: it forces a full sign-in
// once the current one is older than forceLoginAfter and then touches the
// channel listing so the session stays warm.
func (c *Client) KeepAlive(ctx context.Context) error {
	logger := xlog.WithContext(ctx, c.logger)
	if c.clock().Sub(c.LastLogin()) > forceLoginAfter {
		logger.Info().Str(xlog.FieldEvent, "keepalive.force_login").Msg("session too old, forcing sign-in")
		c.clearSession()
		if err := c.Login(ctx); err != nil {
			return err
		}
	}
	_, err := c.Channels(ctx)
	return err
}
