package frndly

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xlog "github.com/ftv2g/ftv2g/internal/log"
	"github.com/ftv2g/ftv2g/internal/metrics"
)

// Upstream error codes excluded from the re-login-and-retry cycle.
const (
	codePaymentRequired = 402
	codeNotFound        = 404
)

// get is the single chokepoint for authenticated upstream calls. Success is
// defined only by the presence of a response field in the decoded body;
// network failures and application errors share one path. When retry is
// true, a failure outside the excluded codes triggers exactly one re-login
// and one further attempt.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, params url.Values) (json.RawMessage, error) {
	return c.getRetry(ctx, endpoint, rawURL, params, true)
}

func (c *Client) getRetry(ctx context.Context, endpoint, rawURL string, params url.Values, retry bool) (json.RawMessage, error) {
	logger := xlog.WithContext(ctx, c.logger)

	if c.sessionID() == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	attempts := 1
	if retry {
		attempts = 2
	}

	var lastCode int
	var lastMsg string

	// Explicit bounded loop: at most one re-login-and-retry cycle.
	for attempt := 1; attempt <= attempts; attempt++ {
		env, err := c.doGet(ctx, endpoint, rawURL, params)
		if err == nil && env.Response != nil {
			return env.Response, nil
		}

		lastCode, lastMsg = 0, ""
		if err != nil {
			lastMsg = err.Error()
		} else if env.Error != nil {
			lastCode = env.Error.Code
			lastMsg = env.Error.Message
		}
		logger.Warn().
			Str(xlog.FieldEndpoint, endpoint).
			Int(xlog.FieldCode, lastCode).
			Int(xlog.FieldAttempt, attempt).
			Str("detail", lastMsg).
			Msg("upstream call failed")

		if attempt == attempts || lastCode == codePaymentRequired || lastCode == codeNotFound {
			break
		}
		metrics.RecordRetry()
		if err := c.Login(ctx); err != nil {
			logger.Warn().Err(err).Str(xlog.FieldEndpoint, endpoint).Msg("re-login failed, giving up")
			break
		}
	}

	if lastMsg == "" {
		lastMsg = "no response from " + rawURL
	}
	return nil, &Error{
		Sentinel:  ErrRequest,
		Operation: endpoint,
		Code:      lastCode,
		Message:   lastMsg,
	}
}

// doGet issues one GET with the current session attached and decodes the
// response envelope. Transport errors, bad status handling and malformed
// bodies all surface as errors and are folded into the retry path by the
// caller.
func (c *Client) doGet(ctx context.Context, endpoint, rawURL string, params url.Values) (*envelope, error) {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.headers("")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream(endpoint, "error", time.Since(start).Seconds())
		return nil, err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		metrics.RecordUpstream(endpoint, "error", time.Since(start).Seconds())
		return nil, err
	}
	outcome := "success"
	if env.Response == nil {
		outcome = "failure"
	}
	metrics.RecordUpstream(endpoint, outcome, time.Since(start).Seconds())
	return &env, nil
}

// postForm sends a form-encoded POST with the current session attached and
// discards the response body. Used for fire-and-forget notifications.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header = c.headers("")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	return nil
}
