// Package practicum is the HTTP client for the homework statuses endpoint.
package practicum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hwbot/internal/errkind"
	logx "hwbot/pkg/logx"
)

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTimeout  = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration
}

// Client fetches homework status changes since a unix timestamp.
type Client struct {
	endpoint string
	token    string
	timeout  time.Duration
	http     HTTPDoer
	log      logx.Logger
}

// New builds a Client. A nil doer selects a plain http.Client; the timeout is
// enforced per request through the context, not through the doer.
func New(cfg Config, doer HTTPDoer, log logx.Logger) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if doer == nil {
		doer = &http.Client{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		timeout:  timeout,
		http:     doer,
		log:      log,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Fetch issues one GET with the OAuth header and from_date query parameter and
// returns the decoded JSON body. Numbers are decoded as json.Number.
//
// Any non-200 response and any transport failure is reported as
// errkind.ErrEndpointUnavailable; an undecodable 200 body as
// errkind.ErrMalformedResponse.
func (c *Client) Fetch(ctx context.Context, from int64) (any, error) {
	reqURL, err := c.requestURL(from)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrEndpointUnavailable, "fetch", "invalid endpoint "+c.endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrEndpointUnavailable, "fetch", "build request", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("endpoint request failed",
			logx.String("endpoint", c.endpoint),
			logx.Duration("took", time.Since(start)),
			logx.Err(err),
		)
		return nil, errkind.Wrap(errkind.ErrEndpointUnavailable, "fetch", "request to "+c.endpoint+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		c.log.Error("endpoint unavailable",
			logx.String("endpoint", c.endpoint),
			logx.Int("code", resp.StatusCode),
		)
		return nil, errkind.Wrap(errkind.ErrEndpointUnavailable, "fetch",
			fmt.Sprintf("endpoint %s returned status %d", c.endpoint, resp.StatusCode), nil)
	}

	body, err := decodeBody(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errkind.Wrap(errkind.ErrEndpointUnavailable, "fetch", "read body from "+c.endpoint, err)
		}
		return nil, errkind.Wrap(errkind.ErrMalformedResponse, "fetch", "decode body from "+c.endpoint, err)
	}
	c.log.Debug("endpoint responded",
		logx.Int64("from_date", from),
		logx.Duration("took", time.Since(start)),
	)
	return body, nil
}

func (c *Client) requestURL(from int64) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeBody(r io.Reader) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON body")
	}
	return v, nil
}
