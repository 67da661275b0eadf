// Package https implements a request primitive that retries transport failures,
// timeouts and selected response codes with a linear backoff.
package https

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
)

// Client sends requests described by Options. It is safe for concurrent use;
// every Send owns its own attempt counter and correlation id.
type Client struct {
	httpClient *http.Client
	proxy      *url.URL
	userAgent  string
	log        logger.Logger

	wait  func(ctx context.Context, d time.Duration) error
	newID func() string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout should be
// zero, per-attempt timeouts come from Options.Timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithProxy routes requests through proxy instead of the environment proxy.
func WithProxy(proxy *url.URL) ClientOption {
	return func(c *Client) { c.proxy = proxy }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client. Without WithHTTPClient it builds a transport
// that honors the https_proxy environment variables.
func NewClient(log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		proxy:     ProxyFromEnvironment(),
		userAgent: "deskshell/1.0",
		log:       logger.OrNop(log),
		wait:      sleepWithContext,
		newID:     newRequestID,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: NewTransport(TransportConfig{Proxy: c.proxy})}
	}
	return c
}

// Send performs the request, retrying per Options. Transport errors and
// timeouts are retried until RetryCountLimit attempts were made, then the last
// error is returned. Responses whose status is in RetryOnStatus are retried the
// same way but never turn into an error. Any other response is returned at once.
func (c *Client) Send(ctx context.Context, opts Options) (*Response, error) {
	opts = opts.withDefaults()
	requestID := c.newID()
	base := logger.Fields{
		"request_id": requestID,
		"method":     opts.Method,
		"url":        opts.URL,
	}

	for attempt := 1; ; attempt++ {
		c.log.Info("Sending request", base, logger.Fields{
			"proxy":   c.proxy != nil,
			"attempt": strconv.Itoa(attempt) + "/" + strconv.Itoa(opts.RetryCountLimit),
		})
		start := time.Now()
		resp, err := c.attempt(ctx, opts)
		duration := time.Since(start)
		retryIn := opts.RetryIn * time.Duration(attempt)
		canRetry := attempt < opts.RetryCountLimit

		if err != nil {
			if ctx.Err() != nil {
				return nil, pkgerrors.Wrap(ctx.Err(), "request cancelled")
			}
			fields := logger.Fields{"error": err.Error(), "duration": duration}
			if canRetry {
				fields["retry_in"] = retryIn
				c.log.Warn("Request failed, retrying", base, fields)
			} else {
				c.log.Warn("Request failed, no retry", base, fields)
				return nil, err
			}
			if werr := c.wait(ctx, retryIn); werr != nil {
				return nil, pkgerrors.Wrap(werr, "request cancelled")
			}
			continue
		}

		if opts.retriesOn(resp.StatusCode) && canRetry {
			c.log.Info("Got status code which requires retry", base, logger.Fields{
				"status":   resp.StatusCode,
				"duration": duration,
				"retry_in": retryIn,
			})
			if werr := c.wait(ctx, retryIn); werr != nil {
				return nil, pkgerrors.Wrap(werr, "request cancelled")
			}
			continue
		}

		c.log.Info("Got response", base, logger.Fields{
			"status":   resp.StatusCode,
			"message":  resp.StatusMessage,
			"duration": duration,
		})
		return resp, nil
	}
}

func (c *Client) attempt(ctx context.Context, opts Options) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, pkgerrors.Mark(pkgerrors.ErrTransport, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(attemptCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(attemptCtx, err)
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		StatusMessage: statusMessage(resp),
		Headers:       resp.Header,
		Body:          data,
	}, nil
}

func classify(attemptCtx context.Context, err error) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Mark(pkgerrors.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pkgerrors.Mark(pkgerrors.ErrTimeout, err)
	}
	return pkgerrors.Mark(pkgerrors.ErrTransport, err)
}

func statusMessage(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}

func newRequestID() string {
	return uuid.New().String()[:8]
}

// sleepWithContext sleeps for the given duration, returning early if the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
