//go:generate mockgen -destination=mocks/https.go . Sender

package https

import (
	"context"
	"net/http"
	"time"
)

// Sender issues a request with retries and returns the final response.
type Sender interface {
	Send(ctx context.Context, opts Options) (*Response, error)
}

// Options describes one logical request. Zero values select the defaults.
type Options struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte

	// Timeout bounds a single attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	// RetryCountLimit is the total number of attempts. Defaults to DefaultRetryCountLimit.
	RetryCountLimit int
	// RetryIn is the base delay; attempt n waits RetryIn*n before the next attempt.
	RetryIn time.Duration
	// RetryOnStatus lists response codes that trigger a retry. When attempts run
	// out the last such response is returned as a success.
	RetryOnStatus []int
}

// Response is a fully read response.
type Response struct {
	StatusCode    int
	StatusMessage string
	Headers       http.Header
	Body          []byte
}

const (
	DefaultTimeout         = 30 * time.Second
	DefaultRetryCountLimit = 3
)

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = http.MethodGet
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryCountLimit <= 0 {
		o.RetryCountLimit = DefaultRetryCountLimit
	}
	if o.RetryIn < 0 {
		o.RetryIn = 0
	}
	return o
}

func (o Options) retriesOn(status int) bool {
	for _, s := range o.RetryOnStatus {
		if s == status {
			return true
		}
	}
	return false
}
