package https

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"
)

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// ProxyFromEnvironment reads https_proxy, then HTTPS_PROXY. A value without a
// scheme is treated as an https proxy. Returns nil when unset or unparseable.
func ProxyFromEnvironment() *url.URL {
	raw := os.Getenv("https_proxy")
	if raw == "" {
		raw = os.Getenv("HTTPS_PROXY")
	}
	if raw == "" {
		return nil
	}
	if !schemeRe.MatchString(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// TransportConfig configures NewTransport.
type TransportConfig struct {
	Proxy *url.URL
	// DisableCompression stops net/http from negotiating and decoding gzip, so
	// the caller sees the raw Content-Encoding.
	DisableCompression    bool
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
}

// NewTransport builds the transport shared by the request client and the downloader.
func NewTransport(cfg TransportConfig) *http.Transport {
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    cfg.DisableCompression,
	}
	if cfg.Proxy != nil {
		transport.Proxy = http.ProxyURL(cfg.Proxy)
	}
	return transport
}
