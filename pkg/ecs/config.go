// Package ecs fetches the remote client configuration, caches it on disk per
// client version and keeps it fresh on a schedule.
package ecs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
)

// RemoteConfig is an immutable snapshot of the remote configuration. A newer
// fetch replaces the pointer held by the Fetcher, it never mutates an old one.
type RemoteConfig struct {
	ETag                    string    `json:"etag"`
	Expires                 time.Time `json:"expires"`
	AppDisabled             bool      `json:"appDisabled"`
	PlatformUpdaterFeedURL  string    `json:"platformUpdaterFeedUrl,omitempty"`
	UpdateInterval          *int      `json:"updateInterval,omitempty"`
	LastVersionAvailable    string    `json:"lastVersionAvailable"`
	IdleSystemTimeWindow    int       `json:"idleSystemTimeWindow"`
	EnableNonAdminDetection bool      `json:"enableNonAdminDetection"`
}

// UpdateIntervalDuration returns the advertised update interval, or 0 when absent.
func (c *RemoteConfig) UpdateIntervalDuration() time.Duration {
	if c == nil || c.UpdateInterval == nil {
		return 0
	}
	return time.Duration(*c.UpdateInterval) * time.Second
}

type wireResponse struct {
	Headers struct {
		ETag    string `json:"ETag"`
		Expires string `json:"Expires"`
	} `json:"Headers"`
	Wrapper *struct {
		AppDisabled             lenientBool   `json:"appDisabled"`
		PlatformUpdaterFeedURL  lenientString `json:"platformUpdaterFeedUrl"`
		UpdateInterval          lenient       `json:"updateInterval"`
		LastVersionAvailable    lenientString `json:"lastVersionAvailable"`
		IdleSystemTimeWindow    lenient       `json:"idleSystemTimeWindow"`
		EnableNonAdminDetection lenientBool   `json:"enableNonAdminDetection"`
	} `json:"SkypeElectronWrapper"`
}

// ParseResponse extracts a RemoteConfig from a 200 response body.
func ParseResponse(body []byte) (*RemoteConfig, error) {
	var wire wireResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&wire); err != nil {
		return nil, pkgerrors.Mark(pkgerrors.ErrRemoteConfig, err)
	}
	if wire.Wrapper == nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrRemoteConfig, "missing SkypeElectronWrapper section")
	}

	w := wire.Wrapper
	cfg := &RemoteConfig{
		ETag:                    wire.Headers.ETag,
		Expires:                 parseExpires(wire.Headers.Expires),
		AppDisabled:             bool(w.AppDisabled),
		PlatformUpdaterFeedURL:  string(w.PlatformUpdaterFeedURL),
		LastVersionAvailable:    string(w.LastVersionAvailable),
		IdleSystemTimeWindow:    int(w.IdleSystemTimeWindow),
		EnableNonAdminDetection: bool(w.EnableNonAdminDetection),
	}
	if w.UpdateInterval != 0 {
		v := int(w.UpdateInterval)
		cfg.UpdateInterval = &v
	}
	return cfg, nil
}

func parseExpires(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := http.ParseTime(s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// lenient decodes an integer sent either as a JSON number or as a string with
// leading digits. Anything else decodes to 0.
type lenient int

func (l *lenient) UnmarshalJSON(data []byte) error {
	*l = 0
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	*l = lenient(n)
	return nil
}

// lenientBool accepts true/false as JSON booleans, strings or numbers. Anything
// else decodes to false.
type lenientBool bool

func (b *lenientBool) UnmarshalJSON(data []byte) error {
	*b = false
	s := strings.TrimSpace(string(data))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if v, err := strconv.ParseBool(s); err == nil {
		*b = lenientBool(v)
	} else if f, err := strconv.ParseFloat(s, 64); err == nil {
		*b = f != 0
	}
	return nil
}

// lenientString accepts a JSON string, or keeps the literal text of a number or
// boolean. null, objects and arrays decode to "".
type lenientString string

func (l *lenientString) UnmarshalJSON(data []byte) error {
	*l = ""
	s := strings.TrimSpace(string(data))
	switch {
	case s == "" || s == "null" || s[0] == '{' || s[0] == '[':
		return nil
	case s[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*l = lenientString(str)
	default:
		*l = lenientString(s)
	}
	return nil
}
