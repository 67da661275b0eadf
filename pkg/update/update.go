// Package update decides from the remote configuration whether a newer client
// is available.
package update

import (
	"time"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/deskshell/pkg/ecs"
)

// Status is the outcome of an update check.
type Status struct {
	AppDisabled     bool          `json:"appDisabled" yaml:"app_disabled"`
	UpdateAvailable bool          `json:"updateAvailable" yaml:"update_available"`
	CurrentVersion  string        `json:"currentVersion" yaml:"current_version"`
	LatestVersion   string        `json:"latestVersion,omitempty" yaml:"latest_version,omitempty"`
	FeedURL         string        `json:"feedUrl,omitempty" yaml:"feed_url,omitempty"`
	Interval        time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// Check compares current with the last version advertised in cfg. A nil cfg
// or a version that does not parse never reports an update. fallbackFeed is
// used when cfg carries no updater feed.
func Check(cfg *ecs.RemoteConfig, current, fallbackFeed string) Status {
	st := Status{CurrentVersion: current, FeedURL: fallbackFeed}
	if cfg == nil {
		return st
	}

	st.AppDisabled = cfg.AppDisabled
	st.LatestVersion = cfg.LastVersionAvailable
	st.Interval = cfg.UpdateIntervalDuration()
	if cfg.PlatformUpdaterFeedURL != "" {
		st.FeedURL = cfg.PlatformUpdaterFeedURL
	}

	latest := parse(cfg.LastVersionAvailable)
	running := parse(current)
	if latest == nil || running == nil {
		return st
	}
	st.UpdateAvailable = latest.GreaterThan(running)
	return st
}

func parse(s string) *version.Version {
	if s == "" {
		return nil
	}
	v, err := version.NewVersion(s)
	if err != nil {
		return nil
	}
	return v
}
