package update

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/glorpus-work/deskshell/pkg/ecs"
)

func TestCheck(t *testing.T) {
	interval := 3600

	tests := []struct {
		name        string
		cfg         *ecs.RemoteConfig
		current     string
		wantUpdate  bool
		wantFeed    string
		wantLatest  string
		wantDisable bool
	}{
		{
			name:     "no config",
			current:  "8.10.0.76",
			wantFeed: "https://fallback.example.com/feed",
		},
		{
			name:       "newer available",
			cfg:        &ecs.RemoteConfig{LastVersionAvailable: "8.11.0.10"},
			current:    "8.10.0.76",
			wantUpdate: true,
			wantFeed:   "https://fallback.example.com/feed",
			wantLatest: "8.11.0.10",
		},
		{
			name:       "same version",
			cfg:        &ecs.RemoteConfig{LastVersionAvailable: "8.10.0.76"},
			current:    "8.10.0.76",
			wantFeed:   "https://fallback.example.com/feed",
			wantLatest: "8.10.0.76",
		},
		{
			name:       "older advertised",
			cfg:        &ecs.RemoteConfig{LastVersionAvailable: "8.9.0.1"},
			current:    "8.10.0.76",
			wantFeed:   "https://fallback.example.com/feed",
			wantLatest: "8.9.0.1",
		},
		{
			name:       "unparseable latest",
			cfg:        &ecs.RemoteConfig{LastVersionAvailable: "latest!"},
			current:    "8.10.0.76",
			wantFeed:   "https://fallback.example.com/feed",
			wantLatest: "latest!",
		},
		{
			name: "feed and disable from config",
			cfg: &ecs.RemoteConfig{
				AppDisabled:            true,
				PlatformUpdaterFeedURL: "https://feed.example.com/win",
				LastVersionAvailable:   "9.0",
			},
			current:     "8.10.0.76",
			wantUpdate:  true,
			wantFeed:    "https://feed.example.com/win",
			wantLatest:  "9.0",
			wantDisable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Check(tt.cfg, tt.current, "https://fallback.example.com/feed")
			assert.Equal(t, tt.wantUpdate, st.UpdateAvailable)
			assert.Equal(t, tt.wantFeed, st.FeedURL)
			assert.Equal(t, tt.wantLatest, st.LatestVersion)
			assert.Equal(t, tt.wantDisable, st.AppDisabled)
			assert.Equal(t, tt.current, st.CurrentVersion)
		})
	}

	st := Check(&ecs.RemoteConfig{UpdateInterval: &interval}, "1.0", "")
	assert.Equal(t, time.Hour, st.Interval)
}

func TestCheck_UnparseableCurrent(t *testing.T) {
	st := Check(&ecs.RemoteConfig{LastVersionAvailable: "9.0"}, "dev", "")
	assert.False(t, st.UpdateAvailable)
}
