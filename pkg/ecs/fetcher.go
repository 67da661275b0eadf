package ecs

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/event"
	"github.com/glorpus-work/deskshell/pkg/https"
)

// EventType names a fetcher notification.
type EventType string

const (
	// EventChanged fires after a 200 response replaced the config.
	EventChanged EventType = "config-changed"
	// EventUnchanged fires after a 304 response.
	EventUnchanged EventType = "config-unchanged"
	// EventReady fires once per Fetcher, on the first config obtained from the
	// network or, failing that, from the cache.
	EventReady EventType = "config-ready"
	// EventError fires when retries are exhausted and neither a previous config
	// nor a valid cache exists.
	EventError EventType = "config-error"
	// EventFetchFailed fires when retries are exhausted but a config is already held.
	EventFetchFailed EventType = "config-fetch-failed"
	// EventRefresh fires when the refresh timer triggers a fetch.
	EventRefresh EventType = "config-refresh"
	// EventRetry fires when the retry timer triggers a fetch.
	EventRetry EventType = "config-retry"
)

// Event is published to subscribers. Config is the config held at publish time.
type Event struct {
	Type   EventType
	Config *RemoteConfig
	Err    error
}

// Default schedule and endpoint values.
const (
	DefaultHosts           = "a.config.skype.com,b.config.skype.com"
	DefaultPathTemplate    = "/config/v1/SkypeElectronWrapper/#VERSION#?clientId=#CLIENT_ID#&platform=#PLATFORM#&buildChannel=#CONFIG_OPTION#"
	DefaultRefreshInterval = time.Hour
	DefaultRetryFailedIn   = time.Minute
	DefaultRetryGetIn      = 5 * time.Minute
	DefaultRetryLimit      = 3
)

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	Hosts        []string
	PathTemplate string
	// BuildChannel replaces #CONFIG_OPTION# in PathTemplate.
	BuildChannel string
	// CacheFile is where the last config is persisted. Empty disables the cache.
	CacheFile string

	RefreshInterval time.Duration
	RetryFailedIn   time.Duration
	// RetryGetIn is the delay before a recovery fetch after EventError.
	RetryGetIn     time.Duration
	RetryLimit     int
	RequestTimeout time.Duration
}

// ParseHosts splits a comma separated host list, dropping blanks.
func ParseHosts(list string) []string {
	var hosts []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (o Options) withDefaults() Options {
	if o.PathTemplate == "" {
		o.PathTemplate = DefaultPathTemplate
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.RetryFailedIn <= 0 {
		o.RetryFailedIn = DefaultRetryFailedIn
	}
	if o.RetryGetIn <= 0 {
		o.RetryGetIn = DefaultRetryGetIn
	}
	if o.RetryLimit <= 0 {
		o.RetryLimit = DefaultRetryLimit
	}
	return o
}

type stopper interface {
	Stop() bool
}

// Fetcher keeps the remote config current. At most one fetch runs at a time and
// at most one of the refresh or retry timers is armed.
type Fetcher struct {
	sender  https.Sender
	version VersionProvider
	device  DeviceIdentity
	cache   *Cache
	log     logger.Logger
	opts    Options

	afterFunc func(time.Duration, func()) stopper

	fetchMu sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	stopped    bool
	hostIndex  int
	retryCount int
	current    *RemoteConfig
	readyFired bool
	timer      stopper
	timerGen   uint64

	events event.Publisher[Event]
}

// NewFetcher wires a fetcher. The device identity may be nil.
func NewFetcher(sender https.Sender, version VersionProvider, device DeviceIdentity, log logger.Logger, opts Options) (*Fetcher, error) {
	opts = opts.withDefaults()
	hosts := make([]string, 0, len(opts.Hosts))
	for _, h := range opts.Hosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return nil, pkgerrors.ErrNoHosts
	}
	opts.Hosts = hosts

	f := &Fetcher{
		sender:  sender,
		version: version,
		device:  device,
		log:     logger.OrNop(log),
		opts:    opts,
		ctx:     context.Background(),
		afterFunc: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
	}
	if opts.CacheFile != "" {
		f.cache = NewCache(opts.CacheFile, log)
	}
	return f, nil
}

// Subscribe registers fn for every event and replays the latest one, if any.
func (f *Fetcher) Subscribe(fn func(Event)) (unsubscribe func()) {
	return f.events.Subscribe(fn)
}

// Current returns the config held now, or nil before the first success.
func (f *Fetcher) Current() *RemoteConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Start binds the fetcher to ctx and performs the first fetch. Later fetches
// run from timers until Stop is called or ctx is done.
func (f *Fetcher) Start(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.stopped = false
	runCtx := f.ctx
	f.mu.Unlock()

	f.Refresh(runCtx)
}

// Run starts the fetcher and blocks until ctx is done.
func (f *Fetcher) Run(ctx context.Context) error {
	f.Start(ctx)
	<-ctx.Done()
	f.Stop()
	return nil
}

// Stop disarms the pending timer and cancels an in-flight fetch.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.disarmLocked()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// ClearCache deletes the on-disk cache.
func (f *Fetcher) ClearCache() error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Clear()
}

// Refresh disarms any pending timer and fetches the config once, then arms
// exactly one follow-up timer according to the outcome.
func (f *Fetcher) Refresh(ctx context.Context) {
	f.fetchMu.Lock()
	pending := f.refresh(ctx)
	f.fetchMu.Unlock()

	for _, ev := range pending {
		f.events.Publish(ev)
	}
}

func (f *Fetcher) refresh(ctx context.Context) []Event {
	f.mu.Lock()
	f.disarmLocked()
	firstRun := f.current == nil
	host := f.opts.Hosts[f.hostIndex%len(f.opts.Hosts)]
	f.hostIndex++
	prev := f.current
	f.mu.Unlock()

	f.log.Info("Downloading ECS config", logger.Fields{"host": host})
	req := https.Options{
		URL:    f.buildURL(host),
		Method: http.MethodGet,
		Headers: map[string]string{
			"Accept":       "application/json;ver=1.0",
			"Content-Type": "application/json",
		},
		Timeout:         f.opts.RequestTimeout,
		RetryCountLimit: 1,
	}
	if prev != nil {
		req.Headers["If-None-Match"] = prev.ETag
	}

	resp, err := f.sender.Send(ctx, req)
	if err == nil {
		switch resp.StatusCode {
		case http.StatusOK:
			var cfg *RemoteConfig
			if cfg, err = ParseResponse(resp.Body); err == nil {
				f.log.Info("ECS config successfully downloaded", logger.Fields{"etag": cfg.ETag})
				return f.onSuccess(cfg, firstRun)
			}
		case http.StatusNotModified:
			f.log.Info("ECS config not changed")
			return f.onSuccess(nil, firstRun)
		default:
			err = &pkgerrors.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.StatusMessage, URL: req.URL}
		}
	}

	if ctx.Err() != nil {
		f.log.Debug("ECS fetch cancelled", logger.Fields{"error": err.Error()})
		return nil
	}
	return f.onFailure(err, firstRun)
}

func (f *Fetcher) onSuccess(cfg *RemoteConfig, firstRun bool) []Event {
	if cfg != nil && f.cache != nil {
		if err := f.cache.Save(f.version.Version(), cfg); err != nil {
			f.log.Warn("Error writing ecs cache", logger.Fields{"error": err.Error()})
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var events []Event
	if cfg != nil {
		f.current = cfg
		events = append(events, Event{Type: EventChanged, Config: cfg})
	} else {
		events = append(events, Event{Type: EventUnchanged, Config: f.current})
	}
	f.retryCount = 0
	if firstRun {
		events = append(events, f.readyLocked()...)
	}
	f.armLocked(f.opts.RefreshInterval, EventRefresh)
	return events
}

func (f *Fetcher) onFailure(cause error, firstRun bool) []Event {
	f.mu.Lock()
	if f.retryCount < f.opts.RetryLimit {
		f.retryCount++
		f.log.Warn("ECS config download failed", logger.Fields{"error": cause.Error(), "retry_count": f.retryCount})
		f.armLocked(f.opts.RetryFailedIn, EventRetry)
		f.mu.Unlock()
		return nil
	}
	hasData := f.current != nil
	f.mu.Unlock()

	fields := logger.Fields{"error": cause.Error(), "retry_count": f.opts.RetryLimit, "retry_limit_exceeded": true}

	if hasData {
		f.log.Warn("ECS config download failed, keeping last config", fields)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.retryCount = 0
		f.armLocked(f.opts.RefreshInterval, EventRefresh)
		return []Event{{Type: EventFetchFailed, Config: f.current, Err: cause}}
	}

	cached := f.loadCache()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.retryCount = 0
	if cached != nil && firstRun {
		f.log.Warn("ECS config download failed", fields)
		f.log.Warn("ECS config loaded from cache file")
		f.current = cached
		f.armLocked(f.opts.RefreshInterval, EventRefresh)
		return f.readyLocked()
	}

	f.log.Error("ECS config download failed", fields)
	f.armLocked(f.opts.RetryGetIn, EventRetry)
	return []Event{{Type: EventError, Err: cause}}
}

func (f *Fetcher) loadCache() *RemoteConfig {
	if f.cache == nil {
		return nil
	}
	cfg, err := f.cache.Load(f.version.Version())
	if err != nil {
		f.log.Warn("Error reading ecs cache", logger.Fields{"error": err.Error()})
		return nil
	}
	return cfg
}

func (f *Fetcher) readyLocked() []Event {
	if f.readyFired || f.current == nil {
		return nil
	}
	f.readyFired = true
	return []Event{{Type: EventReady, Config: f.current}}
}

func (f *Fetcher) buildURL(host string) string {
	clientID := ""
	if f.device != nil {
		clientID = f.device.ID()
	}
	path := f.opts.PathTemplate
	path = strings.Replace(path, "#CONFIG_OPTION#", f.opts.BuildChannel, 1)
	path = strings.Replace(path, "#PLATFORM#", f.version.Platform(), 1)
	path = strings.Replace(path, "#VERSION#", f.version.Version(), 1)
	path = strings.Replace(path, "#CLIENT_ID#", clientID, 1)

	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/") + path
	}
	return "https://" + host + path
}

func (f *Fetcher) disarmLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.timerGen++
}

func (f *Fetcher) armLocked(d time.Duration, kind EventType) {
	f.disarmLocked()
	if f.stopped {
		return
	}
	gen := f.timerGen
	f.timer = f.afterFunc(d, func() { f.fire(gen, kind) })
}

func (f *Fetcher) fire(gen uint64, kind EventType) {
	f.mu.Lock()
	if gen != f.timerGen || f.stopped {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	ctx := f.ctx
	current := f.current
	f.mu.Unlock()

	f.events.Publish(Event{Type: kind, Config: current})
	f.Refresh(ctx)
}
