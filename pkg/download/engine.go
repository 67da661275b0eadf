// Package download streams remote files to disk with progress reporting,
// de-duplication by URL, integrity checks and abort support, and resolves where
// user-facing and cached downloads are stored.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
	"github.com/glorpus-work/deskshell/pkg/https"
)

// DefaultIdleTimeout fails a transfer that received no bytes for this long.
const DefaultIdleTimeout = 2 * time.Minute

var (
	errIncomplete       = fmt.Errorf("%w: file download incomplete", pkgerrors.ErrIntegrity)
	errQuarantine       = fmt.Errorf("%w: unable to set quarantine flag", pkgerrors.ErrIntegrity)
	errDecode           = fmt.Errorf("%w: content decoding failed", pkgerrors.ErrIntegrity)
	errClosedConnection = fmt.Errorf("%w: closed connection", pkgerrors.ErrTransport)
)

type job struct {
	url     string
	target  string
	emitter *Emitter
	cancel  context.CancelCauseFunc
	aborted atomic.Bool
	// created is set once the target was opened for writing by this job.
	created bool
	done    chan struct{}
}

// Engine runs downloads. At most one transfer per URL is in flight.
type Engine struct {
	client      *http.Client
	quarantiner Quarantiner
	userAgent   string
	idleTimeout time.Duration
	log         logger.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithHTTPClient sets the client used for transfers. It must not decode
// Content-Encoding itself.
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) { e.client = c }
}

// WithQuarantiner replaces the platform quarantiner.
func WithQuarantiner(q Quarantiner) EngineOption {
	return func(e *Engine) { e.quarantiner = q }
}

// WithIdleTimeout sets how long a transfer may stall.
func WithIdleTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.idleTimeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) EngineOption {
	return func(e *Engine) { e.userAgent = ua }
}

// NewEngine creates an engine whose transport honors the https_proxy variables.
func NewEngine(log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		userAgent:   "deskshell/1.0",
		idleTimeout: DefaultIdleTimeout,
		log:         logger.OrNop(log),
		jobs:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = &http.Client{Transport: https.NewTransport(https.TransportConfig{
			Proxy:              https.ProxyFromEnvironment(),
			DisableCompression: true,
		})}
	}
	if e.quarantiner == nil {
		e.quarantiner = NewQuarantiner()
	}
	return e
}

// GetFromURL downloads url to target. While a transfer for url is in flight the
// existing Emitter is returned and no new request is made. With skipIfExists an
// existing target finishes immediately with status 304.
func (e *Engine) GetFromURL(ctx context.Context, url, target string, headers map[string]string, skipIfExists, quarantine bool) *Emitter {
	e.log.Info("GET file", logger.Fields{"url": url, "target": target})

	e.mu.Lock()
	if j, ok := e.jobs[url]; ok {
		e.mu.Unlock()
		return j.emitter
	}

	em := newEmitter(url)
	if skipIfExists && fsutil.IsFile(target) {
		e.mu.Unlock()
		em.settle(Event{Kind: EventFinished, StatusCode: http.StatusNotModified, Path: target})
		return em
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	j := &job{url: url, target: target, emitter: em, cancel: cancel, done: make(chan struct{})}
	e.jobs[url] = j
	e.mu.Unlock()

	go e.run(jobCtx, j, headers, quarantine)
	return em
}

// Abort cancels the transfer for url, waits for it to stop, deletes the partial
// file and frees the URL. It reports whether a transfer was in flight.
func (e *Engine) Abort(url string) bool {
	e.log.Info("Aborting request", logger.Fields{"url": url})

	e.mu.Lock()
	j, ok := e.jobs[url]
	if ok {
		j.aborted.Store(true)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}

	j.cancel(pkgerrors.ErrAborted)
	<-j.done
	if j.created {
		e.removePartial(j.target)
	}

	e.mu.Lock()
	if e.jobs[url] == j {
		delete(e.jobs, url)
	}
	e.mu.Unlock()

	j.emitter.abort()
	return true
}

// InFlight reports whether a transfer for url is running.
func (e *Engine) InFlight(url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.jobs[url]
	return ok
}

// claim frees the URL key and reports whether j may emit a terminal event. It
// fails once Abort has marked the job.
func (e *Engine) claim(j *job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if j.aborted.Load() {
		return false
	}
	if e.jobs[j.url] == j {
		delete(e.jobs, j.url)
	}
	return true
}

func (e *Engine) run(ctx context.Context, j *job, headers map[string]string, quarantine bool) {
	defer close(j.done)
	defer j.cancel(nil)

	watchdog := time.AfterFunc(e.idleTimeout, func() { j.cancel(pkgerrors.ErrTimeout) })
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, http.NoBody)
	if err != nil {
		e.fail(j, nil, pkgerrors.Mark(pkgerrors.ErrTransport, err))
		return
	}
	req.Header.Set("User-Agent", e.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.fail(j, nil, e.classify(ctx, err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		e.fail(j, resp, &pkgerrors.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     "fetch failed with code: " + strconv.Itoa(resp.StatusCode),
			URL:        j.url,
		})
		return
	}

	if err := fsutil.EnsureFileDir(j.target); err != nil {
		e.fail(j, resp, pkgerrors.Mark(pkgerrors.ErrFilesystem, err))
		return
	}
	out, err := os.Create(j.target)
	if err != nil {
		e.fail(j, resp, pkgerrors.Wrap(pkgerrors.Mark(pkgerrors.ErrFilesystem, err), "failed to create file on local system"))
		return
	}
	j.created = true

	counter := &progressReader{
		r:      resp.Body,
		length: resp.ContentLength,
		job:    j,
		onRead: func() { watchdog.Reset(e.idleTimeout) },
	}
	body, encoding, err := decodeBody(counter, resp.Header.Get("Content-Encoding"))
	if err == nil {
		e.log.Debug("Response encoding", logger.Fields{"url": j.url, "encoding": encoding})
		_, err = io.Copy(fileWriter{out}, body)
		_ = body.Close()
	}
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = pkgerrors.Mark(pkgerrors.ErrFilesystem, closeErr)
	}

	if j.aborted.Load() {
		return
	}
	if err != nil {
		switch {
		case errors.Is(context.Cause(ctx), pkgerrors.ErrTimeout):
			err = pkgerrors.Mark(pkgerrors.ErrTimeout, err)
		case errors.Is(err, pkgerrors.ErrFilesystem):
		case counter.err == nil && encoding != encodingNone:
			err = pkgerrors.Wrap(errDecode, err.Error())
		case resp.ContentLength >= 0 && counter.received != resp.ContentLength:
			err = errIncomplete
		default:
			err = pkgerrors.Wrap(errClosedConnection, err.Error())
		}
		e.fail(j, resp, err)
		return
	}
	// A missing Content-Length counts as 0, so only an empty body completes.
	if counter.received != max(resp.ContentLength, 0) {
		e.fail(j, resp, errIncomplete)
		return
	}

	if quarantine {
		e.log.Info("Setting quarantine flag", logger.Fields{"path": j.target})
		if qErr := e.quarantiner.Quarantine(j.target, j.url); qErr != nil {
			e.log.Error("Quarantine failed", logger.Fields{"path": j.target, "error": qErr.Error()})
			e.fail(j, resp, errQuarantine)
			return
		}
	}

	if !e.claim(j) {
		return
	}
	e.log.Info("Download finished", logger.Fields{"url": j.url, "bytes": counter.received})
	j.emitter.settle(Event{
		Kind:       EventFinished,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Path:       j.target,
	})
}

func (e *Engine) classify(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), pkgerrors.ErrTimeout) {
		return pkgerrors.Mark(pkgerrors.ErrTimeout, err)
	}
	return pkgerrors.Mark(pkgerrors.ErrTransport, err)
}

func (e *Engine) fail(j *job, resp *http.Response, err error) {
	if !e.claim(j) {
		return
	}
	e.log.Error("Problem with response", logger.Fields{"url": j.url, "error": err.Error()})
	if j.created {
		e.removePartial(j.target)
	}

	ev := Event{Kind: EventFailed, Err: err}
	if resp != nil {
		ev.StatusCode = resp.StatusCode
		ev.Headers = resp.Header
	}
	j.emitter.settle(ev)
}

func (e *Engine) removePartial(path string) {
	if err := fsutil.RemoveIfFile(path); err != nil {
		e.log.Error("Failed to delete the file", logger.Fields{"path": path, "error": err.Error()})
	}
}

// fileWriter marks write errors as filesystem failures.
type fileWriter struct {
	w io.Writer
}

func (f fileWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		err = pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	return n, err
}

// progressReader counts wire bytes and publishes whole-percent progress. err
// holds the first wire error other than io.EOF.
type progressReader struct {
	r        io.Reader
	length   int64
	received int64
	percent  int
	job      *job
	onRead   func()
	err      error
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) && p.err == nil {
		p.err = err
	}
	if n <= 0 {
		return n, err
	}
	p.received += int64(n)
	p.onRead()
	if p.length > 0 && !p.job.aborted.Load() {
		pct := int(p.received * 100 / p.length)
		if pct >= p.percent+1 {
			p.percent = pct
			p.job.emitter.progress(pct)
		}
	}
	return n, err
}
