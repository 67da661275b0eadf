package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	dlmocks "github.com/glorpus-work/deskshell/pkg/download/mocks"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/https"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(em *Emitter) *recorder {
	r := &recorder{}
	em.Subscribe(func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, ev := range r.events {
		if ev.Kind == EventProgress {
			out = append(out, ev.Percent)
		}
	}
	return out
}

func (r *recorder) has(kind EventKind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, em *Emitter) (Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := em.Wait(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "download did not settle")
	return ev, err
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	ctrl := gomock.NewController(t)
	defaults := []EngineOption{
		WithQuarantiner(dlmocks.NewMockQuarantiner(ctrl)),
		WithHTTPClient(&http.Client{Transport: https.NewTransport(https.TransportConfig{DisableCompression: true})}),
	}
	return NewEngine(nil, append(defaults, opts...)...)
}

func payload(n int) []byte {
	return bytes.Repeat([]byte("0123456789"), n/10+1)[:n]
}

func fileServer(data []byte, extra func(w http.ResponseWriter)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if extra != nil {
			extra(w)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}))
}

func TestEngine_CompleteDownload(t *testing.T) {
	data := payload(1000)
	server := fileServer(data, nil)
	defer server.Close()

	target := filepath.Join(t.TempDir(), "sub", "file.bin")
	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)
	rec := record(em)

	ev, err := waitFor(t, em)
	require.NoError(t, err)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Equal(t, http.StatusOK, ev.StatusCode)
	assert.Equal(t, target, ev.Path)
	assert.NotNil(t, ev.Headers)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	percents := rec.percents()
	for i := 1; i < len(percents); i++ {
		assert.Greater(t, percents[i], percents[i-1])
	}
	assert.False(t, e.InFlight(server.URL))
}

func TestEngine_ProgressSteps(t *testing.T) {
	data := payload(1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		for i := 0; i < 10; i++ {
			_, _ = w.Write(data[i*100 : (i+1)*100])
			w.(http.Flusher).Flush()
			time.Sleep(2 * time.Millisecond)
		}
	}))
	defer server.Close()

	e := newTestEngine(t)
	var mu sync.Mutex
	var percents []int
	em := e.GetFromURL(context.Background(), server.URL, filepath.Join(t.TempDir(), "f"), nil, false, false)
	em.Subscribe(func(ev Event) {
		if ev.Kind == EventProgress {
			mu.Lock()
			percents = append(percents, ev.Percent)
			mu.Unlock()
		}
	})

	_, err := waitFor(t, em)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestEngine_IncompleteDownloadFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write(payload(999))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "partial.bin")
	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)

	ev, err := waitFor(t, em)
	require.Error(t, err)
	assert.Equal(t, EventFailed, ev.Kind)
	assert.True(t, errors.Is(err, pkgerrors.ErrIntegrity))
	assert.Contains(t, err.Error(), "file download incomplete")
	assert.Equal(t, http.StatusOK, ev.StatusCode)
	assert.NoFileExists(t, target)
	assert.False(t, e.InFlight(server.URL))
}

func TestEngine_ZeroLengthResource(t *testing.T) {
	server := fileServer(nil, nil)
	defer server.Close()

	target := filepath.Join(t.TempDir(), "empty.txt")
	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)
	rec := record(em)

	ev, err := waitFor(t, em)
	require.NoError(t, err)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Empty(t, rec.percents())

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestEngine_UnknownLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload(500))
		w.(http.Flusher).Flush()
		_, _ = w.Write(payload(500))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "stream.txt")
	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)
	rec := record(em)

	ev, err := waitFor(t, em)
	require.Error(t, err)
	assert.Equal(t, EventFailed, ev.Kind)
	assert.ErrorIs(t, err, errIncomplete)
	assert.Equal(t, http.StatusOK, ev.StatusCode)
	assert.Empty(t, rec.percents())
	assert.NoFileExists(t, target)
	assert.False(t, e.InFlight(server.URL))
}

func TestEngine_UnknownLengthEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.(http.Flusher).Flush()
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "nothing.txt")
	e := newTestEngine(t)
	ev, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))
	require.NoError(t, err)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.FileExists(t, target)
}

func TestEngine_ContentEncoding(t *testing.T) {
	plain := payload(4096)
	tests := []struct {
		name     string
		encoding string
		codec    archives.Compressor
	}{
		{name: "gzip", encoding: "gzip", codec: archives.Gz{}},
		{name: "deflate", encoding: "deflate", codec: archives.Zlib{}},
		{name: "zstd", encoding: "zstd", codec: archives.Zstd{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := tt.codec.OpenWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(plain)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			server := fileServer(buf.Bytes(), func(w http.ResponseWriter) {
				w.Header().Set("Content-Encoding", tt.encoding)
			})
			defer server.Close()

			target := filepath.Join(t.TempDir(), "decoded.bin")
			e := newTestEngine(t)
			_, err = waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))
			require.NoError(t, err)

			got, err := os.ReadFile(target)
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		})
	}
}

func TestEngine_CorruptEncodedBody(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
	}{
		{name: "gzip", encoding: "gzip"},
		{name: "deflate", encoding: "deflate"},
		{name: "zstd", encoding: "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := fileServer([]byte("this is not compressed at all"), func(w http.ResponseWriter) {
				w.Header().Set("Content-Encoding", tt.encoding)
			})
			defer server.Close()

			target := filepath.Join(t.TempDir(), "corrupt.bin")
			e := newTestEngine(t)
			ev, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))

			require.Error(t, err)
			assert.Equal(t, EventFailed, ev.Kind)
			assert.ErrorIs(t, err, pkgerrors.ErrIntegrity)
			assert.False(t, errors.Is(err, pkgerrors.ErrTransport))
			assert.Contains(t, err.Error(), "content decoding failed")
			assert.NoFileExists(t, target)
		})
	}
}

func TestEngine_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Reason", "gone")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "missing.bin")
	e := newTestEngine(t)
	ev, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))

	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrHTTPStatus))
	assert.Equal(t, http.StatusNotFound, ev.StatusCode)
	assert.Equal(t, "gone", ev.Headers.Get("X-Reason"))
	assert.NoFileExists(t, target)
}

func TestEngine_NonOKStatusKeepsExistingTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "mine.txt")
	require.NoError(t, os.WriteFile(target, []byte("keep me"), 0o644))

	e := newTestEngine(t)
	_, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))

	require.Error(t, err)
	assert.FileExists(t, target)
}

func TestEngine_DeduplicatesByURL(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "once.txt")
	e := newTestEngine(t)
	first := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)
	second := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)

	assert.Same(t, first, second)
	assert.True(t, e.InFlight(server.URL))
	close(release)

	_, err := waitFor(t, first)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEngine_SkipIfExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("network must not be used")
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "cached.bin")
	require.NoError(t, os.WriteFile(target, []byte("cached"), 0o644))

	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, true, false)
	rec := record(em)

	ev, err := waitFor(t, em)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, ev.StatusCode)
	assert.Equal(t, target, ev.Path)
	assert.Equal(t, []EventKind{EventFinished}, rec.kinds())
	assert.False(t, e.InFlight(server.URL))
}

func TestEngine_AbortDuringTransfer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		if hits.Add(1) == 1 {
			_, _ = w.Write(payload(100))
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			return
		}
		_, _ = w.Write(payload(1000))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "aborted.bin")
	e := newTestEngine(t)
	em := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)

	progressed := make(chan struct{})
	var once sync.Once
	rec := record(em)
	em.Subscribe(func(ev Event) {
		if ev.Kind == EventProgress {
			once.Do(func() { close(progressed) })
		}
	})

	select {
	case <-progressed:
	case <-time.After(5 * time.Second):
		t.Fatal("no progress before abort")
	}

	assert.True(t, e.Abort(server.URL))

	assert.NoFileExists(t, target)
	assert.False(t, rec.has(EventFinished))
	assert.False(t, rec.has(EventFailed))
	_, err := waitFor(t, em)
	assert.ErrorIs(t, err, pkgerrors.ErrAborted)
	assert.False(t, e.InFlight(server.URL))

	var late []Event
	em.Subscribe(func(ev Event) { late = append(late, ev) })
	assert.Empty(t, late, "an aborted download replays nothing")
	select {
	case <-em.Done():
	default:
		t.Fatal("aborted emitter is not done")
	}

	again := e.GetFromURL(context.Background(), server.URL, target, nil, false, false)
	assert.NotSame(t, em, again)
	ev, err := waitFor(t, again)
	require.NoError(t, err)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Equal(t, int32(2), hits.Load())
}

func TestEngine_AbortUnknownURL(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.Abort("https://nowhere.example.com/file"))
}

func TestEngine_ClosedConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n")
		_ = buf.Flush()
		_ = conn.Close()
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "cut.bin")
	e := newTestEngine(t)
	ev, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))

	require.Error(t, err)
	assert.Equal(t, EventFailed, ev.Kind)
	assert.True(t, errors.Is(err, pkgerrors.ErrTransport))
	assert.Contains(t, err.Error(), "closed connection")
	assert.NoFileExists(t, target)
}

func TestEngine_IdleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write(payload(10))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "stalled.bin")
	e := newTestEngine(t, WithIdleTimeout(50*time.Millisecond))
	_, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, false))

	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrTimeout))
	assert.NoFileExists(t, target)
}

func TestEngine_Quarantine(t *testing.T) {
	data := []byte("installer")
	server := fileServer(data, nil)
	defer server.Close()

	t.Run("flag set", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := dlmocks.NewMockQuarantiner(ctrl)
		target := filepath.Join(t.TempDir(), "setup.dmg")
		q.EXPECT().Quarantine(target, server.URL).Return(nil)

		e := newTestEngine(t, WithQuarantiner(q))
		ev, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, true))
		require.NoError(t, err)
		assert.Equal(t, EventFinished, ev.Kind)
		assert.FileExists(t, target)
	})

	t.Run("flag failure fails download", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		q := dlmocks.NewMockQuarantiner(ctrl)
		target := filepath.Join(t.TempDir(), "setup.dmg")
		q.EXPECT().Quarantine(target, server.URL).Return(errors.New("xattr denied"))

		e := newTestEngine(t, WithQuarantiner(q))
		_, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, target, nil, false, true))
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrIntegrity))
		assert.Contains(t, err.Error(), "quarantine")
		assert.NoFileExists(t, target)
	})
}

func TestEngine_SendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "deskshell-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", "2")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	e := newTestEngine(t, WithUserAgent("deskshell-test"))
	_, err := waitFor(t, e.GetFromURL(context.Background(), server.URL, filepath.Join(t.TempDir(), "h"),
		map[string]string{"Authorization": "Bearer abc"}, false, false))
	require.NoError(t, err)
}

func TestDecoderFor(t *testing.T) {
	tests := map[string]string{
		"gzip":     "gzip",
		"x-gzip":   "gzip",
		" GZIP ":   "gzip",
		"deflate":  "deflate",
		"br":       "br",
		"zstd":     "zstd",
		"":         "none",
		"identity": "none",
	}
	for in, want := range tests {
		_, got := decoderFor(in)
		assert.Equal(t, want, got, in)
	}
}
