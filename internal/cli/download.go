package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/download"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var (
		public     bool
		name       string
		headers    []string
		quarantine bool
	)

	cmd := &cobra.Command{
		Use:   "download URL...",
		Short: "Download files",
		Long: `Download one or more files concurrently.

Public downloads go to the downloads folder under the first free "name (n).ext".
Other downloads are cached in the temp folder and reused on the next request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name can only be used with a single URL")
			}
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			return runDownload(cmd, args, download.Request{
				Public:         public,
				TargetFilename: name,
				Headers:        hdrs,
				Quarantine:     quarantine,
			})
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "Save to the downloads folder instead of the cache")
	cmd.Flags().StringVar(&name, "name", "", "Target file name or absolute path (single URL only)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header as 'Key: Value' (repeatable)")
	cmd.Flags().BoolVar(&quarantine, "quarantine", false, "Mark the downloaded file as coming from the internet")

	return cmd
}

type downloadResult struct {
	URL        string `json:"url"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runDownload(cmd *cobra.Command, urls []string, template download.Request) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat)

	var (
		mu      sync.Mutex
		results = make([]downloadResult, len(urls))
	)
	// One failed download does not cancel the others.
	var g errgroup.Group
	for i, rawURL := range urls {
		req := template
		req.URL = rawURL
		if req.TargetFilename == "" {
			req.TargetFilename = filenameFromURL(rawURL)
		}

		g.Go(func() error {
			res := fetchOne(ctx, a.downloads, req, func(ev download.Event) {
				if ev.Kind == download.EventProgress && !out.json && Verbose != nil && *Verbose {
					mu.Lock()
					out.pending(fmt.Sprintf("%s %d%%", req.URL, ev.Percent))
					mu.Unlock()
				}
			})

			if res.Error != "" {
				logger.Error("Download failed", logger.Fields{"url": res.URL, "code": res.StatusCode, "error": res.Error})
			} else {
				logger.Success("Download complete", logger.Fields{"url": res.URL, "path": res.Path, "code": res.StatusCode})
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			if !out.json {
				if res.Error != "" {
					out.failure(res.URL + ": " + res.Error)
				} else {
					out.success(res.URL + " " + symbols["arrow"] + " " + res.Path)
				}
			}
			if res.Error != "" {
				return fmt.Errorf("download of %s failed: %s", res.URL, res.Error)
			}
			return nil
		})
	}

	err = g.Wait()
	if out.json {
		if encErr := out.encode(results); encErr != nil {
			return encErr
		}
	}
	return err
}

// fetchOne runs a single download and aborts it when ctx ends first.
func fetchOne(ctx context.Context, m *download.Manager, req download.Request, onEvent func(download.Event)) downloadResult {
	res := downloadResult{URL: req.URL}

	em, err := m.GetFromURL(ctx, req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	unsubscribe := em.Subscribe(onEvent)
	defer unsubscribe()

	ev, err := em.Wait(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.Abort(req.URL)
		err = pkgerrors.ErrAborted
	}
	res.StatusCode = ev.StatusCode
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Path = ev.Path
	return res
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Key: Value'", h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
