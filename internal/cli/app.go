package cli

import (
	"fmt"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/clientversion"
	"github.com/glorpus-work/deskshell/pkg/config"
	"github.com/glorpus-work/deskshell/pkg/device"
	"github.com/glorpus-work/deskshell/pkg/download"
	"github.com/glorpus-work/deskshell/pkg/ecs"
	"github.com/glorpus-work/deskshell/pkg/https"
)

// app holds the collaborators built from one configuration. Nothing in the
// core reaches for globals; every dependency is handed in here.
type app struct {
	cfg       *config.Config
	version   *clientversion.Provider
	device    *device.Identity
	client    *https.Client
	fetcher   *ecs.Fetcher
	downloads *download.Manager
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.Default()

	identity := device.New(cfg.Settings.DataDir, log.Component("device"))
	if err := identity.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize device id: %w", err)
	}

	version := clientversion.New(cfg.ClientInfo())
	client := https.NewClient(log.Component("https"), https.WithUserAgent(cfg.Download.UserAgent))

	fetcher, err := ecs.NewFetcher(client, version, identity, log.Component("ecs"), cfg.ECSOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create config fetcher: %w", err)
	}

	engine := download.NewEngine(log.Component("download"),
		download.WithIdleTimeout(cfg.Download.IdleTimeout),
		download.WithUserAgent(cfg.Download.UserAgent),
	)
	manager := download.NewManager(engine, download.NewExecShell(),
		cfg.Download.DownloadsDir, cfg.Download.TempDir, log.Component("download"))

	return &app{
		cfg:       cfg,
		version:   version,
		device:    identity,
		client:    client,
		fetcher:   fetcher,
		downloads: manager,
	}, nil
}
