// Package clientversion reports the client version string and platform id sent
// to the configuration service.
package clientversion

import "github.com/glorpus-work/deskshell/pkg/platform"

// Platform ids understood by the configuration service.
const (
	PlatformMSIX    = "1434"
	PlatformWindows = "1433"
	PlatformMac     = "1432"
	PlatformLinux   = "1431"
)

// Info is the build metadata a Provider is created from.
type Info struct {
	AppVersion string
	Build      string
	Cobrand    string
	MSIX       bool
	// OS overrides the running operating system, mostly for tests.
	OS string
}

// Provider is an immutable version/platform pair.
type Provider struct {
	version  string
	platform string
	cobrand  string
}

// New builds a Provider. An empty cobrand is reported as "0".
func New(info Info) *Provider {
	cobrand := info.Cobrand
	if cobrand == "" {
		cobrand = "0"
	}
	os := info.OS
	if os == "" {
		os = platform.Current()
	}
	return &Provider{
		version:  info.AppVersion + "." + cobrand + "." + info.Build,
		platform: PlatformID(os, info.MSIX),
		cobrand:  cobrand,
	}
}

// PlatformID maps an OS name to the service platform id.
func PlatformID(os string, msix bool) string {
	if msix {
		return PlatformMSIX
	}
	return platform.PickFor(os, PlatformWindows, PlatformMac, PlatformLinux)
}

// Version returns "appVersion.cobrand.build".
func (p *Provider) Version() string { return p.version }

// Platform returns the platform id.
func (p *Provider) Platform() string { return p.platform }

// Cobrand returns the cobrand id.
func (p *Provider) Cobrand() string { return p.cobrand }

// FullVersion returns "platform/version/".
func (p *Provider) FullVersion() string { return p.platform + "/" + p.version + "/" }
