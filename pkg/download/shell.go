package download

import (
	"os/exec"
	"path/filepath"

	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/platform"
)

// ExecShell opens files through the platform's desktop launcher.
type ExecShell struct {
	// run starts a command and returns once it was launched.
	run func(name string, args ...string) error
}

// NewExecShell returns a Shell backed by xdg-open, open or explorer.
func NewExecShell() *ExecShell {
	return &ExecShell{run: startDetached}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Open opens path with its default application.
func (s *ExecShell) Open(path string) error {
	name, args := openCommand(platform.Current(), path)
	return s.exec(name, args)
}

// Reveal shows path in the file browser. On Linux the containing folder is opened.
func (s *ExecShell) Reveal(path string) error {
	name, args := revealCommand(platform.Current(), filepath.Clean(path))
	return s.exec(name, args)
}

func (s *ExecShell) exec(name string, args []string) error {
	if err := s.run(name, args...); err != nil {
		return pkgerrors.Wrapf(err, "failed to run %s", name)
	}
	return nil
}

func openCommand(os, path string) (string, []string) {
	switch os {
	case platform.OSWindows:
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	case platform.OSDarwin:
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

func revealCommand(os, path string) (string, []string) {
	switch os {
	case platform.OSWindows:
		return "explorer", []string{"/select," + path}
	case platform.OSDarwin:
		return "open", []string{"-R", path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}
