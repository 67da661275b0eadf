//go:build windows

package download

import (
	"os"
	"strings"

	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
)

type platformQuarantiner struct{}

// Quarantine writes a Zone.Identifier alternate data stream marking the file as
// coming from the Internet zone.
func (platformQuarantiner) Quarantine(path, sourceURL string) error {
	var b strings.Builder
	b.WriteString("[ZoneTransfer]\r\nZoneId=3\r\n")
	if sourceURL != "" {
		b.WriteString("HostUrl=" + sourceURL + "\r\n")
	}
	if err := os.WriteFile(path+":Zone.Identifier", []byte(b.String()), fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "failed to write Zone.Identifier")
	}
	return nil
}
