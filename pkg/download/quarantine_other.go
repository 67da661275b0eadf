//go:build !darwin && !windows

package download

type platformQuarantiner struct{}

func (platformQuarantiner) Quarantine(string, string) error { return nil }
