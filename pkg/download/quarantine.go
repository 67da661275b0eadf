package download

// NewQuarantiner returns the quarantiner for the running platform. Platforms
// without a quarantine mechanism get one that does nothing.
func NewQuarantiner() Quarantiner {
	return platformQuarantiner{}
}
