//go:generate mockgen -destination=mocks/ecs.go . VersionProvider,DeviceIdentity

package ecs

// VersionProvider reports the running client's version string and platform id.
type VersionProvider interface {
	Version() string
	Platform() string
}

// DeviceIdentity reports the stable device id, or "" when none is known.
type DeviceIdentity interface {
	ID() string
}
