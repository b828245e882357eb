package resource

import "time"

// Descriptor is the ephemeral identity+location record for one resource,
// produced by a backend's List call. Descriptors are views over backend
// state, never persisted directly.
type Descriptor struct {
	SourceID    string // backend-scoped source identity (marketplace name, repo key, folder root)
	ResourceID  string // unique within (SourceID, Kind)
	Kind        Kind
	Name        string
	Description string
	Ref         RemoteRef
	Checksum    string     // hex sha256 of the packaged content, when the backend knows it
	InstalledAt *time.Time // set only by cache-backed listings
}

// Key is the durable identity of a resource across the cache and
// install records: at most one cache entry exists per Key.
type Key struct {
	Kind       Kind
	SourceID   string
	ResourceID string
}

// Key returns the cache identity of the descriptor.
func (d Descriptor) Key() Key {
	return Key{Kind: d.Kind, SourceID: d.SourceID, ResourceID: d.ResourceID}
}
