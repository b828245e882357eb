package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the core can surface.
// Callers match with errors.Is; components wrap these with detail.
var (
	// ErrUnsupportedKind means the backend does not handle the requested kind.
	ErrUnsupportedKind = errors.New("resource kind not supported")
	// ErrNotFound means a resource, cache entry, or provider path is missing.
	ErrNotFound = errors.New("not found")
	// ErrAuthentication means credentials were missing or rejected.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNetwork means the remote host could not be reached or the transfer failed.
	ErrNetwork = errors.New("network failure")
	// ErrIO means a filesystem or archive operation failed.
	ErrIO = errors.New("i/o failure")
	// ErrParse means a manifest or settings file was malformed.
	ErrParse = errors.New("parse failure")
	// ErrConflict means an install already exists and overwrite was not requested,
	// or a version-control remote's history has diverged from the local clone.
	ErrConflict = errors.New("conflict")
	// ErrCacheCorrupt means a cache entry's content no longer matches its checksum.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)

// Phase identifies which stage of an install operation failed.
type Phase string

const (
	PhaseFetch Phase = "fetch"
	PhaseCache Phase = "cache"
	PhasePlace Phase = "place"
	PhaseMerge Phase = "merge"
)

// OpError wraps a backend or installer failure with operation context:
// which provider, which resource, and which phase was running.
type OpError struct {
	Op       string // "install", "uninstall", "list", "fetch"
	Phase    Phase  // empty for non-install operations
	Provider string // provider name, if the operation targets one
	Resource string // resource id, if known
	Err      error
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Phase != "" {
		msg += "/" + string(e.Phase)
	}
	if e.Provider != "" {
		msg += " provider=" + e.Provider
	}
	if e.Resource != "" {
		msg += " resource=" + e.Resource
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
