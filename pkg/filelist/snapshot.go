package filelist

import (
	"slices"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// State is the listing lifecycle state.
type State int

const (
	// StateIdle means no listing has completed for the current configuration.
	StateIdle State = iota
	// StateLoading means a listing is in flight.
	StateLoading
	// StateReady means the last listing succeeded.
	StateReady
	// StateErrored means the last listing or provider resolution failed.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is an immutable view of the manager state.
type Snapshot struct {
	// Items are the listed objects, newest first.
	Items []provider.ObjectDescriptor

	// Loading is true while any list or delete call is in flight.
	Loading bool

	// Err is the last listing or resolution failure. It is cleared when a new
	// listing starts.
	Err error

	State State

	// Supported is false when the configured storage type has no provider.
	Supported bool

	// Type is the configured storage type.
	Type provider.ProviderType

	// Version increases with every published change.
	Version uint64
}

// Find returns the item with key.
func (s Snapshot) Find(key string) (provider.ObjectDescriptor, bool) {
	for _, it := range s.Items {
		if it.Key == key {
			return it, true
		}
	}
	return provider.ObjectDescriptor{}, false
}

func removeKey(items []provider.ObjectDescriptor, key string) []provider.ObjectDescriptor {
	idx := slices.IndexFunc(items, func(it provider.ObjectDescriptor) bool { return it.Key == key })
	if idx < 0 {
		return items
	}
	out := make([]provider.ObjectDescriptor, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}
