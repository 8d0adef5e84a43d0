package pluginplay

import (
	"errors"
	"fmt"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
	"github.com/NWChemEx/PluginPlay-sub003/provider/badger"
)

var (
	// ErrNotFound: no entry under the key, in memory or in the provider.
	ErrNotFound = errors.New("pluginplay: key not found")
	// ErrNoBacking: the cache is a placeholder without a store behind it.
	ErrNoBacking = errors.New("pluginplay: cache has no backing store")

	ErrBadCast      = anyvalue.ErrBadCast
	ErrNoValue      = anyvalue.ErrNoValue
	ErrUnregistered = anyvalue.ErrUnregistered

	// ErrSaveLocationBusy marks a save location held by another process.
	// Custom Options.OpenSaveLocation functions wrap it to get the same
	// fallback as the badger default.
	ErrSaveLocationBusy = badger.ErrLocked
)

// KeyError reports a failed operation on one key.
type KeyError struct {
	Op        string
	Namespace string
	Key       string
	Err       error
}

func (e *KeyError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("pluginplay: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("pluginplay: %s %s/%q: %v", e.Op, e.Namespace, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }
