package history

import "errors"

// Sentinel errors for the history store.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, history.ErrDisabled) {
//	    // Run without local history
//	}
var (
	// ErrDisabled indicates history is turned off in configuration.
	ErrDisabled = errors.New("history: disabled in configuration")

	// ErrNotOpen indicates an operation on a store that was never opened
	// or has been closed.
	ErrNotOpen = errors.New("history: store not open")
)
