package stream

import "errors"

// Sentinel errors reported by the stream package. Callers match them with
// errors.Is. ErrUnknownMessage surfaces from Classify; the dispatcher's
// discard reasons (ErrUnknownEventCode, ErrStaleReference) are logged and
// counted, never returned to callers.
var (
	// ErrUnknownMessage means a push payload matched no recognised key set.
	ErrUnknownMessage = errors.New("stream: unrecognised message shape")

	// ErrUnknownEventCode means no handler exists for an event or property
	// code on the target device's type.
	ErrUnknownEventCode = errors.New("stream: no handler for event code")

	// ErrStaleReference means a message named a device id the registry
	// does not hold, usually one removed since the last poll.
	ErrStaleReference = errors.New("stream: device not in registry")

	// ErrNoTokenSource means the client was built without a TokenSource.
	ErrNoTokenSource = errors.New("stream: no token source configured")

	// ErrNoHandler means the client was built without a message handler.
	ErrNoHandler = errors.New("stream: no message handler configured")
)
