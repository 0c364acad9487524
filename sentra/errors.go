package sentra

import (
	"errors"
	"fmt"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// Sentinel errors. Vendor responses are classified onto these so callers
// can branch with errors.Is without inspecting status codes.
var (
	// ErrAuthExpired marks a 401 or 403: the session token is no longer
	// accepted and a fresh one is needed.
	ErrAuthExpired = errors.New("sentra: session expired or unauthorised")

	// ErrNotFound marks a 404 for a resource or endpoint.
	ErrNotFound = errors.New("sentra: resource not found")

	// ErrReadOnly marks a 423: the account's permissions allow reading
	// this device but not commanding it.
	ErrReadOnly = errors.New("sentra: device is read-only for this account")

	// ErrRateLimited marks a 429.
	ErrRateLimited = errors.New("sentra: rate limited")

	// ErrServer marks any 5xx.
	ErrServer = errors.New("sentra: vendor server error")

	// ErrNoSessionToken is returned by NewClient when no session token
	// was supplied.
	ErrNoSessionToken = errors.New("sentra: session token is required")

	// ErrBadCommand marks a locally rejected action, such as a thermostat
	// command that changes more than one attribute.
	ErrBadCommand = errors.New("sentra: invalid command")

	// ErrNoClient is returned by NewBridge when no vendor client was
	// supplied.
	ErrNoClient = errors.New("sentra: vendor client is required")
)

// VendorError is a non-2xx response from the vendor, carrying whatever
// JSON:API error objects the body contained. It unwraps to the sentinel
// matching its status code, so errors.Is(err, ErrAuthExpired) works on
// any 401/403 regardless of body shape.
type VendorError struct {
	StatusCode int
	Errors     []jsonapi.Error
}

func (e *VendorError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("sentra: vendor returned %d: %s", e.StatusCode, e.Errors[0].String())
	}
	return fmt.Sprintf("sentra: vendor returned %d", e.StatusCode)
}

// Unwrap classifies the status code onto a sentinel. Unclassified codes
// (bad request, conflict) unwrap to nil and must be matched with errors.As.
func (e *VendorError) Unwrap() error {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return ErrAuthExpired
	case e.StatusCode == 404:
		return ErrNotFound
	case e.StatusCode == 423:
		return ErrReadOnly
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	}
	return nil
}
