package jsonapi

import "errors"

// Parse errors for the jsonapi package.
//
// All hard parse failures wrap ErrMalformedResponse, so callers can classify
// with a single check:
//
//	if errors.Is(err, jsonapi.ErrMalformedResponse) {
//	    // response body unusable, not retryable
//	}
var (
	// ErrMalformedResponse is returned when a body matches none of the three
	// document shapes, or when its primary resource is structurally unusable.
	ErrMalformedResponse = errors.New("jsonapi: malformed response")

	// ErrMissingID is returned when a resource or identifier has no id.
	ErrMissingID = errors.New("jsonapi: resource missing id")

	// ErrMissingType is returned when a resource or identifier has no type.
	ErrMissingType = errors.New("jsonapi: resource missing type")

	// ErrEmptyRelationship is returned when a relationship carries none of
	// data, links or meta.
	ErrEmptyRelationship = errors.New("jsonapi: relationship has no data, links or meta")

	// ErrInvalidID is returned when an id is neither a string nor a number.
	ErrInvalidID = errors.New("jsonapi: invalid id value")
)
