// Package jsonapi models the Sentra web API response envelope.
//
// The vendor speaks a JSON:API-flavoured dialect: every response body is a
// document carrying either primary data (one resource or a list), an error
// list, or bare metadata. Resources reference each other through named
// relationships, and related resources may arrive inline ("included"),
// in a separate response, or paginated across several responses.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                      jsonapi (parse layer)                       │
//	│                                                                  │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │    Document    │   │    Resource    │   │   Relationship   │  │
//	│  │ (document.go)  │──▶│ (resource.go)  │──▶│(relationship.go) │  │
//	│  │                │   │                │   │                  │  │
//	│  │ • success      │   │ • id coercion  │   │ • data variant   │  │
//	│  │ • failure      │   │ • attributes   │   │ • links variant  │  │
//	│  │ • meta         │   │ • passthrough  │   │ • meta variant   │  │
//	│  └────────────────┘   └────────────────┘   └──────────────────┘  │
//	│           │                                                      │
//	└───────────│──────────────────────────────────────────────────────┘
//	            ▼
//	┌──────────────────────┐
//	│   graph.Graph        │
//	│ (resource resolver)  │
//	└──────────────────────┘
//
// # Parsing
//
// ParseDocument is a two-phase parse. Phase one decodes the raw body and
// classifies it into exactly one document kind by which top-level keys are
// present (data, errors, or bare meta). Phase two validates each resource
// and relationship structurally. Numbers are decoded as json.Number so
// attribute values survive re-serialisation without loss.
//
// The vendor omits and mis-shapes fields routinely, so the parse degrades
// rather than fails wherever a defect can be isolated: a broken resource
// inside "included" or inside a data list is dropped and recorded in
// Document.Warnings. Only an unclassifiable body, or a defective single
// primary resource, is a hard ErrMalformedResponse.
//
// # Identifier normalisation
//
// Identity endpoints return integer ids while device endpoints return
// strings. All ids are normalised to strings at parse time; nothing
// downstream ever sees a numeric id.
//
// # Field-name translation
//
// Wire attribute names are camelCase; internal names are snake_case.
// Translator converts known names in both directions and passes unknown
// names through verbatim, so fields the vendor adds tomorrow are never
// dropped. CamelToSnake and SnakeToCamel are the generic helpers used to
// build translation tables.
//
// # Usage
//
//	doc, err := jsonapi.ParseDocument(body)
//	if err != nil {
//	    return err // wraps jsonapi.ErrMalformedResponse
//	}
//	switch doc.Kind {
//	case jsonapi.DocumentSuccess:
//	    for _, res := range doc.Data {
//	        // res.Attributes, res.Relationships ...
//	    }
//	case jsonapi.DocumentFailure:
//	    // doc.Errors
//	}
//
// This package performs no I/O and holds no state; it is purely
// transformational.
package jsonapi
