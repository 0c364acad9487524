package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DocumentKind identifies which of the three envelope shapes a parsed
// document carries.
type DocumentKind string

// Document kinds.
const (
	// DocumentSuccess carries primary data plus optional included resources.
	DocumentSuccess DocumentKind = "success"

	// DocumentFailure carries a non-empty error list.
	DocumentFailure DocumentKind = "failure"

	// DocumentMeta carries metadata only, with no primary data.
	DocumentMeta DocumentKind = "meta"
)

// Document is one parsed vendor response body. Exactly one kind applies;
// fields outside the active kind hold their zero values.
type Document struct {
	Kind DocumentKind

	// Data holds the primary resources of a success document. A single
	// resource on the wire parses to a one-element slice with Single set.
	Data []*Resource

	// Single records that the wire carried one object rather than a list,
	// so re-serialisation keeps the original shape.
	Single bool

	// NullData records an explicit "data": null.
	NullData bool

	// Included holds auxiliary resources embedded alongside primary data.
	Included []*Resource

	// Links holds document-level links; pagination lives here.
	Links Links

	// Errors holds the error list of a failure document.
	Errors []Error

	// Meta holds document metadata. May be present on any kind.
	Meta map[string]any

	// Warnings records resources and relationships dropped during parsing
	// because they were structurally unusable. Warnings never abort a
	// parse; only an unclassifiable body does.
	Warnings []string
}

type rawDocument struct {
	Data     json.RawMessage `json:"data"`
	Errors   json.RawMessage `json:"errors"`
	Included json.RawMessage `json:"included"`
	Links    Links           `json:"links"`
	Meta     map[string]any  `json:"meta"`
}

// ParseDocument deserialises a response body into exactly one of the three
// document kinds, classified by which top-level keys are present. A body
// with both data and errors, or with none of data/errors/meta, fails with
// ErrMalformedResponse.
//
// Numbers decode as json.Number, so attribute values re-serialise without
// loss. A defective resource inside a data list or inside included is
// dropped and recorded in Warnings; a defective single primary resource is
// a hard failure.
func ParseDocument(body []byte) (*Document, error) {
	var raw rawDocument
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	hasData := len(raw.Data) > 0
	hasErrors := len(raw.Errors) > 0

	switch {
	case hasData && hasErrors:
		return nil, fmt.Errorf("%w: document carries both data and errors", ErrMalformedResponse)
	case hasData:
		return parseSuccess(raw)
	case hasErrors:
		return parseFailure(raw)
	case len(raw.Meta) > 0:
		return &Document{Kind: DocumentMeta, Meta: raw.Meta}, nil
	default:
		return nil, fmt.Errorf("%w: document has no data, errors or meta", ErrMalformedResponse)
	}
}

func parseSuccess(raw rawDocument) (*Document, error) {
	doc := &Document{
		Kind:  DocumentSuccess,
		Links: raw.Links,
		Meta:  raw.Meta,
	}

	switch firstByte(raw.Data) {
	case 'n':
		doc.Single = true
		doc.NullData = true
	case '{':
		res, warns, err := parseResource(raw.Data, true)
		if err != nil {
			return nil, fmt.Errorf("%w: primary resource: %w", ErrMalformedResponse, err)
		}
		doc.Warnings = append(doc.Warnings, warns...)
		doc.Data = []*Resource{res}
		doc.Single = true
	case '[':
		items, err := rawList(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding data list: %v", ErrMalformedResponse, err)
		}
		doc.Data = make([]*Resource, 0, len(items))
		for i, item := range items {
			res, warns, resErr := parseResource(item, false)
			doc.Warnings = append(doc.Warnings, warns...)
			if resErr != nil {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("data[%d] dropped: %v", i, resErr))
				continue
			}
			doc.Data = append(doc.Data, res)
		}
	default:
		return nil, fmt.Errorf("%w: data is neither object, list nor null", ErrMalformedResponse)
	}

	if len(raw.Included) > 0 {
		items, err := rawList(raw.Included)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding included: %v", ErrMalformedResponse, err)
		}
		doc.Included = make([]*Resource, 0, len(items))
		for i, item := range items {
			res, warns, resErr := parseResource(item, false)
			doc.Warnings = append(doc.Warnings, warns...)
			if resErr != nil {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("included[%d] dropped: %v", i, resErr))
				continue
			}
			doc.Included = append(doc.Included, res)
		}
	}

	return doc, nil
}

func parseFailure(raw rawDocument) (*Document, error) {
	var errs []Error
	if err := json.Unmarshal(raw.Errors, &errs); err != nil {
		return nil, fmt.Errorf("%w: decoding errors: %v", ErrMalformedResponse, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: errors list is empty", ErrMalformedResponse)
	}
	return &Document{
		Kind:   DocumentFailure,
		Errors: errs,
		Links:  raw.Links,
		Meta:   raw.Meta,
	}, nil
}

// AllResources returns primary and included resources in document order.
func (d *Document) AllResources() []*Resource {
	if d == nil {
		return nil
	}
	out := make([]*Resource, 0, len(d.Data)+len(d.Included))
	out = append(out, d.Data...)
	return append(out, d.Included...)
}

// MarshalJSON emits the wire shape of the document, restoring the original
// single-vs-list and null-data forms.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)

	switch d.Kind {
	case DocumentSuccess:
		switch {
		case d.NullData:
			out["data"] = nil
		case d.Single && len(d.Data) > 0:
			out["data"] = d.Data[0]
		case d.Data == nil:
			out["data"] = []*Resource{}
		default:
			out["data"] = d.Data
		}
		if d.Included != nil {
			out["included"] = d.Included
		}
	case DocumentFailure:
		out["errors"] = d.Errors
	case DocumentMeta:
		// Meta-only; nothing beyond the shared fields below.
	}

	if d.Links != nil {
		out["links"] = d.Links
	}
	if d.Meta != nil {
		out["meta"] = d.Meta
	}
	return json.Marshal(out)
}

// Error is one entry in a failure document's error list.
type Error struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ErrorSource locates the part of the request an error refers to.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// UnmarshalJSON tolerates numeric id, status and code values, which some
// vendor endpoints emit despite the envelope using strings elsewhere.
func (e *Error) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Status json.RawMessage `json:"status"`
		Code   json.RawMessage `json:"code"`
		Title  string          `json:"title"`
		Detail string          `json:"detail"`
		Source *ErrorSource    `json:"source"`
		Meta   map[string]any  `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding error object: %v", err)
	}

	var err error
	if e.ID, err = stringish(raw.ID); err != nil {
		return fmt.Errorf("error id: %w", err)
	}
	if e.Status, err = stringish(raw.Status); err != nil {
		return fmt.Errorf("error status: %w", err)
	}
	if e.Code, err = stringish(raw.Code); err != nil {
		return fmt.Errorf("error code: %w", err)
	}
	e.Title = raw.Title
	e.Detail = raw.Detail
	e.Source = raw.Source
	e.Meta = raw.Meta
	return nil
}

// String renders a compact "status title" form for logs.
func (e Error) String() string {
	text := e.Title
	if text == "" {
		text = e.Detail
	}
	if text == "" {
		text = e.Code
	}
	switch {
	case e.Status != "" && text != "":
		return e.Status + " " + text
	case e.Status != "":
		return e.Status
	case text != "":
		return text
	default:
		return "unknown error"
	}
}

// rawList splits a JSON array into its raw elements.
func rawList(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// firstByte returns the first non-whitespace byte of a raw JSON value.
func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
