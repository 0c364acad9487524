package jsonapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ResourceIdentifier names one resource by type and id. Immutable once
// parsed. Ids are always strings; numeric wire ids are normalised during
// parsing.
type ResourceIdentifier struct {
	ID   string
	Type string
	Meta map[string]any
}

// Valid reports whether both id and type are present.
func (ri ResourceIdentifier) Valid() bool {
	return ri.ID != "" && ri.Type != ""
}

// String renders "type/id" for logs.
func (ri ResourceIdentifier) String() string {
	return ri.Type + "/" + ri.ID
}

// MarshalJSON emits the wire shape of an identifier.
func (ri ResourceIdentifier) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	out["id"] = ri.ID
	out["type"] = ri.Type
	if ri.Meta != nil {
		out["meta"] = ri.Meta
	}
	return json.Marshal(out)
}

// Resource is one typed, identified entity from a vendor document. It is
// owned by the Document that parsed it; the graph references resources
// without copying them.
//
// A resource that arrived as a bare identifier (relationship endpoints do
// this) has nil Attributes and Relationships.
type Resource struct {
	ID            string
	Type          string
	Attributes    map[string]any
	Relationships map[string]Relationship
	Links         Links
	Meta          map[string]any
}

// Identifier returns the resource's identifier.
func (r *Resource) Identifier() ResourceIdentifier {
	return ResourceIdentifier{ID: r.ID, Type: r.Type}
}

// Attr returns the named attribute value. Safe on a nil resource.
func (r *Resource) Attr(key string) (any, bool) {
	if r == nil || r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[key]
	return v, ok
}

// MarshalJSON emits the wire shape, keeping only the keys that were present
// when the resource was parsed. Attribute values round-trip losslessly
// because numbers are held as json.Number.
func (r *Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 6)
	out["id"] = r.ID
	out["type"] = r.Type
	if r.Attributes != nil {
		out["attributes"] = r.Attributes
	}
	if r.Relationships != nil {
		out["relationships"] = r.Relationships
	}
	if r.Links != nil {
		out["links"] = r.Links
	}
	if r.Meta != nil {
		out["meta"] = r.Meta
	}
	return json.Marshal(out)
}

type rawResource struct {
	ID            json.RawMessage            `json:"id"`
	Type          string                     `json:"type"`
	Attributes    map[string]any             `json:"attributes"`
	Relationships map[string]json.RawMessage `json:"relationships"`
	Links         Links                      `json:"links"`
	Meta          map[string]any             `json:"meta"`
}

// parseResource validates one resource object. In strict mode a defective
// relationship fails the whole resource; otherwise the relationship is
// dropped and recorded as a warning.
func parseResource(raw json.RawMessage, strict bool) (*Resource, []string, error) {
	var rr rawResource
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rr); err != nil {
		return nil, nil, fmt.Errorf("decoding resource: %v", err)
	}

	id, err := stringish(rr.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if id == "" {
		return nil, nil, ErrMissingID
	}
	if rr.Type == "" {
		return nil, nil, ErrMissingType
	}

	res := &Resource{
		ID:         id,
		Type:       rr.Type,
		Attributes: rr.Attributes,
		Links:      rr.Links,
		Meta:       rr.Meta,
	}

	var warnings []string
	if rr.Relationships != nil {
		res.Relationships = make(map[string]Relationship, len(rr.Relationships))
		for name, rawRel := range rr.Relationships {
			rel, relErr := parseRelationship(rawRel)
			if relErr != nil {
				if strict {
					return nil, nil, fmt.Errorf("relationship %q: %w", name, relErr)
				}
				warnings = append(warnings,
					fmt.Sprintf("%s/%s: relationship %q dropped: %v", rr.Type, id, name, relErr))
				continue
			}
			res.Relationships[name] = rel
		}
	}

	return res, warnings, nil
}

// parseIdentifier validates one resource identifier object.
func parseIdentifier(raw json.RawMessage) (ResourceIdentifier, error) {
	var ri struct {
		ID   json.RawMessage `json:"id"`
		Type string          `json:"type"`
		Meta map[string]any  `json:"meta"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ri); err != nil {
		return ResourceIdentifier{}, fmt.Errorf("decoding identifier: %v", err)
	}

	id, err := stringish(ri.ID)
	if err != nil {
		return ResourceIdentifier{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if id == "" {
		return ResourceIdentifier{}, ErrMissingID
	}
	if ri.Type == "" {
		return ResourceIdentifier{}, ErrMissingType
	}

	return ResourceIdentifier{ID: id, Type: ri.Type, Meta: ri.Meta}, nil
}

// stringish decodes a value that may arrive as a string or a number,
// normalising to string form. Absent and null values return empty with no
// error; the caller decides whether that is fatal.
func stringish(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	switch firstByte(raw) {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding string: %v", err)
		}
		return s, nil
	case '{', '[', 't', 'f':
		return "", errors.New("value is neither string nor number")
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("decoding number: %v", err)
		}
		return n.String(), nil
	}
}
