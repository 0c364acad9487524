package jsonapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RelationshipKind marks which payload anchors a relationship. The vendor
// emits three shapes; the kind is decided once at parse time by which keys
// are present, with data taking precedence over links, and links over meta.
type RelationshipKind string

// Relationship kinds.
const (
	// RelData is a relationship whose data key was present (possibly null).
	RelData RelationshipKind = "data"

	// RelLinks is a relationship carrying links but no data.
	RelLinks RelationshipKind = "links"

	// RelMeta is a relationship carrying only meta.
	RelMeta RelationshipKind = "meta"
)

// Relationship is a named link from one resource to one or many others.
//
// All three payload fields may be populated; Kind names the one that made
// the relationship valid. Data semantics:
//
//	Single && !NullData → has-one, Data holds exactly one identifier
//	NullData            → empty has-one ("data": null on the wire)
//	!Single             → has-many, Data holds zero or more identifiers
type Relationship struct {
	Kind     RelationshipKind
	Data     []ResourceIdentifier
	Single   bool
	NullData bool
	Links    Links
	Meta     map[string]any
}

type rawRelationship struct {
	Data  json.RawMessage `json:"data"`
	Links Links           `json:"links"`
	Meta  map[string]any  `json:"meta"`
}

// parseRelationship validates one relationship object. A relationship with
// none of data, links or meta fails with ErrEmptyRelationship.
func parseRelationship(raw json.RawMessage) (Relationship, error) {
	var rr rawRelationship
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rr); err != nil {
		return Relationship{}, fmt.Errorf("decoding relationship: %v", err)
	}

	rel := Relationship{Links: rr.Links, Meta: rr.Meta}

	switch {
	case len(rr.Data) > 0:
		rel.Kind = RelData
		if err := rel.decodeData(rr.Data); err != nil {
			return Relationship{}, err
		}
	case rr.Links != nil:
		rel.Kind = RelLinks
	case rr.Meta != nil:
		rel.Kind = RelMeta
	default:
		return Relationship{}, ErrEmptyRelationship
	}

	return rel, nil
}

func (rel *Relationship) decodeData(raw json.RawMessage) error {
	switch firstByte(raw) {
	case 'n':
		rel.Single = true
		rel.NullData = true
	case '{':
		ri, err := parseIdentifier(raw)
		if err != nil {
			return err
		}
		rel.Single = true
		rel.Data = []ResourceIdentifier{ri}
	case '[':
		items, err := rawList(raw)
		if err != nil {
			return fmt.Errorf("decoding identifier list: %v", err)
		}
		rel.Data = make([]ResourceIdentifier, 0, len(items))
		for _, item := range items {
			ri, idErr := parseIdentifier(item)
			if idErr != nil {
				return idErr
			}
			rel.Data = append(rel.Data, ri)
		}
	default:
		return errors.New("relationship data is neither object, list nor null")
	}
	return nil
}

// MarshalJSON emits the wire shape, restoring single-vs-list and null data
// forms.
func (rel Relationship) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)

	if rel.Kind == RelData {
		switch {
		case rel.NullData:
			out["data"] = nil
		case rel.Single && len(rel.Data) == 1:
			out["data"] = rel.Data[0]
		default:
			out["data"] = rel.Data
		}
	}
	if rel.Links != nil {
		out["links"] = rel.Links
	}
	if rel.Meta != nil {
		out["meta"] = rel.Meta
	}
	return json.Marshal(out)
}
