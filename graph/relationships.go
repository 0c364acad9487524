package graph

import "github.com/nerrad567/sentra-bridge/jsonapi"

// Relationship accessors. All of them tolerate nil resources, missing
// relationships and shape mismatches by reporting absence; none of them
// panic on vendor data.

// HasOne returns the identifier of a to-one relationship. The second
// return is false when the relationship is missing, carries no data, is
// explicitly null, or is shaped as a list.
func HasOne(res *jsonapi.Resource, key string) (jsonapi.ResourceIdentifier, bool) {
	rel, ok := dataRelationship(res, key)
	if !ok || !rel.Single || rel.NullData || len(rel.Data) != 1 {
		return jsonapi.ResourceIdentifier{}, false
	}
	return rel.Data[0], true
}

// HasMany returns the identifiers of a to-many relationship. Nil when the
// relationship is missing, carries no data, or is shaped as a single
// object. An empty list returns nil too; callers cannot distinguish an
// empty to-many from an absent one, and do not need to.
func HasMany(res *jsonapi.Resource, key string) []jsonapi.ResourceIdentifier {
	rel, ok := dataRelationship(res, key)
	if !ok || rel.Single {
		return nil
	}
	if len(rel.Data) == 0 {
		return nil
	}
	out := make([]jsonapi.ResourceIdentifier, len(rel.Data))
	copy(out, rel.Data)
	return out
}

// AllRelatedIDs returns the set of ids referenced by every data-bearing
// relationship of a resource, whatever its shape.
func AllRelatedIDs(res *jsonapi.Resource) map[string]struct{} {
	out := make(map[string]struct{})
	if res == nil {
		return out
	}
	for _, rel := range res.Relationships {
		if rel.Kind != jsonapi.RelData {
			continue
		}
		for _, ri := range rel.Data {
			if ri.ID != "" {
				out[ri.ID] = struct{}{}
			}
		}
	}
	return out
}

func dataRelationship(res *jsonapi.Resource, key string) (jsonapi.Relationship, bool) {
	if res == nil || res.Relationships == nil {
		return jsonapi.Relationship{}, false
	}
	rel, ok := res.Relationships[key]
	if !ok || rel.Kind != jsonapi.RelData {
		return jsonapi.Relationship{}, false
	}
	return rel, true
}
