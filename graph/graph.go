package graph

import (
	"sort"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// Key identifies one node in the graph.
type Key struct {
	Type string
	ID   string
}

// Graph indexes resources by (type, id). Not safe for concurrent use; see
// the package documentation for the ownership model.
type Graph struct {
	nodes map[Key]*jsonapi.Resource
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[Key]*jsonapi.Resource)}
}

// Add ingests every resource of a document, primary and included alike.
// A resource whose key is already present merges into the stored one: the
// newer document wins per attribute key and per relationship name, and
// keys only the older resource carried survive. Adding the same document
// twice is a no-op beyond the first.
func (g *Graph) Add(doc *jsonapi.Document) {
	if doc == nil {
		return
	}
	for _, res := range doc.AllResources() {
		g.put(res)
	}
}

func (g *Graph) put(res *jsonapi.Resource) {
	if res == nil || res.ID == "" || res.Type == "" {
		return
	}
	key := Key{Type: res.Type, ID: res.ID}

	old, ok := g.nodes[key]
	if !ok {
		g.nodes[key] = res
		return
	}

	// Newest resource becomes the node; attribute and relationship keys
	// the newer document omitted carry over from the old node.
	if old.Attributes != nil {
		if res.Attributes == nil {
			res.Attributes = make(map[string]any, len(old.Attributes))
		}
		for k, v := range old.Attributes {
			if _, present := res.Attributes[k]; !present {
				res.Attributes[k] = v
			}
		}
	}
	if old.Relationships != nil {
		if res.Relationships == nil {
			res.Relationships = make(map[string]jsonapi.Relationship, len(old.Relationships))
		}
		for k, v := range old.Relationships {
			if _, present := res.Relationships[k]; !present {
				res.Relationships[k] = v
			}
		}
	}
	if res.Links == nil {
		res.Links = old.Links
	}
	if res.Meta == nil {
		res.Meta = old.Meta
	}

	g.nodes[key] = res
}

// Get returns the resource stored under (typ, id), or nil when absent.
func (g *Graph) Get(typ, id string) *jsonapi.Resource {
	return g.nodes[Key{Type: typ, ID: id}]
}

// Resolve returns the resource an identifier points at, or nil when the
// identifier is invalid or the resource is not in the graph.
func (g *Graph) Resolve(ri jsonapi.ResourceIdentifier) *jsonapi.Resource {
	if !ri.Valid() {
		return nil
	}
	return g.Get(ri.Type, ri.ID)
}

// Len returns the number of resources in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// OfType returns all resources of one type, sorted by id.
func (g *Graph) OfType(typ string) []*jsonapi.Resource {
	var out []*jsonapi.Resource
	for key, res := range g.nodes {
		if key.Type == typ {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resources returns every resource, sorted by type then id.
func (g *Graph) Resources() []*jsonapi.Resource {
	out := make([]*jsonapi.Resource, 0, len(g.nodes))
	for _, res := range g.nodes {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Types returns the distinct resource types present, sorted.
func (g *Graph) Types() []string {
	seen := make(map[string]struct{})
	for key := range g.nodes {
		seen[key.Type] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for typ := range seen {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// ApplyAttributes patches the stored resource's attributes, newer values
// winning per key. It reports false when (typ, id) is not in the graph, so
// the caller can log the dangling reference and move on.
func (g *Graph) ApplyAttributes(typ, id string, attrs map[string]any) bool {
	res := g.Get(typ, id)
	if res == nil {
		return false
	}
	if len(attrs) == 0 {
		return true
	}
	if res.Attributes == nil {
		res.Attributes = make(map[string]any, len(attrs))
	}
	for k, v := range attrs {
		res.Attributes[k] = v
	}
	return true
}

// RelatedOne resolves a to-one relationship through the graph. Nil when
// the relationship is absent, not a to-one, or points at a resource the
// graph does not hold.
func (g *Graph) RelatedOne(res *jsonapi.Resource, key string) *jsonapi.Resource {
	ri, ok := HasOne(res, key)
	if !ok {
		return nil
	}
	return g.Resolve(ri)
}

// RelatedMany resolves a to-many relationship through the graph, skipping
// identifiers that do not resolve.
func (g *Graph) RelatedMany(res *jsonapi.Resource, key string) []*jsonapi.Resource {
	ids := HasMany(res, key)
	if len(ids) == 0 {
		return nil
	}
	out := make([]*jsonapi.Resource, 0, len(ids))
	for _, ri := range ids {
		if target := g.Resolve(ri); target != nil {
			out = append(out, target)
		}
	}
	return out
}
