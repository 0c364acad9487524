// Package graph holds the in-memory resource graph assembled from parsed
// vendor documents.
//
// The graph is a flat index of resources keyed by (type, id). Documents
// feed it; relationship helpers walk it. It is the working set a poll
// builds up before device projection runs over it.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                       Resource Graph                       │
//	│                                                            │
//	│  ┌─────────────────┐         ┌──────────────────────────┐  │
//	│  │      Graph      │         │   Relationship helpers   │  │
//	│  │   (graph.go)    │────────▶│   (relationships.go)     │  │
//	│  │                 │         │                          │  │
//	│  │ • Add documents │         │ • HasOne / HasMany       │  │
//	│  │ • Merge by key  │         │ • AllRelatedIDs          │  │
//	│  │ • Resolve ids   │         │ • RelatedOne/RelatedMany │  │
//	│  └─────────────────┘         └──────────────────────────┘  │
//	└────────────────────────────────────────────────────────────┘
//	             ▲
//	             │ jsonapi.Document per fetched page
//	             │
//	      vendor API poll
//
// # Ownership
//
// A Graph is owned by a single goroutine and is not safe for concurrent
// use. The poll loop builds a fresh graph, then the finished graph is
// swapped in whole; readers never observe a half-built graph. Add takes
// ownership of the document's resources, so a document must not be reused
// after being added.
//
// # Lookups
//
// Every lookup degrades to an absent result instead of failing: Resolve
// returns nil for an unknown identifier, HasOne reports false when the
// relationship is missing or is not a to-one, HasMany returns nil when it
// is not a to-many. Dangling references are the caller's to log.
//
// # Usage
//
//	g := graph.New()
//	for _, doc := range pages {
//	    g.Add(doc)
//	}
//
//	partition := g.Get("devices/partition", "123")
//	system := g.RelatedOne(partition, "system")
//	for _, sensor := range g.RelatedMany(partition, "sensors") {
//	    // project sensor
//	}
package graph
