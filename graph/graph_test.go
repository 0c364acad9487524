package graph

import (
	"encoding/json"
	"testing"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

func parseDoc(t *testing.T, body string) *jsonapi.Document {
	t.Helper()
	doc, err := jsonapi.ParseDocument([]byte(body))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

func TestGraph_Add(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{
		"data": [
			{"id": "1", "type": "devices/sensor", "attributes": {"state": 2}},
			{"id": "2", "type": "devices/sensor", "attributes": {"state": 1}}
		],
		"included": [
			{"id": "9", "type": "systems/system", "attributes": {"description": "Home"}}
		]
	}`))

	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}
	if res := g.Get("devices/sensor", "1"); res == nil {
		t.Error("Get(devices/sensor, 1) = nil, want resource")
	}
	if res := g.Get("systems/system", "9"); res == nil {
		t.Error("included resource not indexed")
	}
	if res := g.Get("devices/sensor", "404"); res != nil {
		t.Errorf("Get(absent) = %v, want nil", res)
	}
}

func TestGraph_AddMergesPerKey(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": {"id": "1", "type": "devices/light", "attributes": {
		"state": 2, "description": "Porch", "lightLevel": 80
	}}}`))

	// A later document updates state only; other keys must survive.
	g.Add(parseDoc(t, `{"data": {"id": "1", "type": "devices/light", "attributes": {
		"state": 1
	}}}`))

	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
	res := g.Get("devices/light", "1")
	if v, _ := res.Attr("state"); v != json.Number("1") {
		t.Errorf("state = %v, want 1", v)
	}
	if v, _ := res.Attr("description"); v != "Porch" {
		t.Errorf("description = %v, want Porch", v)
	}
	if v, _ := res.Attr("lightLevel"); v != json.Number("80") {
		t.Errorf("lightLevel = %v, want 80", v)
	}
}

func TestGraph_AddMergesRelationships(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": {"id": "1", "type": "devices/partition", "relationships": {
		"system": {"data": {"id": "9", "type": "systems/system"}}
	}}}`))
	g.Add(parseDoc(t, `{"data": {"id": "1", "type": "devices/partition", "relationships": {
		"sensors": {"data": [{"id": "3", "type": "devices/sensor"}]}
	}}}`))

	res := g.Get("devices/partition", "1")
	if _, ok := HasOne(res, "system"); !ok {
		t.Error("relationship system lost in merge")
	}
	if ids := HasMany(res, "sensors"); len(ids) != 1 {
		t.Errorf("HasMany(sensors) = %v, want one identifier", ids)
	}
}

func TestGraph_AddIdempotent(t *testing.T) {
	body := `{"data": [{"id": "1", "type": "devices/lock", "attributes": {"state": 1}}]}`

	g := New()
	g.Add(parseDoc(t, body))
	g.Add(parseDoc(t, body))

	if g.Len() != 1 {
		t.Errorf("Len() after duplicate add = %d, want 1", g.Len())
	}
	if v, _ := g.Get("devices/lock", "1").Attr("state"); v != json.Number("1") {
		t.Errorf("state = %v, want 1", v)
	}
}

func TestGraph_Resolve(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": {"id": "7", "type": "devices/garage-door"}}`))

	if res := g.Resolve(jsonapi.ResourceIdentifier{ID: "7", Type: "devices/garage-door"}); res == nil {
		t.Error("Resolve(known) = nil, want resource")
	}
	if res := g.Resolve(jsonapi.ResourceIdentifier{ID: "8", Type: "devices/garage-door"}); res != nil {
		t.Errorf("Resolve(unknown) = %v, want nil", res)
	}
	if res := g.Resolve(jsonapi.ResourceIdentifier{}); res != nil {
		t.Errorf("Resolve(zero identifier) = %v, want nil", res)
	}
}

func TestGraph_ApplyAttributes(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": {"id": "1", "type": "devices/light", "attributes": {"state": 2, "lightLevel": 60}}}`))

	t.Run("patches known resource per key", func(t *testing.T) {
		ok := g.ApplyAttributes("devices/light", "1", map[string]any{"state": json.Number("1")})
		if !ok {
			t.Fatal("ApplyAttributes() = false, want true")
		}
		res := g.Get("devices/light", "1")
		if v, _ := res.Attr("state"); v != json.Number("1") {
			t.Errorf("state = %v, want 1", v)
		}
		if v, _ := res.Attr("lightLevel"); v != json.Number("60") {
			t.Errorf("lightLevel = %v, want untouched 60", v)
		}
	})

	t.Run("reports false for unknown resource", func(t *testing.T) {
		if g.ApplyAttributes("devices/light", "404", map[string]any{"state": 1}) {
			t.Error("ApplyAttributes(unknown) = true, want false")
		}
	})
}

func TestGraph_OfType(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": [
		{"id": "2", "type": "devices/sensor"},
		{"id": "1", "type": "devices/sensor"},
		{"id": "5", "type": "devices/lock"}
	]}`))

	sensors := g.OfType("devices/sensor")
	if len(sensors) != 2 {
		t.Fatalf("OfType(devices/sensor) returned %d, want 2", len(sensors))
	}
	if sensors[0].ID != "1" || sensors[1].ID != "2" {
		t.Errorf("OfType() order = %q, %q, want sorted by id", sensors[0].ID, sensors[1].ID)
	}
	if got := g.OfType("devices/camera"); got != nil {
		t.Errorf("OfType(absent type) = %v, want nil", got)
	}
}

func TestGraph_Resources(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{"data": [
		{"id": "1", "type": "devices/sensor"},
		{"id": "1", "type": "devices/lock"}
	]}`))

	all := g.Resources()
	if len(all) != 2 {
		t.Fatalf("Resources() returned %d, want 2", len(all))
	}
	if all[0].Type != "devices/lock" {
		t.Errorf("Resources()[0].Type = %q, want devices/lock first", all[0].Type)
	}

	types := g.Types()
	if len(types) != 2 || types[0] != "devices/lock" || types[1] != "devices/sensor" {
		t.Errorf("Types() = %v, want sorted pair", types)
	}
}

func TestGraph_RelatedResolution(t *testing.T) {
	g := New()
	g.Add(parseDoc(t, `{
		"data": {"id": "p1", "type": "devices/partition", "relationships": {
			"system": {"data": {"id": "9", "type": "systems/system"}},
			"sensors": {"data": [
				{"id": "s1", "type": "devices/sensor"},
				{"id": "s2", "type": "devices/sensor"},
				{"id": "ghost", "type": "devices/sensor"}
			]}
		}},
		"included": [
			{"id": "9", "type": "systems/system"},
			{"id": "s1", "type": "devices/sensor"},
			{"id": "s2", "type": "devices/sensor"}
		]
	}`))

	partition := g.Get("devices/partition", "p1")

	if sys := g.RelatedOne(partition, "system"); sys == nil || sys.ID != "9" {
		t.Errorf("RelatedOne(system) = %v, want system 9", sys)
	}

	// The dangling identifier resolves to nothing and is skipped.
	sensors := g.RelatedMany(partition, "sensors")
	if len(sensors) != 2 {
		t.Errorf("RelatedMany(sensors) returned %d, want 2 resolvable", len(sensors))
	}

	if got := g.RelatedOne(partition, "sensors"); got != nil {
		t.Errorf("RelatedOne(to-many) = %v, want nil", got)
	}
	if got := g.RelatedMany(partition, "system"); got != nil {
		t.Errorf("RelatedMany(to-one) = %v, want nil", got)
	}
}
