package device

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// resourceFixture parses a single-resource document and returns its
// primary resource.
func resourceFixture(t *testing.T, body string) *jsonapi.Resource {
	t.Helper()
	doc, err := jsonapi.ParseDocument([]byte(body))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc.Data[0]
}

func TestProject_Light(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "41", "type": "devices/light", "attributes": {
		"description": "Porch Light",
		"state": 1,
		"desiredState": 1,
		"lightLevel": 80,
		"lowBattery": false,
		"isMalfunctioning": false
	}}}`)

	d, ok := Project(res, time.Now())
	if !ok {
		t.Fatal("Project() ok = false, want true")
	}

	if d.ID != "41" || d.Type != TypeLight {
		t.Errorf("identity = %q/%q, want devices/light 41", d.Type, d.ID)
	}
	if d.Name != "Porch Light" {
		t.Errorf("Name = %q, want %q", d.Name, "Porch Light")
	}
	if d.ActualState != LightOn {
		t.Errorf("ActualState = %d, want LightOn", int(d.ActualState))
	}
	if got := d.StateLabel(); got != "on" {
		t.Errorf("StateLabel() = %q, want %q", got, "on")
	}
	if !d.Reconciled() {
		t.Error("Reconciled() = false, want true when desired equals actual")
	}
	if d.DesiredSince != nil {
		t.Error("DesiredSince set on a converged device")
	}
	if v, ok := d.RawAttributes["light_level"]; !ok || v != json.Number("80") {
		t.Errorf("RawAttributes[light_level] = %v, want 80 under its internal name", v)
	}
}

func TestProject_PendingDesiredState(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "7", "type": "devices/lock", "attributes": {
		"description": "Front Door",
		"state": 2,
		"desiredState": 1
	}}}`)

	now := time.Now()
	d, ok := Project(res, now)
	if !ok {
		t.Fatal("Project() ok = false, want true")
	}

	if d.Reconciled() {
		t.Error("Reconciled() = true, want false while desired differs")
	}
	if d.DesiredState == nil || *d.DesiredState != LockLocked {
		t.Errorf("DesiredState = %v, want LockLocked", d.DesiredState)
	}
	if d.DesiredSince == nil || !d.DesiredSince.Equal(now) {
		t.Errorf("DesiredSince = %v, want projection time", d.DesiredSince)
	}
}

func TestProject_BatteryAndMalfunction(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "9", "type": "devices/sensor", "attributes": {
		"description": "Garage Door Sensor",
		"state": 2,
		"criticalBattery": true,
		"lowBattery": false,
		"isMalfunctioning": true
	}}}`)

	d, _ := Project(res, time.Now())
	if !d.LowBattery {
		t.Error("LowBattery = false, want true when critical battery flagged")
	}
	if !d.Malfunction {
		t.Error("Malfunction = false, want true")
	}
}

func TestProject_UnknownAttributesSurvive(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "12", "type": "devices/thermostat", "attributes": {
		"description": "Hallway",
		"state": 4,
		"ambientTemp": 21.5,
		"someFutureVendorKey": {"a": [1, 2]}
	}}}`)

	d, _ := Project(res, time.Now())

	if v, ok := d.RawAttributes["ambient_temp"]; !ok || v != json.Number("21.5") {
		t.Errorf("RawAttributes[ambient_temp] = %v, want 21.5", v)
	}
	// Keys the translation table does not know pass through verbatim.
	if _, ok := d.RawAttributes["someFutureVendorKey"]; !ok {
		t.Error("unmapped attribute key lost in projection")
	}
}

func TestProject_UnprojectedTypes(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "1", "type": "identity", "attributes": {"email": "user@example.com"}}}`)
	if _, ok := Project(res, time.Now()); ok {
		t.Error("Project(identity) ok = true, want false")
	}
	if _, ok := Project(nil, time.Now()); ok {
		t.Error("Project(nil) ok = true, want false")
	}
}

func TestProject_IsolatedFromGraph(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "3", "type": "devices/sensor", "attributes": {
		"description": "Window", "state": 1, "extra": {"nested": "x"}
	}}}`)

	d, _ := Project(res, time.Now())

	res.Attributes["description"] = "Mutated"
	res.Attributes["extra"].(map[string]any)["nested"] = "mutated"

	if d.RawAttributes["description"] != "Window" {
		t.Error("projected device aliases the graph resource's attributes")
	}
	if d.RawAttributes["extra"].(map[string]any)["nested"] != "x" {
		t.Error("projected device aliases nested attribute values")
	}
}

func TestDevice_MergeUpdate(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "5", "type": "devices/garage-door", "attributes": {
		"description": "Main Garage",
		"state": 2,
		"lowBattery": false
	}}}`)
	d, _ := Project(res, time.Now())

	d.MergeUpdate(map[string]any{"state": json.Number("1")})

	if d.ActualState != GarageOpen {
		t.Errorf("ActualState = %d, want GarageOpen after merge", int(d.ActualState))
	}
	if d.Name != "Main Garage" {
		t.Errorf("Name = %q, want retained across partial update", d.Name)
	}
	if _, ok := d.RawAttributes["low_battery"]; !ok {
		t.Error("untouched attribute dropped by partial update")
	}
}

func TestDevice_DeepCopy(t *testing.T) {
	res := resourceFixture(t, `{"data": {"id": "8", "type": "devices/light", "attributes": {
		"description": "Lamp", "state": 2, "desiredState": 1, "lightLevel": 40
	}}}`)
	d, _ := Project(res, time.Now())

	cpy := d.DeepCopy()
	cpy.RawAttributes["description"] = "Changed"
	*cpy.DesiredState = LightOff

	if d.RawAttributes["description"] != "Lamp" {
		t.Error("DeepCopy shares RawAttributes with the original")
	}
	if *d.DesiredState != LightOn {
		t.Error("DeepCopy shares DesiredState with the original")
	}

	var nilDev *Device
	if nilDev.DeepCopy() != nil {
		t.Error("DeepCopy(nil) != nil")
	}
}
