package stream

import (
	"bytes"
	"encoding/json"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// EventMessage is a per-device activity event: a state transition or a
// discrete occurrence such as a lock bolt throw. Value carries the
// event's payload number, whose meaning depends on Type.
type EventMessage struct {
	DeviceID     string    `mapstructure:"DeviceId"`
	Type         EventType `mapstructure:"EventType"`
	Value        float64   `mapstructure:"EventValue"`
	QstringExtra string    `mapstructure:"QstringForExtraData"`
	CorrelatedID string    `mapstructure:"CorrelatedId"`
	Date         time.Time `mapstructure:"EventDateUtc"`
}

// ExtraData decodes the QstringForExtraData payload, which the vendor
// URL-query-encodes. Absent or undecodable extra data yields nil.
func (m EventMessage) ExtraData() url.Values {
	if m.QstringExtra == "" {
		return nil
	}
	vals, err := url.ParseQuery(m.QstringExtra)
	if err != nil {
		return nil
	}
	return vals
}

// PropertyChangeMessage is a numeric property update, typically a
// thermostat temperature or a light colour.
type PropertyChangeMessage struct {
	DeviceID     string       `mapstructure:"DeviceId"`
	Property     PropertyType `mapstructure:"Property"`
	Value        float64      `mapstructure:"PropertyValue"`
	QstringExtra string       `mapstructure:"QstringForExtraData"`
	Date         time.Time    `mapstructure:"ChangeDateUtc"`
}

// StatusChangeMessage is a device status update carrying the new state
// number and the vendor's raw flag mask.
type StatusChangeMessage struct {
	DeviceID string    `mapstructure:"DeviceId"`
	NewState int       `mapstructure:"NewState"`
	FlagMask int64     `mapstructure:"FlagMask"`
	Date     time.Time `mapstructure:"EventDateUtc"`
}

// MonitoringEventMessage is an account-level monitoring notice tied to a
// vendor-side record by its correlation id.
type MonitoringEventMessage struct {
	DeviceID     string    `mapstructure:"DeviceId"`
	Type         EventType `mapstructure:"EventType"`
	Value        float64   `mapstructure:"EventValue"`
	CorrelatedID string    `mapstructure:"CorrelatedId"`
	Date         time.Time `mapstructure:"EventDateUtc"`
}

// GeofenceMessage is a geofence crossing notice. It is recognised so it
// does not count as an unknown shape, but nothing routes it.
type GeofenceMessage struct {
	FenceID  int  `mapstructure:"FenceId"`
	IsInside bool `mapstructure:"IsInsideNow"`
}

// Classify recognises a decoded push payload by its key set and returns
// the matching typed message. Order matters: events and monitoring
// events share EventType, and only the qstring key separates them.
func Classify(raw map[string]any) (any, error) {
	switch {
	case hasKeys(raw, "FenceId", "IsInsideNow"):
		var m GeofenceMessage
		if err := decodeInto(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case hasKeys(raw, "EventType", "EventValue", "QstringForExtraData"):
		var m EventMessage
		if err := decodeInto(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case hasKeys(raw, "EventType", "CorrelatedId"):
		var m MonitoringEventMessage
		if err := decodeInto(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case hasKeys(raw, "Property", "PropertyValue"):
		var m PropertyChangeMessage
		if err := decodeInto(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case hasKeys(raw, "NewState", "FlagMask"):
		var m StatusChangeMessage
		if err := decodeInto(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrUnknownMessage
	}
}

func hasKeys(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			return false
		}
	}
	return true
}

// decodeRaw parses one push payload into a key map. UseNumber keeps
// numeric device ids lossless until the typed decode picks a Go type.
func decodeRaw(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeInto(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToUTCTimeHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// The vendor omits the zone designator on most push dates; naive
// timestamps are UTC.
var pushTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func stringToUTCTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range pushTimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return nil, lastErr
}
