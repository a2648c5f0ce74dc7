package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind discriminates the variants of a FieldValue.
type ValueKind string

const (
	KindText   ValueKind = "text"
	KindNumber ValueKind = "number"
	KindDate   ValueKind = "date"
	KindBool   ValueKind = "boolean"
)

// DateLayout is the storage layout for date values (date-only, UTC).
const DateLayout = "2006-01-02"

// FieldValue is a tagged variant: only the field named by Kind is
// meaningful. Construct via TextValue/NumberValue/DateValue/BoolValue.
// The JSON form is an envelope, {"kind": ..., "value": ...}, so the
// kind survives a round trip even when a text value looks like a date
// or a number.
type FieldValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	Date   time.Time
	Bool   bool
}

func TextValue(s string) FieldValue    { return FieldValue{Kind: KindText, Text: s} }
func NumberValue(f float64) FieldValue { return FieldValue{Kind: KindNumber, Number: f} }
func BoolValue(b bool) FieldValue      { return FieldValue{Kind: KindBool, Bool: b} }

func DateValue(t time.Time) FieldValue {
	// strip time to midnight UTC to match DATE semantics
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return FieldValue{Kind: KindDate, Date: d}
}

// ExtractedData is an insertion-ordered field name -> FieldValue map.
// Keys are unique; absent fields are simply not present, never null.
// The zero value is ready to use.
type ExtractedData struct {
	names  []string
	values map[string]FieldValue
}

// Set inserts or replaces a value. A replaced key keeps its position.
func (d *ExtractedData) Set(name string, v FieldValue) {
	if d.values == nil {
		d.values = make(map[string]FieldValue)
	}
	if _, ok := d.values[name]; !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = v
}

func (d *ExtractedData) Get(name string) (FieldValue, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Names returns field names in insertion order.
func (d *ExtractedData) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

func (d *ExtractedData) Len() int {
	return len(d.names)
}

type fieldEnvelope struct {
	Kind  ValueKind       `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON writes the kind envelope: text as string, number as
// float, date as "2006-01-02", boolean as bool.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	switch v.Kind {
	case KindText:
		raw, err = json.Marshal(v.Text)
	case KindNumber:
		raw, err = json.Marshal(v.Number)
	case KindDate:
		raw, err = json.Marshal(v.Date.Format(DateLayout))
	case KindBool:
		raw, err = json.Marshal(v.Bool)
	default:
		err = fmt.Errorf("unknown value kind %q", v.Kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldEnvelope{Kind: v.Kind, Value: raw})
}

// UnmarshalJSON reads the envelope back, dispatching on the stored
// kind rather than guessing from the value's shape.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var env fieldEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Kind {
	case KindText:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("text value: %w", err)
		}
		*v = TextValue(s)
	case KindNumber:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return fmt.Errorf("number value: %w", err)
		}
		*v = NumberValue(f)
	case KindDate:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("date value: %w", err)
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return fmt.Errorf("date value: %w", err)
		}
		*v = DateValue(t)
	case KindBool:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return fmt.Errorf("boolean value: %w", err)
		}
		*v = BoolValue(b)
	default:
		return fmt.Errorf("unknown value kind %q", env.Kind)
	}
	return nil
}

// MarshalJSON writes a JSON object in insertion order, each value in
// its kind envelope.
func (d ExtractedData) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		val, err := json.Marshal(d.values[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads back the object form written by MarshalJSON,
// preserving key order.
func (d *ExtractedData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("extracted data: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extracted data: expected JSON object")
	}

	*d = ExtractedData{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("extracted data: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("extracted data: non-string key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("extracted data: field %q: %w", key, err)
		}
		if string(raw) == "null" {
			// absent fields are never stored as null; drop stragglers
			continue
		}
		var v FieldValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("extracted data: field %q: %w", key, err)
		}
		d.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("extracted data: %w", err)
	}
	return nil
}
