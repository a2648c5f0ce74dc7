package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractedDataOrder(t *testing.T) {
	var d ExtractedData
	d.Set("blood_sugar_level", NumberValue(180))
	d.Set("insulin_type", TextValue("Humalog"))
	d.Set("diagnosis_date", DateValue(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)))

	assert.Equal(t, []string{"blood_sugar_level", "insulin_type", "diagnosis_date"}, d.Names())
	assert.Equal(t, 3, d.Len())

	// replacing a key keeps its original position
	d.Set("insulin_type", TextValue("Lantus"))
	assert.Equal(t, []string{"blood_sugar_level", "insulin_type", "diagnosis_date"}, d.Names())
	v, ok := d.Get("insulin_type")
	require.True(t, ok)
	assert.Equal(t, "Lantus", v.Text)
}

func TestExtractedDataMarshalJSON(t *testing.T) {
	var d ExtractedData
	d.Set("insulin_type", TextValue("Humalog"))
	d.Set("blood_sugar_level", NumberValue(180))
	d.Set("follow_up", DateValue(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	d.Set("chest_pain", BoolValue(false))

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"insulin_type": {"kind": "text", "value": "Humalog"},
		"blood_sugar_level": {"kind": "number", "value": 180},
		"follow_up": {"kind": "date", "value": "2024-06-01"},
		"chest_pain": {"kind": "boolean", "value": false}
	}`, string(raw))

	// insertion order survives in the raw bytes
	assert.Equal(t,
		`{"insulin_type":{"kind":"text","value":"Humalog"},`+
			`"blood_sugar_level":{"kind":"number","value":180},`+
			`"follow_up":{"kind":"date","value":"2024-06-01"},`+
			`"chest_pain":{"kind":"boolean","value":false}}`,
		string(raw))
}

func TestExtractedDataUnmarshalJSON(t *testing.T) {
	raw := `{
		"insulin_type": {"kind": "text", "value": "Humalog"},
		"blood_sugar_level": {"kind": "number", "value": 180.5},
		"follow_up": {"kind": "date", "value": "2024-06-01"},
		"chest_pain": {"kind": "boolean", "value": true},
		"stale": null
	}`

	var d ExtractedData
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	// null values are dropped, everything else keeps order
	assert.Equal(t, []string{"insulin_type", "blood_sugar_level", "follow_up", "chest_pain"}, d.Names())

	v, _ := d.Get("insulin_type")
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "Humalog", v.Text)

	v, _ = d.Get("blood_sugar_level")
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, 180.5, v.Number)

	v, _ = d.Get("follow_up")
	assert.Equal(t, KindDate, v.Kind)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), v.Date)

	v, _ = d.Get("chest_pain")
	assert.Equal(t, KindBool, v.Kind)
	assert.True(t, v.Bool)
}

// Kinds must survive persistence even when the raw value is ambiguous:
// a free-text note that happens to be "2024-01-15" stays text, and a
// text "180" stays text, across any number of round trips.
func TestExtractedDataRoundTripKeepsKinds(t *testing.T) {
	var d ExtractedData
	d.Set("note", TextValue("2024-01-15"))
	d.Set("batch_code", TextValue("180"))
	d.Set("diagnosis_date", DateValue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	d.Set("blood_sugar_level", NumberValue(180))

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var got ExtractedData
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, d.Names(), got.Names())

	v, _ := got.Get("note")
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "2024-01-15", v.Text)

	v, _ = got.Get("batch_code")
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "180", v.Text)

	v, _ = got.Get("diagnosis_date")
	assert.Equal(t, KindDate, v.Kind)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), v.Date)

	v, _ = got.Get("blood_sugar_level")
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, float64(180), v.Number)

	again, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again))
}

func TestExtractedDataRejectsUnknownKind(t *testing.T) {
	var d ExtractedData
	err := json.Unmarshal([]byte(`{"readings":{"kind":"list","value":[1,2,3]}}`), &d)
	require.Error(t, err)
}
