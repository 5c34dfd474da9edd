package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsDecodeKinds(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{
		"name": "Acme",
		"risk_score": 7,
		"weight": 0.25,
		"has_dpo": true,
		"notes": null,
		"data_categories": ["health", "biometric"],
		"assessment_answers": {"q1": "yes"}
	}`), &f)
	require.NoError(t, err)

	assert.Equal(t, KindString, f["name"].Kind())
	assert.Equal(t, KindNumber, f["risk_score"].Kind())
	assert.Equal(t, KindNumber, f["weight"].Kind())
	assert.Equal(t, KindBool, f["has_dpo"].Kind())
	assert.Equal(t, KindNull, f["notes"].Kind())
	assert.Equal(t, KindJSON, f["data_categories"].Kind())
	assert.Equal(t, KindJSON, f["assessment_answers"].Kind())

	i, ok := f["risk_score"].Int64()
	require.True(t, ok)
	assert.EqualValues(t, 7, i)

	_, ok = f["weight"].Int64()
	assert.False(t, ok)
	fl, ok := f["weight"].Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.25, fl, 1e-9)
}

func TestValueMarshalRoundTrip(t *testing.T) {
	in := `{"a":1,"b":"x","c":true,"d":null,"e":[1,2],"f":{"k":"v"},"g":12345678901234567890}`

	var f Fields
	require.NoError(t, json.Unmarshal([]byte(in), &f))

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestTimeValueFormat(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("BRT", -3*3600))

	b, err := json.Marshal(Time(ts))
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-04T08:06:07.891Z"`, string(b))
}

func TestValueSQLArg(t *testing.T) {
	assert.Equal(t, int64(7), Int(7).SQLArg())
	assert.Equal(t, 1.5, Float(1.5).SQLArg())
	assert.Equal(t, "x", String("x").SQLArg())
	assert.Equal(t, true, Bool(true).SQLArg())
	assert.Nil(t, Null().SQLArg())

	v, err := JSON(json.RawMessage(`{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, v.SQLArg())
}

func TestValueEqual(t *testing.T) {
	a, _ := JSON(json.RawMessage(`{"a": 1}`))
	b, _ := JSON(json.RawMessage(`{"a":1}`))

	assert.True(t, a.Equal(b))
	assert.True(t, Int(3).Equal(Number("3.0")))
	assert.False(t, Int(3).Equal(String("3")))
	assert.True(t, Null().Equal(Value{}))
}

func TestFieldsWithTimestampOverwrites(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := Fields{"updated_at": String("caller"), "name": String("Acme")}

	out := f.WithTimestamp(FieldUpdatedAt, now)

	assert.Equal(t, KindTime, out[FieldUpdatedAt].Kind())
	assert.True(t, out[FieldUpdatedAt].Time().Equal(now))
	assert.Equal(t, KindString, f[FieldUpdatedAt].Kind(), "input must not be mutated")

	var nilFields Fields
	out = nilFields.WithTimestamp(FieldUpdatedAt, now)
	assert.Len(t, out, 1)
}

func TestRecordMergeKeepsOmittedFields(t *testing.T) {
	r := Record{"id": String("sup-42"), "riskScore": Int(3), "name": String("Acme")}
	r.Merge(Fields{"riskScore": Int(7)})

	assert.Equal(t, "sup-42", r.ID())
	assert.True(t, r["riskScore"].Equal(Int(7)))
	assert.True(t, r["name"].Equal(String("Acme")))
}
