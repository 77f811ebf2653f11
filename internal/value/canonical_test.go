package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Scalars(t *testing.T) {
	testCases := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null{}, `null`},
		{"true", Bool(true), `true`},
		{"false", Bool(false), `false`},
		{"int", Int(42), `42`},
		{"negative int", Int(-7), `-7`},
		{"float", Float(2.5), `2.5`},
		{"integral float", Float(5), `5.0`},
		{"negative integral float", Float(-3), `-3.0`},
		{"large float", Float(1e21), `1e+21`},
		{"string", String("hi"), `"hi"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	got, err := MarshalCanonical(Mapping{"b": Int(2), "A": Int(0), "a": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, `{"A":0,"a":1,"b":2}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(String("<a>&</a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a>&</a>"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form
	decomposed := String("é")
	precomposed := String("é")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(precomposed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_NaNAndInfRejected(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(Float(f))
		require.Error(t, err)
	}
}

func TestMarshalCanonical_Nested(t *testing.T) {
	v := Mapping{
		"items": Sequence{Int(1), Mapping{"k": Null{}}},
		"name":  String("x"),
	}

	got, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[1,{"k":null}],"name":"x"}`, string(got))
}

func TestMarshalCanonical_OpaqueRejected(t *testing.T) {
	_, err := MarshalCanonical(Opaque{Tag: "conn"})
	require.Error(t, err)
}

func TestMarshalCanonical_NumericTagSurvivesDecode(t *testing.T) {
	testCases := []struct {
		name string
		v    Value
		want TypeTag
	}{
		{"integral float", Float(5), TagFloat},
		{"fractional float", Float(2.5), TagFloat},
		{"negative integral float", Float(-3), TagFloat},
		{"int", Int(5), TagInt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalCanonical(tc.v)
			require.NoError(t, err)

			back, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, TypeOf(back))
			assert.Equal(t, tc.v, back)
		})
	}
}
