package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"12", NewQuantity(12)},
		{"12.5", Quantity(125_000)},
		{"-0.0001", Quantity(-1)},
		{"3.141592", Quantity(31_415)},
		{"+7", NewQuantity(7)},
		{".5", Quantity(5_000)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}

func TestParseQuantity_OutOfRange(t *testing.T) {
	for _, in := range []string{
		"3689348814741911",
		"-3689348814741911",
		"922337203685477.5808",
		"1e300",
		"-4e15",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseQuantity(in)
			assert.ErrorIs(t, err, ErrQuantityRange)
		})
	}

	got, err := ParseQuantity("922337203685477.5807")
	require.NoError(t, err)
	assert.Equal(t, Quantity(math.MaxInt64), got)

	got, err = ParseQuantity("2.5e3")
	require.NoError(t, err)
	assert.Equal(t, NewQuantity(2500), got)
}

func TestQuantity_JSONRejectsOverflow(t *testing.T) {
	var q Quantity
	err := json.Unmarshal([]byte(`"3689348814741911"`), &q)
	assert.ErrorIs(t, err, ErrQuantityRange)
	assert.Equal(t, Quantity(0), q)

	err = json.Unmarshal([]byte(`3689348814741911`), &q)
	assert.ErrorIs(t, err, ErrQuantityRange)
}

func TestQuantity_JSON(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`"10.25"`), &q))
	assert.Equal(t, Quantity(102_500), q)

	require.NoError(t, json.Unmarshal([]byte(`4`), &q))
	assert.Equal(t, NewQuantity(4), q)

	out, err := json.Marshal(NewQuantity(-3))
	require.NoError(t, err)
	assert.Equal(t, "-3.0000", string(out))
}

func TestQuantity_Decimal(t *testing.T) {
	q := Quantity(125_000)
	assert.True(t, q.Decimal().Equal(MustMoney("12.5")))
	assert.Equal(t, q, NewQuantityFromDecimal(MustMoney("12.50009")))
}

func TestRounding(t *testing.T) {
	m := MustMoney("10.123456")
	assert.Equal(t, "10.1235", RoundStorage(m).String())
	assert.Equal(t, "10.12", RoundDisplay(m).String())
}
