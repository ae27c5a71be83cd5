package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTripThroughValuer(t *testing.T) {
	line2 := "Flat 4B"
	in := Address{
		FullName:   "Asha Rao",
		Line1:      "12 MG Road",
		Line2:      &line2,
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
		Phone:      "+919900000000",
	}
	v, err := in.Value()
	require.NoError(t, err)

	var out Address
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)
}

func TestAddressNormalize(t *testing.T) {
	blank := "   "
	got := Address{FullName: " Asha ", Line1: " x ", Line2: &blank, Country: " us "}.Normalize()
	assert.Equal(t, "Asha", got.FullName)
	assert.Equal(t, "x", got.Line1)
	assert.Nil(t, got.Line2)
	assert.Equal(t, "US", got.Country)

	assert.Equal(t, "IN", Address{}.Normalize().Country)
}

func TestAddressScanNil(t *testing.T) {
	a := Address{City: "stale"}
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, Address{}, a)
	assert.Error(t, a.Scan(42))
}

func TestStringList(t *testing.T) {
	var list StringList
	require.NoError(t, list.Scan(`["S","M","L"]`))
	assert.True(t, list.Contains("m"))
	assert.False(t, list.Contains("XL"))

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestJSONMap(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"id":"pay_1","amount":1000}`)))
	assert.Equal(t, "pay_1", m["id"])

	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestValidPhone(t *testing.T) {
	for _, ok := range []string{"+919900000000", "98765 43210", "(080) 555-0199"} {
		assert.True(t, ValidPhone(ok), ok)
	}
	for _, bad := range []string{"", "12345", "+91 98x", "1234567890123456"} {
		assert.False(t, ValidPhone(bad), bad)
	}
}
