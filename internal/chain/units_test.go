package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVERD(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"10", "10000000000000000000"},
		{"2.5", "2500000000000000000"},
		{"0.000000000000000001", "1"},
		{"12000", "12000000000000000000000"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseVERD(tc.in)
			require.NoError(t, err)
			want, _ := new(big.Int).SetString(tc.want, 10)
			assert.Zero(t, got.Cmp(want), "got %s want %s", got, want)
		})
	}
}

func TestParseVERDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "-1", "abc", "1.2.3", "0.0000000000000000001"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseVERD(in)
			assert.Error(t, err)
		})
	}
}

func TestFormatVERDRoundTrip(t *testing.T) {
	for _, in := range []string{"0", "1", "2.5", "12000", "0.000000000000000001"} {
		wei, err := ParseVERD(in)
		require.NoError(t, err)
		assert.Equal(t, in, FormatVERD(wei))
	}
}

func TestParseVERDFloat(t *testing.T) {
	wei, err := ParseVERDFloat(2.5)
	require.NoError(t, err)
	assert.Equal(t, "2.5", FormatVERD(wei))
}

func TestVERDValue(t *testing.T) {
	wei, _ := ParseVERD("12000")
	assert.InDelta(t, 12000.0, VERDValue(wei), 1e-6)
	assert.Zero(t, VERDValue(nil))
}
