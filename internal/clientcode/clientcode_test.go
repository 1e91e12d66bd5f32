package clientcode

import (
	"testing"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		code string
		want models.PVZLocation
		ok   bool
	}{
		{"YQ123", models.PVZNariman, true},
		{"YX1", models.PVZZhiydalik, true},
		{"JL77", models.PVZDostuk, true},
		{"YQ", models.PVZNariman, true},
		{"AB12", "", false},
		{"Y", "", false},
		{"", "", false},
		{"yq123", "", false},
	}
	for _, tc := range cases {
		got, ok := Derive(tc.code)
		require.Equal(t, tc.ok, ok, tc.code)
		require.Equal(t, tc.want, got, tc.code)
	}
}

func TestPrefixFor_roundTrip(t *testing.T) {
	for _, loc := range []models.PVZLocation{models.PVZNariman, models.PVZZhiydalik, models.PVZDostuk} {
		p, ok := PrefixFor(loc)
		require.True(t, ok)
		got, ok := Derive(Format(p, 1001))
		require.True(t, ok)
		require.Equal(t, loc, got)
	}
	_, ok := PrefixFor("osh")
	require.False(t, ok)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "YQ12", Normalize("  yq12 "))
}
