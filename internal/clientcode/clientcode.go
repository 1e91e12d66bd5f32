// Package clientcode maps client codes to pickup points.
//
// A client code starts with a 2-letter prefix naming the pickup point the
// client collects parcels at: YQ (nariman), YX (zhiydalik), JL (dostuk).
package clientcode

import (
	"strconv"
	"strings"

	"github.com/BearBump/CargoBox/internal/models"
)

const PrefixLen = 2

var prefixes = map[string]models.PVZLocation{
	"YQ": models.PVZNariman,
	"YX": models.PVZZhiydalik,
	"JL": models.PVZDostuk,
}

// Derive returns the pickup point encoded in the code prefix.
// Codes shorter than the prefix and unknown prefixes are rejected.
func Derive(code string) (models.PVZLocation, bool) {
	if len(code) < PrefixLen {
		return "", false
	}
	loc, ok := prefixes[code[:PrefixLen]]
	return loc, ok
}

func PrefixFor(loc models.PVZLocation) (string, bool) {
	for p, l := range prefixes {
		if l == loc {
			return p, true
		}
	}
	return "", false
}

// Format builds a code from a prefix and a sequence number, e.g. YQ1001.
func Format(prefix string, seq int64) string {
	return prefix + strconv.FormatInt(seq, 10)
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
