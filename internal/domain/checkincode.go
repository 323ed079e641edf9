package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// CheckinAlphabet is the 32-symbol alphabet check-in codes are drawn from.
// 0, 1, O and I are excluded because guests read these codes over the phone
// or type them from a printout.
const CheckinAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// checkinCodePattern matches a well-formed code: two 4-symbol groups
// separated by a hyphen, e.g. "7K3H-Q9ZP".
var checkinCodePattern = regexp.MustCompile(
	`^[` + CheckinAlphabet + `]{4}-[` + CheckinAlphabet + `]{4}$`)

// NewCheckinCode draws 8 symbols uniformly at random from CheckinAlphabet and
// formats them as XXXX-XXXX. Uniqueness against existing reservations is the
// caller's job (service-level probe plus a unique index in the database).
func NewCheckinCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("domain.NewCheckinCode: %w", err)
	}
	// len(CheckinAlphabet) is 32, so masking a byte with 31 gives a uniform
	// index without modulo bias.
	for i, b := range buf {
		buf[i] = CheckinAlphabet[b&31]
	}
	return string(buf[:4]) + "-" + string(buf[4:]), nil
}

// ValidCheckinCode reports whether s is a well-formed check-in code.
// Comparison elsewhere is case-insensitive; this accepts lowercase input too.
func ValidCheckinCode(s string) bool {
	return checkinCodePattern.MatchString(strings.ToUpper(s))
}
