package domain

import (
	"errors"
	"regexp"
	"strings"
)

var kenyanPhone = regexp.MustCompile(`^254\d{9}$`)

// ErrInvalidPhone indicates a phone number that cannot be normalized
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone canonicalizes a Kenyan MSISDN to the 254XXXXXXXXX form
// accepted by the SMS and payment gateways. Accepted inputs are
// "+2547XXXXXXXX", "2547XXXXXXXX", "07XXXXXXXX" and "7XXXXXXXX".
func NormalizePhone(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case strings.HasPrefix(digits, "254"):
		// already canonical, validated below
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = "254" + digits[1:]
	case len(digits) == 9:
		digits = "254" + digits
	}

	if !kenyanPhone.MatchString(digits) {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
