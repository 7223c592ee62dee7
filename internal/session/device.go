package session

import (
	"strings"
)

// MaxDeviceIDLength bounds the identifier forwarded upstream as the user.
const MaxDeviceIDLength = 64

// SanitizeDeviceID trims raw, substitutes fallback when it is empty and
// truncates the result to MaxDeviceIDLength characters. It fails only when
// both inputs are blank.
func SanitizeDeviceID(raw, fallback string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		id = strings.TrimSpace(fallback)
	}
	if id == "" {
		return "", newError(KindBadRequest, "no device id and no fallback identity", nil)
	}
	if r := []rune(id); len(r) > MaxDeviceIDLength {
		id = string(r[:MaxDeviceIDLength])
	}
	return id, nil
}
