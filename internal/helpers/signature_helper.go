package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
)

// CallbackTokenValid compares the token a payment provider sent with its
// callback against the configured one in constant time. An empty expected
// token disables the check.
func CallbackTokenValid(expected, received string) bool {
	if expected == "" {
		return true
	}
	want := sha256.Sum256([]byte(expected))
	got := sha256.Sum256([]byte(received))
	return hmac.Equal(want[:], got[:])
}
