// Package otp generates the short numeric codes used to confirm
// authorization invitations and domain-email ownership.
package otp

import (
	cryptorand "crypto/rand"
	"math/big"
	"strings"
)

// Digits is the length of every generated code.
const Digits = 6

// Generate returns a uniformly random numeric code of Digits length.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Digits)
	for i := 0; i < Digits; i++ {
		n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
