package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomDigits returns n decimal digits drawn from crypto/rand.
func RandomDigits(n int) (string, error) {
	return randomFrom("0123456789", n)
}

// RandomAlphanumeric returns n characters from [A-Za-z0-9] drawn from crypto/rand.
func RandomAlphanumeric(n int) (string, error) {
	return randomFrom(alphanumeric, n)
}

func randomFrom(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// EqualConstantTime compares two short secrets such as reset codes.
func EqualConstantTime(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RandomSecret returns n random bytes, base64 encoded.
func RandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
