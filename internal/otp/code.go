package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

const codeDigits = 6

var codeBase = big.NewInt(10)

// GenerateCode returns a 6-digit numeric code string (e.g. "123456").
// Each digit is drawn uniformly from crypto/rand.
func GenerateCode() (string, error) {
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		d, err := rand.Int(rand.Reader, codeBase)
		if err != nil {
			return "", err
		}
		s[i] = '0' + byte(d.Int64())
	}
	return string(s), nil
}

// HashCode returns a SHA-256 hash of the code string, hex-encoded.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual performs constant-time comparison of the provided code's hash with the stored hash.
func CodeEqual(providedCode, storedHash string) bool {
	providedHash := HashCode(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
