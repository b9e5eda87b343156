package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
)

const accessCodeDigits = 6

// ErrInvalidAccessCode reports a code that is not six digits.
var ErrInvalidAccessCode = fmt.Errorf("access code must be %d digits", accessCodeDigits)

// GenerateAccessCode returns a random worker login code formatted NNN-NNN.
func GenerateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	digits := fmt.Sprintf("%06d", n.Int64())
	return digits[:3] + "-" + digits[3:], nil
}

// NormalizeAccessCode strips separators and spaces so "123 456", "123456"
// and "123-456" compare equal.
func NormalizeAccessCode(code string) (string, error) {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return "", ErrInvalidAccessCode
		}
	}
	if b.Len() != accessCodeDigits {
		return "", ErrInvalidAccessCode
	}
	return b.String(), nil
}

// HashAccessCode hashes the normalized code with the password parameters.
func HashAccessCode(code string, cfg config.PasswordConfig) (string, error) {
	normalized, err := NormalizeAccessCode(code)
	if err != nil {
		return "", err
	}
	return HashPassword(normalized, cfg)
}

// VerifyAccessCode reports whether code matches the stored hash.
func VerifyAccessCode(code, encoded string) (bool, error) {
	normalized, err := NormalizeAccessCode(code)
	if err != nil {
		return false, nil
	}
	return VerifyPassword(normalized, encoded)
}
