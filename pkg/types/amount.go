package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Amount columns are numeric(14,2) and quantities numeric(14,3), so eleven
// integer digits fit both. Finer fractions are rounded by the database.
const MaxIntegerDigits = 11

const (
	maxScale    = 10
	maxExponent = 64
)

// ErrAmountOutOfRange rejects numbers the amount and quantity columns cannot
// hold.
var ErrAmountOutOfRange = errors.New("number out of range")

// LooseAmount reads a money or quantity field typed into a free text box.
// JSON numbers and numeric strings are accepted; a numeric prefix is kept
// ("50kg" reads 50) and anything else reads as zero. Set is false when the
// field was absent, null or blank.
type LooseAmount struct {
	Value decimal.Decimal
	Set   bool
}

// NewLooseAmount builds a present amount.
func NewLooseAmount(v decimal.Decimal) LooseAmount {
	return LooseAmount{Value: v, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *LooseAmount) UnmarshalJSON(data []byte) error {
	*a = LooseAmount{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
	}

	value, set, err := ParseLooseDecimal(raw)
	if err != nil {
		return err
	}
	a.Value, a.Set = value, set
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a LooseAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// ParseLooseDecimal parses the numeric prefix of raw. The bool is false when
// raw is blank. Magnitudes past the column bounds, or with more than
// maxScale fraction digits, fail before any decimal is built.
func ParseLooseDecimal(raw string) (decimal.Decimal, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false, nil
	}
	match := leadingNumberRe.FindString(raw)
	if match == "" {
		return decimal.Zero, true, nil
	}
	if err := checkMagnitude(match); err != nil {
		return decimal.Zero, true, err
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, true, nil
	}
	return value, true, nil
}

// checkMagnitude bounds a literal from its text alone. Printing a decimal
// with a huge exponent allocates every digit.
func checkMagnitude(literal string) error {
	mantissa, exp := literal, 0
	if i := strings.IndexAny(literal, "eE"); i >= 0 {
		var err error
		if exp, err = strconv.Atoi(literal[i+1:]); err != nil || exp > maxExponent || exp < -maxExponent {
			return fmt.Errorf("%w: %s", ErrAmountOutOfRange, literal)
		}
		mantissa = literal[:i]
	}
	whole, frac, _ := strings.Cut(strings.TrimLeft(mantissa, "+-"), ".")

	scale := len(frac) - exp
	significant := strings.TrimLeft(whole+frac, "0")
	if scale > maxScale || (significant != "" && len(significant)-scale > MaxIntegerDigits) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, literal)
	}
	return nil
}
