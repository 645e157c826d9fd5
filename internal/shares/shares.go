// Package shares parses and formats share quantities. Quantities arrive as
// strings on the wire; shares are whole units, so fractional input is
// rejected rather than scaled.
package shares

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrFractionalQuantity = errors.New("share quantity must be a whole number")
)

func ParseQuantity(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidQuantity
	}
	if strings.HasPrefix(trimmed, "+") {
		trimmed = trimmed[1:]
	}
	if parts := strings.SplitN(trimmed, ".", 2); len(parts) == 2 {
		if !isDigits(parts[0]) || !isDigits(parts[1]) {
			return 0, ErrInvalidQuantity
		}
		if strings.Trim(parts[1], "0") != "" {
			return 0, ErrFractionalQuantity
		}
		trimmed = parts[0]
	}
	if !isDigits(trimmed) {
		return 0, ErrInvalidQuantity
	}
	quantity, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	return quantity, nil
}

func FormatQuantity(value int64) string {
	return strconv.FormatInt(value, 10)
}

// FormatPercent rounds only here, at the presentation edge.
func FormatPercent(value decimal.Decimal) string {
	return value.StringFixed(4)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
