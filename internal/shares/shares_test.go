package shares

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		input string
		want  int64
		err   error
	}{
		{"1000", 1000, nil},
		{" 42 ", 42, nil},
		{"+7", 7, nil},
		{"400.00", 400, nil},
		{"400.000000", 400, nil},
		{"0", 0, nil},
		{"400.5", 0, ErrFractionalQuantity},
		{"0.01", 0, ErrFractionalQuantity},
		{"", 0, ErrInvalidQuantity},
		{"   ", 0, ErrInvalidQuantity},
		{"-5", 0, ErrInvalidQuantity},
		{"12a", 0, ErrInvalidQuantity},
		{"1.2.3", 0, ErrInvalidQuantity},
		{".5", 0, ErrInvalidQuantity},
		{"1e3", 0, ErrInvalidQuantity},
	}
	for _, tc := range cases {
		got, err := ParseQuantity(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParseQuantity(%q): expected error %v, got %v", tc.input, tc.err, err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseQuantity(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := FormatQuantity(-400); got != "-400" {
		t.Fatalf("unexpected formatting: %s", got)
	}
}

func TestFormatPercent(t *testing.T) {
	value := decimal.NewFromInt(1).Div(decimal.NewFromInt(3)).Mul(decimal.NewFromInt(100))
	if got := FormatPercent(value); got != "33.3333" {
		t.Fatalf("unexpected percent formatting: %s", got)
	}
	if got := FormatPercent(decimal.NewFromInt(100)); got != "100.0000" {
		t.Fatalf("unexpected percent formatting: %s", got)
	}
}
