package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"1.004", "1.00", true},
		{"2.675", "2.68", true},
		{" 2.50 ", "2.50", true},
		{"15.5", "15.50", true},
		{"0.004", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"NaN", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatDecimal(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatDecimal(got), err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseAmountPreservesValueUpToRounding(t *testing.T) {
	half := decimal.RequireFromString("0.005")
	for _, in := range []string{"0.01", "3.14159", "100", "99.995", "12.344", "7.1"} {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got.Exponent() < -AmountPlaces {
			t.Fatalf("%q: more than two decimals: %s", in, got)
		}
		diff := got.Sub(decimal.RequireFromString(in)).Abs()
		if diff.GreaterThan(half) {
			t.Fatalf("%q: rounded value %s drifted by %s", in, got, diff)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"60", "USD", "$60.00"},
		{"1234.5", "USD", "$1,234.50"},
		{"-40", "USD", "-$40.00"},
		{"5", "XXQ", "5.00 XXQ"},
	}
	for _, tc := range cases {
		got := FormatAmount(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Errorf("FormatAmount(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestKnownCurrency(t *testing.T) {
	if !KnownCurrency("USD") {
		t.Fatal("USD should be known")
	}
	if KnownCurrency("XXQ") {
		t.Fatal("XXQ should not be known")
	}
}
