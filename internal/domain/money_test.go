package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsFromDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"10.50", 1050, false},
		{"149.9", 14990, false},
		{"0.01", 1, false},
		{"-1", 0, true},
		{"3.999", 0, true},
		{"999999999999", 0, true},
	}

	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("bad test input %q: %v", tc.in, err)
		}
		got, err := CentsFromDecimal(d)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%s: expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.want, got)
		}
	}
}

func TestDecimalFromCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 1050, 14990} {
		back, err := CentsFromDecimal(DecimalFromCents(cents))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", cents, err)
		}
		if back != cents {
			t.Fatalf("round trip of %d yielded %d", cents, back)
		}
	}
}
