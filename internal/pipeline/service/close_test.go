package service

import "testing"

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		base int64
		pct  float64
		want int64
	}{
		{100_00, 10, 10_00},
		{500_00, 5, 25_00},
		{333_33, 10, 33_33},  // 3333.3 rounds down
		{335_00, 7.5, 25_13}, // 2512.5 rounds up
		{0, 10, 0},
	}

	for _, tc := range cases {
		if got := commissionAmount(tc.base, tc.pct); got != tc.want {
			t.Fatalf("commissionAmount(%d, %v) = %d, want %d", tc.base, tc.pct, got, tc.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0612345678", "+31612345678"},
		{"+31 6 12345678", "+31612345678"},
		{"not a number", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := normalizePhone(tc.in); got != tc.want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
