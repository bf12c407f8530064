package service

import "testing"

func TestPctOfRoundsToNearestCent(t *testing.T) {
	cases := []struct {
		base int64
		pct  float64
		want int64
	}{
		{10000, 5, 500},
		{10000, 10, 1000},
		{9900, 5, 495},
		{9999, 5, 500},
		{333, 10, 33},
		{335, 10, 34},
		{10000, 0, 0},
		{0, 10, 0},
	}
	for _, tc := range cases {
		if got := pctOf(tc.base, tc.pct); got != tc.want {
			t.Errorf("pctOf(%d, %v) = %d, want %d", tc.base, tc.pct, got, tc.want)
		}
	}
}
