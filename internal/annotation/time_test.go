package annotation_test

import (
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
)

func TestParseRealTime(t *testing.T) {
	cases := []struct {
		in   string
		want annotation.RealTime
	}{
		{"0", 0},
		{"1.5", 1500 * annotation.Millisecond},
		{"12", 12 * annotation.Second},
		{".25", 250 * annotation.Millisecond},
		{"-0.5", -500 * annotation.Millisecond},
		{"0.000000001", annotation.Nanosecond},
		{"2.1234567891", 2*annotation.Second + 123456789},
	}
	for _, tc := range cases {
		got, err := annotation.ParseRealTime(tc.in)
		if err != nil {
			t.Fatalf("ParseRealTime(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRealTime(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "1.x"} {
		if _, err := annotation.ParseRealTime(bad); !corpuserr.Is(err, corpuserr.KindValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestRealTimeString(t *testing.T) {
	cases := []struct {
		in   annotation.RealTime
		want string
	}{
		{0, "0"},
		{3 * annotation.Second, "3"},
		{1500 * annotation.Millisecond, "1.5"},
		{-250 * annotation.Millisecond, "-0.25"},
		{annotation.Second + annotation.Nanosecond, "1.000000001"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("String(%d) = %q, want %q", int64(tc.in), got, tc.want)
		}
	}
	if annotation.Seconds(0.1) != 100*annotation.Millisecond {
		t.Fatalf("Seconds(0.1) = %d", annotation.Seconds(0.1))
	}
}
