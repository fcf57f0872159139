package ledger

import "testing"

func TestParseTokenAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1_000_000_000, false},
		{"0.5", 500_000_000, false},
		{"5.5", 5_500_000_000, false},
		{"0.000000001", 1, false},
		{"0.0000000019", 1, false}, // extra digits truncated
		{" 2 ", 2_000_000_000, false},
		{"", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTokenAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTokenAmount(%q) expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTokenAmount(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTokenAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatTokenAmount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{1_000_000_000, "1"},
		{500_000_000, "0.5"},
		{5_500_000_000, "5.5"},
		{1, "0.000000001"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatTokenAmount(tt.in); got != tt.want {
			t.Errorf("FormatTokenAmount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, nano := range []int64{1, 999, 1_000_000_000, 123_456_789_000} {
		got, err := ParseTokenAmount(FormatTokenAmount(nano))
		if err != nil {
			t.Fatalf("round trip %d: %v", nano, err)
		}
		if got != nano {
			t.Errorf("round trip %d -> %d", nano, got)
		}
	}
}
