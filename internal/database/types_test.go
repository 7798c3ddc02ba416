package database

import "testing"

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"007", 0, true},
		{"+7", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{" 1", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKey(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseKey(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatKeyRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 999, 123456} {
		got, err := ParseKey(FormatKey(k))
		if err != nil || got != k {
			t.Errorf("round trip of %d = %d, %v", k, got, err)
		}
	}
}

func TestNormalizeAndDot(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := Dot(v, v); d < 0.9999 || d > 1 {
		t.Errorf("self dot = %v, want 1", d)
	}
	if _, err := Normalize([]float32{0, 0}); err != ErrZeroVector {
		t.Errorf("expected ErrZeroVector, got %v", err)
	}
}
