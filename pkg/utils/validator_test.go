package utils

import "testing"

func TestValidateProductURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://www.amazon.com.mx/dp/B08N5WRWNW", false},
		{"http://example.com/item?id=3", false},
		{"ftp://example.com/file", true},
		{"example.com/item", true},
		{"https://", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateProductURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProductURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("  need it\x00 for\tthe\nlab\x7f  ")
	want := "need it for\tthe\nlab"
	if got != want {
		t.Errorf("SanitizeString() = %q, want %q", got, want)
	}
}
