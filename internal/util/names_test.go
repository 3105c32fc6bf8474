package util

import "testing"

func TestDisplayNameDefaults(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"", "Lovelace", "Valued Lovelace"},
		{"Ada", "  ", "Ada Customer"},
		{"", "", "Valued Customer"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.first, tt.last, "Valued", "Customer"); got != tt.want {
			t.Fatalf("DisplayName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"ada lovelace":       "A.L.",
		"Ada":                "A.",
		"":                   "",
		"  jean  luc picard": "J.L.",
		"42 ada":             "A.",
	}
	for in, want := range tests {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("3f2a-77bc-91de", 8); got != "3F2A77BC" {
		t.Fatalf("ShortID = %q", got)
	}
	if got := ShortID("ab", 8); got != "AB" {
		t.Fatalf("ShortID = %q", got)
	}
}
