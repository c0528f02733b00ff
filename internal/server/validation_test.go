package server

import "testing"

func TestValidateFileID(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"fl-0123456789abcdef0123", true},
		{"fl-0123456789ABCDEF0123", false},
		{"ac-0123456789abcdef0123", false},
		{"fl-0123", false},
		{"", false},
		{"fl-0123456789abcdef01234", false},
	}
	for _, tc := range cases {
		if got := validateFileID(tc.id); got != tc.valid {
			t.Errorf("validateFileID(%q) = %v, want %v", tc.id, got, tc.valid)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"  spaced.txt  ", "spaced.txt"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\system.ini`, "system.ini"},
		{".hidden", "hidden"},
		{`quo"te.txt`, "quote.txt"},
		{"", ""},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
