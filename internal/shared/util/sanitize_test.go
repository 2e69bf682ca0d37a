package util

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "invoice.pdf", want: "invoice.pdf"},
		{in: "invoice..v2.pdf", want: "invoice..v2.pdf"},
		{in: "..hidden.pdf", want: "..hidden.pdf"},
		{in: "  march/invoice.pdf ", want: "march_invoice.pdf"},
		{in: `scans\inv.pdf`, want: "scans_inv.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "reports/../../x.pdf", wantErr: true},
		{in: `..\x.pdf`, wantErr: true},
		{in: "/etc/passwd", wantErr: true},
		{in: `C:\scans\inv.pdf`, wantErr: true},
		{in: "..", wantErr: true},
		{in: ".", wantErr: true},
		{in: "a\x00.pdf", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidFileName) {
				t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %q, %v", tc.in, got, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
