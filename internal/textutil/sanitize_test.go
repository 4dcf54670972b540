package textutil

import "testing"

func TestSafeName(t *testing.T) {
	tests := []struct {
		in       string
		fallback string
		want     string
	}{
		{"Budi Santoso", "Anonymous", "Budi_Santoso"},
		{"  ", "Anonymous", "Anonymous"},
		{"Dédé", "Anonymous", "Dede"},
		{"../etc", "x", "___etc"},
		{"Ña'im", "x", "Na_im"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in, tt.fallback); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFoldASCII(t *testing.T) {
	if got := FoldASCII("Jürgen Ñandú"); got != "Jurgen Nandu" {
		t.Fatalf("unexpected %q", got)
	}
}
