package kv

import (
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", "(empty)"},
		{"short", "p@ss", strings.Repeat("•", 4)},
		{"eleven", "01234567890", strings.Repeat("•", 11)},
		{"twelve", "012345678901", strings.Repeat("•", 12)},
		{"long", strings.Repeat("x", 40), strings.Repeat("•", 12)},
		{"multibyte", "pässwörd", strings.Repeat("•", 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskSecret(tt.secret); got != tt.want {
				t.Errorf("MaskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}
