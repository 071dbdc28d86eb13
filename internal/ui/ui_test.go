package ui

import (
	"bytes"
	"testing"
)

func TestStyler(t *testing.T) {
	plain := Styler{}
	if got := plain.Accent("Product"); got != "Product" {
		t.Errorf("plain Accent = %q", got)
	}

	color := Styler{Color: true}
	if got := color.Warn("low"); got != "\x1b[38;5;214mlow\x1b[0m" {
		t.Errorf("Warn = %q", got)
	}
	if got := color.Muted("09:00"); got != "\x1b[38;5;245m09:00\x1b[0m" {
		t.Errorf("Muted = %q", got)
	}
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name              string
		noColor, force, c string
		want              bool
	}{
		{"buffer is not a terminal", "", "", "", false},
		{"forced", "", "1", "", true},
		{"NO_COLOR wins over force", "1", "1", "", false},
		{"CLICOLOR=0", "", "", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("CLICOLOR_FORCE", tt.force)
			t.Setenv("CLICOLOR", tt.c)
			if got := ShouldUseColor(&bytes.Buffer{}); got != tt.want {
				t.Errorf("ShouldUseColor = %v, want %v", got, tt.want)
			}
		})
	}
}
