package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withColor(t *testing.T, on bool) {
	t.Helper()
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })
	Init(&on)
}

func TestInit(t *testing.T) {
	withColor(t, true)
	if !Enabled() {
		t.Error("Init(true) left colors off")
	}
	off := false
	Init(&off)
	if Enabled() {
		t.Error("Init(false) left colors on")
	}
	Init(nil)
	if Enabled() {
		t.Error("Init(nil) changed the setting")
	}
}

func TestPlainWhenDisabled(t *testing.T) {
	withColor(t, false)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"class", Class("NSString"), "NSString"},
		{"selector", Selector("length"), "length"},
		{"op", Op("dealloc"), "dealloc"},
		{"unknown op", Op("alloc"), "alloc"},
		{"bool", Bool(true), "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEscapesWhenEnabled(t *testing.T) {
	withColor(t, true)
	if s := Op("retain"); !strings.Contains(s, "\x1b[") || !strings.Contains(s, "retain") {
		t.Errorf("Op(retain) = %q", s)
	}
	if s := Bool(false); !strings.Contains(s, "\x1b[") {
		t.Errorf("Bool(false) = %q", s)
	}
}
