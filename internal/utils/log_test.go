package utils

import (
	"testing"

	"github.com/apex/log/handlers/cli"
)

func TestIndent(t *testing.T) {
	var during int
	Indent(func(string) { during = cli.Default.Padding }, 3)("msg")
	if during != normalPadding*3 {
		t.Errorf("padding while logging = %d, want %d", during, normalPadding*3)
	}
	if cli.Default.Padding != normalPadding {
		t.Errorf("padding not restored: %d", cli.Default.Padding)
	}
}
