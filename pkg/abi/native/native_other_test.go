//go:build !darwin

package native

import (
	"errors"
	"testing"
)

func TestOpenUnsupported(t *testing.T) {
	rt, err := Open()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Open() error = %v, want ErrUnsupported", err)
	}
	if rt != nil {
		t.Errorf("Open() returned a runtime: %v", rt)
	}
}
