package objc

import (
	"errors"
	"runtime"
	"testing"
)

func TestDescribe(t *testing.T) {
	info, err := Describe("NSObject")
	if errors.Is(err, ErrUnavailable) {
		if runtime.GOOS == "darwin" {
			t.Skip("built without cgo")
		}
		return
	}
	if err != nil {
		t.Fatalf("Describe(NSObject) error = %v", err)
	}
	if info.Name != "NSObject" || info.Super != "" {
		t.Errorf("Describe(NSObject) = %+v", info)
	}
	found := false
	for _, m := range info.Methods {
		if m.Name == "description" {
			found = m.Types != ""
		}
	}
	if !found {
		t.Error("-description missing from the method list")
	}
	if _, err := Describe("NSDefinitelyNotAClass"); err == nil {
		t.Error("Describe found a class that does not exist")
	}
}
