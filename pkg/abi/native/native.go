// Package native binds the real Objective-C runtime and CoreFoundation.
//
// The runtime is loaded with purego, so no C toolchain is needed to build it.
// Objective-C exceptions cannot unwind through Go frames: a native exception
// raised inside a send aborts the process.
package native

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned by Open on platforms without an Objective-C
// runtime.
var ErrUnsupported = errors.New("native: no Objective-C runtime on this platform")

const (
	libobjcPath      = "/usr/lib/libobjc.A.dylib"
	libSystemPath    = "/usr/lib/libSystem.B.dylib"
	coreFoundation   = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"
	foundationPath   = "/System/Library/Frameworks/Foundation.framework/Foundation"
	typeNameCapacity = 256
)

// Open loads the system runtime. It is safe to call more than once; every
// call returns the same runtime.
func Open() (abi.Runtime, error) {
	return open()
}
