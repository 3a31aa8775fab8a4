//go:build darwin && cgo

package objc

/*
#include <stdlib.h>
#include <objc/runtime.h>
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

func goStrings(list **C.char, n C.uint) []string {
	if list == nil || n == 0 {
		return nil
	}
	defer C.free(unsafe.Pointer(list))
	out := make([]string, 0, int(n))
	for _, s := range unsafe.Slice(list, int(n)) {
		out = append(out, C.GoString(s))
	}
	return out
}

// Images returns the paths of every image that registered Objective-C
// metadata.
func Images() ([]string, error) {
	var count C.uint
	return goStrings(C.objc_copyImageNames(&count), count), nil
}

// ClassNames returns the classes defined by the image at path.
func ClassNames(image string) ([]string, error) {
	cimage := C.CString(image)
	defer C.free(unsafe.Pointer(cimage))

	var count C.uint
	names := goStrings(C.objc_copyClassNamesForImage(cimage, &count), count)
	if names == nil {
		return nil, errors.Errorf("objc: no classes registered for image %s", image)
	}
	return names, nil
}
