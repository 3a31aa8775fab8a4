//go:build !darwin

package native

import "github.com/blacktop/objcrt/pkg/abi"

func open() (abi.Runtime, error) {
	return nil, ErrUnsupported
}
