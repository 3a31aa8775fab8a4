//go:build darwin && cgo

// Package objc reads class metadata out of the running Objective-C runtime:
// loaded images, method lists with their type encodings, adopted protocols.
// It is a read-only view used for reporting; messaging and ownership go
// through pkg/abi.
package objc

// #cgo CFLAGS: -W -Wall -Wno-unused-parameter -Wno-unused-function -O3
// #cgo LDFLAGS: -lobjc -framework Foundation
import "C"
