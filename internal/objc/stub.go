//go:build !darwin || !cgo

package objc

// Images is unavailable without cgo.
func Images() ([]string, error) { return nil, ErrUnavailable }

// ClassNames is unavailable without cgo.
func ClassNames(string) ([]string, error) { return nil, ErrUnavailable }

// Describe is unavailable without cgo.
func Describe(string) (*ClassInfo, error) { return nil, ErrUnavailable }
