//go:build !linux && !darwin

package thread

// Platforms without a thread id share a single pool stack.
func current() uint64 {
	return 0
}
