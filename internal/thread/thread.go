// Package thread identifies the calling OS thread.
//
// Autorelease pools are per thread, so anything that keys state by thread must
// first pin the calling goroutine with runtime.LockOSThread.
package thread

// ID returns an identifier of the OS thread running the caller.
func ID() uint64 {
	return current()
}
