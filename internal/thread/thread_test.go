package thread

import (
	"runtime"
	"testing"
)

func TestIDStableWhileLocked(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	first := ID()
	for i := 0; i < 100; i++ {
		runtime.Gosched()
		if got := ID(); got != first {
			t.Fatalf("thread id changed while locked: %d != %d", got, first)
		}
	}
}

func TestIDDiffersAcrossLockedGoroutines(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("no thread ids on this platform")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	mine := ID()

	other := make(chan uint64)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		other <- ID()
	}()
	if got := <-other; got == mine {
		t.Fatalf("two locked goroutines share thread id %d", got)
	}
}
