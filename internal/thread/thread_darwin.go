//go:build darwin

package thread

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	loadOnce            sync.Once
	pthread_self        func() uintptr
	pthread_threadid_np func(thread uintptr, id *uint64) int32
)

func load() {
	lib, err := purego.Dlopen("/usr/lib/libSystem.B.dylib", purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		panic(err)
	}
	purego.RegisterLibFunc(&pthread_self, lib, "pthread_self")
	purego.RegisterLibFunc(&pthread_threadid_np, lib, "pthread_threadid_np")
}

func current() uint64 {
	loadOnce.Do(load)
	var id uint64
	pthread_threadid_np(pthread_self(), &id)
	return id
}
