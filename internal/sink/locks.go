package sink

import "sync"

// fileLocks serializes writes per destination pathname. Two poll targets for
// the same source completing close in time must not interleave output.
type fileLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFileLocks() *fileLocks {
	return &fileLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for path, creating it on first use.
func (f *fileLocks) get(path string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.locks[path]
	if !ok {
		l = &sync.Mutex{}
		f.locks[path] = l
	}
	return l
}
