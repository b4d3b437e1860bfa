package export

import (
	"sync"
)

// RunGuard lets a single export run at a time.
type RunGuard struct {
	lock sync.Mutex
}

func (g *RunGuard) TryBegin() (release func(), ok bool) {
	if !g.lock.TryLock() {
		return nil, false
	}
	once := &sync.Once{}
	return func() {
		once.Do(g.lock.Unlock)
	}, true
}
