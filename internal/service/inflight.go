package service

import (
	"sync"

	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// inflight tracks operations that are currently running so a second identical call is refused
// instead of queued behind the first.
type inflight struct {
	mu  sync.Mutex
	ops map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ops: make(map[string]struct{})}
}

// begin marks key busy. The returned func releases it and must be called exactly once.
func (f *inflight) begin(key string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ops[key]; busy {
		return nil, appErrors.Clone(appErrors.ErrBusy, "Permintaan sebelumnya masih diproses")
	}
	f.ops[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.ops, key)
		f.mu.Unlock()
	}, nil
}

// busy reports whether key is currently held.
func (f *inflight) busy(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ops[key]
	return ok
}
