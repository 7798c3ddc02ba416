package database

import (
	"fmt"

	"github.com/gofrs/flock"
)

// acquireDirLock takes an exclusive advisory lock on path without waiting.
// The returned func releases it.
func acquireDirLock(path string) (*flock.Flock, func(), error) {
	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, func() {}, fmt.Errorf("cannot acquire index lock: %w", err)
	}
	if !locked {
		return nil, func() {}, fmt.Errorf("%w (lock: %s)", ErrIndexLocked, path)
	}
	return l, func() { _ = l.Unlock() }, nil
}
