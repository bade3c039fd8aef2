package interfaces

import "context"

type RunLock interface {
	// Acquire returns ErrRunInProgress when another run holds the lock.
	Acquire(ctx context.Context, name string) (release func(), err error)
}
