package meshbuf

import (
	"sync"
	"sync/atomic"
)

// safety tracks the lifecycle and access intent of one Buffer or List. It
// lives on the Go heap so checks keep working after the storage is unmapped.
type safety struct {
	mu       sync.Mutex
	released atomic.Bool // owner handle is dead
	freed    atomic.Bool // storage is gone
	readers  atomic.Int32
	writers  atomic.Int32
}

func (s *safety) checkAlive(what string) {
	if s.released.Load() {
		fatal(ErrUseAfterFree, "%s", what)
	}
}

func (s *safety) checkMutate(what string) {
	s.checkAlive(what)
	if s.readers.Load() > 0 {
		fatal(ErrAccessConflict, "%s while %d readers are active", what, s.readers.Load())
	}
}

func (s *safety) acquireRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive("begin read")
	if n := s.writers.Load(); n > 0 {
		fatal(ErrAccessConflict, "begin read while %d writers hold intent", n)
	}
	s.readers.Add(1)
}

func (s *safety) acquireWrite(n int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive("begin write")
	if r := s.readers.Load(); r > 0 {
		fatal(ErrAccessConflict, "begin write while %d readers are active", r)
	}
	if w := s.writers.Load(); w > 0 {
		fatal(ErrAccessConflict, "begin write while %d writers hold intent", w)
	}
	s.writers.Add(n)
}

// release flips the owner handle to dead under the same lock that guards
// new intents, so no reader can slip in between the check and the flip.
// Write intent is tolerated when the caller defers the free until the
// writers finish.
func (s *safety) release(what string, writersOK bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released.Load() {
		fatal(ErrDoubleDispose, "%s", what)
	}
	if r := s.readers.Load(); r > 0 {
		fatal(ErrAccessConflict, "release %s with %d active readers", what, r)
	}
	if w := s.writers.Load(); w > 0 && !writersOK {
		fatal(ErrAccessConflict, "release %s with %d active writers", what, w)
	}
	s.released.Store(true)
}

// ReadGuard declares read intent on a buffer. While any reader is active,
// mutation through the buffer and new write intents panic.
type ReadGuard struct {
	s    *safety
	once sync.Once
}

// Done ends the read intent. Calling it more than once is a no-op.
func (g *ReadGuard) Done() {
	g.once.Do(func() { g.s.readers.Add(-1) })
}

// WriteGuard declares exclusive write intent on a buffer.
type WriteGuard struct {
	s    *safety
	once sync.Once
}

// Done ends the write intent. Calling it more than once is a no-op.
func (g *WriteGuard) Done() {
	g.once.Do(func() { g.s.writers.Add(-1) })
}
