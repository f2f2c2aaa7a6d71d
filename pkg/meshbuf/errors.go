package meshbuf

import (
	"github.com/pkg/errors"
)

// Buffer faults. ErrAllocation is returned from constructors; the others are
// programming errors and are raised with panic, wrapped with a stack trace so
// errors.Is still matches after recover.
var (
	ErrAllocation     = errors.New("meshbuf: allocation rejected")
	ErrOutOfRange     = errors.New("meshbuf: index out of range")
	ErrUseAfterFree   = errors.New("meshbuf: use after release")
	ErrDoubleDispose  = errors.New("meshbuf: released twice")
	ErrAccessConflict = errors.New("meshbuf: conflicting access")
)

func fatal(err error, format string, args ...any) {
	panic(errors.Wrapf(err, format, args...))
}

// noCopy makes go vet's copylocks check flag accidental copies of owning values.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
