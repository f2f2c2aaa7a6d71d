package meshbuf

import (
	"math"
	"sync/atomic"

	"github.com/pkg/errors"
)

// MaxBytes is the largest single block a Buffer may own.
const MaxBytes = math.MaxInt32

var outstanding atomic.Int64

// Outstanding returns the number of off-heap bytes currently held by live
// buffers across the process.
func Outstanding() int64 {
	return outstanding.Load()
}

func allocate(size int64) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrAllocation, "negative size %d", size)
	}
	if size > MaxBytes {
		return nil, errors.Wrapf(ErrAllocation, "%d bytes exceeds limit of %d", size, int64(MaxBytes))
	}
	if size == 0 {
		return nil, nil
	}
	mem, err := mapBlock(int(size))
	if err != nil {
		return nil, errors.Wrapf(ErrAllocation, "map %d bytes: %v", size, err)
	}
	outstanding.Add(size)
	return mem, nil
}

func free(mem []byte) {
	if len(mem) == 0 {
		return
	}
	size := int64(len(mem))
	if err := unmapBlock(mem); err != nil {
		// The block is unusable either way; a failed unmap means the
		// bookkeeping above this call is already broken.
		panic(errors.Wrap(err, "meshbuf: unmap"))
	}
	outstanding.Add(-size)
}
