//go:build !unix

package meshbuf

// Without mmap the block lives on the Go heap; lifecycle rules are unchanged.
func mapBlock(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapBlock([]byte) error {
	return nil
}
