// Package batch merges per-feature mesh fragments into vertex-budgeted
// batches and seals them into draw units.
package batch

import "fmt"

// Budget limits. A sealed batch always has more than MinVertices and fewer
// than MaxVertices vertices so 16-bit indices can address it.
const (
	MaxVertices = 65000
	MinVertices = 3
)

// Decision is what happens to a fragment offered to an open batch.
type Decision int

const (
	// Discard drops a degenerate fragment.
	Discard Decision = iota
	// Reject drops a fragment too large for any batch.
	Reject
	// Merge appends the fragment to the open batch.
	Merge
	// SealAndStart seals the open batch and seeds a new one with the
	// fragment.
	SealAndStart
)

func (d Decision) String() string {
	switch d {
	case Discard:
		return "discard"
	case Reject:
		return "reject"
	case Merge:
		return "merge"
	case SealAndStart:
		return "seal-and-start"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Decide returns the decision for a fragment of frag vertices offered to a
// batch currently holding open vertices.
func Decide(open, frag int) Decision {
	switch {
	case frag <= MinVertices:
		return Discard
	case frag >= MaxVertices:
		return Reject
	case open+frag < MaxVertices:
		return Merge
	default:
		return SealAndStart
	}
}
