// Package vectorindex implements the in-memory vector index (VI): a
// structure mapping a dense, contiguous, 0-based slot to a stored vector,
// searchable by squared L2 distance. It has no native per-slot deletion;
// callers needing to remove a vector must Reset and re-Add survivors.
package vectorindex

import "fmt"

// Match is a single nearest-neighbor result.
type Match struct {
	Slot     int
	Distance float32
}

// Index is the VI contract: add a vector and get back its slot, count
// the slots, search for the nearest ones, and reset to empty for a full
// rebuild.
type Index interface {
	// Add appends vector as the next slot and returns that slot's index.
	Add(vector []float32) (int, error)

	// Reset discards every vector, returning the index to empty.
	Reset()

	// Count returns the number of vectors currently held.
	Count() int

	// Search returns the k slots nearest to query, ascending by squared
	// L2 distance. Returns at most min(k, Count()) results.
	Search(query []float32, k int) ([]Match, error)
}

func dimensionError(got, want int) error {
	return fmt.Errorf("vectorindex: dimension mismatch: got %d, want %d", got, want)
}
