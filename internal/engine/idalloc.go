package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// generateID produces mem_<epoch_ms>_<4-digit>. It is not a UUID scheme
// on purpose — the prefix and tail are a cheap way to recognize
// engine-generated ids, nothing more; callers may always supply their own
// id instead.
func generateID() string {
	ms := time.Now().UnixMilli()
	tail := rand.IntN(9000) + 1000
	return fmt.Sprintf("mem_%d_%d", ms, tail)
}
