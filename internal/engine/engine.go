// Package engine implements the memory index engine: the single owning
// object that couples the durable record store (RS) to the in-memory
// vector index (VI) via a slot table (ST), under one writer lock. It is
// the only thing that ever mutates VI or ST, and the only thing that
// orders RS writes ahead of index mutation.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nocturnewell/mnemo/internal/store"
	"github.com/nocturnewell/mnemo/internal/vectorindex"
)

// Engine orchestrates RS + VI + ST behind a single writer lock. Every
// exported method except Dimension and Close holds mu while it touches
// RS, VI or ST — including reads — because VI's search is not safe to run
// concurrently with an in-flight rebuild.
type Engine struct {
	mu    sync.Mutex
	store store.Store
	index vectorindex.Index
	slots []string // ST: slot -> id, parallel to index insertion order
	dim   int
}

// Open constructs an Engine over an already-opened store and an empty
// vector index, then runs the load procedure to reconstruct VI/ST from
// RS. st and idx are owned by the returned Engine from this point on.
func Open(st store.Store, idx vectorindex.Index, dim int) (*Engine, error) {
	e := &Engine{store: st, index: idx, dim: dim}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

// load clears VI/ST and replays RS in key order, skipping reserved
// namespaces and any record that fails to decode or whose embedding
// doesn't match dim. Corrupt records are logged and skipped, never fatal.
// Callers must hold mu.
func (e *Engine) load() error {
	e.index.Reset()
	e.slots = nil

	for entry, err := range e.store.Scan() {
		if err != nil {
			return fmt.Errorf("engine: load scan: %w", err)
		}
		key := string(entry.Key)
		if strings.HasPrefix(key, prefPrefix) || strings.HasPrefix(key, metaPrefix) {
			continue
		}

		var mem Memory
		if err := json.Unmarshal(entry.Value, &mem); err != nil {
			log.Printf("engine: skipping corrupt record %q: %v", key, err)
			continue
		}
		if len(mem.Embedding) != e.dim {
			log.Printf("engine: skipping record %q: embedding length %d != %d", key, len(mem.Embedding), e.dim)
			continue
		}

		if _, err := e.index.Add(mem.Embedding); err != nil {
			log.Printf("engine: skipping record %q: %v", key, err)
			continue
		}
		e.slots = append(e.slots, mem.ID)
	}
	return nil
}

// Add inserts mem, allocating an id if mem.ID is empty. Returns the id
// that was stored. A failed add never mutates VI or ST.
func (e *Engine) Add(mem Memory) (string, error) {
	if len(mem.Embedding) != e.dim {
		return "", fmt.Errorf("engine: add: embedding length %d != %d: %w", len(mem.Embedding), e.dim, ErrInvalidArgument)
	}
	if mem.Category == "" {
		mem.Category = "general"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := mem.ID
	if id == "" {
		id = generateID()
	}

	if _, err := e.store.Get([]byte(id)); err == nil {
		return "", fmt.Errorf("engine: add %q: %w", id, ErrDuplicate)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("engine: add %q: %w", id, ErrStoreFailure)
	}

	mem.ID = id
	if mem.Timestamp == 0 {
		mem.Timestamp = time.Now().UnixMilli()
	}

	encoded, err := json.Marshal(mem)
	if err != nil {
		return "", fmt.Errorf("engine: add %q: encode: %w", id, err)
	}
	if err := e.store.Put([]byte(id), encoded); err != nil {
		return "", fmt.Errorf("engine: add %q: %w", id, ErrStoreFailure)
	}

	if _, err := e.index.Add(mem.Embedding); err != nil {
		// RS already committed; this should not happen given the dimension
		// check above, but if it does the record is now orphaned from VI
		// until the next rebuild (update/remove), consistent with "RS is
		// source of truth, VI is rebuildable."
		return "", fmt.Errorf("engine: add %q: index: %w", id, err)
	}
	e.slots = append(e.slots, id)

	return id, nil
}

// Search returns the k nearest memories to query, ordered by ascending
// squared L2 distance. Records that fail to resolve from RS are skipped
// rather than backfilled, so the caller may see fewer than k results.
func (e *Engine) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != e.dim {
		return nil, fmt.Errorf("engine: search: query length %d != %d: %w", len(query), e.dim, ErrInvalidArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("engine: search: top_k must be positive: %w", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index.Count() == 0 {
		return nil, nil
	}

	matches, err := e.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("engine: search: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Slot < 0 || m.Slot >= len(e.slots) {
			continue
		}
		id := e.slots[m.Slot]
		raw, err := e.store.Get([]byte(id))
		if err != nil {
			log.Printf("engine: search: skipping slot %d (id %q): %v", m.Slot, id, err)
			continue
		}
		var mem Memory
		if err := json.Unmarshal(raw, &mem); err != nil {
			log.Printf("engine: search: skipping slot %d (id %q): corrupt record: %v", m.Slot, id, err)
			continue
		}
		results = append(results, SearchResult{
			ID:        mem.ID,
			Content:   mem.Content,
			Category:  mem.Category,
			Score:     m.Distance,
			Timestamp: mem.Timestamp,
		})
	}
	return results, nil
}

// Update replaces a memory's content and embedding in place, preserving
// id and category, then rebuilds VI/ST from RS because the vector index
// has no mutable-slot semantics.
func (e *Engine) Update(id, content string, embedding []float32) error {
	if len(embedding) != e.dim {
		return fmt.Errorf("engine: update %q: embedding length %d != %d: %w", id, len(embedding), e.dim, ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.store.Get([]byte(id))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("engine: update %q: %w", id, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("engine: update %q: %w", id, ErrStoreFailure)
	}

	var mem Memory
	if err := json.Unmarshal(raw, &mem); err != nil {
		return fmt.Errorf("engine: update %q: decode existing record: %w", id, err)
	}
	mem.Content = content
	mem.Embedding = embedding
	mem.Timestamp = time.Now().UnixMilli()

	encoded, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("engine: update %q: encode: %w", id, err)
	}
	if err := e.store.Put([]byte(id), encoded); err != nil {
		return fmt.Errorf("engine: update %q: %w", id, ErrStoreFailure)
	}

	if err := e.load(); err != nil {
		return fmt.Errorf("engine: update %q: rebuild: %w", id, err)
	}
	return nil
}

// Remove deletes a memory and rebuilds VI/ST from RS. Pre-checks
// existence and returns ErrNotFound for a missing id, for symmetry with
// Update's error taxonomy.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.Get([]byte(id)); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("engine: remove %q: %w", id, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("engine: remove %q: %w", id, ErrStoreFailure)
	}

	if err := e.store.Delete([]byte(id)); err != nil {
		return fmt.Errorf("engine: remove %q: %w", id, ErrStoreFailure)
	}

	if err := e.load(); err != nil {
		return fmt.Errorf("engine: remove %q: rebuild: %w", id, err)
	}
	return nil
}

// PutPreference writes value under the pref: namespace, unconditionally
// overwriting any prior value.
func (e *Engine) PutPreference(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Put([]byte(prefPrefix+key), []byte(value)); err != nil {
		return fmt.Errorf("engine: put_preference %q: %w", key, ErrStoreFailure)
	}
	return nil
}

// GetPreference returns the value stored under key, or "" if never set —
// there is no separate "missing" signal on this surface.
func (e *Engine) GetPreference(key string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	val, err := e.store.Get([]byte(prefPrefix + key))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("engine: get_preference %q: %w", key, ErrStoreFailure)
	}
	return string(val), nil
}

// Size returns the number of memories currently indexed.
func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Count()
}

// Exists reports whether id names a stored memory.
func (e *Engine) Exists(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.store.Get([]byte(id))
	return err == nil
}

// Dimension returns the configured embedding dimension D.
func (e *Engine) Dimension() int { return e.dim }

// Close releases the underlying record store. VI is never persisted
// separately — it is always rebuildable from RS.
func (e *Engine) Close() error {
	return e.store.Close()
}
