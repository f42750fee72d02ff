package vectorindex

import (
	"container/heap"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
)

// HNSWConfig configures a new HNSW index.
type HNSWConfig struct {
	// Dim is the vector dimension. Required; must be positive.
	Dim int

	// M is the maximum number of connections per node per layer (layer 0
	// allows 2*M). Default: 16.
	M int

	// EfConstruction is the candidate list size while building the graph.
	// Default: 200.
	EfConstruction int

	// EfSearch is the candidate list size during search. Default: 50.
	EfSearch int
}

func (c *HNSWConfig) setDefaults() {
	if c.M < 2 {
		c.M = 16
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 50
	}
}

func (c *HNSWConfig) maxConns(layer int) int {
	if layer == 0 {
		return c.M * 2
	}
	return c.M
}

type distItem struct {
	id   int
	dist float32
}

type minDistHeap []distItem

func (h minDistHeap) Len() int           { return len(h) }
func (h minDistHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *minDistHeap) Pop() any          { old := *h; n := len(old); x := old[n-1]; *h = old[:n-1]; return x }

type maxDistHeap []distItem

func (h maxDistHeap) Len() int           { return len(h) }
func (h maxDistHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *maxDistHeap) Pop() any          { old := *h; n := len(old); x := old[n-1]; *h = old[:n-1]; return x }

// hnswNode is a single vector in the HNSW graph. Its slot in the parent
// HNSW.nodes slice doubles as its external VI slot — this index is only
// ever appended to or fully Reset, so unlike a general-purpose HNSW there
// is no free list or id remapping to maintain.
type hnswNode struct {
	vector  []float32
	level   int
	friends [][]int // friends[layer] = neighbor slots at that layer
}

// HNSW is a Hierarchical Navigable Small World approximate nearest
// neighbor index, scored by squared L2 distance, using slot semantics: a
// node's position in nodes is its external slot, assigned once on Add
// and never reused until Reset.
type HNSW struct {
	mu       sync.RWMutex
	cfg      HNSWConfig
	nodes    []*hnswNode
	entry    int
	maxLevel int
	levelMul float64
}

var _ Index = (*HNSW)(nil)

// NewHNSW creates an empty HNSW index. Panics if cfg.Dim is not positive.
func NewHNSW(cfg HNSWConfig) *HNSW {
	if cfg.Dim <= 0 {
		panic("vectorindex: HNSWConfig.Dim must be positive")
	}
	cfg.setDefaults()
	return &HNSW{
		cfg:      cfg,
		entry:    -1,
		levelMul: 1.0 / math.Log(float64(cfg.M)),
	}
}

func (h *HNSW) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func (h *HNSW) Reset() {
	h.mu.Lock()
	h.nodes = nil
	h.entry = -1
	h.maxLevel = 0
	h.mu.Unlock()
}

func (h *HNSW) Add(vector []float32) (int, error) {
	if len(vector) != h.cfg.Dim {
		return 0, dimensionError(len(vector), h.cfg.Dim)
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	h.mu.Lock()
	defer h.mu.Unlock()

	slot := len(h.nodes)
	level := h.randomLevel()
	nd := &hnswNode{vector: vec, level: level, friends: make([][]int, level+1)}
	h.nodes = append(h.nodes, nd)

	if h.entry < 0 {
		h.entry = slot
		h.maxLevel = level
		return slot, nil
	}

	// Phase 1: greedy descent from the top layer down to level+1.
	cur := h.entry
	curDist := SquaredL2(vec, h.nodes[cur].vector)
	for lev := h.maxLevel; lev > level; lev-- {
		changed := true
		for changed {
			changed = false
			curNode := h.nodes[cur]
			if lev >= len(curNode.friends) {
				break
			}
			for _, fID := range curNode.friends[lev] {
				d := SquaredL2(vec, h.nodes[fID].vector)
				if d < curDist {
					cur, curDist, changed = fID, d, true
				}
			}
		}
	}

	// Phase 2: beam search + bidirectional connection at each layer down to 0.
	topInsert := min(level, h.maxLevel)
	ep := []int{cur}
	for lev := topInsert; lev >= 0; lev-- {
		candidates := h.searchLayer(vec, ep, h.cfg.EfConstruction, lev)
		maxC := h.cfg.maxConns(lev)
		neighbors := h.selectClosest(vec, candidates, maxC)
		nd.friends[lev] = neighbors

		for _, nID := range neighbors {
			nn := h.nodes[nID]
			if lev >= len(nn.friends) {
				continue
			}
			nn.friends[lev] = append(nn.friends[lev], slot)
			if len(nn.friends[lev]) > maxC {
				nn.friends[lev] = h.selectClosest(nn.vector, nn.friends[lev], maxC)
			}
		}
		ep = candidates
	}

	if level > h.maxLevel {
		h.entry = slot
		h.maxLevel = level
	}
	return slot, nil
}

func (h *HNSW) Search(query []float32, k int) ([]Match, error) {
	if len(query) != h.cfg.Dim {
		return nil, dimensionError(len(query), h.cfg.Dim)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.nodes) == 0 || k <= 0 {
		return nil, nil
	}

	ef := h.cfg.EfSearch
	if ef < k {
		ef = k
	}

	cur := h.entry
	curDist := SquaredL2(query, h.nodes[cur].vector)
	for lev := h.maxLevel; lev > 0; lev-- {
		changed := true
		for changed {
			changed = false
			nd := h.nodes[cur]
			if lev >= len(nd.friends) {
				break
			}
			for _, fID := range nd.friends[lev] {
				d := SquaredL2(query, h.nodes[fID].vector)
				if d < curDist {
					cur, curDist, changed = fID, d, true
				}
			}
		}
	}

	candidateIDs := h.searchLayer(query, []int{cur}, ef, 0)

	results := make([]Match, len(candidateIDs))
	for i, cID := range candidateIDs {
		results[i] = Match{Slot: cID, Distance: SquaredL2(query, h.nodes[cID].vector)}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (h *HNSW) randomLevel() int {
	r := max(rand.Float64(), math.SmallestNonzeroFloat64)
	level := int(-math.Log(r) * h.levelMul)
	if level > 31 {
		level = 31
	}
	return level
}

func (h *HNSW) searchLayer(query []float32, entryPoints []int, ef, layer int) []int {
	visited := make(map[int]struct{}, ef*2)
	var candidates minDistHeap
	var results maxDistHeap

	for _, ep := range entryPoints {
		if _, seen := visited[ep]; seen {
			continue
		}
		visited[ep] = struct{}{}
		d := SquaredL2(query, h.nodes[ep].vector)
		heap.Push(&candidates, distItem{id: ep, dist: d})
		heap.Push(&results, distItem{id: ep, dist: d})
	}

	for candidates.Len() > 0 {
		closest := heap.Pop(&candidates).(distItem)
		if results.Len() >= ef && closest.dist > results[0].dist {
			break
		}

		nd := h.nodes[closest.id]
		if layer >= len(nd.friends) {
			continue
		}
		for _, fID := range nd.friends[layer] {
			if _, seen := visited[fID]; seen {
				continue
			}
			visited[fID] = struct{}{}

			d := SquaredL2(query, h.nodes[fID].vector)
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&candidates, distItem{id: fID, dist: d})
				heap.Push(&results, distItem{id: fID, dist: d})
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]int, results.Len())
	for i := range out {
		out[i] = results[i].id
	}
	return out
}

func (h *HNSW) selectClosest(query []float32, candidates []int, maxN int) []int {
	if len(candidates) <= maxN {
		out := make([]int, len(candidates))
		copy(out, candidates)
		return out
	}

	type scored struct {
		id   int
		dist float32
	}
	items := make([]scored, len(candidates))
	for i, cID := range candidates {
		items[i] = scored{id: cID, dist: SquaredL2(query, h.nodes[cID].vector)}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].dist < items[j].dist })
	items = items[:maxN]

	out := make([]int, len(items))
	for i := range items {
		out[i] = items[i].id
	}
	return out
}
