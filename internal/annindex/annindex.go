// Package annindex wraps an HNSW graph as the ANN index of spec.md §4.6:
// identifiers are the graph's own keys, no side id-mapping is needed
// because the pointer codec already hands out dense 63-bit integers.
// This trims the usual idMap/keyMap pair some coder/hnsw wrappers carry
// to bridge content-hash string ids into the graph's integer key space,
// a problem this system doesn't have.
package annindex

import (
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/vecobj"
)

// DefaultM is the graph degree used when Config.M is left zero.
const DefaultM = 16

// minSearchK is the floor on how many neighbors to over-fetch before
// threshold filtering, matching original_source/src/index/index.py's
// search_k = max(k*2, 50).
const minSearchK = 50

// Config configures a new Index.
type Config struct {
	Dim int
	M   int
}

// Index is the in-memory ANN graph. Reads run concurrently; writes
// (AddMany) are serialized by a single-writer lock (spec.md §5).
type Index struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dim   int
}

// Info reports index state for observability (spec.md §4.6).
type Info struct {
	Dim  int
	M    int
	Size int
}

// New constructs an empty index for D-dimensional vectors and graph
// degree M (0 selects DefaultM).
func New(cfg Config) (*Index, error) {
	if cfg.Dim <= 0 {
		return nil, errkit.Internal("annindex: dimension must be positive", nil)
	}
	m := cfg.M
	if m == 0 {
		m = DefaultM
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.EuclideanDistance
	graph.M = m
	graph.Ml = 0.25

	return &Index{graph: graph, dim: cfg.Dim}, nil
}

// AddMany extracts (id, values) pairs from vectors and inserts them in
// one exclusive pass. Index state transitions Empty -> Populated and
// stays Populated: there is no removal (spec.md §4.6, §9).
func (idx *Index) AddMany(vectors []*vecobj.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	nodes := make([]hnsw.Node[uint64], 0, len(vectors))
	for _, v := range vectors {
		if len(v.Values()) != idx.dim {
			return errkit.DimensionMismatch(idx.dim, len(v.Values()))
		}
		nodes = append(nodes, hnsw.MakeNode(v.ID(), v.Values()))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph.Add(nodes...)
	return nil
}

// Search returns up to k ids in ascending squared-L2 distance order. If
// threshold is non-nil, only distances strictly less than *threshold are
// kept. Implementations over-fetch to cover the threshold filter, per
// spec.md §4.6.
func (idx *Index) Search(query []float32, k int, threshold *float32) ([]uint64, []float32, error) {
	if err := idx.validateQuery(query); err != nil {
		return nil, nil, err
	}
	if k <= 0 {
		return nil, nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return nil, nil, nil
	}

	searchK := k * 2
	if searchK < minSearchK {
		searchK = minSearchK
	}

	nodes := idx.graph.Search(query, searchK)

	type scored struct {
		id   uint64
		dist float32
	}
	candidates := make([]scored, 0, len(nodes))
	for _, node := range nodes {
		// Reported distances are squared L2, computed here rather than
		// taken from graph.Distance (the plain Euclidean distance the
		// graph navigates by; both give the same order).
		var dist float32
		for i := range query {
			d := query[i] - node.Value[i]
			dist += d * d
		}
		if threshold != nil && !(dist < *threshold) {
			continue
		}
		candidates = append(candidates, scored{id: node.Key, dist: dist})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	ids := make([]uint64, len(candidates))
	distances := make([]float32, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
		distances[i] = c.dist
	}
	return ids, distances, nil
}

// MultiSearch runs Search once per query. Per-query filtering is
// identical to Search.
func (idx *Index) MultiSearch(queries [][]float32, k int, threshold *float32) ([][]uint64, [][]float32, error) {
	ids := make([][]uint64, len(queries))
	distances := make([][]float32, len(queries))
	for i, q := range queries {
		qIDs, qDist, err := idx.Search(q, k, threshold)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = qIDs
		distances[i] = qDist
	}
	return ids, distances, nil
}

// Size returns the number of vectors currently in the graph.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len()
}

// Info reports index configuration and size for observability.
func (idx *Index) Info() Info {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Info{Dim: idx.dim, M: idx.graph.M, Size: idx.graph.Len()}
}

func (idx *Index) validateQuery(query []float32) error {
	if len(query) != idx.dim {
		return errkit.DimensionMismatch(idx.dim, len(query))
	}
	for _, f := range query {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return errkit.InvalidVector("query vector contains NaN or Inf")
		}
	}
	return nil
}
