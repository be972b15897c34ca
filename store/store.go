// Package store implements the growable labeled embedding buffer backing the
// classifier. Embeddings live in a single contiguous float32 arena with
// explicit size and capacity; labels are kept in a parallel slice so the
// hot distance loop never chases pointers.
package store

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultCapacity is the number of sample slots allocated for a fresh store.
const DefaultCapacity = 100

// Store is a capacity-capped container of (embedding, label) samples.
// Insertion order is meaningful: per-class eviction drops the oldest samples
// of an over-represented class first.
//
// Store is not safe for concurrent use; the owning classifier serializes all
// access behind a single lock.
type Store struct {
	dim         int
	maxPerClass int

	data     []float32 // capacity*dim, row i at [i*dim : (i+1)*dim]
	labels   []string  // capacity entries, first size are active
	size     int
	capacity int
}

// New creates an empty store for embeddings of the given dimension.
// maxPerClass bounds the number of retained samples per label.
func New(dim, maxPerClass int) (*Store, error) {
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}
	if maxPerClass <= 0 {
		return nil, &ErrInvalidCapacity{MaxPerClass: maxPerClass}
	}

	return &Store{
		dim:         dim,
		maxPerClass: maxPerClass,
		data:        make([]float32, DefaultCapacity*dim),
		labels:      make([]string, DefaultCapacity),
		capacity:    DefaultCapacity,
	}, nil
}

// Len returns the number of active samples.
func (s *Store) Len() int { return s.size }

// Dim returns the embedding dimension.
func (s *Store) Dim() int { return s.dim }

// Capacity returns the number of allocated sample slots.
func (s *Store) Capacity() int { return s.capacity }

// MaxSamplesPerClass returns the per-class retention bound.
func (s *Store) MaxSamplesPerClass() int { return s.maxPerClass }

// Embedding returns a view into the arena for sample i.
// The slice is valid until the next mutation.
func (s *Store) Embedding(i int) []float32 {
	return s.data[i*s.dim : (i+1)*s.dim]
}

// Label returns the label of sample i.
func (s *Store) Label(i int) string { return s.labels[i] }

// SetMaxSamplesPerClass updates the per-class retention bound and immediately
// enforces it against the stored samples.
func (s *Store) SetMaxSamplesPerClass(n int) error {
	if n <= 0 {
		return &ErrInvalidCapacity{MaxPerClass: n}
	}
	s.maxPerClass = n
	s.evict()
	return nil
}

// Add appends a sample, growing the arena geometrically when full, then
// enforces the per-class retention bound.
func (s *Store) Add(embedding []float32, label string) error {
	if len(embedding) != s.dim {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: len(embedding)}
	}

	if s.size >= s.capacity {
		s.grow(max(s.capacity, 2*s.size))
	}

	copy(s.data[s.size*s.dim:], embedding)
	s.labels[s.size] = label
	s.size++

	s.evict()
	return nil
}

func (s *Store) grow(newCap int) {
	data := make([]float32, newCap*s.dim)
	copy(data, s.data[:s.size*s.dim])
	labels := make([]string, newCap)
	copy(labels, s.labels[:s.size])

	s.data = data
	s.labels = labels
	s.capacity = newCap
}

// evict drops the oldest excess samples of every over-represented class and
// compacts the active range in one pass. Order among survivors is preserved.
func (s *Store) evict() {
	counts := make(map[string]int, 8)
	for i := 0; i < s.size; i++ {
		counts[s.labels[i]]++
	}

	drop := roaring.New()
	for label, count := range counts {
		excess := count - s.maxPerClass
		if excess <= 0 {
			continue
		}
		for i := 0; i < s.size && excess > 0; i++ {
			if s.labels[i] == label {
				drop.Add(uint32(i))
				excess--
			}
		}
	}

	if drop.IsEmpty() {
		return
	}

	w := 0
	for r := 0; r < s.size; r++ {
		if drop.Contains(uint32(r)) {
			continue
		}
		if w != r {
			copy(s.data[w*s.dim:(w+1)*s.dim], s.data[r*s.dim:(r+1)*s.dim])
			s.labels[w] = s.labels[r]
		}
		w++
	}
	// Release label strings in the now-inactive tail.
	for i := w; i < s.size; i++ {
		s.labels[i] = ""
	}
	s.size = w
}

// KnownLabels returns the distinct labels among active samples, sorted.
func (s *Store) KnownLabels() []string {
	seen := make(map[string]struct{}, 8)
	for i := 0; i < s.size; i++ {
		seen[s.labels[i]] = struct{}{}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// SampleCounts returns the number of active samples per label.
func (s *Store) SampleCounts() map[string]int {
	counts := make(map[string]int, 8)
	for i := 0; i < s.size; i++ {
		counts[s.labels[i]]++
	}
	return counts
}

// Reset discards all samples and shrinks capacity back to the default.
func (s *Store) Reset() {
	s.data = make([]float32, DefaultCapacity*s.dim)
	s.labels = make([]string, DefaultCapacity)
	s.size = 0
	s.capacity = DefaultCapacity
}

// Replace swaps in loaded content, re-allocating capacity as
// max(DefaultCapacity, 2*n). embeddings is a flat n*dim matrix in row-major
// order. The embedding dimension may change (model archives carry their own).
func (s *Store) Replace(embeddings []float32, labels []string, dim int) error {
	if dim <= 0 {
		return &ErrInvalidDimension{Dimension: dim}
	}
	n := len(labels)
	if len(embeddings) != n*dim {
		return &ErrDimensionMismatch{Expected: n * dim, Actual: len(embeddings)}
	}

	capacity := max(DefaultCapacity, 2*n)
	data := make([]float32, capacity*dim)
	copy(data, embeddings)
	lbls := make([]string, capacity)
	copy(lbls, labels)

	s.dim = dim
	s.data = data
	s.labels = lbls
	s.size = n
	s.capacity = capacity
	return nil
}

// ExportEmbeddings returns a copy of the active embedding matrix as a flat
// size*dim slice.
func (s *Store) ExportEmbeddings() []float32 {
	out := make([]float32, s.size*s.dim)
	copy(out, s.data[:s.size*s.dim])
	return out
}

// ExportLabels returns a copy of the active label array.
func (s *Store) ExportLabels() []string {
	out := make([]string, s.size)
	copy(out, s.labels[:s.size])
	return out
}

// Snapshot returns a read view of the active samples for classification.
// The view aliases the arena and is valid until the next mutation; callers
// must hold the classifier lock for the lifetime of the snapshot.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{
		dim:    s.dim,
		size:   s.size,
		data:   s.data,
		labels: s.labels,
	}
}

// Snapshot is a read-only view over the active range of a Store.
type Snapshot struct {
	dim    int
	size   int
	data   []float32
	labels []string
}

// Len returns the number of samples in the view.
func (v *Snapshot) Len() int { return v.size }

// Dim returns the embedding dimension.
func (v *Snapshot) Dim() int { return v.dim }

// Embedding returns the embedding of sample i.
func (v *Snapshot) Embedding(i int) []float32 {
	return v.data[i*v.dim : (i+1)*v.dim]
}

// Label returns the label of sample i.
func (v *Snapshot) Label(i int) string { return v.labels[i] }

// KnownLabels returns the distinct labels in the view, sorted.
func (v *Snapshot) KnownLabels() []string {
	seen := make(map[string]struct{}, 8)
	for i := 0; i < v.size; i++ {
		seen[v.labels[i]] = struct{}{}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
