package fewshot

import "sync"

// Registry shares classifiers between independent consumers, one per key.
// The first Acquire for a key constructs the classifier; later Acquires
// return the same instance. Release drops a reference and evicts the entry
// when the last reference goes.
//
// Typical use is one classifier per model path, shared by every request
// handler that needs it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	classifier *Classifier
	refs       int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Acquire returns the classifier registered under key, constructing it with
// build on first use. Construction runs under the registry lock, so
// concurrent Acquires for the same key observe a single classifier.
func (r *Registry) Acquire(key string, build func() (*Classifier, error)) (*Classifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.refs++
		return e.classifier, nil
	}

	c, err := build()
	if err != nil {
		return nil, err
	}
	r.entries[key] = &registryEntry{classifier: c, refs: 1}
	return c, nil
}

// Release drops a reference to key. The entry is evicted when its reference
// count reaches zero; releasing an unknown key is a no-op.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, key)
	}
}

// Len returns the number of registered classifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
