package schema

import (
	"context"
	"sync"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/metrics"
)

// Source reads raw schema documents by model name.
type Source interface {
	// Read returns the raw document for model, or a NotFoundError.
	Read(ctx context.Context, model string) ([]byte, error)
}

// Store loads, validates and memoizes schema documents. Documents are
// immutable once cached; Clear is the only invalidation path. The cache is
// safe for concurrent use: a cold-cache race loads the same document twice
// and the second populate overwrites the first with an equivalent value.
type Store struct {
	src Source

	mu    sync.RWMutex
	cache map[string]*Schema
}

// NewStore returns a Store backed by the given document source.
func NewStore(src Source) *Store {
	return &Store{src: src, cache: make(map[string]*Schema)}
}

func cacheKey(model, connection string) string {
	if connection == "" {
		connection = "default"
	}
	return model + ":" + connection
}

// Load returns the schema for (model, connection). On a cache miss the
// document is read, parsed and validated; a document whose model value does
// not match the requested name is a ConfigError, not silently corrected.
func (st *Store) Load(ctx context.Context, model, connection string) (*Schema, error) {
	key := cacheKey(model, connection)
	st.mu.RLock()
	s, ok := st.cache[key]
	st.mu.RUnlock()
	if ok {
		metrics.SchemaCacheHits.Inc()
		return s, nil
	}
	metrics.SchemaCacheMisses.Inc()

	raw, err := st.src.Read(ctx, model)
	if err != nil {
		return nil, err
	}
	s, err = Decode(raw)
	if err != nil {
		return nil, errs.Configf(model, "malformed schema document: %v", err)
	}
	if s.Model != model {
		return nil, errs.Configf(model, "document declares model %q, requested %q", s.Model, model)
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	if connection != "" {
		s.Connection = connection
	}

	st.mu.Lock()
	st.cache[key] = s
	st.mu.Unlock()
	return s, nil
}

// Clear removes cache entries. With an empty model every entry is dropped;
// with an empty connection every connection variant of the model is dropped.
// Exposed to operators, not used by request handling.
func (st *Store) Clear(model, connection string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if model == "" {
		st.cache = make(map[string]*Schema)
		return
	}
	if connection != "" {
		delete(st.cache, cacheKey(model, connection))
		return
	}
	prefix := model + ":"
	for k := range st.cache {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(st.cache, k)
		}
	}
}
