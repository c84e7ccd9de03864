package main

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/CTAG07/Dissociated/pkg/store"
)

// publishedModel pairs a model with the corpus metadata it was built from.
type publishedModel struct {
	Info  store.CorpusInfo
	Model *ngram.Model
}

// ModelRegistry holds the currently published model of every corpus. A
// rebuild swaps the pointer for its corpus in one step, so readers see either
// the old model or the new one and never a partial build. Readers that
// already hold a model keep using it.
type ModelRegistry struct {
	mu      sync.RWMutex
	entries map[string]*atomic.Pointer[publishedModel]
}

// NewModelRegistry returns an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{entries: make(map[string]*atomic.Pointer[publishedModel])}
}

// LoadAll rebuilds and publishes every corpus in st. Corpora that fail to
// rebuild are logged and skipped. It returns the number published.
func (r *ModelRegistry) LoadAll(ctx context.Context, st *store.Store, logger *slog.Logger) (int, error) {
	infos, err := st.GetCorpusInfos(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, info := range infos {
		_, model, err := st.LoadModel(ctx, info.Name)
		if err != nil {
			logger.Error("Failed to rebuild corpus model", "corpus", info.Name, "error", err)
			continue
		}
		r.Publish(info, model)
		loaded++
	}
	return loaded, nil
}

// Publish makes model the current model of info.Name.
func (r *ModelRegistry) Publish(info store.CorpusInfo, model *ngram.Model) {
	pm := &publishedModel{Info: info, Model: model}

	r.mu.RLock()
	entry, ok := r.entries[info.Name]
	r.mu.RUnlock()
	if ok {
		entry.Store(pm)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok = r.entries[info.Name]; !ok {
		entry = new(atomic.Pointer[publishedModel])
		r.entries[info.Name] = entry
	}
	entry.Store(pm)
}

// Remove unpublishes a corpus.
func (r *ModelRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns the published model and metadata of a corpus.
func (r *ModelRegistry) Get(name string) (publishedModel, bool) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return publishedModel{}, false
	}
	pm := entry.Load()
	if pm == nil {
		return publishedModel{}, false
	}
	return *pm, true
}

// Model implements templating.ModelSource.
func (r *ModelRegistry) Model(name string) (*ngram.Model, bool) {
	pm, ok := r.Get(name)
	return pm.Model, ok
}

// Names implements templating.ModelSource. Names are sorted.
func (r *ModelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Infos returns the metadata of every published corpus, sorted by name.
func (r *ModelRegistry) Infos() []store.CorpusInfo {
	names := r.Names()
	infos := make([]store.CorpusInfo, 0, len(names))
	for _, name := range names {
		if pm, ok := r.Get(name); ok {
			infos = append(infos, pm.Info)
		}
	}
	return infos
}
