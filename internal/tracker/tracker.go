// Package tracker ties the document store and the SQLite index into
// one write path. The store is the source of truth; every mutation
// goes to the store first and is then mirrored into the index as an
// incremental change. Reads for analytics come from index snapshots.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/index"
	"github.com/taskloom/taskloom/internal/item"
	"github.com/taskloom/taskloom/internal/store"
)

// Tracker coordinates writes across the file store and the index.
type Tracker struct {
	store *store.FileStore
	index *index.Index
}

// New builds a Tracker and reconciles the index with the store so a
// stale or empty index heals on startup.
func New(ctx context.Context, fs *store.FileStore, ix *index.Index) (*Tracker, error) {
	t := &Tracker{store: fs, index: ix}
	if err := ix.Rebuild(ctx, fs); err != nil {
		return nil, fmt.Errorf("reconciling index with store: %w", err)
	}
	return t, nil
}

// apply mirrors a store mutation into the index. If the index has
// diverged from the store, rebuild from the source of truth and retry
// once.
func (t *Tracker) apply(ctx context.Context, c index.Change) error {
	err := t.index.Apply(ctx, c)
	if err == nil || !errors.Is(err, index.ErrInconsistent) {
		return err
	}
	if rerr := t.index.Rebuild(ctx, t.store); rerr != nil {
		return fmt.Errorf("rebuilding diverged index: %w", rerr)
	}
	return t.index.Apply(ctx, c)
}

// CreateItem persists a new work item and indexes it.
func (t *Tracker) CreateItem(ctx context.Context, p store.CreateParams) (*item.WorkItem, error) {
	w, err := t.store.CreateItem(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := t.apply(ctx, index.PutItem(w)); err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateItem applies a partial update and re-indexes the item.
func (t *Tracker) UpdateItem(ctx context.Context, id string, p store.UpdateParams) (*item.WorkItem, error) {
	w, err := t.store.UpdateItem(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if err := t.apply(ctx, index.PutItem(w)); err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteItem removes an unreferenced item from the store and the
// index.
func (t *Tracker) DeleteItem(ctx context.Context, id string) error {
	if err := t.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	return t.apply(ctx, index.DeleteItem(id))
}

// GetItem reads one item from the store.
func (t *Tracker) GetItem(ctx context.Context, id string) (*item.WorkItem, error) {
	return t.store.GetItem(ctx, id)
}

// ListItems reads every item from the store, sorted by id.
func (t *Tracker) ListItems(ctx context.Context) ([]item.WorkItem, error) {
	return t.store.ListItems(ctx)
}

// ListEdges reads edges from the store, optionally filtered by kind.
func (t *Tracker) ListEdges(ctx context.Context, kind item.EdgeKind) ([]item.Edge, error) {
	return t.store.ListEdges(ctx, kind)
}

// AddEdge records a dependency in the store and the index.
func (t *Tracker) AddEdge(ctx context.Context, e item.Edge) error {
	if err := t.store.AddEdge(ctx, e); err != nil {
		return err
	}
	return t.apply(ctx, index.PutEdge(e))
}

// RemoveEdge removes a dependency from the store and the index.
func (t *Tracker) RemoveEdge(ctx context.Context, e item.Edge) error {
	if err := t.store.RemoveEdge(ctx, e); err != nil {
		return err
	}
	return t.apply(ctx, index.DeleteEdge(e))
}

// Snapshot returns an immutable graph view from the index.
func (t *Tracker) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	return t.index.Snapshot(ctx)
}

// Rebuild discards the index contents and reloads them from the
// store.
func (t *Tracker) Rebuild(ctx context.Context) error {
	return t.index.Rebuild(ctx, t.store)
}

// Stats reports index-level counters.
func (t *Tracker) Stats(ctx context.Context) (*index.Stats, error) {
	return t.index.Stats(ctx)
}
