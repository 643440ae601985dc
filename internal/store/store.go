// Package store persists work items as individually addressable JSON
// documents. The document set is the source of truth: the graph index
// is derived from it and can always be rebuilt by rescanning every
// document.
//
// One document per work item, holding the item plus its outgoing edges.
// Writes are atomic (temp file + rename) and serialized per document
// with an advisory flock, so concurrent writers to different items
// never block each other.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/taskloom/taskloom/internal/item"
)

const (
	// ItemsDir is the subdirectory under the data root where documents live.
	ItemsDir = "items"
	// docExt is the file extension for item documents.
	docExt = ".json"
	// idPrefix is prepended to generated work-item ids.
	idPrefix = "wi-"
)

// Document is the persisted unit: one work item plus its outgoing
// blocks/parent_of edges. The reverse (blocked_by) view is never
// stored — it is derived by the index.
type Document struct {
	Item  item.WorkItem `json:"item"`
	Edges []item.Edge   `json:"edges,omitempty"`
}

// CreateParams holds the input for creating a new work item. Status is
// always "todo" on creation; transitions are caller-driven updates.
type CreateParams struct {
	Title          string
	Priority       item.Priority
	Type           item.Type
	EstimatedHours *float64
}

// UpdateParams holds partial update fields for a work item. Nil fields
// are left unchanged.
type UpdateParams struct {
	Title          *string
	Status         *item.Status
	Priority       *item.Priority
	Type           *item.Type
	EstimatedHours *float64
}

// FileStore implements the document store on the local filesystem.
type FileStore struct {
	root string
}

// New creates a FileStore rooted at dir and ensures the items
// directory exists.
func New(dir string) (*FileStore, error) {
	itemsDir := filepath.Join(dir, ItemsDir)
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating items directory: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Root returns the data root directory.
func (fs *FileStore) Root() string {
	return fs.root
}

func (fs *FileStore) docPath(id string) string {
	return filepath.Join(fs.root, ItemsDir, id+docExt)
}

func (fs *FileStore) lockPath(id string) string {
	return filepath.Join(fs.root, ItemsDir, id+".lock")
}

// --- Per-document locking ---

type docLock struct {
	file *os.File
	path string
}

func (l *docLock) release() {
	_ = l.file.Close()
	_ = os.Remove(l.path)
}

// acquireLock takes an exclusive flock on the document's sidecar lock
// file, blocking until the current holder releases it.
func (fs *FileStore) acquireLock(id string) (*docLock, error) {
	path := fs.lockPath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", id, err)
	}
	return &docLock{file: f, path: path}, nil
}

// acquireLocksOrdered locks multiple documents in sorted id order so
// two writers touching the same pair of items cannot deadlock.
func (fs *FileStore) acquireLocksOrdered(ids []string) ([]*docLock, error) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	locks := make([]*docLock, 0, len(sorted))
	for _, id := range sorted {
		lock, err := fs.acquireLock(id)
		if err != nil {
			releaseLocks(locks)
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

func releaseLocks(locks []*docLock) {
	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].release()
	}
}

// --- Document IO ---

func (fs *FileStore) readDoc(id string) (*Document, error) {
	data, err := os.ReadFile(fs.docPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &item.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("reading document %s: %w", id, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", id, err)
	}
	return &doc, nil
}

// writeDoc writes atomically: marshal to a temp file in the same
// directory, fsync, then rename over the target.
func (fs *FileStore) writeDoc(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", doc.Item.ID, err)
	}

	path := fs.docPath(doc.Item.ID)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing document %s: %w", doc.Item.ID, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("syncing document %s: %w", doc.Item.ID, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing document %s: %w", doc.Item.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing document %s: %w", doc.Item.ID, err)
	}
	return nil
}

// generateID returns a fresh work-item id: "wi-" + 8 hex chars of a
// random UUID. Collisions are handled by the O_EXCL create in CreateItem.
func generateID() string {
	return idPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// --- Operations ---

// CreateItem persists a new work item in "todo" status and returns it.
func (fs *FileStore) CreateItem(ctx context.Context, p CreateParams) (*item.WorkItem, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, &item.ValidationError{Field: "title", Msg: "title must not be empty"}
	}
	if p.Priority == "" {
		p.Priority = item.PriorityMedium
	}
	if p.Type == "" {
		p.Type = item.TypeFeature
	}

	now := item.Now()
	w := item.WorkItem{
		Title:          p.Title,
		Status:         item.StatusTodo,
		Priority:       p.Priority,
		Type:           p.Type,
		EstimatedHours: p.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// O_EXCL detects id collisions; retry with a fresh id.
	for attempts := 0; attempts < 3; attempts++ {
		w.ID = generateID()
		if err := w.Validate(); err != nil {
			return nil, err
		}

		f, err := os.OpenFile(fs.docPath(w.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating document: %w", err)
		}
		_ = f.Close()

		if err := fs.writeDoc(&Document{Item: w}); err != nil {
			_ = os.Remove(fs.docPath(w.ID))
			return nil, err
		}
		return &w, nil
	}
	return nil, errors.New("store: exhausted id generation attempts")
}

// GetItem loads a single work item by id.
func (fs *FileStore) GetItem(ctx context.Context, id string) (*item.WorkItem, error) {
	doc, err := fs.readDoc(id)
	if err != nil {
		return nil, err
	}
	w := doc.Item
	return &w, nil
}

// UpdateItem applies a partial update and bumps updated_at. The item's
// id and created_at are immutable.
func (fs *FileStore) UpdateItem(ctx context.Context, id string, p UpdateParams) (*item.WorkItem, error) {
	lock, err := fs.acquireLock(id)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	doc, err := fs.readDoc(id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, &item.ValidationError{Field: "title", Msg: "title must not be empty"}
		}
		doc.Item.Title = *p.Title
	}
	if p.Status != nil {
		doc.Item.Status = *p.Status
	}
	if p.Priority != nil {
		doc.Item.Priority = *p.Priority
	}
	if p.Type != nil {
		doc.Item.Type = *p.Type
	}
	if p.EstimatedHours != nil {
		doc.Item.EstimatedHours = p.EstimatedHours
	}
	doc.Item.UpdatedAt = item.Now()

	if err := doc.Item.Validate(); err != nil {
		return nil, err
	}
	if err := fs.writeDoc(doc); err != nil {
		return nil, err
	}
	w := doc.Item
	return &w, nil
}

// DeleteItem removes a work item. Deletion is rejected while any edge
// references the item, in either direction, to preserve the
// no-dangling-edges invariant.
func (fs *FileStore) DeleteItem(ctx context.Context, id string) error {
	lock, err := fs.acquireLock(id)
	if err != nil {
		return err
	}
	defer lock.release()

	doc, err := fs.readDoc(id)
	if err != nil {
		return err
	}
	if len(doc.Edges) > 0 {
		return &item.ValidationError{Field: "id", Msg: fmt.Sprintf("cannot delete %q: it has %d outgoing edges", id, len(doc.Edges))}
	}

	incoming, err := fs.referencingItems(id)
	if err != nil {
		return err
	}
	if len(incoming) > 0 {
		return &item.ValidationError{Field: "id", Msg: fmt.Sprintf("cannot delete %q: referenced by %s", id, strings.Join(incoming, ", "))}
	}

	if err := os.Remove(fs.docPath(id)); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// referencingItems scans all documents for edges pointing at id.
func (fs *FileStore) referencingItems(id string) ([]string, error) {
	docs, err := fs.listDocs()
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, doc := range docs {
		for _, e := range doc.Edges {
			if e.To == id {
				refs = append(refs, e.From)
				break
			}
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// AddEdge records a directed edge in the From item's document. Both
// endpoints must exist; an edge to a missing item is a validation
// error, not silently dropped. Duplicate edges are idempotent no-ops.
func (fs *FileStore) AddEdge(ctx context.Context, e item.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}

	locks, err := fs.acquireLocksOrdered([]string{e.From, e.To})
	if err != nil {
		return err
	}
	defer releaseLocks(locks)

	if _, err := fs.readDoc(e.To); err != nil {
		var nf *item.NotFoundError
		if errors.As(err, &nf) {
			return &item.ValidationError{Field: "to", Msg: fmt.Sprintf("edge target %q does not exist", e.To)}
		}
		return err
	}

	doc, err := fs.readDoc(e.From)
	if err != nil {
		var nf *item.NotFoundError
		if errors.As(err, &nf) {
			return &item.ValidationError{Field: "from", Msg: fmt.Sprintf("edge source %q does not exist", e.From)}
		}
		return err
	}

	for _, existing := range doc.Edges {
		if existing.To == e.To && existing.Kind == e.Kind {
			return nil
		}
	}
	doc.Edges = append(doc.Edges, e)
	sort.Slice(doc.Edges, func(i, j int) bool {
		if doc.Edges[i].To != doc.Edges[j].To {
			return doc.Edges[i].To < doc.Edges[j].To
		}
		return doc.Edges[i].Kind < doc.Edges[j].Kind
	})
	doc.Item.UpdatedAt = item.Now()
	return fs.writeDoc(doc)
}

// RemoveEdge deletes an edge from the From item's document. Removing
// an edge that does not exist returns NotFoundError.
func (fs *FileStore) RemoveEdge(ctx context.Context, e item.Edge) error {
	lock, err := fs.acquireLock(e.From)
	if err != nil {
		return err
	}
	defer lock.release()

	doc, err := fs.readDoc(e.From)
	if err != nil {
		return err
	}

	for i, existing := range doc.Edges {
		if existing.To == e.To && existing.Kind == e.Kind {
			doc.Edges = append(doc.Edges[:i], doc.Edges[i+1:]...)
			doc.Item.UpdatedAt = item.Now()
			return fs.writeDoc(doc)
		}
	}
	return &item.NotFoundError{ID: fmt.Sprintf("%s %s %s", e.From, e.Kind, e.To)}
}

// --- Read boundary consumed by the index ---

// ListItems returns every work item, sorted by id.
func (fs *FileStore) ListItems(ctx context.Context) ([]item.WorkItem, error) {
	docs, err := fs.listDocs()
	if err != nil {
		return nil, err
	}
	items := make([]item.WorkItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// ListEdges returns every edge of the given kind, sorted by (from, to).
// An empty kind returns all edges.
func (fs *FileStore) ListEdges(ctx context.Context, kind item.EdgeKind) ([]item.Edge, error) {
	docs, err := fs.listDocs()
	if err != nil {
		return nil, err
	}
	var edges []item.Edge
	for _, doc := range docs {
		for _, e := range doc.Edges {
			if kind == "" || e.Kind == kind {
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Kind < edges[j].Kind
	})
	return edges, nil
}

// listDocs reads every document under items/. Unreadable or non-JSON
// entries are skipped the way corrupt change records are skipped by a
// directory scan, never treated as fatal.
func (fs *FileStore) listDocs() ([]Document, error) {
	entries, err := os.ReadDir(filepath.Join(fs.root, ItemsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading items directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, docExt) {
			continue
		}
		doc, err := fs.readDoc(strings.TrimSuffix(name, docExt))
		if err != nil {
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}
