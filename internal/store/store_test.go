package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskloom/taskloom/internal/item"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return fs
}

func mustCreate(t *testing.T, fs *FileStore, title string, p item.Priority) *item.WorkItem {
	t.Helper()
	w, err := fs.CreateItem(context.Background(), CreateParams{Title: title, Priority: p, Type: item.TypeFeature})
	if err != nil {
		t.Fatalf("CreateItem(%q) failed: %v", title, err)
	}
	return w
}

// --- CreateItem ---

func TestCreateItem_WritesDocument(t *testing.T) {
	fs := newTestStore(t)
	w := mustCreate(t, fs, "Add login", item.PriorityHigh)

	if !strings.HasPrefix(w.ID, "wi-") {
		t.Errorf("ID = %q, want wi- prefix", w.ID)
	}
	if w.Status != item.StatusTodo {
		t.Errorf("Status = %q, want todo", w.Status)
	}
	if w.CreatedAt != w.UpdatedAt {
		t.Errorf("CreatedAt %q != UpdatedAt %q on creation", w.CreatedAt, w.UpdatedAt)
	}

	path := filepath.Join(fs.Root(), ItemsDir, w.ID+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not written: %v", err)
	}
}

func TestCreateItem_EmptyTitleRejected(t *testing.T) {
	fs := newTestStore(t)
	_, err := fs.CreateItem(context.Background(), CreateParams{Title: "  "})
	var ve *item.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestCreateItem_Defaults(t *testing.T) {
	fs := newTestStore(t)
	w, err := fs.CreateItem(context.Background(), CreateParams{Title: "defaults"})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if w.Priority != item.PriorityMedium {
		t.Errorf("Priority = %q, want medium", w.Priority)
	}
	if w.Type != item.TypeFeature {
		t.Errorf("Type = %q, want feature", w.Type)
	}
}

// --- GetItem / UpdateItem ---

func TestGetItem_NotFound(t *testing.T) {
	fs := newTestStore(t)
	_, err := fs.GetItem(context.Background(), "wi-missing")
	var nf *item.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestUpdateItem_PartialFields(t *testing.T) {
	fs := newTestStore(t)
	w := mustCreate(t, fs, "Original", item.PriorityLow)

	status := item.StatusInProgress
	updated, err := fs.UpdateItem(context.Background(), w.ID, UpdateParams{Status: &status})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if updated.Status != item.StatusInProgress {
		t.Errorf("Status = %q, want in-progress", updated.Status)
	}
	if updated.Title != "Original" {
		t.Errorf("Title = %q, want unchanged", updated.Title)
	}
	if updated.CreatedAt != w.CreatedAt {
		t.Errorf("CreatedAt changed on update")
	}
}

func TestUpdateItem_InvalidStatusRejected(t *testing.T) {
	fs := newTestStore(t)
	w := mustCreate(t, fs, "Item", item.PriorityLow)

	bad := item.Status("wip")
	_, err := fs.UpdateItem(context.Background(), w.ID, UpdateParams{Status: &bad})
	var ve *item.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	// Original document is untouched.
	got, err := fs.GetItem(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Status != item.StatusTodo {
		t.Errorf("Status = %q after rejected update, want todo", got.Status)
	}
}

// --- Edges ---

func TestAddEdge_DanglingTargetRejected(t *testing.T) {
	fs := newTestStore(t)
	a := mustCreate(t, fs, "A", item.PriorityMedium)

	err := fs.AddEdge(context.Background(), item.Edge{From: a.ID, To: "wi-ghost", Kind: item.KindBlocks})
	var ve *item.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError for dangling target", err)
	}
}

func TestAddEdge_SelfEdgeRejected(t *testing.T) {
	fs := newTestStore(t)
	a := mustCreate(t, fs, "A", item.PriorityMedium)

	err := fs.AddEdge(context.Background(), item.Edge{From: a.ID, To: a.ID, Kind: item.KindBlocks})
	if err == nil {
		t.Fatal("AddEdge self edge = nil, want error")
	}
}

func TestAddEdge_Idempotent(t *testing.T) {
	fs := newTestStore(t)
	a := mustCreate(t, fs, "A", item.PriorityMedium)
	b := mustCreate(t, fs, "B", item.PriorityMedium)

	e := item.Edge{From: a.ID, To: b.ID, Kind: item.KindBlocks}
	if err := fs.AddEdge(context.Background(), e); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := fs.AddEdge(context.Background(), e); err != nil {
		t.Fatalf("AddEdge second time failed: %v", err)
	}

	edges, err := fs.ListEdges(context.Background(), item.KindBlocks)
	if err != nil {
		t.Fatalf("ListEdges failed: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("len(edges) = %d, want 1", len(edges))
	}
}

func TestRemoveEdge_MissingEdge(t *testing.T) {
	fs := newTestStore(t)
	a := mustCreate(t, fs, "A", item.PriorityMedium)
	b := mustCreate(t, fs, "B", item.PriorityMedium)

	err := fs.RemoveEdge(context.Background(), item.Edge{From: a.ID, To: b.ID, Kind: item.KindBlocks})
	var nf *item.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestListEdges_FiltersByKind(t *testing.T) {
	fs := newTestStore(t)
	track := mustCreate(t, fs, "Track", item.PriorityMedium)
	a := mustCreate(t, fs, "A", item.PriorityMedium)
	b := mustCreate(t, fs, "B", item.PriorityMedium)

	ctx := context.Background()
	if err := fs.AddEdge(ctx, item.Edge{From: a.ID, To: b.ID, Kind: item.KindBlocks}); err != nil {
		t.Fatalf("AddEdge blocks failed: %v", err)
	}
	if err := fs.AddEdge(ctx, item.Edge{From: track.ID, To: a.ID, Kind: item.KindParentOf}); err != nil {
		t.Fatalf("AddEdge parent_of failed: %v", err)
	}

	blocks, err := fs.ListEdges(ctx, item.KindBlocks)
	if err != nil {
		t.Fatalf("ListEdges failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != item.KindBlocks {
		t.Errorf("blocks edges = %+v, want exactly the one blocks edge", blocks)
	}

	all, err := fs.ListEdges(ctx, "")
	if err != nil {
		t.Fatalf("ListEdges all failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

// --- DeleteItem ---

func TestDeleteItem_RejectedWhileReferenced(t *testing.T) {
	fs := newTestStore(t)
	a := mustCreate(t, fs, "A", item.PriorityMedium)
	b := mustCreate(t, fs, "B", item.PriorityMedium)

	ctx := context.Background()
	if err := fs.AddEdge(ctx, item.Edge{From: a.ID, To: b.ID, Kind: item.KindBlocks}); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	// Target of an edge: delete must be rejected.
	var ve *item.ValidationError
	if err := fs.DeleteItem(ctx, b.ID); !errors.As(err, &ve) {
		t.Errorf("DeleteItem(target) = %v, want ValidationError", err)
	}
	// Source of an edge: delete must be rejected too.
	if err := fs.DeleteItem(ctx, a.ID); !errors.As(err, &ve) {
		t.Errorf("DeleteItem(source) = %v, want ValidationError", err)
	}

	// After removing the edge, both deletes succeed.
	if err := fs.RemoveEdge(ctx, item.Edge{From: a.ID, To: b.ID, Kind: item.KindBlocks}); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if err := fs.DeleteItem(ctx, b.ID); err != nil {
		t.Errorf("DeleteItem after unlink failed: %v", err)
	}
	if err := fs.DeleteItem(ctx, a.ID); err != nil {
		t.Errorf("DeleteItem after unlink failed: %v", err)
	}
}

// --- ListItems ---

func TestListItems_SortedAndComplete(t *testing.T) {
	fs := newTestStore(t)
	mustCreate(t, fs, "One", item.PriorityLow)
	mustCreate(t, fs, "Two", item.PriorityLow)
	mustCreate(t, fs, "Three", item.PriorityLow)

	items, err := fs.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ID >= items[i].ID {
			t.Errorf("items not sorted by id: %q before %q", items[i-1].ID, items[i].ID)
		}
	}
}

func TestListItems_SkipsCorruptDocuments(t *testing.T) {
	fs := newTestStore(t)
	mustCreate(t, fs, "Good", item.PriorityLow)

	bad := filepath.Join(fs.Root(), ItemsDir, "wi-corrupt.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt doc: %v", err)
	}

	items, err := fs.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1 (corrupt doc skipped)", len(items))
	}
}
