// Package index maintains a query-optimized SQLite mirror of the
// document store. The index is derived state: it never holds
// information absent from the store and can always be reconstructed by
// rescanning every document (Rebuild).
//
// Writers go through Apply, one store mutation per call, inside a
// transaction. SQLite's WAL mode serializes writers while concurrent
// readers keep seeing a consistent view of either the old or the new
// state, so Rebuild never blocks or half-exposes anything to readers.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrInconsistent signals that an Apply failed partway and was rolled
// back: the index may be behind the store. Callers must retry the
// change or trigger Rebuild.
var ErrInconsistent = errors.New("index inconsistent with store")

// Source is the store boundary the index consumes for Rebuild. The
// index assumes nothing about the persistence format behind it.
type Source interface {
	ListItems(ctx context.Context) ([]item.WorkItem, error)
	ListEdges(ctx context.Context, kind item.EdgeKind) ([]item.Edge, error)
}

// Op identifies the kind of store mutation carried by a Change.
type Op string

const (
	OpPutItem    Op = "put_item"
	OpDeleteItem Op = "delete_item"
	OpPutEdge    Op = "put_edge"
	OpDeleteEdge Op = "delete_edge"
)

// Change is one store mutation to incorporate into the index. Exactly
// one of Item/Edge is set, depending on Op. Applying the same change
// twice yields the same index state.
type Change struct {
	Op   Op
	Item *item.WorkItem
	Edge *item.Edge
}

// PutItem builds an item upsert change.
func PutItem(w *item.WorkItem) Change {
	return Change{Op: OpPutItem, Item: w}
}

// DeleteItem builds an item removal change.
func DeleteItem(id string) Change {
	return Change{Op: OpDeleteItem, Item: &item.WorkItem{ID: id}}
}

// PutEdge builds an edge upsert change.
func PutEdge(e item.Edge) Change {
	return Change{Op: OpPutEdge, Edge: &e}
}

// DeleteEdge builds an edge removal change.
func DeleteEdge(e item.Edge) Change {
	return Change{Op: OpDeleteEdge, Edge: &e}
}

// Index is the SQLite-backed graph index.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path, applies the
// SQLite pragmas, and runs migrations.
func Open(path string) (*Index, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("index: pragma %q: %w", p, err)
		}
	}

	ix := &Index{db: db}
	if err := ix.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index: migration: %w", err)
	}
	return ix, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			status          TEXT NOT NULL,
			priority        TEXT NOT NULL,
			item_type       TEXT NOT NULL,
			estimated_hours REAL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);

		CREATE TABLE IF NOT EXISTS edges (
			from_id TEXT NOT NULL,
			to_id   TEXT NOT NULL,
			kind    TEXT NOT NULL,
			PRIMARY KEY (from_id, to_id, kind),
			FOREIGN KEY (from_id) REFERENCES items(id),
			FOREIGN KEY (to_id)   REFERENCES items(id)
		);

		CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
		CREATE INDEX IF NOT EXISTS idx_edges_to   ON edges(to_id);
		CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);

		CREATE VIEW IF NOT EXISTS ready_items AS
		SELECT i.*
		FROM items i
		WHERE i.status = 'todo'
		  AND NOT EXISTS (
			SELECT 1 FROM edges e
			JOIN items blocker ON e.from_id = blocker.id
			WHERE e.to_id = i.id
			  AND e.kind = 'blocks'
			  AND blocker.status != 'done'
		  );
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Apply incorporates one store mutation. It validates the change,
// runs it in a transaction, and rolls the whole change back on any
// failure, reporting ErrInconsistent so the caller can retry or
// trigger Rebuild. Readers never observe a partially-applied change.
func (ix *Index) Apply(ctx context.Context, c Change) error {
	if err := validateChange(c); err != nil {
		return err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrInconsistent, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrInconsistent, err)
	}
	return nil
}

// validateChange rejects malformed changes before any state is
// touched. Shape problems are ValidationError; divergence from the
// store (e.g. an edge whose endpoints the index has never seen) is
// detected inside the transaction instead.
func validateChange(c Change) error {
	switch c.Op {
	case OpPutItem:
		if c.Item == nil {
			return &item.ValidationError{Field: "item", Msg: "put_item change carries no item"}
		}
		return c.Item.Validate()
	case OpDeleteItem:
		if c.Item == nil || c.Item.ID == "" {
			return &item.ValidationError{Field: "id", Msg: "delete_item change carries no id"}
		}
		return nil
	case OpPutEdge, OpDeleteEdge:
		if c.Edge == nil {
			return &item.ValidationError{Field: "edge", Msg: "edge change carries no edge"}
		}
		return c.Edge.Validate()
	default:
		return &item.ValidationError{Field: "op", Msg: fmt.Sprintf("unknown change op %q", c.Op)}
	}
}

func applyTx(ctx context.Context, tx *sql.Tx, c Change) error {
	switch c.Op {
	case OpPutItem:
		w := c.Item
		// Upsert instead of INSERT OR REPLACE: REPLACE deletes the old
		// row, which trips the edges foreign keys for items that are
		// already linked.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, title, status, priority, item_type, estimated_hours, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				status = excluded.status,
				priority = excluded.priority,
				item_type = excluded.item_type,
				estimated_hours = excluded.estimated_hours,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`,
			w.ID, w.Title, string(w.Status), string(w.Priority), string(w.Type), w.EstimatedHours, w.CreatedAt, w.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: put item %s: %v", ErrInconsistent, w.ID, err)
		}

	case OpDeleteItem:
		id := c.Item.ID
		// The store only deletes unreferenced items; dropping any
		// leftover edges here keeps the index free of dangling edges
		// even if a caller raced.
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
			return fmt.Errorf("%w: delete edges of %s: %v", ErrInconsistent, id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("%w: delete item %s: %v", ErrInconsistent, id, err)
		}

	case OpPutEdge:
		e := c.Edge
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM items WHERE id IN (?, ?)`, e.From, e.To,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("%w: check edge endpoints: %v", ErrInconsistent, err)
		}
		if n != 2 {
			// The store validated this edge against documents the
			// index has not seen: the two have diverged.
			return fmt.Errorf("%w: edge %s -> %s references an unindexed item", ErrInconsistent, e.From, e.To)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO edges (from_id, to_id, kind) VALUES (?, ?, ?)`,
			e.From, e.To, string(e.Kind),
		); err != nil {
			return fmt.Errorf("%w: put edge %s -> %s: %v", ErrInconsistent, e.From, e.To, err)
		}

	case OpDeleteEdge:
		e := c.Edge
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM edges WHERE from_id = ? AND to_id = ? AND kind = ?`,
			e.From, e.To, string(e.Kind),
		); err != nil {
			return fmt.Errorf("%w: delete edge %s -> %s: %v", ErrInconsistent, e.From, e.To, err)
		}
	}
	return nil
}

// Rebuild discards the index state and reconstructs it by rescanning
// every document in the store. It runs in a single transaction, so
// concurrent readers see either the old index or the new one, never a
// half-built state. The result is query-equivalent to an index
// incrementally maintained through the same mutations.
func (ix *Index) Rebuild(ctx context.Context, src Source) error {
	items, err := src.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("index: rebuild: scanning items: %w", err)
	}
	edges, err := src.ListEdges(ctx, "")
	if err != nil {
		return fmt.Errorf("index: rebuild: scanning edges: %w", err)
	}

	known := make(map[string]bool, len(items))
	for _, w := range items {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("index: rebuild: item %s: %w", w.ID, err)
		}
		known[w.ID] = true
	}
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("index: rebuild: edge %s -> %s: %w", e.From, e.To, err)
		}
		if !known[e.From] || !known[e.To] {
			return fmt.Errorf("index: rebuild: edge %s -> %s: %w",
				e.From, e.To, &item.ValidationError{Field: "edge", Msg: "edge references a missing item"})
		}
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: rebuild: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("index: rebuild: clearing edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("index: rebuild: clearing items: %w", err)
	}

	for _, w := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, title, status, priority, item_type, estimated_hours, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.Title, string(w.Status), string(w.Priority), string(w.Type), w.EstimatedHours, w.CreatedAt, w.UpdatedAt,
		); err != nil {
			return fmt.Errorf("index: rebuild: inserting item %s: %w", w.ID, err)
		}
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO edges (from_id, to_id, kind) VALUES (?, ?, ?)`,
			e.From, e.To, string(e.Kind),
		); err != nil {
			return fmt.Errorf("index: rebuild: inserting edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: rebuild: commit: %w", err)
	}
	return nil
}

// Snapshot materializes an immutable point-in-time adjacency view.
// Both reads run in one transaction, so the snapshot reflects a single
// consistent index state even under concurrent writers.
func (ix *Index) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("index: snapshot: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	items, err := scanItems(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("index: snapshot: %w", err)
	}
	edges, err := scanEdges(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("index: snapshot: %w", err)
	}
	return graph.New(items, edges), nil
}

// GetNode returns a single indexed item by id.
func (ix *Index) GetNode(ctx context.Context, id string) (*item.WorkItem, error) {
	row := ix.db.QueryRowContext(ctx,
		`SELECT id, title, status, priority, item_type, estimated_hours, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	)
	var w item.WorkItem
	err := row.Scan(&w.ID, &w.Title, &w.Status, &w.Priority, &w.Type, &w.EstimatedHours, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &item.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("index: get node %s: %w", id, err)
	}
	return &w, nil
}

// Stats holds aggregate index counts, used by the rebuild command and
// the status surface.
type Stats struct {
	ItemsByStatus map[item.Status]int `json:"items_by_status"`
	TotalItems    int                 `json:"total_items"`
	BlockEdges    int                 `json:"block_edges"`
	ParentEdges   int                 `json:"parent_edges"`
}

// Stats returns aggregate counts over the indexed graph.
func (ix *Index) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ItemsByStatus: make(map[item.Status]int)}

	rows, err := ix.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status item.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ItemsByStatus[status] = n
		st.TotalItems += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE kind = ?`, string(item.KindBlocks),
	).Scan(&st.BlockEdges); err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	if err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE kind = ?`, string(item.KindParentOf),
	).Scan(&st.ParentEdges); err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	return st, nil
}

func scanItems(ctx context.Context, tx *sql.Tx) ([]item.WorkItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, title, status, priority, item_type, estimated_hours, created_at, updated_at
		 FROM items ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []item.WorkItem
	for rows.Next() {
		var w item.WorkItem
		if err := rows.Scan(&w.ID, &w.Title, &w.Status, &w.Priority, &w.Type, &w.EstimatedHours, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func scanEdges(ctx context.Context, tx *sql.Tx) ([]item.Edge, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT from_id, to_id, kind FROM edges ORDER BY from_id, to_id, kind`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var edges []item.Edge
	for rows.Next() {
		var e item.Edge
		if err := rows.Scan(&e.From, &e.To, &e.Kind); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
