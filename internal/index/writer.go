// Package index maintains a SQLite index of a collection's entities, with a
// roaring bitmap of referring entities for every referenced entity.
package index

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

const schema = `
DROP TABLE IF EXISTS entities;
DROP TABLE IF EXISTS entity_refs;
CREATE TABLE entities (
	id INTEGER PRIMARY KEY,
	type_id TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	label TEXT,
	data JSON,
	UNIQUE (type_id, entity_id)
);
CREATE TABLE entity_refs (
	target TEXT PRIMARY KEY,
	bitmap BLOB
) WITHOUT ROWID;
`

// Writer builds an index database. Entities are inserted as they are added;
// references are resolved and written when the writer is closed.
type Writer struct {
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	count     int
	mu        sync.Mutex
	log       zerolog.Logger

	nextID uint32
	rows   map[string]uint32   // "type_id/entity_id" -> row id
	refs   map[uint32][]string // row id -> candidate references
}

// NewWriter creates or replaces the index tables in the database at dbPath.
func NewWriter(dbPath string, log zerolog.Logger) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	w := &Writer{
		db:        db,
		batchSize: 5000,
		log:       log,
		rows:      map[string]uint32{},
		refs:      map[uint32][]string{},
	}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare(`INSERT INTO entities (id, type_id, entity_id, label, data) VALUES (?, ?, ?, ?, ?)`)
	return err
}

func (w *Writer) commitTx() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
	}
	return w.tx.Commit()
}

// Add indexes one entity.
func (w *Writer) Add(e *model.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := e.TypeEntityID()
	if _, dup := w.rows[key]; dup {
		return nil
	}
	vals := e.Values()
	data, err := model.Marshal(vals)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	w.nextID++
	id := w.nextID
	if _, err := w.stmt.Exec(id, e.TypeID(), e.ID(), e.Label(), string(data)); err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	w.rows[key] = id
	if cands := References(vals); len(cands) > 0 {
		w.refs[id] = cands
	}

	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		w.count = 0
	}
	return nil
}

// Close resolves references against the indexed entities, writes the
// reference bitmaps and closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushRefs(); err != nil {
		_ = w.tx.Rollback()
		_ = w.db.Close()
		return err
	}
	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	return w.db.Close()
}

func (w *Writer) flushRefs() error {
	bitmaps := map[string]*roaring.Bitmap{}
	for id, cands := range w.refs {
		for _, c := range cands {
			target, ok := w.rows[c]
			if !ok || target == id {
				continue
			}
			bm := bitmaps[c]
			if bm == nil {
				bm = roaring.New()
				bitmaps[c] = bm
			}
			bm.Add(id)
		}
	}

	stmt, err := w.tx.Prepare("INSERT OR REPLACE INTO entity_refs (target, bitmap) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare entity_refs insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	targets := make([]string, 0, len(bitmaps))
	for t := range bitmaps {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	var buf bytes.Buffer
	for _, t := range targets {
		buf.Reset()
		if _, err := bitmaps[t].WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize bitmap for %s: %w", t, err)
		}
		if _, err := stmt.Exec(t, buf.Bytes()); err != nil {
			return fmt.Errorf("insert ref %s: %w", t, err)
		}
	}
	w.log.Debug().Int("targets", len(targets)).Msg("wrote entity references")
	return nil
}

// References returns the string values in v, at any depth, that have the
// form of a "type_id/entity_id" reference.
func References(v model.Values) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(any)
	walk = func(x any) {
		switch t := x.(type) {
		case string:
			typeID, id := identifiers.SplitTypeEntityID(t)
			if model.ValidID(typeID) && model.ValidID(id) && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		case model.Values:
			for _, item := range t {
				walk(item)
			}
		}
	}
	for k, x := range v {
		if k == "@context" {
			continue
		}
		walk(x)
	}
	sort.Strings(out)
	return out
}

// Build indexes every entity of coll into the database at dbPath and returns
// the number of entities written.
func Build(ctx context.Context, coll *model.Collection, dbPath string, log zerolog.Logger) (int, error) {
	w, err := NewWriter(dbPath, log)
	if err != nil {
		return 0, err
	}
	n := 0
	for e, err := range model.NewEntityFinder(coll).Entities(model.FindOptions{}) {
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = w.Add(e)
		}
		if err != nil {
			_ = w.tx.Rollback()
			_ = w.db.Close()
			return n, err
		}
		n++
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	log.Info().Str("coll", coll.ID()).Int("entities", n).Str("db", dbPath).Msg("index built")
	return n, nil
}
