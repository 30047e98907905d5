package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

// Record is one indexed entity.
type Record struct {
	RowID    int64
	TypeID   string
	EntityID string
	Label    string
	Data     model.Values
}

// Ref returns the record's "type_id/entity_id" reference.
func (r Record) Ref() string { return identifiers.MakeTypeEntityID(r.TypeID, r.EntityID) }

// Reader answers queries against an index database.
type Reader struct {
	db *sql.DB
}

// Open opens an existing index database.
func Open(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'entities'`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, err
	}
	if n == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("%s is not an entity index", dbPath)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

const recordColumns = `id, type_id, entity_id, label, data`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var rec Record
		var label sql.NullString
		var data []byte
		if err := rows.Scan(&rec.RowID, &rec.TypeID, &rec.EntityID, &label, &data); err != nil {
			return nil, err
		}
		rec.Label = label.String
		if len(data) > 0 {
			v, err := oj.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", rec.TypeID, rec.EntityID, err)
			}
			if m, ok := v.(map[string]any); ok {
				rec.Data = model.Values(m)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Entity returns the indexed entity, or nil if it is not indexed.
func (r *Reader) Entity(typeID, entityID string) (*Record, error) {
	rows, err := r.db.Query(`SELECT `+recordColumns+` FROM entities WHERE type_id = ? AND entity_id = ?`, typeID, entityID)
	if err != nil {
		return nil, err
	}
	recs, err := scanRecords(rows)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// Entities returns the indexed entities of one type, or of every type when
// typeID is empty, ordered by type and id.
func (r *Reader) Entities(typeID string) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM entities`
	var args []any
	if typeID != "" {
		q += ` WHERE type_id = ?`
		args = append(args, typeID)
	}
	rows, err := r.db.Query(q+` ORDER BY type_id, entity_id`, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Referrers returns the entities whose values reference ref, a
// "type_id/entity_id" string, ordered by type and id.
func (r *Reader) Referrers(ref string) ([]Record, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT bitmap FROM entity_refs WHERE target = ?`, ref).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("unmarshal bitmap: %w", err)
	}
	ids := bm.ToArray()
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
		placeholders[i] = "?"
	}
	q := fmt.Sprintf(`SELECT `+recordColumns+` FROM entities WHERE id IN (%s) ORDER BY type_id, entity_id`, strings.Join(placeholders, ","))
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query referrers: %w", err)
	}
	return scanRecords(rows)
}

// Count returns the number of indexed entities.
func (r *Reader) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM entities`).Scan(&n)
	return n, err
}
