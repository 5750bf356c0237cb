package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements Store over database/sql using
// github.com/mattn/go-sqlite3. The dbPath can be a file path or
// ":memory:" for an in-memory database.
type SQLiteStore struct {
	db *sql.DB

	initialized map[Namespace]bool
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("lwwgraph: failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("lwwgraph: failed to enable foreign keys: %w", err)
	}
	return &SQLiteStore{db: db, initialized: make(map[Namespace]bool)}, nil
}

// DB returns the underlying connection, for callers that need to share
// it with another store built on the same database file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// EnsureNamespace creates the nodes/edges/atoms tables and their
// indices for ns if they don't already exist.
func (s *SQLiteStore) EnsureNamespace(ctx context.Context, ns Namespace) error {
	if s.initialized[ns] {
		return nil
	}

	nodes := ns.NodesTable()
	edges := ns.EdgesTable()
	atoms := ns.AtomsTable()

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q (
		id BLOB NOT NULL,
		clock BLOB NOT NULL,
		label BLOB,
		PRIMARY KEY (id)
	) STRICT, WITHOUT ROWID;
	CREATE INDEX IF NOT EXISTS %q ON %q (label);

	CREATE TABLE IF NOT EXISTS %q (
		id BLOB NOT NULL,
		clock BLOB NOT NULL,
		src BLOB,
		label BLOB,
		dst BLOB,
		PRIMARY KEY (id)
	) STRICT, WITHOUT ROWID;
	CREATE INDEX IF NOT EXISTS %q ON %q (src);
	CREATE INDEX IF NOT EXISTS %q ON %q (label, dst);

	CREATE TABLE IF NOT EXISTS %q (
		dst BLOB NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (dst)
	) STRICT, WITHOUT ROWID;
	`,
		nodes,
		nodes+".idx_label", nodes,
		edges,
		edges+".idx_src", edges,
		edges+".idx_label_dst", edges,
		atoms,
	)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("lwwgraph: failed to initialize namespace %s.%s: %w", ns.Collection, ns.Name, err)
	}
	s.initialized[ns] = true
	return nil
}

// LoadNode reads the row for id, or (zero, false) if absent.
func (s *SQLiteStore) LoadNode(ctx context.Context, ns Namespace, i id.Id) (NodeRow, bool, error) {
	query := fmt.Sprintf(`SELECT clock, label FROM %q WHERE id = ?`, ns.NodesTable())
	ib := i.Bytes()
	var clockBytes []byte
	var labelBytes []byte
	err := s.db.QueryRowContext(ctx, query, ib[:]).Scan(&clockBytes, &labelBytes)
	if err == sql.ErrNoRows {
		return NodeRow{}, false, nil
	}
	if err != nil {
		return NodeRow{}, false, fmt.Errorf("lwwgraph: failed to load node: %w", err)
	}
	return NodeRow{Clock: decodeClock(clockBytes), Label: decodeLabel(labelBytes)}, true, nil
}

// LoadEdge reads the row for id, or (zero, false) if absent.
func (s *SQLiteStore) LoadEdge(ctx context.Context, ns Namespace, i id.Id) (EdgeRow, bool, error) {
	query := fmt.Sprintf(`SELECT clock, src, label, dst FROM %q WHERE id = ?`, ns.EdgesTable())
	ib := i.Bytes()
	var clockBytes, srcBytes, labelBytes, dstBytes []byte
	err := s.db.QueryRowContext(ctx, query, ib[:]).Scan(&clockBytes, &srcBytes, &labelBytes, &dstBytes)
	if err == sql.ErrNoRows {
		return EdgeRow{}, false, nil
	}
	if err != nil {
		return EdgeRow{}, false, fmt.Errorf("lwwgraph: failed to load edge: %w", err)
	}
	return EdgeRow{
		Clock: decodeClock(clockBytes),
		Src:   decodeId(srcBytes),
		Label: decodeLabel(labelBytes),
		Dst:   decodeId(dstBytes),
	}, true, nil
}

// SaveNode replaces the row for id with row. A tombstone is saved with
// Label == nil and the tombstoning clock.
func (s *SQLiteStore) SaveNode(ctx context.Context, ns Namespace, i id.Id, row NodeRow) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %q (id, clock, label) VALUES (?, ?, ?)`, ns.NodesTable())
	ib := i.Bytes()
	cb := row.Clock.Bytes()
	var lb []byte
	if row.Label != nil {
		b := row.Label.Bytes()
		lb = b[:]
	}
	if _, err := s.db.ExecContext(ctx, query, ib[:], cb[:], lb); err != nil {
		return fmt.Errorf("lwwgraph: failed to save node: %w", err)
	}
	return nil
}

// SaveEdge replaces the row for id with row.
func (s *SQLiteStore) SaveEdge(ctx context.Context, ns Namespace, i id.Id, row EdgeRow) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %q (id, clock, src, label, dst) VALUES (?, ?, ?, ?, ?)`, ns.EdgesTable())
	ib := i.Bytes()
	cb := row.Clock.Bytes()
	var srcB, lblB, dstB []byte
	if row.Src != nil {
		b := row.Src.Bytes()
		srcB = b[:]
	}
	if row.Label != nil {
		b := row.Label.Bytes()
		lblB = b[:]
	}
	if row.Dst != nil {
		b := row.Dst.Bytes()
		dstB = b[:]
	}
	if _, err := s.db.ExecContext(ctx, query, ib[:], cb[:], srcB, lblB, dstB); err != nil {
		return fmt.Errorf("lwwgraph: failed to save edge: %w", err)
	}
	return nil
}

// QueryNodeLabel returns every node id currently present with l.
func (s *SQLiteStore) QueryNodeLabel(ctx context.Context, ns Namespace, l label.Label) ([]id.Id, error) {
	query := fmt.Sprintf(`SELECT id FROM %q WHERE label = ?`, ns.NodesTable())
	lb := l.Bytes()
	rows, err := s.db.QueryContext(ctx, query, lb[:])
	if err != nil {
		return nil, fmt.Errorf("lwwgraph: failed to query node label: %w", err)
	}
	defer rows.Close()
	return scanIds(rows)
}

// QueryEdgeSrc returns every edge id currently present with src.
func (s *SQLiteStore) QueryEdgeSrc(ctx context.Context, ns Namespace, src id.Id) ([]id.Id, error) {
	query := fmt.Sprintf(`SELECT id FROM %q WHERE src = ?`, ns.EdgesTable())
	sb := src.Bytes()
	rows, err := s.db.QueryContext(ctx, query, sb[:])
	if err != nil {
		return nil, fmt.Errorf("lwwgraph: failed to query edge src: %w", err)
	}
	defer rows.Close()
	return scanIds(rows)
}

// QueryEdgeLabelDst returns every edge id currently present with
// (l, dst).
func (s *SQLiteStore) QueryEdgeLabelDst(ctx context.Context, ns Namespace, l label.Label, dst id.Id) ([]id.Id, error) {
	query := fmt.Sprintf(`SELECT id FROM %q WHERE label = ? AND dst = ?`, ns.EdgesTable())
	lb := l.Bytes()
	db := dst.Bytes()
	rows, err := s.db.QueryContext(ctx, query, lb[:], db[:])
	if err != nil {
		return nil, fmt.Errorf("lwwgraph: failed to query edge label+dst: %w", err)
	}
	defer rows.Close()
	return scanIds(rows)
}

// LoadAtomPayload reads the encoded payload for an atom destination
// node, or (nil, false) if none was ever written.
func (s *SQLiteStore) LoadAtomPayload(ctx context.Context, ns Namespace, dst id.Id) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT payload FROM %q WHERE dst = ?`, ns.AtomsTable())
	db := dst.Bytes()
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, db[:]).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lwwgraph: failed to load atom payload: %w", err)
	}
	return payload, true, nil
}

// SaveAtomPayload writes the encoded payload for an atom destination
// node.
func (s *SQLiteStore) SaveAtomPayload(ctx context.Context, ns Namespace, dst id.Id, payload []byte) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %q (dst, payload) VALUES (?, ?)`, ns.AtomsTable())
	db := dst.Bytes()
	if _, err := s.db.ExecContext(ctx, query, db[:], payload); err != nil {
		return fmt.Errorf("lwwgraph: failed to save atom payload: %w", err)
	}
	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanIds(rows *sql.Rows) ([]id.Id, error) {
	var out []id.Id
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("lwwgraph: failed to scan id: %w", err)
		}
		out = append(out, decodeIdBytes(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lwwgraph: error iterating ids: %w", err)
	}
	return out, nil
}

func decodeClock(b []byte) clock.Clock {
	var arr [16]byte
	copy(arr[:], b)
	return clock.FromBytes(arr)
}

func decodeLabel(b []byte) *label.Label {
	if b == nil {
		return nil
	}
	var arr [8]byte
	copy(arr[:], b)
	l := label.FromBytes(arr)
	return &l
}

func decodeId(b []byte) *id.Id {
	if b == nil {
		return nil
	}
	i := decodeIdBytes(b)
	return &i
}

func decodeIdBytes(b []byte) id.Id {
	var arr [16]byte
	copy(arr[:], b)
	return id.FromBytes(arr)
}
