package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gridcrf/internal/graph"
)

// Meta describes a stored graph.
type Meta struct {
	ID        uuid.UUID
	Name      string
	Width     int
	Height    int
	Layers    int
	States    int
	Edges     string // edge families, e.g. "link|grid"
	NodeCount int
	EdgeCount int
	CreatedAt time.Time
}

// Save stores g under a new id. ID, States, NodeCount, EdgeCount and
// CreatedAt are filled in from g and the clock; the rest of meta is stored
// as given.
func (db *DB) Save(meta Meta, g graph.Graph) (uuid.UUID, error) {
	blob, err := encodeGraph(g)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	meta.ID = uuid.New()
	meta.States = g.NumStates()
	meta.NodeCount = g.NumNodes()
	meta.EdgeCount = g.NumEdges()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	_, err = db.Exec(`
		INSERT INTO graph_snapshots (
			snapshot_id, name, width, height, layers, states, edges_flags,
			node_count, edge_count, created_ms, graph_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID.String(), meta.Name, meta.Width, meta.Height, meta.Layers, meta.States, meta.Edges,
		meta.NodeCount, meta.EdgeCount, meta.CreatedAt.UnixMilli(), blob,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return meta.ID, nil
}

const metaColumns = `snapshot_id, name, width, height, layers, states, edges_flags, node_count, edge_count, created_ms`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(row scanner, extra ...interface{}) (Meta, error) {
	var (
		m       Meta
		id      string
		created int64
	)
	dest := append([]interface{}{
		&id, &m.Name, &m.Width, &m.Height, &m.Layers, &m.States, &m.Edges,
		&m.NodeCount, &m.EdgeCount, &created,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Meta{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Meta{}, fmt.Errorf("bad snapshot id %q: %w", id, err)
	}
	m.ID = parsed
	m.CreatedAt = time.UnixMilli(created)
	return m, nil
}

// Load returns the metadata and a fresh Store holding the graph saved
// under id.
func (db *DB) Load(id uuid.UUID) (Meta, *graph.Store, error) {
	var blob []byte
	row := db.QueryRow(`SELECT `+metaColumns+`, graph_blob FROM graph_snapshots WHERE snapshot_id = ?`, id.String())
	meta, err := scanMeta(row, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Meta{}, nil, err
	}
	store, err := decodeGraph(blob)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return meta, store, nil
}

// List returns the metadata of every snapshot, newest first.
func (db *DB) List() ([]Meta, error) {
	rows, err := db.Query(`SELECT ` + metaColumns + ` FROM graph_snapshots ORDER BY created_ms DESC, snapshot_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes the snapshot saved under id.
func (db *DB) Delete(id uuid.UUID) error {
	res, err := db.Exec(`DELETE FROM graph_snapshots WHERE snapshot_id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveDecisions attaches a decoded label grid, indexed [y][x], to the
// snapshot saved under id.
func (db *DB) SaveDecisions(id uuid.UUID, decisions [][]int) error {
	blob, err := gobGzip(decisions)
	if err != nil {
		return fmt.Errorf("failed to encode decisions: %w", err)
	}
	res, err := db.Exec(`UPDATE graph_snapshots SET decisions_blob = ? WHERE snapshot_id = ?`, blob, id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// Decisions returns the label grid attached by SaveDecisions, or nil when
// none was saved.
func (db *DB) Decisions(id uuid.UUID) ([][]int, error) {
	var blob []byte
	err := db.QueryRow(`SELECT decisions_blob FROM graph_snapshots WHERE snapshot_id = ?`, id.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	var out [][]int
	if err := gunzipGob(blob, &out); err != nil {
		return nil, err
	}
	return out, nil
}
