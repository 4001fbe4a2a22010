package board

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFileName is the database file created inside the data directory.
const DBFileName = "boards.db"

// SQLiteStore persists boards in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("board: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("board: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("board: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("board: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS boards (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS nodes (
			board_id TEXT    NOT NULL,
			id       TEXT    NOT NULL,
			seq      INTEGER NOT NULL,
			type     TEXT    NOT NULL,
			x        REAL    NOT NULL,
			y        REAL    NOT NULL,
			data     TEXT    NOT NULL,
			PRIMARY KEY (board_id, id),
			FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS edges (
			board_id TEXT    NOT NULL,
			id       TEXT    NOT NULL,
			seq      INTEGER NOT NULL,
			source   TEXT    NOT NULL,
			target   TEXT    NOT NULL,
			PRIMARY KEY (board_id, id),
			FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_board ON nodes(board_id, seq);
		CREATE INDEX IF NOT EXISTS idx_edges_board ON edges(board_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveNodes replaces the stored node list of a board.
func (s *SQLiteStore) SaveNodes(ctx context.Context, boardID string, nodes []graph.Node) error {
	return s.replace(ctx, boardID, "nodes", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (board_id, id, seq, type, x, y, data) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, n := range nodes {
			data, err := json.Marshal(n.Data)
			if err != nil {
				return fmt.Errorf("encode node %s: %w", n.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, boardID, n.ID, i, n.Type, n.Position.X, n.Position.Y, string(data)); err != nil {
				return fmt.Errorf("insert node %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// SaveEdges replaces the stored edge list of a board.
func (s *SQLiteStore) SaveEdges(ctx context.Context, boardID string, edges []graph.Edge) error {
	return s.replace(ctx, boardID, "edges", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (board_id, id, seq, source, target) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, e := range edges {
			if _, err := stmt.ExecContext(ctx, boardID, e.ID, i, e.Source, e.Target); err != nil {
				return fmt.Errorf("insert edge %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// replace upserts the board row, clears table for it and runs fill, all in one transaction.
func (s *SQLiteStore) replace(ctx context.Context, boardID, table string, fill func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("board: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO boards (id) VALUES (?) ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')`,
		boardID,
	); err != nil {
		return fmt.Errorf("board: upsert %s: %w", boardID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE board_id = ?", boardID); err != nil {
		return fmt.Errorf("board: clear %s: %w", table, err)
	}

	if err := fill(tx); err != nil {
		return fmt.Errorf("board: save %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("board: commit: %w", err)
	}
	return nil
}

// LoadBoard reads a board with nodes and edges in their saved order.
func (s *SQLiteStore) LoadBoard(ctx context.Context, boardID string) (Board, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM boards WHERE id = ?`, boardID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, ErrBoardNotFound
	}
	if err != nil {
		return Board{}, fmt.Errorf("board: load %s: %w", boardID, err)
	}

	b := Board{ID: id}
	if b.Nodes, err = s.loadNodes(ctx, boardID); err != nil {
		return Board{}, err
	}
	if b.Edges, err = s.loadEdges(ctx, boardID); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context, boardID string) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, x, y, data FROM nodes WHERE board_id = ? ORDER BY seq`, boardID)
	if err != nil {
		return nil, fmt.Errorf("board: load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var data string
		if err := rows.Scan(&n.ID, &n.Type, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("board: scan node: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("board: decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board: load nodes: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteStore) loadEdges(ctx context.Context, boardID string) ([]graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, target FROM edges WHERE board_id = ? ORDER BY seq`, boardID)
	if err != nil {
		return nil, fmt.Errorf("board: load edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("board: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board: load edges: %w", err)
	}
	return edges, nil
}
