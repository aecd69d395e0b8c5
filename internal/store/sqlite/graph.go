// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// MemoryPath opens a private in-memory database when passed to Open.
const MemoryPath = ":memory:"

// Compile-time interface check.
var _ store.LoadableStore = (*GraphStore)(nil)

// GraphStore implements store.LoadableStore on the nodes and edges tables.
// A store returned by Open owns its connection pool; one returned by Attach
// borrows the caller's and never closes it.
type GraphStore struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// Open opens (or creates) a SQLite database at dbPath and ensures the graph
// tables exist. The returned store closes the database on Close.
func Open(dbPath string) (*GraphStore, error) {
	dsn := withParams(dbPath, "_journal_mode=WAL&_busy_timeout=5000")
	memory := dbPath == MemoryPath
	if memory {
		// Every connection to ":memory:" sees its own database, so name a
		// shared-cache database and pin the pool to one connection.
		dsn = withParams("file:simplekp-"+uuid.NewString()+"?mode=memory&cache=shared", "_busy_timeout=5000")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "opening sqlite db", sigilerr.FieldPath(dbPath))
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pinging sqlite db", sigilerr.FieldPath(dbPath))
	}

	if err := migrateGraph(db); err != nil {
		_ = db.Close()
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "migrating graph tables", sigilerr.FieldPath(dbPath))
	}

	return &GraphStore{db: db, owned: true, logger: slog.Default()}, nil
}

// withParams appends driver parameters to a file name or a file: URI that
// may already carry a query.
func withParams(dbPath, params string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + params
	}
	return dbPath + "?" + params
}

// Attach wraps an already-open database. The caller keeps ownership: Close on
// the returned store is a no-op.
func Attach(db *sql.DB) (*GraphStore, error) {
	if db == nil {
		return nil, sigilerr.New(sigilerr.CodeStoreInvalidInput, "attach requires an open database")
	}
	if err := migrateGraph(db); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "migrating graph tables")
	}
	return &GraphStore{db: db, owned: false, logger: slog.Default()}, nil
}

func migrateGraph(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL REFERENCES nodes(id),
	predicate  TEXT NOT NULL,
	object     TEXT NOT NULL REFERENCES nodes(id),
	attributes TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_edges_subject ON edges(subject);
CREATE INDEX IF NOT EXISTS idx_edges_object ON edges(object);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the database if this store opened it.
func (g *GraphStore) Close() error {
	if !g.owned {
		return nil
	}
	return g.db.Close()
}

// DB exposes the underlying handle, e.g. for Attach in another component.
func (g *GraphStore) DB() *sql.DB {
	return g.db
}

// PutNodes inserts nodes in a single transaction.
func (g *GraphStore) PutNodes(ctx context.Context, nodes []*store.Node) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, category, name, attributes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "preparing node insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, n := range nodes {
		category, err := EncodeList(n.Categories)
		if err != nil {
			return sigilerr.With(err, sigilerr.FieldNodeID(n.ID))
		}
		attrs, err := encodeAttributes(n.Attributes)
		if err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "marshalling attributes of node %s: %w", n.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, n.ID, category, n.Name, attrs); err != nil {
			if isConstraintError(err) {
				return sigilerr.Wrap(err, sigilerr.CodeStoreConflict, "inserting node", sigilerr.FieldNodeID(n.ID))
			}
			return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "inserting node", sigilerr.FieldNodeID(n.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing nodes: %w", err)
	}
	g.logger.Debug("stored nodes", slog.Int("count", len(nodes)))
	return nil
}

// PutEdges inserts edges in a single transaction. Endpoints must exist.
func (g *GraphStore) PutEdges(ctx context.Context, edges []*store.Edge) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (id, subject, predicate, object, attributes) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "preparing edge insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "preparing endpoint check: %w", err)
	}
	defer func() { _ = exists.Close() }()

	for _, e := range edges {
		for _, endpoint := range []string{e.Subject, e.Object} {
			var one int
			if err := exists.QueryRowContext(ctx, endpoint).Scan(&one); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return sigilerr.New(sigilerr.CodeStoreInvalidInput, "edge references unknown node",
						sigilerr.Field("edge_id", e.ID), sigilerr.FieldNodeID(endpoint))
				}
				return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "checking endpoint %s: %w", endpoint, err)
			}
		}

		predicate, err := EncodeList(e.Predicates)
		if err != nil {
			return sigilerr.With(err, sigilerr.Field("edge_id", e.ID))
		}
		attrs, err := encodeAttributes(e.Attributes)
		if err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "marshalling attributes of edge %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Subject, predicate, e.Object, attrs); err != nil {
			if isConstraintError(err) {
				return sigilerr.Wrap(err, sigilerr.CodeStoreConflict, "inserting edge", sigilerr.Field("edge_id", e.ID))
			}
			return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "inserting edge", sigilerr.Field("edge_id", e.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing edges: %w", err)
	}
	g.logger.Debug("stored edges", slog.Int("count", len(edges)))
	return nil
}

// GetNode implements store.GraphStore.
func (g *GraphStore) GetNode(ctx context.Context, id string) (*store.Node, error) {
	const q = `SELECT id, category, name, attributes FROM nodes WHERE id = ?`

	n, err := scanNode(g.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sigilerr.New(sigilerr.CodeStoreNodeNotFound, "node "+id+" not found", sigilerr.FieldNodeID(id))
		}
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "getting node", sigilerr.FieldNodeID(id))
	}
	return n, nil
}

// GetEdges implements store.GraphStore. Conditions on id, subject and object
// compare the column directly; predicate conditions match any token of the
// multi-valued column; any other field is looked up in the attributes JSON.
func (g *GraphStore) GetEdges(ctx context.Context, query store.EdgeQuery) ([]*store.Edge, error) {
	if len(query) == 0 {
		return nil, sigilerr.New(sigilerr.CodeStoreEdgeQueryInvalid, "edge query requires at least one condition")
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, subject, predicate, object, attributes FROM edges WHERE `)

	for i, c := range query {
		if len(c.Values) == 0 {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreEdgeQueryInvalid, "condition on %q has no values", c.Field)
		}
		if i > 0 {
			qb.WriteString(` AND `)
		}
		switch c.Field {
		case store.FieldID, store.FieldSubject, store.FieldObject:
			qb.WriteString(c.Field)
			writeMembership(&qb, len(c.Values))
			for _, v := range c.Values {
				args = append(args, v)
			}
		case store.FieldPredicate:
			qb.WriteString(`(`)
			for j, v := range c.Values {
				if j > 0 {
					qb.WriteString(` OR `)
				}
				qb.WriteString(`instr(predicate, ?) > 0`)
				args = append(args, predicateToken(v))
			}
			qb.WriteString(`)`)
		default:
			qb.WriteString(`json_extract(attributes, ?)`)
			args = append(args, attributePath(c.Field))
			writeMembership(&qb, len(c.Values))
			for _, v := range c.Values {
				args = append(args, v)
			}
		}
	}
	qb.WriteString(` ORDER BY rowid`)

	rows, err := g.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying edges: %w", err)
	}
	return collectEdges(rows)
}

func writeMembership(qb *strings.Builder, n int) {
	if n == 1 {
		qb.WriteString(` = ?`)
		return
	}
	qb.WriteString(` IN (`)
	qb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", n), ", "))
	qb.WriteString(`)`)
}

// AllNodes implements store.GraphStore.
func (g *GraphStore) AllNodes(ctx context.Context) ([]*store.Node, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, category, name, attributes FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "listing nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*store.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating nodes: %w", err)
	}
	return nodes, nil
}

// AllEdges implements store.GraphStore.
func (g *GraphStore) AllEdges(ctx context.Context) ([]*store.Edge, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, subject, predicate, object, attributes FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "listing edges: %w", err)
	}
	return collectEdges(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*store.Node, error) {
	var id, category, name, attrs string
	if err := row.Scan(&id, &category, &name, &attrs); err != nil {
		return nil, err
	}
	attributes, err := decodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return &store.Node{
		ID:         id,
		Categories: DecodeList(category),
		Name:       name,
		Attributes: attributes,
	}, nil
}

func collectEdges(rows *sql.Rows) ([]*store.Edge, error) {
	defer func() { _ = rows.Close() }()

	var edges []*store.Edge
	for rows.Next() {
		var id, subject, predicate, object, attrs string
		if err := rows.Scan(&id, &subject, &predicate, &object, &attrs); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning edge: %w", err)
		}
		attributes, err := decodeAttributes(attrs)
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "decoding attributes of edge %s: %w", id, err)
		}
		edges = append(edges, &store.Edge{
			ID:         id,
			Subject:    subject,
			Object:     object,
			Predicates: DecodeList(predicate),
			Attributes: attributes,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating edges: %w", err)
	}
	return edges, nil
}

func isConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
