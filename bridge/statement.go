package bridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrStatementFinalized is returned when a finalized statement is used.
var ErrStatementFinalized = errors.New("[opsql] statement has been finalized")

// Statement is a compiled statement with its currently bound parameters.
type Statement struct {
	ID     string
	conn   *connection
	stmt   *sqlx.Stmt
	params []any
	closed bool
}

// Prepare compiles query on the named connection. The statement stays
// registered until it is finalized or the connection is closed.
func (b *Bridge) Prepare(ctx context.Context, name, query string) (*Statement, error) {
	c, err := b.conn(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, err := c.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}

	s := &Statement{ID: uuid.NewString(), conn: c, stmt: stmt}
	c.stmts[s.ID] = s
	return s, nil
}

// Bind replaces the parameters used by the next Execute.
func (s *Statement) Bind(params []any) error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	if s.closed {
		return ErrStatementFinalized
	}
	s.params = append([]any(nil), params...)
	return nil
}

// Execute runs the statement with its bound parameters.
func (s *Statement) Execute(ctx context.Context) (*QueryResult, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	if s.closed {
		return nil, ErrStatementFinalized
	}
	return runQuery(ctx, s.conn.db, func() (*sql.Rows, error) {
		return s.stmt.QueryContext(ctx, s.params...)
	})
}

// Finalize releases the statement. Finalizing twice is a no-op.
func (s *Statement) Finalize() error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	return s.finalizeLocked()
}

func (s *Statement) finalizeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.params = nil
	delete(s.conn.stmts, s.ID)
	if err := s.stmt.Close(); err != nil {
		return fmt.Errorf("close statement failed: %w", err)
	}
	return nil
}
