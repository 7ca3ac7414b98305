package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type queryExecer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

func totalChanges(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var total int64
	if err := q.QueryRowxContext(ctx, "SELECT total_changes()").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// changesSince reports the rows changed and the last insert id of the
// statement that just ran. A statement that left total_changes() untouched
// (a SELECT, a DDL statement) changed nothing, whatever changes() still holds
// from an earlier statement.
func changesSince(ctx context.Context, q sqlx.QueryerContext, before int64) (rowsAffected, insertID int64, err error) {
	var total int64
	err = q.QueryRowxContext(ctx, "SELECT total_changes(), changes(), last_insert_rowid()").
		Scan(&total, &rowsAffected, &insertID)
	if err != nil {
		return 0, 0, err
	}
	if total == before {
		return 0, 0, nil
	}
	return rowsAffected, insertID, nil
}

func runQuery(ctx context.Context, q sqlx.QueryerContext, query func() (*sql.Rows, error)) (*QueryResult, error) {
	before, err := totalChanges(ctx, q)
	if err != nil {
		return nil, err
	}
	return collectQuery(ctx, q, before, query)
}

// runStatements runs every statement in query in order and returns the rows
// of the last one. Parameters are consumed positionally: each statement takes
// as many as it declares and the last one receives the rest. Statements that
// already ran are not undone when a later one fails.
func runStatements(ctx context.Context, q queryExecer, query string, params []any) (*QueryResult, error) {
	statements := splitStatements(query)
	if len(statements) <= 1 {
		return runQuery(ctx, q, func() (*sql.Rows, error) {
			return q.QueryContext(ctx, query, params...)
		})
	}

	before, err := totalChanges(ctx, q)
	if err != nil {
		return nil, err
	}
	used := 0
	for _, stmt := range statements[:len(statements)-1] {
		end := min(used+stmt.Params, len(params))
		if _, err := q.ExecContext(ctx, stmt.SQL, params[used:end]...); err != nil {
			return nil, err
		}
		used = end
	}
	last := statements[len(statements)-1]
	return collectQuery(ctx, q, before, func() (*sql.Rows, error) {
		return q.QueryContext(ctx, last.SQL, params[used:]...)
	})
}

func collectQuery(ctx context.Context, q sqlx.QueryerContext, before int64, query func() (*sql.Rows, error)) (*QueryResult, error) {
	rows, err := query()
	if err != nil {
		return nil, err
	}
	res, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	res.RowsAffected, res.InsertID, err = changesSince(ctx, q, before)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func execCounting(ctx context.Context, q queryExecer, query string, params []any) (int64, error) {
	before, err := totalChanges(ctx, q)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	after, err := totalChanges(ctx, q)
	if err != nil {
		return 0, err
	}
	if after == before {
		return 0, nil
	}
	return res.RowsAffected()
}

func scanRows(rows *sql.Rows) (*QueryResult, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	metadata := make([]ColumnMetadata, len(columns))
	for i, name := range columns {
		typ := columnTypes[i].DatabaseTypeName()
		if typ == "" {
			typ = "UNKNOWN"
		}
		metadata[i] = ColumnMetadata{Name: name, Type: typ, Index: i}
	}

	results := [][]any{}
	scanArgs := make([]any, len(columns))
	scanPtrs := make([]any, len(columns))
	for i := range scanArgs {
		scanPtrs[i] = &scanArgs[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, err
		}
		results = append(results, processRowValues(scanArgs))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Columns: columns, Rows: results, Metadata: metadata}, nil
}

// processRowValues copies a scanned row, turning timestamps into RFC 3339
// strings. Blobs stay []byte.
func processRowValues(rawRow []any) []any {
	processedRow := make([]any, len(rawRow))
	for i, val := range rawRow {
		switch v := val.(type) {
		case []byte:
			processedRow[i] = append([]byte(nil), v...)
		case time.Time:
			processedRow[i] = v.Format(time.RFC3339Nano)
		default:
			processedRow[i] = v
		}
	}
	return processedRow
}
