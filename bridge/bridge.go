package bridge

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const defaultBusyTimeout = 5 * time.Second

// ErrNotOpen is returned for operations on a connection name that was never
// opened or has already been closed.
var ErrNotOpen = errors.New("database is not open")

// Config holds configuration options for the Bridge.
type Config struct {
	BusyTimeout time.Duration // Optional, defaults to 5s
	Logger      *slog.Logger  // Optional, defaults to slog.Default()
}

// Bridge owns every open SQLite connection, keyed by connection name. All
// operations on one connection are serialized by that connection's mutex.
type Bridge struct {
	mu    sync.Mutex
	conns map[string]*connection

	busyTimeout time.Duration
	logger      *slog.Logger
}

type connection struct {
	mu    sync.Mutex
	name  string
	path  string
	db    *sqlx.DB
	stmts map[string]*Statement
}

// New creates a new Bridge.
func New(config Config) *Bridge {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	busyTimeout := config.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = defaultBusyTimeout
	}
	return &Bridge{
		conns:       make(map[string]*connection),
		busyTimeout: busyTimeout,
		logger:      logger.With("component", "Bridge"),
	}
}

// sqliteConnector hands out connections from a private driver instance so
// every database can carry its own hooks and extensions.
type sqliteConnector struct {
	driver *sqlite3.SQLiteDriver
	dsn    string
}

func (c *sqliteConnector) Connect(ctx context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *sqliteConnector) Driver() driver.Driver {
	return c.driver
}

// Open opens the database file name inside dir, which is either a directory
// or ":memory:". Opening a name that is already open at the same path is a
// no-op; opening it at another path is an error, since connections are keyed
// by name.
func (b *Bridge) Open(ctx context.Context, name, dir string, opts OpenOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir == "" {
		dir = "."
	}
	path := FilePath(dir, name)
	if c, ok := b.conns[name]; ok {
		if c.path != path {
			return fmt.Errorf("[opsql] %s is already open at %s", name, c.path)
		}
		return nil
	}

	if dir != MemoryLocation {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("[opsql] could not create database directory: %w", err)
		}
	}

	drv := &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if opts.EncryptionKey == "" {
				return nil
			}
			_, err := conn.Exec("PRAGMA key = "+quoteLiteral(opts.EncryptionKey), nil)
			return err
		},
	}
	if opts.CRSQLitePath != "" {
		drv.Extensions = []string{opts.CRSQLitePath}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_txlock=exclusive", path, b.busyTimeout.Milliseconds())
	db := sqlx.NewDb(sql.OpenDB(&sqliteConnector{driver: drv, dsn: dsn}), "sqlite3")
	// A single connection keeps ATTACH, loaded extensions and in-memory
	// databases visible to every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	b.conns[name] = &connection{
		name:  name,
		path:  path,
		db:    db,
		stmts: make(map[string]*Statement),
	}
	b.logger.Info("Opened database", "name", name, "path", path)
	return nil
}

func (b *Bridge) conn(name string) (*connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.conns[name]
	if !ok {
		return nil, fmt.Errorf("[opsql] %s: %w", name, ErrNotOpen)
	}
	return c, nil
}

// Close finalizes the statements of the named database and closes it.
func (b *Bridge) Close(name string) error {
	b.mu.Lock()
	c, ok := b.conns[name]
	if ok {
		delete(b.conns, name)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("[opsql] %s: %w", name, ErrNotOpen)
	}
	return b.closeConn(c)
}

func (b *Bridge) closeConn(c *connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range c.stmts {
		stmt.finalizeLocked()
	}
	if err := c.db.Close(); err != nil {
		return err
	}
	b.logger.Info("Closed database", "name", c.name)
	return nil
}

// CloseAll closes every open database, returning the first error.
func (b *Bridge) CloseAll() error {
	b.mu.Lock()
	conns := make([]*connection, 0, len(b.conns))
	for name, c := range b.conns {
		conns = append(conns, c)
		delete(b.conns, name)
	}
	b.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		if err := b.closeConn(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove closes the named database if it is open and deletes its file, along
// with any journal files, from dir.
func (b *Bridge) Remove(name, dir string) error {
	b.mu.Lock()
	c, open := b.conns[name]
	if open {
		delete(b.conns, name)
	}
	b.mu.Unlock()

	if open {
		if err := b.closeConn(c); err != nil {
			return err
		}
	}

	path := FilePath(dir, name)
	if path == MemoryLocation {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("[opsql] database file not found: %s", path)
		}
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	b.logger.Info("Removed database", "name", name, "path", path)
	return nil
}

// Path returns the file path of an open database.
func (b *Bridge) Path(name string) (string, error) {
	c, err := b.conn(name)
	if err != nil {
		return "", err
	}
	return c.path, nil
}

// Attach attaches the database file found in dir as alias on the named
// connection.
func (b *Bridge) Attach(ctx context.Context, name, dir, file, alias string) error {
	c, err := b.conn(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := FilePath(dir, file)
	_, err = c.db.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(alias), path)
	return err
}

// Detach detaches a previously attached alias.
func (b *Bridge) Detach(ctx context.Context, name, alias string) error {
	c, err := b.conn(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, "DETACH DATABASE "+quoteIdent(alias))
	return err
}

// Execute runs the statements in query and returns the rows of the last one
// with its column metadata. rowsAffected and insertId describe the last
// statement that changed rows.
func (b *Bridge) Execute(ctx context.Context, name, query string, params []any) (*QueryResult, error) {
	c, err := b.conn(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return runStatements(ctx, c.db, query, params)
}

// ExecuteRaw runs one statement and returns its rows as plain value lists.
func (b *Bridge) ExecuteRaw(ctx context.Context, name, query string, params []any) (*RawResult, error) {
	res, err := b.Execute(ctx, name, query, params)
	if err != nil {
		return nil, err
	}
	return &RawResult{RowsAffected: res.RowsAffected, InsertID: res.InsertID, Rows: res.Rows}, nil
}

// ExecuteBatch runs every command inside one transaction. The first failing
// command rolls the transaction back and its error is returned unchanged.
func (b *Bridge) ExecuteBatch(ctx context.Context, name string, commands []BatchCommand) (*BatchResult, error) {
	c, err := b.conn(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var total int64
	for _, cmd := range commands {
		sets := cmd.Params
		if len(sets) == 0 {
			sets = [][]any{nil}
		}
		for _, params := range sets {
			n, err := execCounting(ctx, tx, cmd.SQL, params)
			if err != nil {
				return nil, err
			}
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &BatchResult{RowsAffected: total}, nil
}

// LoadExtension loads a SQLite extension into the named connection. An empty
// entryPoint lets the entry point be derived from the library file name.
func (b *Bridge) LoadExtension(ctx context.Context, name, path, entryPoint string) error {
	c, err := b.conn(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("[opsql] connection is not a sqlite3 connection: %T", driverConn)
		}
		if entryPoint != "" {
			return sc.LoadExtension(path, entryPoint)
		}
		var err error
		for _, entry := range defaultEntryPoints(path) {
			if err = sc.LoadExtension(path, entry); err == nil {
				return nil
			}
		}
		return err
	})
}

// defaultEntryPoints mirrors how SQLite guesses an extension's init function:
// "sqlite3_<name>_init" derived from the file name, then
// "sqlite3_extension_init".
func defaultEntryPoints(path string) []string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimPrefix(base, "lib")

	var name strings.Builder
	for _, r := range base {
		if r == '.' {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			name.WriteRune(r)
		}
	}

	entries := []string{}
	if name.Len() > 0 {
		entries = append(entries, "sqlite3_"+strings.ToLower(name.String())+"_init")
	}
	return append(entries, "sqlite3_extension_init")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
