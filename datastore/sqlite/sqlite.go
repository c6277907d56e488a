/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

const (
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"

	dirPermissions    = 0750
	filePermissions   = 0600
	msPerSecond       = 1000
	connectionTimeout = 5 * time.Second
	connMaxIdleTime   = 30 * time.Minute
)

// Config contains database configuration options.
type Config struct {
	// Path is the database file. The directory is created if missing.
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the maximum time to wait for a database lock, in seconds.
	BusyTimeout int `yaml:"busy_timeout"`
}

// DataStore implements datastore.DataStore and datastore.Scanner over a
// SQLite database.
type DataStore struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	lastIDs map[string]int64
}

// Open creates a database connection with the given configuration and
// verifies it with a ping.
func Open(cfg Config) (*DataStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", errs.ErrConfig)
	}

	memory := cfg.Path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode && !memory {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// one writer; an in-memory database also lives on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if !memory {
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(connMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !memory {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // file may not exist until first write
	}

	s := New(db)
	s.path = cfg.Path
	return s, nil
}

// New wraps an open database.
func New(db *sql.DB) *DataStore {
	return &DataStore{
		db:      db,
		lastIDs: make(map[string]int64),
	}
}

// DB returns the underlying connection pool.
func (s *DataStore) DB() *sql.DB { return s.db }

// Path returns the database file path, if opened with Open.
func (s *DataStore) Path() string { return s.path }

// Close closes the database connection.
func (s *DataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Exec runs a statement that returns no rows, typically schema setup.
func (s *DataStore) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	return nil
}

func (s *DataStore) Get(ctx context.Context, collection string, key storagemodels.Key) (storagemodels.Record, error) {
	where, args, err := whereKey(key)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1", quoteIdent(collection), where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying record: %w", err)
		}
		return nil, nil
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	return scanRecord(rows, columns)
}

func (s *DataStore) Insert(ctx context.Context, collection string, record storagemodels.Record, primaryKey []string) error {
	columns := make([]string, 0, len(record))
	for name := range record {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	var query string
	args := make([]any, len(columns))
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(collection))
	} else {
		quoted := make([]string, len(columns))
		marks := make([]string, len(columns))
		for i, name := range columns {
			quoted[i] = quoteIdent(name)
			marks[i] = "?"
			args[i] = record[name]
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(collection), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraint(err) {
			key, _ := record.Pick(primaryKey)
			return errs.NewAlreadyExistsError(collection, key.String())
		}
		return fmt.Errorf("inserting record: %w", err)
	}

	if _, complete := record.Pick(primaryKey); !complete {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading generated id: %w", err)
		}
		s.mu.Lock()
		s.lastIDs[collection] = id
		s.mu.Unlock()
	}
	return nil
}

// LastID returns the rowid generated by the latest Insert into collection.
// SQLite generates at most one value per row, so column is only used in
// error messages.
func (s *DataStore) LastID(ctx context.Context, collection, column string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.lastIDs[collection]
	if !ok {
		return nil, errs.NewNotFoundError(collection, column)
	}
	return id, nil
}

func (s *DataStore) Update(ctx context.Context, collection string, key storagemodels.Key, changes storagemodels.Record) error {
	if len(changes) == 0 {
		return nil
	}
	where, whereArgs, err := whereKey(key)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(changes))
	for name := range changes {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(whereArgs))
	for i, name := range columns {
		sets[i] = quoteIdent(name) + " = ?"
		args = append(args, changes[name])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quoteIdent(collection), strings.Join(sets, ", "), where)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraint(err) {
			return errs.NewConditionFailedError("update", err.Error())
		}
		return fmt.Errorf("updating record: %w", err)
	}
	return requireRows(result, collection, key)
}

func (s *DataStore) Delete(ctx context.Context, collection string, key storagemodels.Key) error {
	where, args, err := whereKey(key)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(collection), where)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return requireRows(result, collection, key)
}

// Scan streams every row of a collection in rowid order. Rows are read one
// page at a time and the connection is released between pages, so consumers
// may use the store while iterating.
func (s *DataStore) Scan(ctx context.Context, collection string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult, options.BufferSize)

	go func() {
		defer close(resultCh)

		send := func(res storagemodels.StreamResult) bool {
			select {
			case <-ctx.Done():
				return false
			case resultCh <- res:
				return true
			}
		}

		query := fmt.Sprintf("SELECT * FROM %s ORDER BY rowid LIMIT ? OFFSET ?", quoteIdent(collection))
		pageSize := int64(options.PageSize)
		if pageSize <= 0 {
			pageSize = int64(storagemodels.DefaultStreamOptions().PageSize)
		}

		var index int64
		for page := 1; ; page++ {
			records, err := s.page(ctx, query, pageSize, index)
			if err != nil {
				send(storagemodels.StreamResult{
					Error: fmt.Errorf("scanning %s: %w", collection, err),
					Meta:  storagemodels.StreamMeta{Index: index, PageNumber: page, Timestamp: time.Now()},
				})
				return
			}
			for _, record := range records {
				res := storagemodels.StreamResult{
					Record: record,
					Meta:   storagemodels.StreamMeta{Index: index, PageNumber: page, Timestamp: time.Now()},
				}
				if !send(res) {
					return
				}
				index++
			}
			if int64(len(records)) < pageSize {
				return
			}
		}
	}()

	return resultCh
}

func (s *DataStore) page(ctx context.Context, query string, limit, offset int64) ([]storagemodels.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var records []storagemodels.Record
	for rows.Next() {
		record, err := scanRecord(rows, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// quoteIdent quotes a table or column name.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// whereKey renders `"a" = ? AND "b" = ?` for the sorted key fields.
func whereKey(key storagemodels.Key) (string, []any, error) {
	if len(key) == 0 {
		return "", nil, errs.NewValidationError("key", "empty key")
	}
	names := key.Names()
	clauses := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		if key[name] == nil {
			return "", nil, errs.NewValidationError(name, "nil key value")
		}
		clauses[i] = quoteIdent(name) + " = ?"
		args[i] = key[name]
	}
	return strings.Join(clauses, " AND "), args, nil
}

func scanRecord(rows *sql.Rows, columns []string) (storagemodels.Record, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	record := make(storagemodels.Record, len(columns))
	for i, name := range columns {
		// TEXT may be reported as []byte depending on the declared column type
		if b, ok := values[i].([]byte); ok {
			record[name] = string(b)
			continue
		}
		record[name] = values[i]
	}
	return record, nil
}

func requireRows(result sql.Result, collection string, key storagemodels.Key) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return errs.NewNotFoundError(collection, key.String())
	}
	return nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
