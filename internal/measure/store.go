// Package measure implements the append-only measurement store: one CSV
// table per (benchmark, label), a fixed two-column schema checked once at
// open time, and per-row flushed appends that survive process termination.
package measure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640

	// floatFormat is the strconv format used for persisted values. 'g' keeps
	// integer-valued parameters free of a trailing ".0000".
	floatFormat = 'g'
	floatPrec   = -1
)

// ErrSchemaMismatch is returned when an existing table header does not match
// the schema implied by the current benchmark descriptor. The table is never
// silently reinterpreted.
var ErrSchemaMismatch = errors.New("measurement table schema mismatch")

// Schema is the ordered pair of column names for a measurement table.
type Schema struct {
	Parameter string
	Output    string
}

// Columns returns the header row written for new tables.
func (s Schema) Columns() []string {
	return []string{s.Parameter, s.Output}
}

// Matches reports whether header names equal the schema's column set.
// Column order is not significant; column presence is.
func (s Schema) Matches(header []string) bool {
	if len(header) != len(s.Columns()) {
		return false
	}

	want := map[string]bool{s.Parameter: true, s.Output: true}
	for _, col := range header {
		if !want[col] {
			return false
		}

		delete(want, col)
	}

	return len(want) == 0
}

// SchemaError reports a header conflict for a specific table file.
type SchemaError struct {
	Path   string
	Want   Schema
	Header []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: header %v does not match schema %v",
		e.Path, e.Header, e.Want.Columns())
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// Table is an open, append-only measurement table. Rows are written through
// a csv writer and flushed individually, so a terminated process leaves only
// complete rows behind.
type Table struct {
	path   string
	schema Schema
	file   *os.File
	writer *csv.Writer
}

// OpenOrInit opens the table at path, creating it with a header row when it
// does not exist. An existing table has only its header read; a column-set
// mismatch fails with ErrSchemaMismatch before any write. Idempotent: opening
// twice never duplicates the header or touches existing rows.
func OpenOrInit(path string, schema Schema) (*Table, error) {
	mkErr := os.MkdirAll(filepath.Dir(path), dirPerm)
	if mkErr != nil {
		return nil, fmt.Errorf("create table dir: %w", mkErr)
	}

	_, statErr := os.Stat(path)

	exists := statErr == nil
	if !exists && !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("stat table: %w", statErr)
	}

	if exists {
		checkErr := checkHeader(path, schema)
		if checkErr != nil {
			return nil, checkErr
		}
	}

	file, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if openErr != nil {
		return nil, fmt.Errorf("open table: %w", openErr)
	}

	table := &Table{
		path:   path,
		schema: schema,
		file:   file,
		writer: csv.NewWriter(file),
	}

	if !exists {
		headerErr := table.writeRecord(schema.Columns())
		if headerErr != nil {
			file.Close()

			return nil, fmt.Errorf("write header: %w", headerErr)
		}
	}

	return table, nil
}

// Append writes one (parameter, metric) row and flushes it. Existing content
// is never rewritten; cost is O(1) per call regardless of table size.
func (t *Table) Append(parameter, metric float64) error {
	return t.writeRecord([]string{
		strconv.FormatFloat(parameter, floatFormat, floatPrec, 64),
		strconv.FormatFloat(metric, floatFormat, floatPrec, 64),
	})
}

// Path returns the backing file path.
func (t *Table) Path() string {
	return t.path
}

// Close releases the backing file.
func (t *Table) Close() error {
	return t.file.Close()
}

func (t *Table) writeRecord(record []string) error {
	writeErr := t.writer.Write(record)
	if writeErr != nil {
		return fmt.Errorf("append row: %w", writeErr)
	}

	t.writer.Flush()

	flushErr := t.writer.Error()
	if flushErr != nil {
		return fmt.Errorf("flush row: %w", flushErr)
	}

	return nil
}

// checkHeader reads only the first record of an existing table and compares
// its column set with the expected schema.
func checkHeader(path string, schema Schema) error {
	file, openErr := os.Open(path)
	if openErr != nil {
		return fmt.Errorf("open table header: %w", openErr)
	}
	defer file.Close()

	header, readErr := csv.NewReader(file).Read()
	if readErr != nil {
		if errors.Is(readErr, io.EOF) {
			// A zero-byte table lost its header; refuse it rather than guess.
			return &SchemaError{Path: path, Want: schema, Header: nil}
		}

		return fmt.Errorf("read table header: %w", readErr)
	}

	if !schema.Matches(header) {
		return &SchemaError{Path: path, Want: schema, Header: header}
	}

	return nil
}
