package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/structs"
)

// QueryParams narrows and orders the rows a query returns. Column names are
// the field names of the mapped struct.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as
	// "SetID = ? AND Outcome = ?".
	Where string
	Args  []any

	// OrderBy is an ordering without the ORDER BY keywords, such as
	// "Time DESC".
	OrderBy string

	// Limit caps the number of rows; 0 returns every row. Offset is only
	// applied together with a limit.
	Limit  int
	Offset int
}

func (p QueryParams) filter() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) window() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table are read
	// into. The struct may hold a subset of the recorded columns.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the names of the mapped tables.
	ListTables() []string

	// Query returns pointers to structs of the mapped type, together with
	// the number of rows that match the condition regardless of the limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type mappedTable struct {
	structType reflect.Type
	columns    []string
}

type sqliteReader struct {
	*sql.DB

	tables map[string]mappedTable
}

// NewReader opens a recording read-only. It fails if the file cannot be
// opened as a database.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:     db,
		tables: make(map[string]mappedTable),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.tables[tableName] = mappedTable{
		structType: reflect.TypeOf(sampleEntry),
		columns:    structs.Names(sampleEntry),
	}
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	mapping, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.filter(),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.QueryContext(ctx,
		"SELECT "+strings.Join(mapping.columns, ", ")+
			" FROM "+tableName+params.filter()+params.window(),
		params.Args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []any

	for rows.Next() {
		entry := reflect.New(mapping.structType)
		fields := entry.Elem()

		targets := make([]any, fields.NumField())
		for i := range targets {
			targets[i] = fields.Field(i).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, 0, err
		}

		results = append(results, entry.Interface())
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}

// QueryAs runs a query on a table mapped to T and returns the rows as
// values of T.
func QueryAs[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
	params QueryParams,
) ([]T, int, error) {
	results, total, err := r.Query(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]T, 0, len(results))

	for _, result := range results {
		entry, ok := result.(*T)
		if !ok {
			return nil, 0, fmt.Errorf("table %s is mapped to %T, not %T",
				tableName, result, entry)
		}

		entries = append(entries, *entry)
	}

	return entries, total, nil
}
