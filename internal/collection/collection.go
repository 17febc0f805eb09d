package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
	"github.com/Materials-Consortia/optimade-go/internal/filter"
	"github.com/Materials-Consortia/optimade-go/internal/mapper"
	"github.com/Materials-Consortia/optimade-go/internal/querysql"
	"github.com/Materials-Consortia/optimade-go/internal/transform"
)

var tracer = otel.Tracer("optimade-go/collection")

// columnName accepts SQL-safe physical field names only.
var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Collection provides durable storage for entry documents.
// Uses SQLite with WAL mode for concurrent read access.
type Collection struct {
	db       *sql.DB
	registry *mapper.Registry
	compiler *querysql.Compiler
}

// Open creates or opens a SQLite database at the given path and ensures a
// table exists for every entry type in the registry.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, registry *mapper.Registry) (*Collection, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	c := &Collection{db: db, registry: registry, compiler: querysql.NewCompiler()}
	for _, entryType := range registry.EntryTypes() {
		m, _ := registry.For(entryType)
		if err := c.ensureTable(entryType, m); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table for %s: %w", entryType, err)
		}
	}
	return c, nil
}

// Close closes the database connection.
func (c *Collection) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// ensureTable creates the entry type's table from the mapper's resolved
// quantities. The id column is always present and is the primary key.
func (c *Collection) ensureTable(entryType string, m *mapper.Mapper) error {
	cols := []string{"id TEXT PRIMARY KEY"}
	for _, q := range m.Quantities() {
		if q.Field == "id" {
			continue
		}
		if !columnName.MatchString(q.Field) {
			return fmt.Errorf("physical field %q is not a valid column name", q.Field)
		}
		cols = append(cols, q.Field+" "+columnType(q.Kind))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", entryType, strings.Join(cols, ", "))
	_, err := c.db.Exec(ddl)
	return err
}

func columnType(k clause.Kind) string {
	switch {
	case k.IsList():
		return "TEXT" // JSON array
	case k == clause.KindInt || k == clause.KindBool:
		return "INTEGER"
	case k == clause.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Insert stores documents for one entry type. Documents are keyed by
// logical property name; list values are JSON-encoded. A document without
// an id gets a generated one. All documents go in a single transaction.
func (c *Collection) Insert(ctx context.Context, entryType string, docs []map[string]any) error {
	m, ok := c.registry.For(entryType)
	if !ok {
		return fmt.Errorf("unknown entry type %q", entryType)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if err := c.insertOne(ctx, tx, entryType, m, doc); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	slog.Info("documents inserted",
		"entry_type", entryType,
		"count", len(docs))
	return nil
}

func (c *Collection) insertOne(ctx context.Context, tx *sql.Tx, entryType string, m *mapper.Mapper, doc map[string]any) error {
	cols := []string{"id"}
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		id = uuid.NewString()
	}
	params := []any{id}

	for _, q := range m.Quantities() {
		if q.Field == "id" {
			continue
		}
		v, present := doc[q.Name]
		if !present {
			continue
		}
		if q.Kind.IsList() {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s.%s: %w", entryType, q.Name, err)
			}
			v = string(raw)
		}
		cols = append(cols, q.Field)
		params = append(params, v)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entryType, strings.Join(cols, ", "), placeholders)
	_, err := tx.ExecContext(ctx, stmt, params...)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", entryType, err)
	}
	return nil
}

// FindOptions bound a Find call. A zero Limit means no limit.
type FindOptions struct {
	Version filter.Version
	Limit   int64
	Offset  int64
}

// Find runs the full pipeline for one entry type: parse, transform,
// compile, execute. An empty filter string selects everything. Results are
// keyed by logical property name and ordered deterministically by id.
func (c *Collection) Find(ctx context.Context, entryType, filterStr string, opts FindOptions) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "collection.find")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry_type", entryType),
		attribute.String("filter", filterStr),
	)

	m, ok := c.registry.For(entryType)
	if !ok {
		return nil, fmt.Errorf("unknown entry type %q", entryType)
	}

	version := opts.Version
	if version == "" {
		version = filter.Latest
	}

	var where clause.Clause
	if filterStr != "" {
		tree, err := filter.Parse(filterStr, version)
		if err != nil {
			return nil, err
		}
		where, err = transform.New(m).Transform(tree)
		if err != nil {
			return nil, err
		}
	}

	query, params, err := c.compiler.Select(entryType, nil, where, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}

	slog.Debug("executing find",
		"entry_type", entryType,
		"sql", query)

	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entryType, err)
	}
	defer rows.Close()

	docs, err := c.decodeRows(rows, m)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("results", len(docs)))
	slog.Info("find completed",
		"entry_type", entryType,
		"results", len(docs))
	return docs, nil
}

// decodeRows converts raw rows back into documents keyed by logical name,
// re-inflating JSON list columns.
func (c *Collection) decodeRows(rows *sql.Rows, m *mapper.Mapper) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var docs []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		targets := make([]any, len(cols))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		doc := make(map[string]any, len(cols))
		for i, col := range cols {
			logical := col
			if name, ok := m.AliasOf(col); ok {
				logical = name
			}
			doc[logical] = decodeColumn(m, logical, values[i])
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func decodeColumn(m *mapper.Mapper, logical string, v any) any {
	if raw, ok := v.([]byte); ok {
		v = string(raw)
	}
	q, ok := m.Resolve(logical)
	if !ok || !q.Kind.IsList() {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	var list []any
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return v
	}
	return list
}
