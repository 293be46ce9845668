package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

// tableSchema whitelists the columns a record table exposes. Record keys
// outside the list are rejected so no caller-supplied identifier reaches SQL.
type tableSchema struct {
	columns []string
	orderBy string
}

var schemas = map[string]tableSchema{
	gateway.TableProfiles: {
		columns: []string{"id", "email", "full_name", "avatar_url", "is_admin", "is_banned", "has_onboarded", "created_at"},
		orderBy: "created_at DESC",
	},
	gateway.TableInvites: {
		columns: []string{"id", "token", "status", "created_at", "expires_at", "created_by", "used_by"},
		orderBy: "created_at DESC",
	},
	gateway.TableProgress: {
		columns: []string{"id", "user_id", "lesson_id", "completed_at"},
		orderBy: "id",
	},
}

func (s tableSchema) has(col string) bool {
	for _, c := range s.columns {
		if c == col {
			return true
		}
	}
	return false
}

// Tables reads and writes the Postgres record tables.
type Tables struct {
	db *sql.DB
}

// NewTables wraps db.
func NewTables(db *sql.DB) *Tables {
	return &Tables{db: db}
}

func lookup(table string) (tableSchema, error) {
	s, ok := schemas[table]
	if !ok {
		return tableSchema{}, gateway.ErrUnknownTable
	}
	return s, nil
}

// Get returns (nil, nil) when no row has the id.
func (t *Tables) Get(ctx context.Context, table, id string) (gateway.Record, error) {
	s, err := lookup(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(s.columns, ", "), table)
	rows, err := t.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	defer rows.Close()
	out, err := scanRecords(rows, s.columns)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// List applies filter as equality conditions joined with AND.
func (t *Tables) List(ctx context.Context, table string, filter gateway.Filter) ([]gateway.Record, error) {
	s, err := lookup(table)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !s.has(k) {
			return nil, fmt.Errorf("list %s: unknown column %q", table, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.columns, ", "), table)
	args := make([]any, 0, len(keys))
	conds := make([]string, 0, len(keys))
	for i, k := range keys {
		conds = append(conds, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, filter[k])
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + s.orderBy

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	out, err := scanRecords(rows, s.columns)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}

// Upsert inserts rec or updates only the columns it carries.
func (t *Tables) Upsert(ctx context.Context, table string, rec gateway.Record) error {
	s, err := lookup(table)
	if err != nil {
		return err
	}
	if id, _ := rec["id"].(string); id == "" {
		return fmt.Errorf("upsert %s: record has no id", table)
	}
	cols := make([]string, 0, len(rec))
	for k := range rec {
		if !s.has(k) {
			return fmt.Errorf("upsert %s: unknown column %q", table, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	var updates []string
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[c]
		if c != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO ",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if len(updates) == 0 {
		query += "NOTHING"
	} else {
		query += "UPDATE SET " + strings.Join(updates, ", ")
	}

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Delete removes the row; a missing row is not an error.
func (t *Tables) Delete(ctx context.Context, table, id string) error {
	if _, err := lookup(table); err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows, columns []string) ([]gateway.Record, error) {
	var out []gateway.Record
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(gateway.Record, len(columns))
		for i, c := range columns {
			rec[c] = normalizeValue(vals[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

// normalizeValue maps driver values onto the JSON shapes records decode.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return x
	}
}
