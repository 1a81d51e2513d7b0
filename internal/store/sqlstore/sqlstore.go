// Package sqlstore implements store.Store on database/sql for sqlite and postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"restoboost/internal/config"
	"restoboost/internal/metrics"
	"restoboost/internal/model"
	"restoboost/internal/store"
)

var (
	ErrBuildQuery    = errors.New("build query")
	ErrExecQuery     = errors.New("execute query")
	ErrBadIdentifier = errors.New("invalid identifier")
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store is a SQL-backed store.Store.
type Store struct {
	db      *sql.DB
	driver  string
	path    string
	builder sq.StatementBuilderType
	logger  *zerolog.Logger
}

// Open connects to driver (sqlite3 or postgres). For sqlite the DSN is a file
// path or ":memory:".
func Open(driver, dsn string, logger *zerolog.Logger) (*Store, error) {
	s := &Store{driver: driver, logger: logger}

	var conn string
	switch driver {
	case config.DriverSQLite:
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		if dsn == ":memory:" {
			conn = dsn
		} else {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			s.path = dsn
			conn = dsn + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
		}
	case config.DriverPostgres:
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
		conn = dsn
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dsn == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	logger.Info().Str("driver", driver).Msg("SQL store initialized")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Fetch implements store.Store.
func (s *Store) Fetch(ctx context.Context, table string, q store.Query, out any) (err error) {
	defer s.observe(table, "GET", time.Now(), &err)

	cols, err := selectColumns(q.Select)
	if err != nil {
		return err
	}
	if !identRe.MatchString(table) {
		return fmt.Errorf("%w: table %q", ErrBadIdentifier, table)
	}

	sb := s.builder.Select(cols...).From(table)
	for _, f := range q.Filters {
		pred, err := s.predicate(f)
		if err != nil {
			return err
		}
		sb = sb.Where(pred)
	}
	if col, desc, ok := q.OrderClause(); ok {
		if !identRe.MatchString(col) {
			return fmt.Errorf("%w: order column %q", ErrBadIdentifier, col)
		}
		if desc {
			sb = sb.OrderBy(col + " DESC")
		} else {
			sb = sb.OrderBy(col + " ASC")
		}
	}
	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return fmt.Errorf("%w: Fetch %s: %v", ErrBuildQuery, table, err)
	}
	return s.queryInto(ctx, table, query, args, out, false)
}

// Insert implements store.Store.
func (s *Store) Insert(ctx context.Context, table string, row any, out any) (err error) {
	defer s.observe(table, "POST", time.Now(), &err)

	values, err := s.rowValues(table, row)
	if err != nil {
		return err
	}
	cols := sortedKeys(values)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}

	query, qargs, err := s.builder.Insert(table).Columns(cols...).Values(args...).
		Suffix("RETURNING *").ToSql()
	if err != nil {
		return fmt.Errorf("%w: Insert %s: %v", ErrBuildQuery, table, err)
	}
	return s.queryInto(ctx, table, query, qargs, out, true)
}

// Patch implements store.Store.
func (s *Store) Patch(ctx context.Context, table string, filters []store.Filter, patch any) (matched bool, err error) {
	defer s.observe(table, "PATCH", time.Now(), &err)

	ub, err := s.updateBuilder(table, filters, patch)
	if err != nil {
		return false, err
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: Patch %s: %v", ErrBuildQuery, table, err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: Patch %s: %v", ErrExecQuery, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: Patch %s: %v", ErrExecQuery, table, err)
	}
	return n > 0, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, table string, filters []store.Filter, patch any, out any) (err error) {
	defer s.observe(table, "PATCH", time.Now(), &err)

	ub, err := s.updateBuilder(table, filters, patch)
	if err != nil {
		return err
	}
	query, args, err := ub.Suffix("RETURNING *").ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update %s: %v", ErrBuildQuery, table, err)
	}
	return s.queryInto(ctx, table, query, args, out, true)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, table string, filters []store.Filter) (err error) {
	defer s.observe(table, "DELETE", time.Now(), &err)

	if !identRe.MatchString(table) {
		return fmt.Errorf("%w: table %q", ErrBadIdentifier, table)
	}
	db := s.builder.Delete(table)
	for _, f := range filters {
		pred, err := s.predicate(f)
		if err != nil {
			return err
		}
		db = db.Where(pred)
	}
	query, args, err := db.ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete %s: %v", ErrBuildQuery, table, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Delete %s: %v", ErrExecQuery, table, err)
	}
	return nil
}

func (s *Store) updateBuilder(table string, filters []store.Filter, patch any) (sq.UpdateBuilder, error) {
	if !identRe.MatchString(table) {
		return sq.UpdateBuilder{}, fmt.Errorf("%w: table %q", ErrBadIdentifier, table)
	}
	values, err := s.rowValues(table, patch)
	if err != nil {
		return sq.UpdateBuilder{}, err
	}
	if len(values) == 0 {
		return sq.UpdateBuilder{}, fmt.Errorf("%w: empty patch for %s", ErrBuildQuery, table)
	}
	ub := s.builder.Update(table).SetMap(values)
	for _, f := range filters {
		pred, err := s.predicate(f)
		if err != nil {
			return sq.UpdateBuilder{}, err
		}
		ub = ub.Where(pred)
	}
	return ub, nil
}

func (s *Store) predicate(f store.Filter) (sq.Sqlizer, error) {
	col := f.Column
	if !identRe.MatchString(col) {
		return nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, col)
	}
	switch f.Op {
	case store.OpEq, store.OpIs:
		return sq.Eq{col: f.Value}, nil
	case store.OpNeq:
		return sq.NotEq{col: f.Value}, nil
	case store.OpLt:
		return sq.Lt{col: f.Value}, nil
	case store.OpLte:
		return sq.LtOrEq{col: f.Value}, nil
	case store.OpGt:
		return sq.Gt{col: f.Value}, nil
	case store.OpGte:
		return sq.GtOrEq{col: f.Value}, nil
	case store.OpIn:
		return sq.Eq{col: f.Values}, nil
	case store.OpLike:
		return sq.Like{col: likePattern(f.Value)}, nil
	case store.OpILike:
		if s.driver == config.DriverPostgres {
			return sq.ILike{col: likePattern(f.Value)}, nil
		}
		// sqlite LIKE is already case-insensitive for ASCII.
		return sq.Like{col: likePattern(f.Value)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported operator %q", ErrBuildQuery, f.Op)
	}
}

func likePattern(v any) string {
	return strings.ReplaceAll(fmt.Sprint(v), "*", "%")
}

func selectColumns(sel string) ([]string, error) {
	if sel == "" || sel == "*" {
		return []string{"*"}, nil
	}
	parts := strings.Split(sel, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !identRe.MatchString(p) {
			return nil, fmt.Errorf("%w: select column %q", ErrBadIdentifier, p)
		}
		cols = append(cols, p)
	}
	return cols, nil
}

// queryInto runs query and decodes the rows into out. With returning set, an
// empty result is store.ErrNoRows.
func (s *Store) queryInto(ctx context.Context, table, query string, args []any, out any, returning bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecQuery, table, err)
	}
	defer rows.Close()

	records, err := scanRecords(table, rows)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecQuery, table, err)
	}
	if out == nil {
		return nil
	}
	if returning && len(records) == 0 {
		return store.ErrNoRows
	}
	return decodeRecords(records, out)
}

func (s *Store) observe(table, method string, start time.Time, errp *error) {
	status := "ok"
	if *errp != nil && !errors.Is(*errp, store.ErrNoRows) {
		status = "error"
		s.logger.Warn().Err(*errp).Str("table", table).Str("method", method).Msg("store request failed")
	}
	metrics.ObserveStoreCall(table, method, status, time.Since(start))
}

// columnKinds lists columns that need conversion between Go JSON values and
// the stored representation.
var columnKinds = map[string]map[string]kind{
	store.TableRestaurants: {
		"cuisine": kindJSON,
		"photos":  kindJSON,
	},
	store.TableRestaurantHours: {
		"is_closed": kindBool,
	},
	store.TableServices: {
		"is_active": kindBool,
	},
	store.TableServiceCapacity: {
		"date": kindDate,
	},
	store.TableDiscountRules: {
		"is_active":  kindBool,
		"valid_from": kindDate,
		"valid_to":   kindDate,
	},
}

type kind int

const (
	kindPlain kind = iota
	kindBool
	kindJSON
	kindDate
)

func kindOf(table, column string) kind {
	return columnKinds[table][column]
}

func scanRecords(table string, rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = fromColumn(kindOf(table, c), raw[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func fromColumn(k kind, v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		if k == kindJSON && json.Valid(t) {
			return json.RawMessage(append([]byte(nil), t...))
		}
		return string(t)
	case string:
		if k == kindJSON && json.Valid([]byte(t)) {
			return json.RawMessage(t)
		}
		return t
	case int64:
		if k == kindBool {
			return t != 0
		}
		return t
	case time.Time:
		if t.Year() == 0 {
			// time without date, as returned for TIME columns
			return t.Format("15:04:05")
		}
		if k == kindDate {
			return t.Format(model.DateLayout)
		}
		return t.Format(time.RFC3339Nano)
	default:
		return t
	}
}

func decodeRecords(records []map[string]any, out any) error {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// rowValues flattens a JSON-tagged struct or map into column values.
func (s *Store) rowValues(table string, row any) (map[string]any, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s row: %v", ErrBuildQuery, table, err)
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %s row is not an object: %v", ErrBuildQuery, table, err)
	}

	values := make(map[string]any, len(fields))
	for col, v := range fields {
		if !identRe.MatchString(col) {
			return nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, col)
		}
		cv, err := toColumn(kindOf(table, col), v)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrBuildQuery, col, err)
		}
		values[col] = cv
	}
	return values, nil
}

func toColumn(k kind, v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case nil:
		if k == kindJSON {
			return "[]", nil
		}
		return nil, nil
	default:
		return t, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
