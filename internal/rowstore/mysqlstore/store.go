// Package mysqlstore keeps supplier rows in a self-hosted MySQL table.
package mysqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/supplier-risk/internal/db"
	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/repository"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/util"
)

type Options struct {
	// Outbox writes one change event per matched update into the outbox table,
	// in the same transaction as the update.
	Outbox      bool
	OutboxTopic string
}

type Store struct {
	db     *sqlx.DB
	outbox repository.OutboxRepository
	topic  string
	now    func() time.Time
}

var _ rowstore.Client = (*Store)(nil)

// Open connects and pings MySQL; any failure is a construction error.
func Open(ctx context.Context, dsn string, pool db.PoolOpts, opts Options) (*Store, error) {
	dbx, err := db.NewMySQLConnection(ctx, dsn, pool)
	if err != nil {
		return nil, err
	}
	return NewWithDB(dbx, opts), nil
}

func NewWithDB(dbx *sqlx.DB, opts Options) *Store {
	s := &Store{db: dbx, topic: opts.OutboxTopic, now: time.Now}
	if opts.Outbox {
		s.outbox = repository.NewOutboxRepository()
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// Update runs UPDATE and the read-back SELECT in one transaction, since MySQL
// has no RETURNING clause.
func (s *Store) Update(ctx context.Context, table, id string, patch model.Fields) ([]model.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := rowstore.CheckPatch(id, patch); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if len(patch) > 0 {
		cols := sortedKeys(patch)
		sets := make([]string, 0, len(cols))
		args := make([]any, 0, len(cols)+1)
		for _, c := range cols {
			sets = append(sets, quote(c)+" = ?")
			args = append(args, patch[c].SQLArg())
		}
		args = append(args, id)

		q := "UPDATE " + quote(table) + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, translate(err)
		}
	}

	rows, err := selectByID(ctx, tx, table, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if s.outbox != nil {
		ev := model.ChangeEvent{
			EventID:    util.NewID(),
			Table:      table,
			RecordID:   id,
			Changes:    patch,
			OccurredAt: s.now().UTC(),
		}
		if err := s.outbox.Insert(ctx, tx, s.topic, ev); err != nil {
			return nil, fmt.Errorf("insert outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, table string, fields model.Fields) (model.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := rowstore.CheckInsert(fields); err != nil {
		return nil, err
	}

	row := fields.Clone()
	id := model.Record(row).ID()
	if id == "" {
		id = util.NewID()
		row[model.FieldID] = model.String(id)
	}

	cols := sortedKeys(row)
	quoted := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, quote(c))
		args = append(args, row[c].SQLArg())
	}
	q := "INSERT INTO " + quote(table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return nil, translate(err)
	}
	rows, err := selectByID(ctx, tx, table, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s: row %s not visible after insert", table, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) Get(ctx context.Context, table, id string) (model.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rows, err := selectByID(ctx, s.db, table, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, rowstore.ErrNotFound
	}
	return rows[0], nil
}

func selectByID(ctx context.Context, q sqlx.QueryerContext, table, id string) ([]model.Record, error) {
	rows, err := q.QueryxContext(ctx, "SELECT * FROM "+quote(table)+" WHERE id = ?", id)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	dbType := make(map[string]string, len(types))
	for _, ct := range types {
		dbType[ct.Name()] = ct.DatabaseTypeName()
	}

	var out []model.Record
	for rows.Next() {
		m := make(map[string]any, len(types))
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		rec := make(model.Record, len(m))
		for col, v := range m {
			rec[col] = toValue(v, dbType[col])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// toValue maps a driver value to a model.Value, using the column type for the
// []byte values the text protocol and DECIMAL/JSON columns produce.
func toValue(v any, dbType string) model.Value {
	switch x := v.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.Bool(x)
	case int64:
		return model.Int(x)
	case int32:
		return model.Int(int64(x))
	case uint64:
		return model.Number(json.Number(strconv.FormatUint(x, 10)))
	case float32:
		return model.Float(float64(x))
	case float64:
		return model.Float(x)
	case time.Time:
		return model.Time(x)
	case []byte:
		return textValue(string(x), dbType)
	case string:
		return textValue(x, dbType)
	default:
		return model.String(fmt.Sprint(x))
	}
}

func textValue(s, dbType string) model.Value {
	switch t := strings.ToUpper(dbType); {
	case t == "JSON":
		if v, err := model.JSON([]byte(s)); err == nil {
			return v
		}
	case t == "DECIMAL" || strings.HasSuffix(t, "INT") || t == "FLOAT" || t == "DOUBLE" || t == "YEAR" ||
		strings.HasPrefix(t, "UNSIGNED"):
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return model.Number(json.Number(s))
		}
	case t == "DATETIME" || t == "TIMESTAMP":
		if ts, err := time.Parse("2006-01-02 15:04:05.999999", s); err == nil {
			return model.Time(ts)
		}
	}
	return model.String(s)
}

// Errors caused by the request content rather than the database being unhealthy.
var clientErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1054: true, // unknown column
	1062: true, // duplicate entry
	1146: true, // table doesn't exist
	1264: true, // out of range
	1265: true, // data truncated
	1292: true, // incorrect value
	1366: true, // incorrect value for column
	1406: true, // data too long
	1451: true, // fk parent row
	1452: true, // fk child row
	3140: true, // invalid JSON text
	3819: true, // check constraint violated
}

func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && clientErrors[me.Number] {
		return &rowstore.OpError{Code: strconv.Itoa(int(me.Number)), Message: me.Message}
	}
	return err
}

func checkTable(table string) error {
	if !rowstore.ValidColumn(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func quote(ident string) string { return "`" + ident + "`" }

func sortedKeys(f model.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
