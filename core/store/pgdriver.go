package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
)

// Queries in this package are written with `?` placeholders so the
// same SQL runs against sqlite in tests. This driver wrapper rewrites
// them to $N for postgres and emulates LastInsertId via lastval().
const postgresDriverName = "pgx-qmark"

func init() {
	sql.Register(postgresDriverName, qmarkDriver{base: stdlib.GetDefaultDriver()})
}

type qmarkDriver struct {
	base driver.Driver
}

func (d qmarkDriver) Open(name string) (driver.Conn, error) {
	c, err := d.base.Open(name)
	if err != nil {
		return nil, err
	}
	return &qmarkConn{Conn: c}, nil
}

type qmarkConn struct {
	driver.Conn
}

func (c *qmarkConn) Prepare(query string) (driver.Stmt, error) {
	return c.Conn.Prepare(rewritePlaceholders(query))
}

func (c *qmarkConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(ctx, rewritePlaceholders(query))
	}
	return c.Prepare(query)
}

func (c *qmarkConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	q := rewritePlaceholders(query)
	ex, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	res, err := ex.ExecContext(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(q)), "INSERT ") {
		return c.attachLastInsertID(ctx, res)
	}
	return qmarkResult{base: res}, nil
}

func (c *qmarkConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := c.Conn.(driver.QueryerContext); ok {
		return qx.QueryContext(ctx, rewritePlaceholders(query), args)
	}
	return nil, driver.ErrSkip
}

func (c *qmarkConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	if opts.ReadOnly {
		return nil, errors.New("driver does not support read-only transactions")
	}
	return c.Conn.Begin()
}

type qmarkResult struct {
	base      driver.Result
	lastID    int64
	hasLastID bool
}

func (r qmarkResult) LastInsertId() (int64, error) {
	if !r.hasLastID {
		return 0, nil
	}
	return r.lastID, nil
}

func (r qmarkResult) RowsAffected() (int64, error) {
	if r.base == nil {
		return 0, nil
	}
	return r.base.RowsAffected()
}

func (c *qmarkConn) attachLastInsertID(ctx context.Context, res driver.Result) (driver.Result, error) {
	rows, err := c.QueryContext(ctx, "SELECT lastval()", nil)
	if err != nil || rows == nil {
		return qmarkResult{base: res}, nil
	}
	defer rows.Close()
	dest := make([]driver.Value, 1)
	if rows.Next(dest) != nil {
		return qmarkResult{base: res}, nil
	}
	switch v := dest[0].(type) {
	case int64:
		return qmarkResult{base: res, lastID: v, hasLastID: true}, nil
	case int32:
		return qmarkResult{base: res, lastID: int64(v), hasLastID: true}, nil
	case int:
		return qmarkResult{base: res, lastID: int64(v), hasLastID: true}, nil
	}
	return qmarkResult{base: res}, nil
}

func rewritePlaceholders(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	arg := 1
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				b.WriteString("''")
				i++
				continue
			}
			inString = !inString
			b.WriteByte(ch)
			continue
		}
		if ch == '?' && !inString {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			arg++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
