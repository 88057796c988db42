package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Querier is the part of *pgxpool.Pool the Postgres transport needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCaller calls procedures directly over a database connection,
// aggregating whatever the function returns into one JSON array.
type PostgresCaller struct {
	db      Querier
	schema  string
	timeout time.Duration
	logger  *zap.Logger
}

var _ Caller = (*PostgresCaller)(nil)

// NewPostgresCaller returns a Caller that runs functions from schema
// ("public" when empty).
func NewPostgresCaller(db Querier, schema string, logger *zap.Logger) *PostgresCaller {
	if schema == "" {
		schema = "public"
	}
	return &PostgresCaller{db: db, schema: schema, logger: logger.Named("rpc.postgres")}
}

// WithTimeout bounds every call to d. Zero leaves the caller's context as is.
func (c *PostgresCaller) WithTimeout(d time.Duration) *PostgresCaller {
	c.timeout = d
	return c
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC arguments and results.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// Call implements Caller.
func (c *PostgresCaller) Call(ctx context.Context, fn string, args Args) (json.RawMessage, error) {
	sql, params := buildCall(c.schema, fn, args)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var raw []byte
	if err := c.db.QueryRow(ctx, sql, params...).Scan(&raw); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			c.logger.Debug("Procedure failed",
				zap.String("fn", fn),
				zap.String("code", pgErr.Code),
				zap.String("message", pgErr.Message),
			)
			return nil, &Error{
				Code:    pgErr.Code,
				Message: pgErr.Message,
				Details: pgErr.Detail,
				Hint:    pgErr.Hint,
			}
		}
		return nil, errors.Wrapf(err, "call %s", fn)
	}
	return json.RawMessage(raw), nil
}

// buildCall renders a call using named argument notation so the order of
// keys in args does not matter. Keys are sorted for stable statements.
func buildCall(schema, fn string, args Args) (string, []any) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s => $%d", pgx.Identifier{k}.Sanitize(), i+1)
		params[i] = args[k]
	}

	sql := fmt.Sprintf(
		"SELECT coalesce(jsonb_agg(to_jsonb(r)), '[]'::jsonb) FROM %s(%s) AS r",
		pgx.Identifier{schema, fn}.Sanitize(),
		strings.Join(parts, ", "),
	)
	return sql, params
}
