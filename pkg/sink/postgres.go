package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/series"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS price_points (
	asset    TEXT        NOT NULL,
	currency TEXT        NOT NULL,
	ts       TIMESTAMPTZ NOT NULL,
	price    NUMERIC     NOT NULL,
	PRIMARY KEY (asset, currency, ts)
)`

// PostgresSink loads series into the price_points table.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresSink connects to dsn and makes sure the table exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create price_points: %w", err)
	}

	return &PostgresSink{
		pool:   pool,
		logger: log.With().Str("component", "postgres-sink").Logger(),
	}, nil
}

// Write copies the series into a staging table and merges it into
// price_points. Points already present (such as the shared boundary of two
// adjacent windows) are kept once.
func (s *PostgresSink) Write(ctx context.Context, asset, currency string, ps series.PriceSeries) (string, error) {
	location := fmt.Sprintf("price_points(asset=%s, currency=%s)", asset, currency)

	inserted, err := s.load(ctx, asset, currency, ps)
	if err != nil {
		sinkErrors.WithLabelValues(string(KindPostgres)).Inc()
		return "", err
	}

	rowsWritten.WithLabelValues(string(KindPostgres)).Add(float64(inserted))

	s.logger.Info().
		Str("asset", asset).
		Str("currency", currency).
		Int("points", len(ps)).
		Int64("inserted", inserted).
		Int64("conflicts", int64(len(ps))-inserted).
		Msg("Price series written")

	return location, nil
}

func (s *PostgresSink) load(ctx context.Context, asset, currency string, ps series.PriceSeries) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE price_points_stage (
			asset    TEXT,
			currency TEXT,
			ts       TIMESTAMPTZ,
			price    TEXT
		) ON COMMIT DROP`); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"price_points_stage"},
		[]string{"asset", "currency", "ts", "price"},
		pgx.CopyFromSlice(len(ps), func(i int) ([]any, error) {
			p := ps[i]
			return []any{asset, currency, p.Time(), p.Price.String()}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy price points: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO price_points (asset, currency, ts, price)
		SELECT asset, currency, ts, price::numeric FROM price_points_stage
		ON CONFLICT (asset, currency, ts) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("merge price points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug().Int64("copied", copied).Int64("inserted", tag.RowsAffected()).Msg("Staging merged")

	return tag.RowsAffected(), nil
}

// Series reads back the stored points for asset and currency in time order.
func (s *PostgresSink) Series(ctx context.Context, asset, currency string) (series.PriceSeries, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, price::text FROM price_points
		WHERE asset = $1 AND currency = $2
		ORDER BY ts`, asset, currency)
	if err != nil {
		return nil, fmt.Errorf("query price points: %w", err)
	}
	defer rows.Close()

	out := series.PriceSeries{}
	for rows.Next() {
		var ts time.Time
		var price string
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out = append(out, series.PricePoint{Timestamp: ts.UnixMilli(), Price: d})
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
