package reader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// ParquetReader reads daily bars exported by the DuckDB writer.
type ParquetReader struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewParquetReader opens an in-memory DuckDB connection used to query parquet files.
func NewParquetReader(log *logger.Logger) (*ParquetReader, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open DuckDB connection", err)
	}

	return &ParquetReader{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Read returns the bars of the parquet file at path ordered by date, optionally limited
// to the closed interval [start, end].
func (r *ParquetReader) Read(ctx context.Context, path string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.PriceBar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFileNotFound, err, "parquet file not found: %s", path)
	}

	// read_parquet takes a literal path, so the path can't be bound as a parameter
	source := fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))

	query := r.sq.Select("date", "open", "high", "low", "close", "volume").From(source)

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"date": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"date": end.Unwrap()})
	}

	sqlQuery, args, err := query.OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	r.logger.Debug("Reading parquet bars", zap.String("path", path), zap.String("query", sqlQuery))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query parquet file", err)
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar

		if err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar.Date = types.TruncateToDay(bar.Date)
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	return bars, nil
}

// Close closes the DuckDB connection.
func (r *ParquetReader) Close() error {
	return r.db.Close()
}
