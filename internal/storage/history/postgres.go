// internal/storage/history/postgres.go
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// ErrNotConfigured indicates the store pool was not initialised.
var ErrNotConfigured = errors.New("history: pool not configured")

const (
	migrateSQL = `CREATE TABLE IF NOT EXISTS pts_ranking (
        run_id           TEXT        NOT NULL,
        code             TEXT        NOT NULL,
        ts               TIMESTAMPTZ NOT NULL,
        rank             INTEGER     NOT NULL,
        name             TEXT        NOT NULL DEFAULT '',
        market           TEXT        NOT NULL DEFAULT '',
        industry         TEXT        NOT NULL DEFAULT '',
        prev_close       NUMERIC,
        price            NUMERIC,
        change_amount    NUMERIC,
        change_rate      NUMERIC,
        volume           BIGINT      NOT NULL,
        news             JSONB       NOT NULL DEFAULT '[]',
        company          JSONB       NOT NULL DEFAULT '{}',
        disclosures      JSONB       NOT NULL DEFAULT '[]',
        earnings_summary TEXT        NOT NULL DEFAULT '',
        analysis         JSONB       NOT NULL DEFAULT '{}',
        created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (code, ts)
    );
    CREATE INDEX IF NOT EXISTS pts_ranking_run_id_idx ON pts_ranking (run_id);
    CREATE INDEX IF NOT EXISTS pts_ranking_ts_idx ON pts_ranking (ts DESC);`

	upsertRecordSQL = `INSERT INTO pts_ranking (
        run_id, code, ts, rank, name, market, industry,
        prev_close, price, change_amount, change_rate, volume,
        news, company, disclosures, earnings_summary, analysis
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
    )
    ON CONFLICT (code, ts) DO UPDATE
    SET
        run_id           = EXCLUDED.run_id,
        rank             = EXCLUDED.rank,
        name             = EXCLUDED.name,
        market           = EXCLUDED.market,
        industry         = EXCLUDED.industry,
        prev_close       = EXCLUDED.prev_close,
        price            = EXCLUDED.price,
        change_amount    = EXCLUDED.change_amount,
        change_rate      = EXCLUDED.change_rate,
        volume           = EXCLUDED.volume,
        news             = EXCLUDED.news,
        company          = EXCLUDED.company,
        disclosures      = EXCLUDED.disclosures,
        earnings_summary = EXCLUDED.earnings_summary,
        analysis         = EXCLUDED.analysis;`

	selectColumns = `SELECT
        run_id, code, ts, rank, name, market, industry,
        prev_close::TEXT, price::TEXT, change_amount::TEXT, change_rate::TEXT, volume,
        news, company, disclosures, earnings_summary, analysis
    FROM pts_ranking`

	latestBatchSQL = selectColumns + `
    WHERE run_id = (SELECT run_id FROM pts_ranking ORDER BY ts DESC LIMIT 1)
    ORDER BY change_rate DESC NULLS LAST, rank;`

	countRunsSQL = `SELECT COUNT(DISTINCT run_id) FROM pts_ranking;`

	updateAnalysisSQL = `UPDATE pts_ranking
    SET news = $3, analysis = $4
    WHERE code = $1 AND ts = $2;`

	deleteBeforeSQL = `DELETE FROM pts_ranking WHERE ts < $1;`
)

// PostgresStore keeps report records in the pts_ranking table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPool configures a PostgreSQL connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.hot.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

// NewPostgresStore wires a pgx pool into a store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Open returns the configured store: PostgreSQL when a DSN is set (the
// table is created if missing), memory otherwise.
func Open(ctx context.Context, cfg config.HotStorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		logger.Debug("no dsn configured, using in-memory history")
		return NewMemoryStore(0), nil
	}

	pool, err := NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	store := NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Migrate creates the table and indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, migrateSQL); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("migrate: %w", err))
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts records in one transaction.
func (s *PostgresStore) Save(ctx context.Context, records ...core.ReportRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		args, err := recordArgs(rec)
		if err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		batch.Queue(upsertRecordSQL, args...)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("upsert records: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// LatestBatch returns the newest run's records.
func (s *PostgresStore) LatestBatch(ctx context.Context) ([]core.ReportRecord, error) {
	return s.query(ctx, "latest batch", latestBatchSQL)
}

// Range returns records in the query window.
func (s *PostgresStore) Range(ctx context.Context, q Query) ([]core.ReportRecord, error) {
	sql, args := rangeSQL(q)
	return s.query(ctx, "range", sql, args...)
}

func rangeSQL(q Query) (string, []any) {
	var where []string
	var args []any
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("ts < $%d", len(args)))
	}
	if q.Code != "" {
		args = append(args, q.Code)
		where = append(where, fmt.Sprintf("code = $%d", len(args)))
	}

	sql := selectColumns
	if len(where) > 0 {
		sql += "\n    WHERE " + strings.Join(where, " AND ")
	}
	return sql + "\n    ORDER BY ts, rank;", args
}

// Stats aggregates the newest run.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	pool, err := s.getPool()
	if err != nil {
		return Stats{}, err
	}
	batch, err := s.LatestBatch(ctx)
	if err != nil {
		return Stats{}, err
	}
	var total int64
	if err := pool.QueryRow(ctx, countRunsSQL).Scan(&total); err != nil {
		return Stats{}, core.WrapError(core.ErrStorageFailed, fmt.Errorf("count runs: %w", err))
	}
	return batchStats(batch, total), nil
}

// UpdateAnalysis replaces news and analysis of the record at (code, ts).
func (s *PostgresStore) UpdateAnalysis(ctx context.Context, code string, ts time.Time, news []core.NewsItem, analysis core.AnalysisResult) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	newsJSON, err := marshalJSON(news, "[]")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}

	tag, err := pool.Exec(ctx, updateAnalysisSQL, code, ts, newsJSON, analysisJSON)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("update analysis: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Prune deletes records older than before.
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, deleteBeforeSQL, before)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("prune: %w", err))
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) query(ctx context.Context, what, sql string, args ...any) ([]core.ReportRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("%s: %w", what, err))
	}
	defer rows.Close()

	records := make([]core.ReportRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return records, nil
}

func recordArgs(rec core.ReportRecord) ([]any, error) {
	news, err := marshalJSON(rec.Signal.News, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode news: %w", err)
	}
	company, err := json.Marshal(rec.Signal.Company)
	if err != nil {
		return nil, fmt.Errorf("encode company: %w", err)
	}
	disclosures, err := marshalJSON(rec.Signal.Disclosures, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode disclosures: %w", err)
	}
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	sig := rec.Signal
	return []any{
		rec.RunID,
		sig.Code,
		rec.Timestamp,
		rec.Rank,
		sig.Name,
		sig.Market,
		sig.Industry,
		numericArg(sig.PrevClose),
		numericArg(sig.Price),
		numericArg(sig.ChangeAmount),
		numericArg(sig.ChangeRate),
		sig.Volume,
		news,
		company,
		disclosures,
		sig.EarningsSummary,
		analysis,
	}, nil
}

func scanRecord(rows pgx.Rows) (core.ReportRecord, error) {
	var (
		rec                                  core.ReportRecord
		prevClose, price, changeAmt, rateStr *string
		news, company, disclosures, analysis []byte
	)
	sig := &rec.Signal

	if err := rows.Scan(
		&rec.RunID,
		&sig.Code,
		&rec.Timestamp,
		&rec.Rank,
		&sig.Name,
		&sig.Market,
		&sig.Industry,
		&prevClose,
		&price,
		&changeAmt,
		&rateStr,
		&sig.Volume,
		&news,
		&company,
		&disclosures,
		&sig.EarningsSummary,
		&analysis,
	); err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}

	var err error
	if sig.PrevClose, err = parseNumeric(prevClose); err != nil {
		return rec, fmt.Errorf("parse prev_close: %w", err)
	}
	if sig.Price, err = parseNumeric(price); err != nil {
		return rec, fmt.Errorf("parse price: %w", err)
	}
	if sig.ChangeAmount, err = parseNumeric(changeAmt); err != nil {
		return rec, fmt.Errorf("parse change_amount: %w", err)
	}
	if sig.ChangeRate, err = parseNumeric(rateStr); err != nil {
		return rec, fmt.Errorf("parse change_rate: %w", err)
	}

	if err := json.Unmarshal(news, &sig.News); err != nil {
		return rec, fmt.Errorf("decode news: %w", err)
	}
	if err := json.Unmarshal(company, &sig.Company); err != nil {
		return rec, fmt.Errorf("decode company: %w", err)
	}
	if err := json.Unmarshal(disclosures, &sig.Disclosures); err != nil {
		return rec, fmt.Errorf("decode disclosures: %w", err)
	}
	if err := json.Unmarshal(analysis, &rec.Analysis); err != nil {
		return rec, fmt.Errorf("decode analysis: %w", err)
	}
	return rec, nil
}

// numericArg passes an absent number as NULL and a present one as an exact
// decimal string so NUMERIC columns do not pick up float noise.
func numericArg(n core.Number) any {
	if !n.Valid {
		return nil
	}
	return decimal.NewFromFloat(n.Value).String()
}

func parseNumeric(s *string) (core.Number, error) {
	if s == nil {
		return core.Number{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return core.Number{}, err
	}
	return core.Some(d.InexactFloat64()), nil
}

func marshalJSON[T any](v []T, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	return json.Marshal(v)
}
