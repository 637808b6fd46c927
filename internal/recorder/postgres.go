package recorder

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"StrategyLab/internal/logger"
)

const pgTimeout = 30 * time.Second

// PostgresRecorder writes the same tables as SQLiteRecorder to Postgres.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	r := &PostgresRecorder{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	logger.Info("postgres recorder opened")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id           TEXT PRIMARY KEY,
			started_at       TIMESTAMPTZ NOT NULL,
			finished_at      TIMESTAMPTZ NOT NULL,
			strategy         TEXT NOT NULL,
			symbol           TEXT,
			interval         TEXT,
			starting_capital DOUBLE PRECISION,
			ending_capital   DOUBLE PRECISION,
			risk_percentage  DOUBLE PRECISION,
			total_trades     INTEGER,
			pnl_after_fee    DOUBLE PRECISION,
			max_drawdown     DOUBLE PRECISION,
			error            TEXT,
			stats            JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id            BIGSERIAL PRIMARY KEY,
			run_id        TEXT NOT NULL REFERENCES runs(run_id),
			trade_no      INTEGER,
			side          TEXT,
			entry_time    TIMESTAMPTZ,
			exit_time     TIMESTAMPTZ,
			entry_price   DOUBLE PRECISION,
			exit_price    DOUBLE PRECISION,
			quantity      DOUBLE PRECISION,
			fee           DOUBLE PRECISION,
			pnl           DOUBLE PRECISION,
			pnl_after_fee DOUBLE PRECISION,
			reward        DOUBLE PRECISION,
			drawdown      DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id            BIGSERIAL PRIMARY KEY,
			run_id        TEXT NOT NULL REFERENCES runs(run_id),
			seq           INTEGER,
			ts            TIMESTAMPTZ,
			type          TEXT,
			side          TEXT,
			price         DOUBLE PRECISION,
			quantity      DOUBLE PRECISION,
			risk          DOUBLE PRECISION,
			capital_after DOUBLE PRECISION
		)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordRun sends the run and its rows as one batch inside a transaction.
func (r *PostgresRecorder) RecordRun(run *Run) (err error) {
	if err := validRun(run); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	rep := run.Report
	stats, err := sonic.Marshal(rep.Stats)
	if err != nil {
		return errors.Wrap(err, "marshal stats")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO runs
		(run_id, started_at, finished_at, strategy, symbol, interval, starting_capital, ending_capital,
		 risk_percentage, total_trades, pnl_after_fee, max_drawdown, error, stats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rep.RunID, run.Started, run.Finished, rep.Metadata.Strategy, rep.Metadata.Symbol, rep.Metadata.Interval,
		rep.Metadata.StartingCapital, rep.Stats.EndingCapital, rep.Metadata.RiskPercentage,
		rep.Stats.TotalTrades, rep.Stats.PnLAfterFee, rep.Stats.MaxDrawdown, run.Err, stats)
	for _, t := range rep.ClosedTrades {
		batch.Queue(`INSERT INTO closed_trades
			(run_id, trade_no, side, entry_time, exit_time, entry_price, exit_price, quantity, fee, pnl, pnl_after_fee, reward, drawdown)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			rep.RunID, t.ID, string(t.Side), t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice, t.Quantity,
			t.Fee, t.PnL, t.PnLAfterFee, t.Reward, t.Drawdown)
	}
	for _, x := range rep.Transactions {
		batch.Queue(`INSERT INTO transactions
			(run_id, seq, ts, type, side, price, quantity, risk, capital_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rep.RunID, x.Seq, x.Time, string(x.Type), string(x.Side), x.Price, x.Quantity, x.Risk, x.CapitalAfter)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "insert run")
	}
	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit run")
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}
