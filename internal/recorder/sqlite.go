package recorder

import (
	"database/sql"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"StrategyLab/internal/logger"
)

// SQLiteRecorder persists runs, closed trades and transactions to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL keeps readers unblocked while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id           TEXT PRIMARY KEY,
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL,
			strategy         TEXT NOT NULL,
			symbol           TEXT,
			interval         TEXT,
			starting_capital REAL,
			ending_capital   REAL,
			risk_percentage  REAL,
			total_trades     INTEGER,
			wins             INTEGER,
			losses           INTEGER,
			accuracy         REAL,
			total_pnl        REAL,
			fees             REAL,
			pnl_after_fee    REAL,
			max_drawdown     REAL,
			error            TEXT,
			stats_json       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS closed_trades (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES runs(run_id),
			trade_no          INTEGER,
			side              TEXT,
			entry_time        INTEGER,
			exit_time         INTEGER,
			entry_price       REAL,
			exit_price        REAL,
			quantity          REAL,
			risk              REAL,
			partial           INTEGER,
			duration          INTEGER,
			fee               REAL,
			pnl               REAL,
			pnl_after_fee     REAL,
			reward            REAL,
			capital           REAL,
			drawdown          REAL,
			drawdown_duration INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON closed_trades(run_id)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(run_id),
			seq           INTEGER,
			timestamp     INTEGER,
			type          TEXT,
			side          TEXT,
			price         REAL,
			quantity      REAL,
			risk          REAL,
			capital_after REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_run ON transactions(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordRun writes the run and its rows in one transaction.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	if err := validRun(run); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := run.Report
	st := rep.Stats
	statsJSON, err := sonic.MarshalString(st)
	if err != nil {
		return errors.Wrap(err, "marshal stats")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(run_id, started_at, finished_at, strategy, symbol, interval,
		 starting_capital, ending_capital, risk_percentage,
		 total_trades, wins, losses, accuracy, total_pnl, fees, pnl_after_fee, max_drawdown,
		 error, stats_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, run.Started.Unix(), run.Finished.Unix(), rep.Metadata.Strategy, rep.Metadata.Symbol, rep.Metadata.Interval,
		rep.Metadata.StartingCapital, st.EndingCapital, rep.Metadata.RiskPercentage,
		st.TotalTrades, st.Wins, st.Losses, st.Accuracy, st.TotalPnL, st.Fees, st.PnLAfterFee, st.MaxDrawdown,
		run.Err, statsJSON,
	); err != nil {
		return errors.Wrap(err, "insert run")
	}

	for _, t := range rep.ClosedTrades {
		if _, err := tx.Exec(`INSERT INTO closed_trades
			(run_id, trade_no, side, entry_time, exit_time, entry_price, exit_price, quantity, risk,
			 partial, duration, fee, pnl, pnl_after_fee, reward, capital, drawdown, drawdown_duration)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, t.ID, string(t.Side), t.EntryTime.Unix(), t.ExitTime.Unix(), t.EntryPrice, t.ExitPrice,
			t.Quantity, t.Risk, t.Partial, t.Duration, t.Fee, t.PnL, t.PnLAfterFee, t.Reward,
			t.Capital, t.Drawdown, t.DrawdownDuration,
		); err != nil {
			return errors.Wrap(err, "insert closed trade")
		}
	}

	for _, x := range rep.Transactions {
		if _, err := tx.Exec(`INSERT INTO transactions
			(run_id, seq, timestamp, type, side, price, quantity, risk, capital_after)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, x.Seq, x.Time.Unix(), string(x.Type), string(x.Side), x.Price, x.Quantity, x.Risk, x.CapitalAfter,
		); err != nil {
			return errors.Wrap(err, "insert transaction")
		}
	}

	return errors.Wrap(tx.Commit(), "commit run")
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
