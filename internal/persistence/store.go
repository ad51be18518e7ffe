// Package persistence stores run results and strategy definitions in an
// embedded DuckDB database, with parquet export for analysis tooling.
package persistence

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/tehqua/QuantFlow/internal/logger"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// ResultSummary is the listing row for a stored run.
type ResultSummary struct {
	ID          string
	StrategyID  string
	Symbol      string
	Timeframe   types.Timeframe
	Status      types.RunStatus
	FinalEquity float64
	TotalReturn float64
	TotalTrades int
	CreatedAt   time.Time
}

// Store persists results and strategies in DuckDB.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewStore opens (or creates) a store at path. An empty path opens an
// in-memory database, which tests use.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	dsn := ":memory:"
	if path != "" {
		dsn = path
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to open database", err)
	}

	store := &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			symbol TEXT,
			timeframe TEXT,
			status TEXT,
			error TEXT,
			starting_equity DOUBLE,
			final_equity DOUBLE,
			total_return DOUBLE,
			win_rate DOUBLE,
			profit_factor DOUBLE,
			max_drawdown DOUBLE,
			sharpe_ratio DOUBLE,
			sharpe_annualization TEXT,
			total_trades INTEGER,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create results table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			result_id TEXT,
			seq INTEGER,
			trade_id TEXT,
			symbol TEXT,
			side TEXT,
			price DOUBLE,
			quantity DOUBLE,
			timestamp TIMESTAMP,
			realized_pnl DOUBLE,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_curve (
			result_id TEXT,
			seq INTEGER,
			timestamp TIMESTAMP,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create equity_curve table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS strategies (
			id TEXT PRIMARY KEY,
			name TEXT,
			strategy TEXT,
			config TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create strategies table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			timeframe TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create bars table", err)
	}

	return nil
}

// SaveResult stores a finished run atomically: the summary row, every trade,
// and the full equity curve.
func (s *Store) SaveResult(result *types.BacktestResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to begin transaction", err)
	}

	// The driver cannot round-trip IEEE infinities; NULL stands in for the
	// +Inf profit factor.
	profitFactor := sql.NullFloat64{Float64: result.Metrics.ProfitFactor, Valid: true}
	if math.IsInf(result.Metrics.ProfitFactor, 0) {
		profitFactor.Valid = false
	}

	insertResult := s.sq.
		Insert("results").
		Columns(
			"id", "strategy_id", "symbol", "timeframe", "status", "error",
			"starting_equity", "final_equity",
			"total_return", "win_rate", "profit_factor", "max_drawdown",
			"sharpe_ratio", "sharpe_annualization", "total_trades", "created_at",
		).
		Values(
			result.ID, result.StrategyID, result.Symbol, string(result.Timeframe),
			string(result.Status), result.Error,
			result.StartingEquity, result.FinalEquity,
			result.Metrics.TotalReturn, result.Metrics.WinRate, profitFactor,
			result.Metrics.MaxDrawdown, result.Metrics.SharpeRatio,
			result.Metrics.SharpeAnnualization, result.Metrics.TotalTrades,
			result.CreatedAt.UTC(),
		).
		RunWith(tx)

	if _, err = insertResult.Exec(); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to insert result", err)
	}

	for i, trade := range result.Trades {
		insertTrade := s.sq.
			Insert("trades").
			Columns("result_id", "seq", "trade_id", "symbol", "side", "price", "quantity", "timestamp", "realized_pnl", "reason").
			Values(result.ID, i, trade.ID, trade.Symbol, string(trade.Side), trade.Price, trade.Quantity, trade.Timestamp.UTC(), trade.RealizedPnL, trade.Reason).
			RunWith(tx)

		if _, err = insertTrade.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to insert trade", err)
		}
	}

	for i, point := range result.EquityCurve {
		insertPoint := s.sq.
			Insert("equity_curve").
			Columns("result_id", "seq", "timestamp", "equity").
			Values(result.ID, i, point.Time.UTC(), point.Equity).
			RunWith(tx)

		if _, err = insertPoint.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to insert equity point", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to commit result", err)
	}

	s.log.Info("saved result",
		zap.String("result_id", result.ID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("equity_points", len(result.EquityCurve)))

	return nil
}

// LoadResult reconstructs a stored run, trades and equity curve included.
func (s *Store) LoadResult(id string) (*types.BacktestResult, error) {
	selectResult := s.sq.
		Select(
			"id", "strategy_id", "symbol", "timeframe", "status", "error",
			"starting_equity", "final_equity",
			"total_return", "win_rate", "profit_factor", "max_drawdown",
			"sharpe_ratio", "sharpe_annualization", "total_trades", "created_at",
		).
		From("results").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db)

	var (
		result       types.BacktestResult
		timeframe    string
		status       string
		profitFactor sql.NullFloat64
	)

	err := selectResult.QueryRow().Scan(
		&result.ID, &result.StrategyID, &result.Symbol, &timeframe, &status, &result.Error,
		&result.StartingEquity, &result.FinalEquity,
		&result.Metrics.TotalReturn, &result.Metrics.WinRate, &profitFactor,
		&result.Metrics.MaxDrawdown, &result.Metrics.SharpeRatio,
		&result.Metrics.SharpeAnnualization, &result.Metrics.TotalTrades, &result.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeResultNotFound, "result not found: %s", id)
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to load result", err)
	}

	result.Timeframe = types.Timeframe(timeframe)
	result.Status = types.RunStatus(status)

	result.Metrics.ProfitFactor = profitFactor.Float64
	if !profitFactor.Valid {
		result.Metrics.ProfitFactor = math.Inf(1)
	}

	if result.Trades, err = s.loadTrades(id); err != nil {
		return nil, err
	}

	if result.EquityCurve, err = s.loadEquityCurve(id); err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *Store) loadTrades(resultID string) ([]types.Trade, error) {
	selectTrades := s.sq.
		Select("trade_id", "symbol", "side", "price", "quantity", "timestamp", "realized_pnl", "reason").
		From("trades").
		Where(squirrel.Eq{"result_id": resultID}).
		OrderBy("seq ASC").
		RunWith(s.db)

	rows, err := selectTrades.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade types.Trade
			side  string
		)

		if err := rows.Scan(&trade.ID, &trade.Symbol, &side, &trade.Price, &trade.Quantity, &trade.Timestamp, &trade.RealizedPnL, &trade.Reason); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to scan trade", err)
		}

		trade.Side = types.Side(side)
		trade.Timestamp = trade.Timestamp.UTC()
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "error iterating trades", err)
	}

	return trades, nil
}

func (s *Store) loadEquityCurve(resultID string) ([]types.EquityPoint, error) {
	selectCurve := s.sq.
		Select("timestamp", "equity").
		From("equity_curve").
		Where(squirrel.Eq{"result_id": resultID}).
		OrderBy("seq ASC").
		RunWith(s.db)

	rows, err := selectCurve.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to query equity curve", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint

		if err := rows.Scan(&point.Time, &point.Equity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to scan equity point", err)
		}

		point.Time = point.Time.UTC()
		curve = append(curve, point)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "error iterating equity curve", err)
	}

	return curve, nil
}

// ListResults returns summaries of all stored runs, newest first.
func (s *Store) ListResults() ([]ResultSummary, error) {
	selectSummaries := s.sq.
		Select("id", "strategy_id", "symbol", "timeframe", "status", "final_equity", "total_return", "total_trades", "created_at").
		From("results").
		OrderBy("created_at DESC").
		RunWith(s.db)

	rows, err := selectSummaries.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to query results", err)
	}
	defer rows.Close()

	var summaries []ResultSummary

	for rows.Next() {
		var (
			summary   ResultSummary
			timeframe string
			status    string
		)

		if err := rows.Scan(&summary.ID, &summary.StrategyID, &summary.Symbol, &timeframe, &status, &summary.FinalEquity, &summary.TotalReturn, &summary.TotalTrades, &summary.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to scan result summary", err)
		}

		summary.Timeframe = types.Timeframe(timeframe)
		summary.Status = types.RunStatus(status)
		summary.CreatedAt = summary.CreatedAt.UTC()
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "error iterating results", err)
	}

	return summaries, nil
}

// DeleteResult removes a run and its trades and equity curve.
func (s *Store) DeleteResult(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to begin transaction", err)
	}

	for _, table := range []string{"trades", "equity_curve"} {
		del := s.sq.Delete(table).Where(squirrel.Eq{"result_id": id}).RunWith(tx)
		if _, err = del.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to delete result rows", err)
		}
	}

	del := s.sq.Delete("results").Where(squirrel.Eq{"id": id}).RunWith(tx)
	if _, err = del.Exec(); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to delete result", err)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to commit delete", err)
	}

	return nil
}

// ExportParquet copies the results, trades and equity curve tables to
// parquet files under dir. Squirrel has no COPY syntax, so raw SQL it is.
func (s *Store) ExportParquet(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to create export directory", err)
	}

	for _, table := range []string{"results", "trades", "equity_curve"} {
		path := filepath.Join(dir, table+".parquet")

		if _, err := s.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path)); err != nil {
			return errors.Wrapf(errors.ErrCodeStoreWriteError, err, "failed to export %s to parquet", table)
		}
	}

	s.log.Info("exported store to parquet", zap.String("dir", dir))

	return nil
}
