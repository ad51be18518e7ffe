package persistence

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// SaveBars stores downloaded bars for a symbol and timeframe. Existing rows
// for the same (symbol, timeframe, time) are replaced, so re-downloading an
// overlapping range is safe.
func (s *Store) SaveBars(symbol string, timeframe types.Timeframe, bars []types.Bar) error {
	if symbol == "" {
		return errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	if err := timeframe.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to begin transaction", err)
	}

	for _, bar := range bars {
		_, err := tx.Exec(
			`DELETE FROM bars WHERE symbol = ? AND timeframe = ? AND time = ?`,
			symbol, string(timeframe), bar.Time,
		)
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to replace bar", err)
		}

		query, args, err := s.sq.Insert("bars").
			Columns("symbol", "timeframe", "time", "open", "high", "low", "close", "volume").
			Values(symbol, string(timeframe), bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
			ToSql()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to build bar insert", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to insert bar", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to commit bars", err)
	}

	s.log.Info("saved bars",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(bars)))

	return nil
}

// LoadBars returns the stored bars for a symbol and timeframe inside
// [start, end), in chronological order.
func (s *Store) LoadBars(symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	query, args, err := s.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("bars").
		Where("symbol = ? AND timeframe = ? AND time >= ? AND time < ?",
			symbol, string(timeframe), start, end).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to build bars query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar := types.Bar{Symbol: symbol}
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to scan bar", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to read bars", err)
	}

	return bars, nil
}

// CountBars returns the number of stored bars for a symbol and timeframe.
func (s *Store) CountBars(symbol string, timeframe types.Timeframe) (int, error) {
	var count int

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bars WHERE symbol = ? AND timeframe = ?`,
		symbol, string(timeframe),
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.Wrap(errors.ErrCodeStoreReadError, "failed to count bars", err)
	}

	return count, nil
}
