package types

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tehqua/QuantFlow/pkg/errors"
)

// RunStatus is the lifecycle state of an engine run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal reports whether the run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// EquityPoint is one sample of the equity curve, taken once per processed bar.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Equity float64   `yaml:"equity" json:"equity"`
}

// Metrics summarizes a finished run. All fields are finite except
// ProfitFactor, which is +Inf when there are winning trades and no losers.
type Metrics struct {
	// TotalReturn is (finalEquity - startingEquity) / startingEquity, in percent.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// WinRate is the share of closing trades with positive realized PnL, in
	// percent. Zero when no trades closed.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross profit over gross loss. +Inf when there are wins
	// and no losses, zero when there are no trades.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// MaxDrawdown is the largest peak-to-trough equity decline, as a
	// negative percentage.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// SharpeRatio is computed from per-bar simple returns and annualized by
	// sqrt of the bars-per-year of the run's timeframe.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// SharpeAnnualization names the convention used, e.g. "sqrt(8760) 1h bars".
	SharpeAnnualization string `yaml:"sharpe_annualization" json:"sharpe_annualization"`
	TotalTrades         int    `yaml:"total_trades" json:"total_trades"`
}

// BacktestResult is the full output of one engine run.
type BacktestResult struct {
	ID             string        `yaml:"id" json:"id"`
	StrategyID     string        `yaml:"strategy_id" json:"strategy_id"`
	Symbol         string        `yaml:"symbol" json:"symbol"`
	Timeframe      Timeframe     `yaml:"timeframe" json:"timeframe"`
	StartingEquity float64       `yaml:"starting_equity" json:"starting_equity"`
	FinalEquity    float64       `yaml:"final_equity" json:"final_equity"`
	Status         RunStatus     `yaml:"status" json:"status"`
	Error          string        `yaml:"error,omitempty" json:"error,omitempty"`
	Trades         []Trade       `yaml:"trades" json:"trades"`
	EquityCurve    []EquityPoint `yaml:"equity_curve" json:"equity_curve"`
	Metrics        Metrics       `yaml:"metrics" json:"metrics"`
	CreatedAt      time.Time     `yaml:"created_at" json:"created_at"`
}

// Write writes the result to a YAML file at the given path.
func (r *BacktestResult) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to marshal result", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to write result file", err)
	}

	return nil
}

// ReadBacktestResult reads a result from a YAML file at the given path.
func ReadBacktestResult(path string) (*BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to read result file", err)
	}

	var result BacktestResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to unmarshal result", err)
	}

	return &result, nil
}
