// Package metrics turns a finalized trade list and equity curve into
// summary statistics. Compute is a pure function so results never depend on
// engine internals or call ordering.
package metrics

import (
	"fmt"
	"math"

	"github.com/tehqua/QuantFlow/internal/types"
)

// Compute summarizes a finished run. Every field is finite or a documented
// sentinel: WinRate is 0 with no trades, ProfitFactor is +Inf with wins and
// no losses and 0 with no trades. NaN never escapes.
func Compute(trades []types.Trade, equityCurve []types.EquityPoint, startingEquity float64, timeframe types.Timeframe) types.Metrics {
	return types.Metrics{
		TotalReturn:         totalReturn(equityCurve, startingEquity),
		WinRate:             winRate(trades),
		ProfitFactor:        profitFactor(trades),
		MaxDrawdown:         maxDrawdown(equityCurve, startingEquity),
		SharpeRatio:         sharpeRatio(equityCurve, startingEquity, timeframe),
		SharpeAnnualization: sharpeAnnualization(timeframe),
		TotalTrades:         len(trades),
	}
}

func totalReturn(curve []types.EquityPoint, startingEquity float64) float64 {
	if len(curve) == 0 || startingEquity <= 0 {
		return 0
	}

	final := curve[len(curve)-1].Equity

	return (final - startingEquity) / startingEquity * 100
}

func winRate(trades []types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	wins := 0

	for _, trade := range trades {
		if trade.RealizedPnL > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(trades)) * 100
}

func profitFactor(trades []types.Trade) float64 {
	var wins, losses float64

	for _, trade := range trades {
		if trade.RealizedPnL > 0 {
			wins += trade.RealizedPnL
		} else {
			losses += trade.RealizedPnL
		}
	}

	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return wins / math.Abs(losses)
}

func maxDrawdown(curve []types.EquityPoint, startingEquity float64) float64 {
	peak := startingEquity
	worst := 0.0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			drawdown := (point.Equity - peak) / peak * 100
			if drawdown < worst {
				worst = drawdown
			}
		}
	}

	return worst
}

// sharpeRatio annualizes the mean over standard deviation of per-sample
// simple returns by the square root of the timeframe's bars per year.
// Risk-free rate is taken as zero. Fewer than two samples or zero variance
// yield 0 rather than NaN.
func sharpeRatio(curve []types.EquityPoint, startingEquity float64, timeframe types.Timeframe) float64 {
	returns := sampleReturns(curve, startingEquity)
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}

	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	if variance <= 0 {
		return 0
	}

	periods := timeframe.PeriodsPerYear()
	if periods <= 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(periods)
}

func sampleReturns(curve []types.EquityPoint, startingEquity float64) []float64 {
	if len(curve) == 0 {
		return nil
	}

	returns := make([]float64, 0, len(curve))
	prev := startingEquity

	for _, point := range curve {
		if prev > 0 {
			returns = append(returns, (point.Equity-prev)/prev)
		}

		prev = point.Equity
	}

	return returns
}

func sharpeAnnualization(timeframe types.Timeframe) string {
	return fmt.Sprintf("sqrt(%.0f) per-bar returns, %s bars, 365-day year", timeframe.PeriodsPerYear(), timeframe)
}
