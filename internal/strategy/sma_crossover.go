package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// SMACrossoverName is the registry name of the built-in crossover strategy.
const SMACrossoverName = "sma_crossover"

type smaCrossoverConfig struct {
	FastPeriod int     `yaml:"fast_period" validate:"required,gt=0"`
	SlowPeriod int     `yaml:"slow_period" validate:"required,gt=0"`
	Quantity   float64 `yaml:"quantity" validate:"required,gt=0"`
	// StopLossPct and TakeProfitPct place protective levels this fraction
	// away from the entry price. Zero disables the level.
	StopLossPct   float64 `yaml:"stop_loss_pct" validate:"gte=0"`
	TakeProfitPct float64 `yaml:"take_profit_pct" validate:"gte=0"`
}

// SMACrossover is a long-only moving average crossover: it buys when the
// fast SMA crosses above the slow SMA and closes the position on the
// opposite cross.
type SMACrossover struct {
	config smaCrossoverConfig
}

var _ Strategy = (*SMACrossover)(nil)

// NewSMACrossover builds the strategy from YAML config.
func NewSMACrossover(config string) (Strategy, error) {
	cfg := smaCrossoverConfig{
		FastPeriod: 10,
		SlowPeriod: 20,
		Quantity:   1,
	}

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse sma_crossover config", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid sma_crossover config", err)
	}

	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}

	return &SMACrossover{config: cfg}, nil
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

func (s *SMACrossover) APIVersion() string {
	return "1.0.0"
}

func (s *SMACrossover) Init(ctx *Context) error {
	ctx.Logger().Info("sma_crossover initialized",
		zap.Int("fast_period", s.config.FastPeriod),
		zap.Int("slow_period", s.config.SlowPeriod),
		zap.Float64("quantity", s.config.Quantity))

	return nil
}

func (s *SMACrossover) OnBar(ctx *Context) ([]types.OrderIntent, error) {
	// One extra close so the previous bar's averages are available too.
	closes, err := ctx.History().Closes(s.config.SlowPeriod + 1)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return nil, nil // still warming up
		}

		return nil, err
	}

	fastNow := mean(closes[len(closes)-s.config.FastPeriod:])
	slowNow := mean(closes[len(closes)-s.config.SlowPeriod:])
	fastPrev := mean(closes[len(closes)-s.config.FastPeriod-1 : len(closes)-1])
	slowPrev := mean(closes[len(closes)-s.config.SlowPeriod-1 : len(closes)-1])

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow

	position := ctx.Position()

	if crossedUp && position.IsNone() {
		price := ctx.History().Close(-1)
		intent := types.OrderIntent{
			Side:     types.SideBuy,
			Quantity: s.config.Quantity,
		}

		if s.config.StopLossPct > 0 {
			intent.StopLoss = optional.Some(price * (1 - s.config.StopLossPct))
		}

		if s.config.TakeProfitPct > 0 {
			intent.TakeProfit = optional.Some(price * (1 + s.config.TakeProfitPct))
		}

		return []types.OrderIntent{intent}, nil
	}

	if crossedDown && position.IsSome() && position.Unwrap().Side == types.SideBuy {
		return []types.OrderIntent{{
			Side:     types.SideSell,
			Quantity: position.Unwrap().Quantity,
		}}, nil
	}

	return nil, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
