package exchange

import (
	"context"
	"sync"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// PaperExecutor simulates a venue in memory. Orders fill immediately at the
// current mark price, which the session controller updates on every bar.
type PaperExecutor struct {
	mu        sync.Mutex
	markPrice float64
	placed    []ExecutionReport
}

// NewPaperExecutor creates an executor with no mark price set. Place fails
// until SetMarkPrice has been called at least once.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{}
}

// SetMarkPrice updates the price at which subsequent orders fill.
func (p *PaperExecutor) SetMarkPrice(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.markPrice = price
}

// Place fills the order at the current mark price.
func (p *PaperExecutor) Place(_ context.Context, order types.Order) (ExecutionReport, error) {
	if err := order.Validate(); err != nil {
		return ExecutionReport{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.markPrice <= 0 {
		return ExecutionReport{}, errors.New(errors.ErrCodeExecutorFailed, "paper executor has no mark price yet")
	}

	report := ExecutionReport{
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Price:      p.markPrice,
		ExecutedAt: order.RequestedAt,
	}
	p.placed = append(p.placed, report)

	return report, nil
}

// CancelAll is a no-op: paper orders fill instantly, nothing rests.
func (p *PaperExecutor) CancelAll(_ context.Context) error {
	return nil
}

// Executions returns a copy of every report produced so far.
func (p *PaperExecutor) Executions() []ExecutionReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ExecutionReport, len(p.placed))
	copy(out, p.placed)

	return out
}

var _ OrderExecutor = (*PaperExecutor)(nil)
