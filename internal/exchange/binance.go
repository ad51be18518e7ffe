package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

const (
	// binanceQuantityPrecision is the fallback decimal precision for order
	// quantities. 8 decimals covers satoshi-level sizes; production systems
	// should read symbol-specific LOT_SIZE filters from exchange info.
	binanceQuantityPrecision = 8
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOpenOrdersService interface for canceling all open orders for a symbol.
type CancelOpenOrdersService interface {
	Symbol(symbol string) CancelOpenOrdersService
	Do(ctx context.Context) error
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient abstracts the Binance client so tests can swap it out.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOpenOrdersService() CancelOpenOrdersService
	NewGetAccountService() GetAccountService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewCancelOpenOrdersService() CancelOpenOrdersService {
	return &realCancelOpenOrdersService{service: r.client.NewCancelOpenOrdersService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOpenOrdersService struct {
	service *binance.CancelOpenOrdersService
}

func (s *realCancelOpenOrdersService) Symbol(symbol string) CancelOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOpenOrdersService) Do(ctx context.Context) error {
	_, err := s.service.Do(ctx)

	return err
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceExecutor places spot market orders on Binance. It is stateless
// beyond the configured symbol; nothing is cached between calls.
type BinanceExecutor struct {
	client BinanceClient
	symbol string
}

// NewBinanceExecutor creates an executor bound to a single symbol.
// If useTestnet is true, it talks to Binance Testnet.
func NewBinanceExecutor(credentials types.Credentials, symbol string, useTestnet bool) (*BinanceExecutor, error) {
	if !credentials.IsComplete() {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "binance executor requires an API key and secret")
	}

	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "binance executor requires a symbol")
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(credentials.APIKey, credentials.APISecret)

	return &BinanceExecutor{
		client: &realBinanceClient{client: client},
		symbol: symbol,
	}, nil
}

// newBinanceExecutorWithClient is used by tests to inject a mock client.
func newBinanceExecutorWithClient(client BinanceClient, symbol string) *BinanceExecutor {
	return &BinanceExecutor{
		client: client,
		symbol: symbol,
	}
}

// Place submits a spot market order and reports the volume-weighted fill.
func (b *BinanceExecutor) Place(ctx context.Context, order types.Order) (ExecutionReport, error) {
	if err := order.Validate(); err != nil {
		return ExecutionReport{}, err
	}

	var side binance.SideType

	switch order.Side {
	case types.SideBuy:
		side = binance.SideTypeBuy
	case types.SideSell:
		side = binance.SideTypeSell
	default:
		return ExecutionReport{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", order.Side)
	}

	quantity := strconv.FormatFloat(order.Quantity, 'f', binanceQuantityPrecision, 64)

	response, err := b.client.NewCreateOrderService().
		Symbol(b.symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		Do(ctx)
	if err != nil {
		return ExecutionReport{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	executedQty, _ := strconv.ParseFloat(response.ExecutedQuantity, 64)
	if executedQty == 0 {
		executedQty = order.Quantity
	}

	return ExecutionReport{
		OrderID:    strconv.FormatInt(response.OrderID, 10),
		Symbol:     response.Symbol,
		Side:       order.Side,
		Quantity:   executedQty,
		Price:      averageFillPrice(response.Fills),
		ExecutedAt: time.UnixMilli(response.TransactTime),
	}, nil
}

// CancelAll cancels every open order for the executor's symbol.
func (b *BinanceExecutor) CancelAll(ctx context.Context) error {
	err := b.client.NewCancelOpenOrdersService().
		Symbol(b.symbol).
		Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to cancel open orders on Binance", err)
	}

	return nil
}

// CheckConnection verifies connectivity and authentication by fetching the
// account. The live controller calls this once before starting a session.
func (b *BinanceExecutor) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExecutorFailed, "failed to connect to Binance API", err)
	}

	return nil
}

// averageFillPrice computes the volume-weighted price across fills.
// Returns 0 if the response carried no fills.
func averageFillPrice(fills []*binance.Fill) float64 {
	var totalQty, totalNotional float64

	for _, fill := range fills {
		price, _ := strconv.ParseFloat(fill.Price, 64)
		qty, _ := strconv.ParseFloat(fill.Quantity, 64)
		totalQty += qty
		totalNotional += price * qty
	}

	if totalQty == 0 {
		return 0
	}

	return totalNotional / totalQty
}

var _ OrderExecutor = (*BinanceExecutor)(nil)
