package gateway

import (
	"fmt"

	"zcash-dca-bot-go/internal/kraken"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Quote currency amounts carry 2 fractional digits, asset quantities 8
	// (the asset's conventional minimum unit). Rounding is always downward.
	pricePrecision    = 2
	quantityPrecision = 8
)

// PriceFetchError wraps a failed or unusable price lookup.
type PriceFetchError struct {
	Err error
}

func (e *PriceFetchError) Error() string { return "failed to fetch price: " + e.Err.Error() }
func (e *PriceFetchError) Unwrap() error { return e.Err }

// ExecutionError wraps a transport failure or exchange-side rejection of an
// order.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return "failed to execute order: " + e.Err.Error() }
func (e *ExecutionError) Unwrap() error { return e.Err }

// ExecutionResult is the authoritative outcome of a market buy. Filled
// quantity and cost come from the exchange and may differ from the requested
// quantity.
type ExecutionResult struct {
	FilledQuantity decimal.Decimal
	Cost           decimal.Decimal
	OrderID        string
}

// Gateway is the decimal-typed boundary over the exchange client. It is
// stateless per call; untyped exchange responses never cross it.
type Gateway struct {
	client kraken.ClientInterface
	pair   string
	logger *zap.Logger
}

// New creates a gateway trading the given pair through client.
func New(client kraken.ClientInterface, pair string, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, pair: pair, logger: logger}
}

// CurrentPrice returns the latest traded price for the configured pair,
// rounded down to 2 fractional digits of the quote currency.
func (g *Gateway) CurrentPrice() (decimal.Decimal, error) {
	raw, err := g.client.LastPrice(g.pair)
	if err != nil {
		return decimal.Zero, &PriceFetchError{Err: err}
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &PriceFetchError{Err: fmt.Errorf("exchange returned invalid price %q: %w", raw, err)}
	}
	if !price.IsPositive() {
		return decimal.Zero, &PriceFetchError{Err: fmt.Errorf("exchange returned non-positive price %s", price)}
	}

	return price.RoundDown(pricePrecision), nil
}

// QuantityForBudget returns how much of the asset the budget buys at the
// given price, truncated to 8 fractional digits so the purchase never
// requests more than the budget authorizes. price must be positive.
func QuantityForBudget(budget, price decimal.Decimal) decimal.Decimal {
	return budget.Div(price).RoundDown(quantityPrecision)
}

// ExecuteMarketBuy submits an immediate market buy for the given quantity and
// converts the exchange's fill report into an ExecutionResult.
func (g *Gateway) ExecuteMarketBuy(quantity decimal.Decimal) (*ExecutionResult, error) {
	clientOrderID := ulid.Make().String()

	g.logger.Info("Submitting market buy",
		zap.String("pair", g.pair),
		zap.String("volume", quantity.String()),
		zap.String("cl_ord_id", clientOrderID),
	)

	res, err := g.client.AddMarketBuy(g.pair, quantity.String(), clientOrderID)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	filled, err := decimal.NewFromString(res.VolumeExecuted)
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("exchange returned invalid executed volume %q: %w", res.VolumeExecuted, err)}
	}
	cost, err := decimal.NewFromString(res.Cost)
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("exchange returned invalid cost %q: %w", res.Cost, err)}
	}

	return &ExecutionResult{
		FilledQuantity: filled,
		Cost:           cost,
		OrderID:        res.TxID,
	}, nil
}
