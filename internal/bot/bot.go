// Package bot sequences a single DCA purchase: fetch price, size the order,
// execute or simulate, record to the ledger, render the summary. Every
// external-call failure is terminal for the invocation; no retries.
package bot

import (
	"errors"
	"time"

	"zcash-dca-bot-go/internal/gateway"
	"zcash-dca-bot-go/internal/ledger"
	"zcash-dca-bot-go/internal/report"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidBudget rejects a non-positive budget before any network call.
var ErrInvalidBudget = errors.New("budget must be greater than zero")

// Status tags the outcome of a Buy invocation.
type Status string

const (
	// StatusExecuted: live trade placed and durably recorded.
	StatusExecuted Status = "executed"
	// StatusSimulated: dry run, persisted ledger untouched.
	StatusSimulated Status = "simulated"
	// StatusPartial: the trade executed but the ledger write failed; the
	// operator must reconcile manually.
	StatusPartial Status = "partial"
	// StatusFailed: nothing executed, ledger untouched.
	StatusFailed Status = "failed"
)

// BuyResult is the structured outcome of Buy. Err carries the cause for
// StatusFailed and StatusPartial.
type BuyResult struct {
	Status        Status
	DryRun        bool
	Record        *ledger.PurchaseRecord
	TotalQuantity decimal.Decimal
	Post          string
	Err           error
}

// Gateway is the pricing and execution surface the bot depends on.
type Gateway interface {
	CurrentPrice() (decimal.Decimal, error)
	ExecuteMarketBuy(quantity decimal.Decimal) (*gateway.ExecutionResult, error)
}

// Store is the ledger persistence surface the bot depends on.
type Store interface {
	Load() (*ledger.Ledger, error)
	AddPurchase(l *ledger.Ledger, rec ledger.PurchaseRecord) error
}

// Bot orchestrates purchases against a gateway and a ledger store.
type Bot struct {
	gateway Gateway
	store   Store
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a bot. The clock defaults to time.Now.
func New(gw Gateway, store Store, logger *zap.Logger) *Bot {
	return &Bot{gateway: gw, store: store, logger: logger, now: time.Now}
}

// Buy runs one purchase for the given quote-currency budget. When dryRun is
// set the purchase is simulated and the persisted ledger is left untouched.
// When post is set the result carries the rendered summary text.
func (b *Bot) Buy(budget decimal.Decimal, dryRun, post bool) BuyResult {
	budget = budget.RoundDown(2)
	if !budget.IsPositive() {
		return BuyResult{Status: StatusFailed, DryRun: dryRun, Err: ErrInvalidBudget}
	}

	led, err := b.store.Load()
	if err != nil {
		// Corrupt ledgers are a warning, not a failure; the run continues on
		// the empty ledger Load returned and the corrupt file stays on disk
		// until the next successful save.
		b.logger.Warn("Could not load ledger, starting with fresh tracking data", zap.Error(err))
	}

	price, err := b.gateway.CurrentPrice()
	if err != nil {
		return BuyResult{Status: StatusFailed, DryRun: dryRun, Err: err}
	}
	b.logger.Info("Fetched current price", zap.String("price", price.String()))

	quantity := gateway.QuantityForBudget(budget, price)
	b.logger.Info("Sized purchase",
		zap.String("budget", budget.String()),
		zap.String("quantity", quantity.String()),
	)

	if dryRun {
		return b.simulate(led, budget, price, quantity, post)
	}
	return b.execute(led, price, quantity, post)
}

func (b *Bot) simulate(led *ledger.Ledger, budget, price, quantity decimal.Decimal, post bool) BuyResult {
	rec := ledger.PurchaseRecord{
		Date:       b.now().Format(time.RFC3339),
		Quantity:   quantity,
		QuoteSpent: budget,
		UnitPrice:  price,
		Simulated:  true,
	}

	simulatedTotal := led.TotalQuantity.Add(quantity)
	b.logger.Info("Dry run, no purchase executed",
		zap.String("quantity", quantity.String()),
		zap.String("simulated_total", simulatedTotal.String()),
	)

	res := BuyResult{
		Status:        StatusSimulated,
		DryRun:        true,
		Record:        &rec,
		TotalQuantity: simulatedTotal,
	}
	if post {
		res.Post = report.Render(rec, simulatedTotal)
	}
	return res
}

func (b *Bot) execute(led *ledger.Ledger, price, quantity decimal.Decimal, post bool) BuyResult {
	exec, err := b.gateway.ExecuteMarketBuy(quantity)
	if err != nil {
		return BuyResult{Status: StatusFailed, Err: err}
	}

	// The exchange's fill data is authoritative; the effective unit price is
	// derived from it rather than the pre-trade quote, unless nothing filled.
	unitPrice := price
	if exec.FilledQuantity.IsPositive() {
		unitPrice = exec.Cost.Div(exec.FilledQuantity).RoundDown(2)
	}

	orderID := exec.OrderID
	rec := ledger.PurchaseRecord{
		Date:       b.now().Format(time.RFC3339),
		Quantity:   exec.FilledQuantity,
		QuoteSpent: exec.Cost,
		UnitPrice:  unitPrice,
		OrderID:    &orderID,
	}

	res := BuyResult{Status: StatusExecuted, Record: &rec}

	if !exec.FilledQuantity.IsPositive() {
		b.logger.Warn("Order reported zero filled volume, nothing recorded",
			zap.String("order_id", exec.OrderID))
		res.TotalQuantity = led.TotalQuantity
	} else if err := b.store.AddPurchase(led, rec); err != nil {
		// Trade happened, ledger did not persist: a distinct partial-success
		// condition the operator must reconcile by hand.
		b.logger.Error("Trade executed but ledger update failed, manual reconciliation required",
			zap.Error(err),
			zap.String("order_id", exec.OrderID),
		)
		res.Status = StatusPartial
		res.Err = err
		res.TotalQuantity = led.TotalQuantity
	} else {
		b.logger.Info("Purchase recorded",
			zap.String("quantity", rec.Quantity.String()),
			zap.String("cost", rec.QuoteSpent.String()),
			zap.String("unit_price", rec.UnitPrice.String()),
			zap.String("order_id", exec.OrderID),
			zap.String("total_quantity", led.TotalQuantity.String()),
		)
		res.TotalQuantity = led.TotalQuantity
	}

	if post {
		res.Post = report.Render(rec, res.TotalQuantity)
	}
	return res
}

// Stats loads the ledger and returns the aggregate figures plus the most
// recent purchases, newest first.
func (b *Bot) Stats() (ledger.LedgerStats, []ledger.PurchaseRecord) {
	led, err := b.store.Load()
	if err != nil {
		b.logger.Warn("Could not load ledger for stats", zap.Error(err))
	}
	return led.Stats(), led.Recent(5)
}
