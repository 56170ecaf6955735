package ledger

import (
	"github.com/shopspring/decimal"
)

// PurchaseRecord represents a single ZEC purchase, real or simulated.
// Records are immutable once constructed; simulated records are never persisted.
type PurchaseRecord struct {
	Date       string          `json:"date"`
	Quantity   decimal.Decimal `json:"quantity"`
	QuoteSpent decimal.Decimal `json:"quote_spent"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	OrderID    *string         `json:"order_id"`
	Simulated  bool            `json:"simulated"`
}

// Ledger holds the accumulated purchase history and running totals.
// Both totals always equal the sum over Purchases of the corresponding field.
type Ledger struct {
	TotalQuantity   decimal.Decimal  `json:"total_quantity"`
	TotalQuoteSpent decimal.Decimal  `json:"total_quote_spent"`
	Purchases       []PurchaseRecord `json:"purchases"`
}

// NewLedger returns an empty ledger with zero totals.
func NewLedger() *Ledger {
	return &Ledger{
		TotalQuantity:   decimal.Zero,
		TotalQuoteSpent: decimal.Zero,
		Purchases:       []PurchaseRecord{},
	}
}

// AveragePrice returns the average price paid per unit, rounded down to 2
// fractional digits of the quote currency. ok is false when nothing has been
// bought yet.
func (l *Ledger) AveragePrice() (avg decimal.Decimal, ok bool) {
	if !l.TotalQuantity.IsPositive() {
		return decimal.Zero, false
	}
	return l.TotalQuoteSpent.Div(l.TotalQuantity).RoundDown(2), true
}

// LedgerStats are the aggregate figures shown by the stats command.
type LedgerStats struct {
	TotalQuantity   decimal.Decimal
	TotalQuoteSpent decimal.Decimal
	AveragePrice    decimal.Decimal
	HasAverage      bool
	NumPurchases    int
	FirstPurchase   string
	LastPurchase    string
}

// Stats summarizes the ledger for display.
func (l *Ledger) Stats() LedgerStats {
	stats := LedgerStats{
		TotalQuantity:   l.TotalQuantity,
		TotalQuoteSpent: l.TotalQuoteSpent,
		NumPurchases:    len(l.Purchases),
	}
	stats.AveragePrice, stats.HasAverage = l.AveragePrice()
	if len(l.Purchases) > 0 {
		stats.FirstPurchase = l.Purchases[0].Date
		stats.LastPurchase = l.Purchases[len(l.Purchases)-1].Date
	}
	return stats
}

// Recent returns up to n of the most recent purchases, newest first.
func (l *Ledger) Recent(n int) []PurchaseRecord {
	if n > len(l.Purchases) {
		n = len(l.Purchases)
	}
	recent := make([]PurchaseRecord, 0, n)
	for i := len(l.Purchases) - 1; i >= len(l.Purchases)-n; i-- {
		recent = append(recent, l.Purchases[i])
	}
	return recent
}
