// Package report renders a purchase and the running accumulation total into
// the text shared on social channels. Rendering is a pure projection; posting
// is the caller's business.
package report

import (
	"fmt"
	"strings"
	"time"

	"zcash-dca-bot-go/internal/ledger"

	"github.com/shopspring/decimal"
)

const dryRunPrefix = "🔍 DRY RUN - "

// Render formats a purchase and the running total as a post. Quantities are
// shown with 8 fractional digits, monetary values with 2. Deterministic for
// identical inputs.
func Render(rec ledger.PurchaseRecord, runningTotal decimal.Decimal) string {
	dateStr := rec.Date
	if ts, err := time.Parse(time.RFC3339, rec.Date); err == nil {
		dateStr = ts.Format("January 02, 2006")
	}

	var b strings.Builder
	if rec.Simulated {
		b.WriteString(dryRunPrefix)
	}
	fmt.Fprintf(&b, "🪙 Daily #ZCash DCA Update - %s\n\n", dateStr)
	b.WriteString("📊 Today's Purchase:\n")
	fmt.Fprintf(&b, "• Bought: %s ZEC\n", rec.Quantity.StringFixed(8))
	fmt.Fprintf(&b, "• Spent: €%s\n", rec.QuoteSpent.StringFixed(2))
	fmt.Fprintf(&b, "• Price: €%s per ZEC\n\n", rec.UnitPrice.StringFixed(2))
	fmt.Fprintf(&b, "💎 Total Accumulated: %s ZEC\n\n", runningTotal.StringFixed(8))
	b.WriteString("#Zcash #Crypto #DCA #DollarCostAveraging")

	return b.String()
}
