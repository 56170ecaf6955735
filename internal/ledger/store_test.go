package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "accumulation.json"), zap.NewNop())
}

func TestLoad(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		s := newTestStore(t)

		l, err := s.Load()

		require.NoError(t, err)
		assert.Empty(t, l.Purchases)
		assert.True(t, l.TotalQuantity.IsZero())
		assert.True(t, l.TotalQuoteSpent.IsZero())
	})

	t.Run("CorruptJSON", func(t *testing.T) {
		s := newTestStore(t)
		garbage := []byte(`{"total_quantity": "1.5", "purch`)
		require.NoError(t, os.WriteFile(s.path, garbage, 0o644))

		l, err := s.Load()

		// A corrupt file is a warning, not a failure: the caller gets an
		// empty ledger and the file is left alone.
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.NotNil(t, l)
		assert.Empty(t, l.Purchases)

		onDisk, readErr := os.ReadFile(s.path)
		require.NoError(t, readErr)
		assert.Equal(t, garbage, onDisk)
	})

	t.Run("NonNumericDecimal", func(t *testing.T) {
		s := newTestStore(t)
		content := []byte(`{
  "total_quantity": "not-a-number",
  "total_quote_spent": "0",
  "purchases": []
}`)
		require.NoError(t, os.WriteFile(s.path, content, 0o644))

		l, err := s.Load()

		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Empty(t, l.Purchases)
	})

	t.Run("TotalsDisagreeWithRecords", func(t *testing.T) {
		s := newTestStore(t)
		content := []byte(`{
  "total_quantity": "99",
  "total_quote_spent": "49.99",
  "purchases": [
    {"date": "2025-01-01T09:00:00Z", "quantity": "1.5", "quote_spent": "49.99", "unit_price": "33.32", "order_id": null, "simulated": false}
  ]
}`)
		require.NoError(t, os.WriteFile(s.path, content, 0o644))

		l, err := s.Load()

		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Empty(t, l.Purchases)
	})
}

func TestAddPurchase(t *testing.T) {
	t.Run("TotalsEqualRecordSums", func(t *testing.T) {
		s := newTestStore(t)
		l := NewLedger()

		records := []PurchaseRecord{
			record("2025-01-01T09:00:00Z", "1.5", "49.99", "33.32"),
			record("2025-01-02T09:00:00Z", "0.00000001", "0.01", "1000000"),
			record("2025-01-03T09:00:00Z", "2.33333333", "70.00", "30.00"),
		}

		sumQty := decimal.Zero
		sumSpent := decimal.Zero
		for _, rec := range records {
			require.NoError(t, s.AddPurchase(l, rec))
			sumQty = sumQty.Add(rec.Quantity)
			sumSpent = sumSpent.Add(rec.QuoteSpent)

			assert.True(t, l.TotalQuantity.Equal(sumQty), "quantity total %s != sum %s", l.TotalQuantity, sumQty)
			assert.True(t, l.TotalQuoteSpent.Equal(sumSpent), "spent total %s != sum %s", l.TotalQuoteSpent, sumSpent)
		}
		assert.Len(t, l.Purchases, len(records))
	})

	t.Run("RejectsNonPositive", func(t *testing.T) {
		s := newTestStore(t)
		l := NewLedger()

		err := s.AddPurchase(l, record("2025-01-01T09:00:00Z", "0", "10", "33.32"))
		assert.ErrorIs(t, err, ErrInvalidRecord)

		err = s.AddPurchase(l, record("2025-01-01T09:00:00Z", "1", "-10", "33.32"))
		assert.ErrorIs(t, err, ErrInvalidRecord)

		assert.Empty(t, l.Purchases)
		assert.True(t, l.TotalQuantity.IsZero())
	})

	t.Run("PersistenceFailureKeepsInMemoryAppend", func(t *testing.T) {
		// A path inside a directory that does not exist makes every write fail.
		s := NewStore(filepath.Join(t.TempDir(), "missing", "accumulation.json"), zap.NewNop())
		l := NewLedger()
		rec := record("2025-01-01T09:00:00Z", "1.5", "49.99", "33.32")

		err := s.AddPurchase(l, rec)

		var perr *PersistenceError
		require.ErrorAs(t, err, &perr)

		// The caller can still retry Save: the record is in the ledger.
		require.Len(t, l.Purchases, 1)
		assert.True(t, l.TotalQuantity.Equal(d("1.5")))
		assert.True(t, l.TotalQuoteSpent.Equal(d("49.99")))
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	l := NewLedger()

	orderID := "OQCLML-BW3P3-BUCMWZ"
	rec1 := record("2025-01-01T09:00:00+01:00", "1.50000000", "49.99", "33.32")
	rec1.OrderID = &orderID
	rec2 := record("2025-01-02T09:00:00+01:00", "0.00000001", "0.01", "1000000.00")

	require.NoError(t, s.AddPurchase(l, rec1))
	require.NoError(t, s.AddPurchase(l, rec2))

	loaded, err := s.Load()
	require.NoError(t, err)

	// Field-for-field, with no precision loss: the decimal strings on disk
	// must reproduce the original values exactly.
	assert.Equal(t, l.TotalQuantity.String(), loaded.TotalQuantity.String())
	assert.Equal(t, l.TotalQuoteSpent.String(), loaded.TotalQuoteSpent.String())
	require.Len(t, loaded.Purchases, 2)
	for i := range l.Purchases {
		assert.Equal(t, l.Purchases[i].Date, loaded.Purchases[i].Date)
		assert.Equal(t, l.Purchases[i].Quantity.String(), loaded.Purchases[i].Quantity.String())
		assert.Equal(t, l.Purchases[i].QuoteSpent.String(), loaded.Purchases[i].QuoteSpent.String())
		assert.Equal(t, l.Purchases[i].UnitPrice.String(), loaded.Purchases[i].UnitPrice.String())
		assert.Equal(t, l.Purchases[i].Simulated, loaded.Purchases[i].Simulated)
	}
	require.NotNil(t, loaded.Purchases[0].OrderID)
	assert.Equal(t, orderID, *loaded.Purchases[0].OrderID)
	assert.Nil(t, loaded.Purchases[1].OrderID)
}

func TestSaveIsAtomic(t *testing.T) {
	s := newTestStore(t)
	l := NewLedger()
	require.NoError(t, s.AddPurchase(l, record("2025-01-01T09:00:00Z", "1", "30", "30")))

	// No temp file is left behind after a successful swap.
	_, err := os.Stat(s.path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = os.Stat(s.path)
	assert.NoError(t, err)
}
