package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCorrupt is wrapped by the error Load returns when the ledger file exists
// but cannot be parsed or fails its consistency checks. Callers treat it as a
// warning and continue with the empty ledger Load also returns; the corrupt
// file stays on disk until the next successful save replaces it.
var ErrCorrupt = errors.New("ledger file is corrupt")

// ErrInvalidRecord rejects records that would violate the ledger invariants.
var ErrInvalidRecord = errors.New("purchase record must have positive quantity and quote amount")

// PersistenceError reports a failed ledger write. The in-memory ledger already
// contains the appended record, so the caller can retry Save; the on-disk file
// is still the prior valid state.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not persist ledger to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store persists a Ledger as a single JSON file. All decimal fields are
// encoded as strings so values round-trip without precision loss.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a ledger store backed by the file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the persisted ledger. A missing file yields an empty ledger and
// no error. A file that cannot be read, parsed, or whose totals disagree with
// its records yields an empty ledger and an error wrapping ErrCorrupt; Load
// never fails hard.
func (s *Store) Load() (*Ledger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("No previous ledger file found, starting fresh", zap.String("path", s.path))
		return NewLedger(), nil
	}
	if err != nil {
		return NewLedger(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return NewLedger(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if l.Purchases == nil {
		l.Purchases = []PurchaseRecord{}
	}
	if err := l.verify(); err != nil {
		return NewLedger(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s.logger.Info("Loaded previous purchases", zap.Int("count", len(l.Purchases)), zap.String("path", s.path))
	return &l, nil
}

// verify checks that each record is positive and the totals equal the sums
// over the records.
func (l *Ledger) verify() error {
	sumQty := decimal.Zero
	sumSpent := decimal.Zero
	for i, rec := range l.Purchases {
		if !rec.Quantity.IsPositive() || !rec.QuoteSpent.IsPositive() {
			return fmt.Errorf("record %d has non-positive quantity or amount", i)
		}
		sumQty = sumQty.Add(rec.Quantity)
		sumSpent = sumSpent.Add(rec.QuoteSpent)
	}
	if !l.TotalQuantity.Equal(sumQty) {
		return fmt.Errorf("total quantity %s does not match record sum %s", l.TotalQuantity, sumQty)
	}
	if !l.TotalQuoteSpent.Equal(sumSpent) {
		return fmt.Errorf("total spent %s does not match record sum %s", l.TotalQuoteSpent, sumSpent)
	}
	return nil
}

// AddPurchase appends rec to the ledger, updates both totals, and persists the
// result. On a write failure it returns a *PersistenceError and leaves the
// appended record in the in-memory ledger so the caller can retry with Save.
func (s *Store) AddPurchase(l *Ledger, rec PurchaseRecord) error {
	if !rec.Quantity.IsPositive() || !rec.QuoteSpent.IsPositive() {
		return ErrInvalidRecord
	}

	l.Purchases = append(l.Purchases, rec)
	l.TotalQuantity = l.TotalQuantity.Add(rec.Quantity)
	l.TotalQuoteSpent = l.TotalQuoteSpent.Add(rec.QuoteSpent)

	return s.Save(l)
}

// Save writes the ledger to disk atomically: the JSON is written to a
// temporary file in the same directory, synced, then renamed over the target,
// so readers only ever see the fully-prior or fully-new ledger.
func (s *Store) Save(l *Ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := s.writeFileSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
