package risk

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// Ledger tracks how much of the balance is committed as risk on open or in-flight orders.
// Reservations are keyed by idempotency token.
type Ledger struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	reserved  map[domain.IdempotencyToken]decimal.Decimal
	committed map[domain.IdempotencyToken]decimal.Decimal
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		reserved:  make(map[domain.IdempotencyToken]decimal.Decimal),
		committed: make(map[domain.IdempotencyToken]decimal.Decimal),
	}
}

// Sync records the latest balance reading.
func (l *Ledger) Sync(balance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = balance
}

// Available returns balance minus everything reserved or committed.
func (l *Ledger) Available() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableLocked()
}

func (l *Ledger) availableLocked() decimal.Decimal {
	out := l.balance
	for _, v := range l.reserved {
		out = out.Sub(v)
	}
	for _, v := range l.committed {
		out = out.Sub(v)
	}
	return out
}

// InFlight returns the total of reserved and committed risk.
func (l *Ledger) InFlight() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance.Sub(l.availableLocked())
}

// Reserve sets aside amount for token.
func (l *Ledger) Reserve(token domain.IdempotencyToken, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.reserved[token]; ok {
		return errors.Errorf("token %s already reserved", token)
	}
	if _, ok := l.committed[token]; ok {
		return errors.Errorf("token %s already committed", token)
	}
	if amount.GreaterThan(l.availableLocked()) {
		return errors.Wrapf(domain.ErrRiskBudgetExceeded, "need %s, available %s", amount, l.availableLocked())
	}
	l.reserved[token] = amount
	return nil
}

// Commit turns a reservation into committed risk after a fill.
func (l *Ledger) Commit(token domain.IdempotencyToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.reserved[token]; ok {
		delete(l.reserved, token)
		l.committed[token] = v
	}
}

// Release drops a reservation that did not fill.
func (l *Ledger) Release(token domain.IdempotencyToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.reserved, token)
}

// Settle drops committed risk once the position is closed.
func (l *Ledger) Settle(token domain.IdempotencyToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.committed, token)
}
