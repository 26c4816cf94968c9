package ledger

import (
	"sync"

	"github.com/etnz/ledger/date"
	"github.com/google/uuid"
)

// Portfolio is the write side of the engine: a thin, validated wrapper around
// one ledger. Each operation appends exactly one transaction of the matching
// type.
//
// A portfolio has a single logical writer: the embedded lock serializes
// mutations, and readers see a consistent snapshot (a BUY and its position
// creation, or a SELL and its position close, commit together). Portfolios
// are independent of each other.
//
// The engine records what it is told: it does not prevent withdrawals or
// purchases from driving the balance negative. Overdraft policy belongs to
// the caller, which can read Balance before issuing the transaction.
type Portfolio struct {
	mu     sync.RWMutex
	id     string
	owner  string
	ledger *Ledger
}

// NewPortfolio creates an empty portfolio with a fresh opaque id.
func NewPortfolio(owner string) *Portfolio {
	id := uuid.NewString()
	return &Portfolio{id: id, owner: owner, ledger: NewLedger(id)}
}

// NewPortfolioWithID creates an empty portfolio with a caller-chosen id,
// for callers that name portfolios themselves (files, CLI).
func NewPortfolioWithID(id, owner string) *Portfolio {
	return &Portfolio{id: id, owner: owner, ledger: NewLedger(id)}
}

// RestorePortfolio rebuilds a portfolio from recorded transactions.
func RestorePortfolio(id, owner string, records []Transaction) (*Portfolio, error) {
	l, err := Restore(id, records)
	if err != nil {
		return nil, err
	}
	return &Portfolio{id: id, owner: owner, ledger: l}, nil
}

// ID returns the opaque portfolio id.
func (p *Portfolio) ID() string { return p.id }

// Owner returns the owner label.
func (p *Portfolio) Owner() string { return p.owner }

func (p *Portfolio) append(draft Transaction) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Append(draft)
}

// Deposit credits cash to the portfolio.
func (p *Portfolio) Deposit(day date.Date, amount Money) (Transaction, error) {
	return p.append(Transaction{Type: Deposit, Date: day, Quantity: 1, Price: amount})
}

// Withdraw debits cash from the portfolio.
func (p *Portfolio) Withdraw(day date.Date, amount Money) (Transaction, error) {
	return p.append(Transaction{Type: Withdrawal, Date: day, Quantity: 1, Price: amount})
}

// Buy opens a new position: quantity shares of ticker at the given per-share
// price. The position is created atomically with the transaction; its id is
// carried in the returned transaction.
func (p *Portfolio) Buy(day date.Date, ticker string, quantity int64, price Money) (Transaction, error) {
	return p.append(Transaction{Type: Buy, Date: day, Ticker: ticker, Quantity: quantity, Price: price})
}

// Sell closes the referenced position at the given per-share price, crediting
// quantity x price. A position closes exactly once; there are no partial
// closes, so quantity is normally the position's full entry quantity (a zero
// quantity records zero proceeds, used for split-driven closes).
func (p *Portfolio) Sell(day date.Date, positionID int64, quantity int64, price Money) (Transaction, error) {
	return p.append(Transaction{Type: Sell, Date: day, Position: positionID, Quantity: quantity, Price: price})
}

// RecordDividend credits a per-share dividend for the referenced position.
func (p *Portfolio) RecordDividend(day date.Date, positionID int64, quantity int64, perShare Money) (Transaction, error) {
	return p.append(Transaction{Type: Dividend, Date: day, Position: positionID, Quantity: quantity, Price: perShare})
}

// RecordCashSettlement credits a cash settlement (e.g. fractional shares paid
// out after a split) for the referenced position.
func (p *Portfolio) RecordCashSettlement(day date.Date, positionID int64, amount Money) (Transaction, error) {
	return p.append(Transaction{Type: CashSettlement, Date: day, Position: positionID, Quantity: 1, Price: amount})
}

// ApplyTax debits a tax payment from the portfolio.
func (p *Portfolio) ApplyTax(day date.Date, amount Money) (Transaction, error) {
	return p.append(Transaction{Type: Tax, Date: day, Quantity: 1, Price: amount})
}

// Balance is the cash balance derived from the full log.
func (p *Portfolio) Balance() Money {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Balance()
}

// BalanceOn is the cash balance derived from transactions up to day.
func (p *Portfolio) BalanceOn(day date.Date) Money {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.BalanceOn(day)
}

// Transactions returns the filtered transactions as a slice snapshot.
func (p *Portfolio) Transactions(accept Filter) []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var txs []Transaction
	for tx := range p.ledger.Transactions(accept) {
		txs = append(txs, tx)
	}
	return txs
}

// OpenPositions returns the open positions, ordered by id.
func (p *Portfolio) OpenPositions() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.OpenPositions()
}

// ClosedPositions returns the closed positions, ordered by id.
func (p *Portfolio) ClosedPositions() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.ClosedPositions()
}

// Positions returns all positions, ordered by id.
func (p *Portfolio) Positions() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Positions()
}

// Position returns the position with the given id.
func (p *Portfolio) Position(id int64) (Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Position(id)
}

// Summarize aggregates all transactions for one position.
func (p *Portfolio) Summarize(positionID int64) (PositionSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Summarize(positionID)
}

// read runs fn while holding the read lock, giving report code a consistent
// view of the ledger.
func (p *Portfolio) read(fn func(*Ledger) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fn(p.ledger)
}
