package ledger

import (
	"fmt"
	"iter"
	"sort"

	"github.com/etnz/ledger/date"
)

// MaxTickerLen bounds ticker symbols, matching the relational schema.
const MaxTickerLen = 12

// Ledger is the append-only transaction log of one portfolio, together with
// the position state derived from it. It is the single source of truth:
// balances and summaries are always recomputed from the log, never stored.
//
// A Ledger is not safe for concurrent use; Portfolio serializes access.
type Ledger struct {
	portfolio    string
	transactions []Transaction
	positions    map[int64]Position
	nextTx       int64
	nextPos      int64
}

// NewLedger creates an empty ledger for the given portfolio id.
func NewLedger(portfolioID string) *Ledger {
	return &Ledger{
		portfolio: portfolioID,
		positions: make(map[int64]Position),
		nextTx:    1,
		nextPos:   1,
	}
}

// PortfolioID returns the id of the owning portfolio.
func (l *Ledger) PortfolioID() string { return l.portfolio }

// Len returns the number of appended transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// LastDate returns the date of the most recent transaction, zero when empty.
func (l *Ledger) LastDate() date.Date {
	if len(l.transactions) == 0 {
		return date.Date{}
	}
	return l.transactions[len(l.transactions)-1].Date
}

// Append validates the draft and appends it to the log. On success it returns
// the recorded transaction, with its assigned id and any quick-fixes applied
// (a zero date resolves to the last transaction's date, or today on an empty
// log). A BUY creates its position and a SELL closes its position within the
// same call, so readers never observe a transaction without the matching
// position state.
//
// A failed append leaves the ledger exactly as it was.
func (l *Ledger) Append(draft Transaction) (Transaction, error) {
	if draft.ID != 0 {
		return draft, fmt.Errorf("draft must not carry an id, got %d", draft.ID)
	}
	tx, err := l.validate(draft)
	if err != nil {
		return draft, err
	}

	tx.ID = l.nextTx
	l.nextTx++

	switch tx.Type {
	case Buy:
		pos := Position{
			ID:            l.nextPos,
			Portfolio:     l.portfolio,
			Ticker:        tx.Ticker,
			Opened:        tx.Date,
			EntryQuantity: tx.Quantity,
			EntryPrice:    tx.Price,
		}
		l.nextPos++
		tx.Position = pos.ID
		l.positions[pos.ID] = pos
	case Sell:
		pos := l.positions[tx.Position]
		pos.Closed = tx.Date
		pos.closed = true
		pos.ExitQuantity = tx.Quantity
		pos.ExitPrice = tx.Price
		l.positions[pos.ID] = pos
	}

	l.transactions = append(l.transactions, tx)
	return tx, nil
}

// validate checks a draft against the ledger state and applies quick fixes.
// It returns the validated (possibly modified) draft.
func (l *Ledger) validate(tx Transaction) (Transaction, error) {
	if !tx.Type.Valid() {
		return tx, fmt.Errorf("unsupported transaction type %q", tx.Type)
	}
	if tx.Portfolio == "" {
		tx.Portfolio = l.portfolio
	} else if tx.Portfolio != l.portfolio {
		return tx, fmt.Errorf("transaction portfolio %q does not match ledger portfolio %q", tx.Portfolio, l.portfolio)
	}

	if tx.Quantity < 0 {
		return tx, fmt.Errorf("%w: quantity must not be negative, got %d", ErrInvalidAmount, tx.Quantity)
	}
	if tx.Price.IsNegative() {
		return tx, fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidAmount, tx.Price)
	}

	if tx.Type.RequiresPosition() {
		if tx.Type == Buy {
			if tx.Position != 0 {
				// a buy always opens a fresh position
				return tx, fmt.Errorf("%w: buy must not reference position %d", ErrUnexpectedPositionReference, tx.Position)
			}
			if tx.Ticker == "" || len(tx.Ticker) > MaxTickerLen {
				return tx, fmt.Errorf("%w: %q", ErrInvalidTicker, tx.Ticker)
			}
		} else {
			if tx.Position == 0 {
				return tx, fmt.Errorf("%w: %s requires a position", ErrMissingPositionReference, tx.Type)
			}
			pos, ok := l.positions[tx.Position]
			if !ok {
				return tx, fmt.Errorf("%w: position %d", ErrPositionNotFound, tx.Position)
			}
			if tx.Type == Sell && pos.IsClosed() {
				return tx, fmt.Errorf("%w: position %d closed on %s", ErrPositionAlreadyClosed, pos.ID, pos.Closed)
			}
		}
	} else if tx.Position != 0 {
		return tx, fmt.Errorf("%w: %s must not reference position %d", ErrUnexpectedPositionReference, tx.Type, tx.Position)
	}

	last := l.LastDate()
	if tx.Date.IsZero() {
		// quick fix: continue the timeline
		if last.IsZero() {
			tx.Date = date.Today()
		} else {
			tx.Date = last
		}
	} else if tx.Date.Before(last) {
		return tx, fmt.Errorf("%w: %s is before last transaction on %s", ErrOutOfOrder, tx.Date, last)
	}
	return tx, nil
}

// replay re-applies a recorded transaction during restore, preserving its
// assigned ids. Records must arrive in log order.
func (l *Ledger) replay(tx Transaction) error {
	if tx.ID < l.nextTx {
		return fmt.Errorf("transaction id %d is not increasing (next %d)", tx.ID, l.nextTx)
	}
	recordedPos := tx.Position
	if tx.Type == Buy {
		if recordedPos == 0 {
			return fmt.Errorf("%w: recorded buy %d has no position", ErrMissingPositionReference, tx.ID)
		}
		if _, exists := l.positions[recordedPos]; exists {
			return fmt.Errorf("%w: recorded buy %d reuses position %d", ErrUnexpectedPositionReference, tx.ID, recordedPos)
		}
		tx.Position = 0 // validate expects a fresh buy draft
	}
	validated, err := l.validate(tx)
	if err != nil {
		return fmt.Errorf("invalid recorded transaction %d: %w", tx.ID, err)
	}
	tx = validated
	tx.Position = recordedPos

	switch tx.Type {
	case Buy:
		l.positions[recordedPos] = Position{
			ID:            recordedPos,
			Portfolio:     l.portfolio,
			Ticker:        tx.Ticker,
			Opened:        tx.Date,
			EntryQuantity: tx.Quantity,
			EntryPrice:    tx.Price,
		}
		if recordedPos >= l.nextPos {
			l.nextPos = recordedPos + 1
		}
	case Sell:
		pos := l.positions[tx.Position]
		pos.Closed = tx.Date
		pos.closed = true
		pos.ExitQuantity = tx.Quantity
		pos.ExitPrice = tx.Price
		l.positions[pos.ID] = pos
	}

	l.nextTx = tx.ID + 1
	l.transactions = append(l.transactions, tx)
	return nil
}

// Restore rebuilds a ledger from recorded transactions, preserving ids. The
// records are sorted stably by date (then id) before replay, so a shuffled
// JSONL file still loads.
func Restore(portfolioID string, records []Transaction) (*Ledger, error) {
	sorted := make([]Transaction, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	l := NewLedger(portfolioID)
	for _, tx := range sorted {
		if err := l.replay(tx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Transactions iterates the log in append order, yielding transactions that
// pass the filter.
func (l *Ledger) Transactions(accept Filter) iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range l.transactions {
			if accept(tx) && !yield(tx) {
				return
			}
		}
	}
}

// Balance is the cash balance derived by folding the full log: deposits,
// sale proceeds, dividends and cash settlements in; withdrawals, purchases
// and taxes out. Nothing is cached, so the balance can never drift from the
// log.
func (l *Ledger) Balance() Money { return l.BalanceOn(date.Date{}) }

// BalanceOn is Balance restricted to transactions dated on or before day.
// A zero day means the full log.
func (l *Ledger) BalanceOn(day date.Date) Money {
	var balance Money
	for _, tx := range l.transactions {
		if !day.IsZero() && tx.Date.After(day) {
			break // the log is date-ordered
		}
		switch tx.Type.cashSign() {
		case 1:
			balance = balance.Add(tx.Value())
		case -1:
			balance = balance.Sub(tx.Value())
		}
	}
	return balance
}

// TotalDeposited sums all DEPOSIT transactions: the portfolio's inflow.
func (l *Ledger) TotalDeposited() Money {
	var total Money
	for tx := range l.Transactions(ByType(Deposit)) {
		total = total.Add(tx.Value())
	}
	return total
}

// TotalWithdrawn sums all WITHDRAWAL transactions: the portfolio's outflow.
func (l *Ledger) TotalWithdrawn() Money {
	var total Money
	for tx := range l.Transactions(ByType(Withdrawal)) {
		total = total.Add(tx.Value())
	}
	return total
}

// FirstDeposit returns the earliest DEPOSIT transaction, if any.
func (l *Ledger) FirstDeposit() (Transaction, bool) {
	for tx := range l.Transactions(ByType(Deposit)) {
		return tx, true
	}
	return Transaction{}, false
}
