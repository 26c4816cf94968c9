package ledger

import (
	"fmt"
	"sort"

	"github.com/etnz/ledger/date"
)

// Position is one simulated holding: opened by exactly one BUY, closed by at
// most one SELL. Its fields are derived from those two transactions and are
// only ever written by the ledger's append path.
type Position struct {
	ID        int64
	Portfolio string
	Ticker    string
	Opened    date.Date
	Closed    date.Date // zero while open

	EntryQuantity int64
	EntryPrice    Money
	ExitQuantity  int64 // zero while open
	ExitPrice     Money // zero while open

	closed bool
}

// IsClosed reports whether a SELL has closed this position.
func (p Position) IsClosed() bool { return p.closed }

// EntryValue is the cost of opening the position.
func (p Position) EntryValue() Money { return p.EntryPrice.Mul(p.EntryQuantity) }

// ExitValue is the proceeds of the closing SELL. Meaningful only when closed.
func (p Position) ExitValue() Money { return p.ExitPrice.Mul(p.ExitQuantity) }

// UnrealizedPL is the mark-to-market gain of an open position at the given
// price per share.
func (p Position) UnrealizedPL(price Money) Money {
	return price.Sub(p.EntryPrice).Mul(p.EntryQuantity)
}

// MarketValue is the value of an open position at the given price per share.
func (p Position) MarketValue(price Money) Money {
	return price.Mul(p.EntryQuantity)
}

// PositionSummary aggregates every transaction referencing one position.
// RealizedPL and RealizedPLPercent are defined only when Closed is true: an
// open position has no realized result, which is different from a realized
// result of zero.
type PositionSummary struct {
	Position        Position
	Closed          bool
	EntryValue      Money
	ExitValue       Money // zero value while open
	Dividends       Money
	CashSettlements Money

	realizedPL Money
}

// Adjustments is the sum of dividends and cash settlements.
func (s PositionSummary) Adjustments() Money {
	return s.Dividends.Add(s.CashSettlements)
}

// RealizedPL returns the realized result, and false while the position is
// open. Realized P&L excludes mark-to-market movement: it is
// dividends + cash settlements + (exit value - entry value).
func (s PositionSummary) RealizedPL() (Money, bool) {
	if !s.Closed {
		return Money{}, false
	}
	return s.realizedPL, true
}

// RealizedPLPercent returns the realized result as a percentage of the entry
// value, and false while the position is open.
func (s PositionSummary) RealizedPLPercent() (Percent, bool) {
	if !s.Closed {
		return 0, false
	}
	return s.realizedPL.PercentOf(s.EntryValue), true
}

// Position returns a copy of the position with the given id.
func (l *Ledger) Position(id int64) (Position, error) {
	pos, ok := l.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("%w: position %d", ErrPositionNotFound, id)
	}
	return pos, nil
}

// OpenPositions returns all open positions, ordered by id.
func (l *Ledger) OpenPositions() []Position {
	return l.selectPositions(func(p Position) bool { return !p.IsClosed() })
}

// ClosedPositions returns all closed positions, ordered by id.
func (l *Ledger) ClosedPositions() []Position {
	return l.selectPositions(func(p Position) bool { return p.IsClosed() })
}

// Positions returns all positions, open and closed, ordered by id.
func (l *Ledger) Positions() []Position {
	return l.selectPositions(func(Position) bool { return true })
}

func (l *Ledger) selectPositions(keep func(Position) bool) []Position {
	selected := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		if keep(pos) {
			selected = append(selected, pos)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })
	return selected
}

// Summarize aggregates all transactions for one position, by type.
func (l *Ledger) Summarize(positionID int64) (PositionSummary, error) {
	pos, err := l.Position(positionID)
	if err != nil {
		return PositionSummary{}, err
	}

	summary := PositionSummary{Position: pos, Closed: pos.IsClosed()}
	for tx := range l.Transactions(ByPosition(positionID)) {
		switch tx.Type {
		case Buy:
			summary.EntryValue = summary.EntryValue.Add(tx.Value())
		case Sell:
			summary.ExitValue = summary.ExitValue.Add(tx.Value())
		case Dividend:
			summary.Dividends = summary.Dividends.Add(tx.Value())
		case CashSettlement:
			summary.CashSettlements = summary.CashSettlements.Add(tx.Value())
		}
	}
	if summary.Closed {
		summary.realizedPL = summary.Adjustments().Add(summary.ExitValue.Sub(summary.EntryValue))
	}
	return summary, nil
}
