package ledger

import (
	"encoding/json"

	"github.com/etnz/ledger/date"
)

// TransactionType identifies the kind of a ledger transaction. The set is
// closed: it is never extended at runtime.
type TransactionType string

const (
	Deposit        TransactionType = "DEPOSIT"
	Withdrawal     TransactionType = "WITHDRAWAL"
	Buy            TransactionType = "BUY"
	Sell           TransactionType = "SELL"
	Dividend       TransactionType = "DIVIDEND"
	CashSettlement TransactionType = "CASH_SETTLEMENT"
	Tax            TransactionType = "TAX"
)

// TransactionTypes lists every valid type, in declaration order.
var TransactionTypes = []TransactionType{Deposit, Withdrawal, Buy, Sell, Dividend, CashSettlement, Tax}

// Valid reports whether t is one of the closed set of types.
func (t TransactionType) Valid() bool {
	switch t {
	case Deposit, Withdrawal, Buy, Sell, Dividend, CashSettlement, Tax:
		return true
	}
	return false
}

// RequiresPosition reports whether transactions of this type must reference a
// position.
func (t TransactionType) RequiresPosition() bool {
	switch t {
	case Buy, Sell, Dividend, CashSettlement:
		return true
	}
	return false
}

// cashSign is the direction of the cash flow: +1 credits the balance, -1
// debits it.
func (t TransactionType) cashSign() int {
	switch t {
	case Deposit, Sell, Dividend, CashSettlement:
		return 1
	case Withdrawal, Buy, Tax:
		return -1
	}
	return 0
}

// Transaction is one immutable entry of the append-only log. Drafts are
// passed to Append with a zero ID; the ledger assigns the ID and quick-fixes
// a zero date.
type Transaction struct {
	ID        int64           // monotonic per ledger, assigned on append
	Portfolio string          // owning portfolio id
	Position  int64           // referenced position id, 0 = none
	Type      TransactionType //
	Ticker    string          // security symbol, set on BUY drafts only
	Quantity  int64           // share count, >= 0
	Price     Money           // per-share price or cash amount, >= 0
	Date      date.Date       // non-decreasing per portfolio
}

// Value is the cash magnitude of the transaction: Quantity x Price.
func (t Transaction) Value() Money { return t.Price.Mul(t.Quantity) }

// Equal reports whether two transactions are identical records.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID && t.Portfolio == o.Portfolio && t.Position == o.Position &&
		t.Type == o.Type && t.Ticker == o.Ticker && t.Quantity == o.Quantity &&
		t.Price.Equal(o.Price) && t.Date == o.Date
}

// MarshalJSON encodes the transaction with a stable field order for JSONL
// ledger files.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID)
	w.Append("type", t.Type)
	w.Append("date", t.Date)
	w.Optional("position", t.Position)
	w.Optional("ticker", t.Ticker)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price)
	return w.MarshalJSON()
}

// UnmarshalJSON decodes a transaction from its JSONL form.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID       int64           `json:"id"`
		Type     TransactionType `json:"type"`
		Date     date.Date       `json:"date"`
		Position int64           `json:"position"`
		Ticker   string          `json:"ticker"`
		Quantity int64           `json:"quantity"`
		Price    Money           `json:"price"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.ID = temp.ID
	t.Type = temp.Type
	t.Date = temp.Date
	t.Position = temp.Position
	t.Ticker = temp.Ticker
	t.Quantity = temp.Quantity
	t.Price = temp.Price
	return nil
}

// Filter selects transactions during iteration.
type Filter func(Transaction) bool

// AcceptAll is the identity filter.
func AcceptAll(Transaction) bool { return true }

// ByType accepts transactions of any of the given types.
func ByType(types ...TransactionType) Filter {
	return func(tx Transaction) bool {
		for _, t := range types {
			if tx.Type == t {
				return true
			}
		}
		return false
	}
}

// ByPosition accepts transactions referencing the given position.
func ByPosition(id int64) Filter {
	return func(tx Transaction) bool { return tx.Position == id }
}

// ByRange accepts transactions dated within the given range.
func ByRange(r date.Range) Filter {
	return func(tx Transaction) bool { return r.Contains(tx.Date) }
}
