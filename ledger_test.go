package ledger

import (
	"errors"
	"testing"

	"github.com/etnz/ledger/date"
)

func mustAppend(t *testing.T, l *Ledger, draft Transaction) Transaction {
	t.Helper()
	tx, err := l.Append(draft)
	if err != nil {
		t.Fatalf("Append(%+v): %v", draft, err)
	}
	return tx
}

func day(s string) date.Date { return date.MustParse(s) }

func TestAppend_AssignsIDs(t *testing.T) {
	l := NewLedger("p1")
	tx1 := mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(1000)})
	tx2 := mustAppend(t, l, Transaction{Type: Withdrawal, Date: day("2019-01-03"), Quantity: 1, Price: M(100)})

	if tx1.ID != 1 || tx2.ID != 2 {
		t.Errorf("got ids %d, %d, want 1, 2", tx1.ID, tx2.ID)
	}
	if tx1.Portfolio != "p1" {
		t.Errorf("got portfolio %q, want p1", tx1.Portfolio)
	}
}

func TestAppend_BuyOpensPosition(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})

	if buy.Position == 0 {
		t.Fatal("buy did not receive a position id")
	}
	pos, err := l.Position(buy.Position)
	if err != nil {
		t.Fatalf("Position(%d): %v", buy.Position, err)
	}
	if pos.Ticker != "ABC" || pos.EntryQuantity != 10 || !pos.EntryPrice.Equal(M(100)) {
		t.Errorf("unexpected position %+v", pos)
	}
	if pos.IsClosed() {
		t.Error("freshly opened position reports closed")
	}
}

func TestAppend_SellClosesPosition(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
	mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-02-01"), Position: buy.Position, Quantity: 10, Price: M(120)})

	pos, err := l.Position(buy.Position)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsClosed() {
		t.Fatal("position still open after sell")
	}
	if pos.Closed != day("2019-02-01") || pos.ExitQuantity != 10 || !pos.ExitPrice.Equal(M(120)) {
		t.Errorf("unexpected closed position %+v", pos)
	}
}

func TestAppend_Rejections(t *testing.T) {
	setup := func() (*Ledger, int64) {
		l := NewLedger("p1")
		mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
		buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
		mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-01-10"), Position: buy.Position, Quantity: 10, Price: M(120)})
		return l, buy.Position
	}

	tests := []struct {
		name  string
		draft func(pos int64) Transaction
		want  error
	}{
		{
			name:  "negative quantity",
			draft: func(int64) Transaction { return Transaction{Type: Deposit, Quantity: -1, Price: M(10)} },
			want:  ErrInvalidAmount,
		},
		{
			name:  "negative price",
			draft: func(int64) Transaction { return Transaction{Type: Deposit, Quantity: 1, Price: M(-10)} },
			want:  ErrInvalidAmount,
		},
		{
			name:  "buy without ticker",
			draft: func(int64) Transaction { return Transaction{Type: Buy, Quantity: 1, Price: M(10)} },
			want:  ErrInvalidTicker,
		},
		{
			name:  "buy with oversized ticker",
			draft: func(int64) Transaction { return Transaction{Type: Buy, Ticker: "ABCDEFGHIJKLM", Quantity: 1, Price: M(10)} },
			want:  ErrInvalidTicker,
		},
		{
			name:  "buy referencing a position",
			draft: func(pos int64) Transaction { return Transaction{Type: Buy, Ticker: "ABC", Position: pos, Quantity: 1, Price: M(10)} },
			want:  ErrUnexpectedPositionReference,
		},
		{
			name:  "sell without position",
			draft: func(int64) Transaction { return Transaction{Type: Sell, Quantity: 1, Price: M(10)} },
			want:  ErrMissingPositionReference,
		},
		{
			name:  "sell unknown position",
			draft: func(int64) Transaction { return Transaction{Type: Sell, Position: 99, Quantity: 1, Price: M(10)} },
			want:  ErrPositionNotFound,
		},
		{
			name:  "sell closed position",
			draft: func(pos int64) Transaction { return Transaction{Type: Sell, Position: pos, Quantity: 10, Price: M(10)} },
			want:  ErrPositionAlreadyClosed,
		},
		{
			name:  "dividend without position",
			draft: func(int64) Transaction { return Transaction{Type: Dividend, Quantity: 1, Price: M(1)} },
			want:  ErrMissingPositionReference,
		},
		{
			name:  "deposit referencing a position",
			draft: func(pos int64) Transaction { return Transaction{Type: Deposit, Position: pos, Quantity: 1, Price: M(10)} },
			want:  ErrUnexpectedPositionReference,
		},
		{
			name:  "date before last transaction",
			draft: func(int64) Transaction { return Transaction{Type: Deposit, Date: day("2018-12-31"), Quantity: 1, Price: M(10)} },
			want:  ErrOutOfOrder,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, pos := setup()
			before := l.Len()
			_, err := l.Append(test.draft(pos))
			if !errors.Is(err, test.want) {
				t.Fatalf("got error %v, want %v", err, test.want)
			}
			if l.Len() != before {
				t.Errorf("failed append mutated the log: %d -> %d entries", before, l.Len())
			}
		})
	}
}

func TestAppend_QuickFixDate(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(100)})
	tx := mustAppend(t, l, Transaction{Type: Deposit, Quantity: 1, Price: M(100)})
	if tx.Date != day("2019-01-02") {
		t.Errorf("zero date resolved to %s, want 2019-01-02", tx.Date)
	}
}

func TestAppend_RejectsForeignPortfolio(t *testing.T) {
	l := NewLedger("p1")
	if _, err := l.Append(Transaction{Type: Deposit, Portfolio: "p2", Quantity: 1, Price: M(100)}); err == nil {
		t.Fatal("accepted a transaction for another portfolio")
	}
}

func TestAppend_RejectsDraftWithID(t *testing.T) {
	l := NewLedger("p1")
	if _, err := l.Append(Transaction{ID: 7, Type: Deposit, Quantity: 1, Price: M(100)}); err == nil {
		t.Fatal("accepted a draft carrying an id")
	}
}

func TestBalance(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
	mustAppend(t, l, Transaction{Type: Dividend, Date: day("2019-01-15"), Position: buy.Position, Quantity: 1, Price: M(50)})
	mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-02-01"), Position: buy.Position, Quantity: 10, Price: M(120)})
	mustAppend(t, l, Transaction{Type: Withdrawal, Date: day("2019-02-02"), Quantity: 1, Price: M(250)})
	mustAppend(t, l, Transaction{Type: Tax, Date: day("2019-12-31"), Quantity: 1, Price: M(30)})

	// 10000 - 1000 + 50 + 1200 - 250 - 30
	if got := l.Balance(); !got.Equal(M(9970)) {
		t.Errorf("Balance() = %s, want %s", got, M(9970))
	}

	tests := []struct {
		day  string
		want Money
	}{
		{"2019-01-01", M(0)},
		{"2019-01-02", M(10000)},
		{"2019-01-03", M(9000)},
		{"2019-01-31", M(9050)},
		{"2019-02-01", M(10250)},
		{"2019-12-31", M(9970)},
	}
	for _, test := range tests {
		if got := l.BalanceOn(day(test.day)); !got.Equal(test.want) {
			t.Errorf("BalanceOn(%s) = %s, want %s", test.day, got, test.want)
		}
	}
}

func TestRestore_RebuildsState(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
	mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-02-01"), Position: buy.Position, Quantity: 10, Price: M(120)})
	open := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-02-05"), Ticker: "XYZ", Quantity: 5, Price: M(40)})

	var records []Transaction
	for tx := range l.Transactions(AcceptAll) {
		records = append(records, tx)
	}
	// shuffle: restore must sort by date before replaying
	records[0], records[3] = records[3], records[0]

	restored, err := Restore("p1", records)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Balance().Equal(l.Balance()) {
		t.Errorf("restored balance %s, want %s", restored.Balance(), l.Balance())
	}
	if got := len(restored.Positions()); got != 2 {
		t.Fatalf("restored %d positions, want 2", got)
	}
	pos, err := restored.Position(buy.Position)
	if err != nil || !pos.IsClosed() {
		t.Errorf("position %d: err=%v closed=%v, want closed", buy.Position, err, pos.IsClosed())
	}
	pos, err = restored.Position(open.Position)
	if err != nil || pos.IsClosed() {
		t.Errorf("position %d: err=%v closed=%v, want open", open.Position, err, pos.IsClosed())
	}

	// appending after restore continues the id sequence
	tx := mustAppend(t, restored, Transaction{Type: Deposit, Date: day("2019-03-01"), Quantity: 1, Price: M(1)})
	if tx.ID != 5 {
		t.Errorf("post-restore append got id %d, want 5", tx.ID)
	}
}

func TestRestore_RejectsDuplicatePosition(t *testing.T) {
	records := []Transaction{
		{ID: 1, Type: Buy, Date: day("2019-01-02"), Position: 1, Ticker: "ABC", Quantity: 1, Price: M(10)},
		{ID: 2, Type: Buy, Date: day("2019-01-03"), Position: 1, Ticker: "XYZ", Quantity: 1, Price: M(10)},
	}
	if _, err := Restore("p1", records); err == nil {
		t.Fatal("accepted two buys sharing a position id")
	}
}

func TestTransactions_Filters(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
	mustAppend(t, l, Transaction{Type: Dividend, Date: day("2019-01-15"), Position: buy.Position, Quantity: 1, Price: M(50)})

	count := func(accept Filter) int {
		n := 0
		for range l.Transactions(accept) {
			n++
		}
		return n
	}

	if got := count(AcceptAll); got != 3 {
		t.Errorf("AcceptAll matched %d, want 3", got)
	}
	if got := count(ByType(Buy, Dividend)); got != 2 {
		t.Errorf("ByType(Buy, Dividend) matched %d, want 2", got)
	}
	if got := count(ByPosition(buy.Position)); got != 2 {
		t.Errorf("ByPosition matched %d, want 2", got)
	}
	if got := count(ByRange(date.NewRange(day("2019-01-03"), day("2019-01-10")))); got != 1 {
		t.Errorf("ByRange matched %d, want 1", got)
	}
}

func TestTotals(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	mustAppend(t, l, Transaction{Type: Withdrawal, Date: day("2019-01-10"), Quantity: 1, Price: M(500)})
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-02-01"), Quantity: 1, Price: M(2000)})

	if got := l.TotalDeposited(); !got.Equal(M(12000)) {
		t.Errorf("TotalDeposited() = %s, want %s", got, M(12000))
	}
	if got := l.TotalWithdrawn(); !got.Equal(M(500)) {
		t.Errorf("TotalWithdrawn() = %s, want %s", got, M(500))
	}
	first, ok := l.FirstDeposit()
	if !ok || first.Date != day("2019-01-02") {
		t.Errorf("FirstDeposit() = %+v, %v, want the January deposit", first, ok)
	}
}
