package ledger

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeLedger_StableLines(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100.50)})
	mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-02-01"), Position: buy.Position, Quantity: 10, Price: M(120)})

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		`{"id":1,"type":"DEPOSIT","date":"2019-01-02","quantity":1,"price":10000}`,
		`{"id":2,"type":"BUY","date":"2019-01-03","position":1,"ticker":"ABC","quantity":10,"price":100.5}`,
		`{"id":3,"type":"SELL","date":"2019-02-01","position":1,"quantity":10,"price":120}`,
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Errorf("encoded ledger:\n%s\nwant:\n%s", got, want)
	}
}

func TestDecodeLedger_RoundTrip(t *testing.T) {
	l := NewLedger("p1")
	mustAppend(t, l, Transaction{Type: Deposit, Date: day("2019-01-02"), Quantity: 1, Price: M(10000)})
	buy := mustAppend(t, l, Transaction{Type: Buy, Date: day("2019-01-03"), Ticker: "ABC", Quantity: 10, Price: M(100)})
	mustAppend(t, l, Transaction{Type: Dividend, Date: day("2019-01-15"), Position: buy.Position, Quantity: 1, Price: M(50)})
	mustAppend(t, l, Transaction{Type: Sell, Date: day("2019-02-01"), Position: buy.Position, Quantity: 10, Price: M(120)})

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeLedger(&buf, "p1")
	if err != nil {
		t.Fatalf("DecodeLedger: %v", err)
	}

	if decoded.Len() != l.Len() {
		t.Fatalf("decoded %d transactions, want %d", decoded.Len(), l.Len())
	}
	if !decoded.Balance().Equal(l.Balance()) {
		t.Errorf("decoded balance %s, want %s", decoded.Balance(), l.Balance())
	}
	var original, restored []Transaction
	for tx := range l.Transactions(AcceptAll) {
		original = append(original, tx)
	}
	for tx := range decoded.Transactions(AcceptAll) {
		restored = append(restored, tx)
	}
	for i := range original {
		if !original[i].Equal(restored[i]) {
			t.Errorf("transaction %d: got %+v, want %+v", i, restored[i], original[i])
		}
	}
}

func TestDecodeLedger_SkipsBlankLines(t *testing.T) {
	input := `{"id":1,"type":"DEPOSIT","date":"2019-01-02","quantity":1,"price":100}

{"id":2,"type":"WITHDRAWAL","date":"2019-01-03","quantity":1,"price":40}
`
	l, err := DecodeLedger(strings.NewReader(input), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Balance().Equal(M(60)) {
		t.Errorf("balance = %s, want %s", l.Balance(), M(60))
	}
}

func TestDecodeLedger_ReportsLine(t *testing.T) {
	input := `{"id":1,"type":"DEPOSIT","date":"2019-01-02","quantity":1,"price":100}
{broken`
	_, err := DecodeLedger(strings.NewReader(input), "p1")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("got %v, want an error naming line 2", err)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	m := NewMarket()
	div := bar("ABC", "2019-01-03", 101)
	div.Dividend = M(0.42)
	for _, b := range []DailyBar{bar("ABC", "2019-01-02", 100), div, bar("XYZ", "2019-01-02", 40)} {
		if _, err := m.Append(b); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := EncodeMarket(&buf, m); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeMarket(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Len() != 3 {
		t.Fatalf("decoded %d bars, want 3", decoded.Len())
	}
	got, ok := decoded.Get("ABC", day("2019-01-03"))
	if !ok {
		t.Fatal("lost the ABC 2019-01-03 bar")
	}
	if !got.Dividend.Equal(M(0.42)) || !got.Close.Equal(M(101)) {
		t.Errorf("decoded bar %+v", got)
	}
}
