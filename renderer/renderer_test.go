package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
)

func buildSummary(t *testing.T) *ledger.PortfolioSummary {
	t.Helper()
	p := ledger.NewPortfolio("alice")
	if _, err := p.Deposit(date.MustParse("2019-01-02"), ledger.M(10000)); err != nil {
		t.Fatal(err)
	}
	buy, err := p.Buy(date.MustParse("2019-01-03"), "ABC", 10, ledger.M(100))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Sell(date.MustParse("2019-02-01"), buy.Position, 10, ledger.M(120)); err != nil {
		t.Fatal(err)
	}
	s, err := ledger.Summarize(p, date.MustParse("2019-02-01"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSummary(t *testing.T) {
	out := Summary(buildSummary(t))

	for _, want := range []string{
		"# Portfolio Summary on 2019-02-01",
		"Owner: alice",
		"## Overview",
		"## Results",
		"## Securities",
		"ABC",
		"Best performer: ABC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestPositions(t *testing.T) {
	p := ledger.NewPortfolio("alice")
	if _, err := p.Deposit(date.MustParse("2019-01-02"), ledger.M(10000)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Buy(date.MustParse("2019-01-03"), "ABC", 10, ledger.M(100)); err != nil {
		t.Fatal(err)
	}

	out := Positions("Open Positions", p.OpenPositions())
	for _, want := range []string{"# Open Positions", "ABC", "2019-01-03", "open"} {
		if !strings.Contains(out, want) {
			t.Errorf("positions output missing %q:\n%s", want, out)
		}
	}

	if out := Positions("Closed Positions", nil); !strings.Contains(out, "No positions.") {
		t.Errorf("empty list output:\n%s", out)
	}
}

func TestTransactions(t *testing.T) {
	p := ledger.NewPortfolio("alice")
	if _, err := p.Deposit(date.MustParse("2019-01-02"), ledger.M(10000)); err != nil {
		t.Fatal(err)
	}
	out := Transactions(p.Transactions(ledger.AcceptAll))
	for _, want := range []string{"# Transactions", "DEPOSIT", "2019-01-02"} {
		if !strings.Contains(out, want) {
			t.Errorf("transactions output missing %q:\n%s", want, out)
		}
	}
}

func TestTransaction(t *testing.T) {
	tests := []struct {
		tx   ledger.Transaction
		want string
	}{
		{ledger.Transaction{Type: ledger.Deposit, Quantity: 1, Price: ledger.M(100)}, "Deposited"},
		{ledger.Transaction{Type: ledger.Buy, Ticker: "ABC", Quantity: 10, Price: ledger.M(100), Position: 1}, "Bought 10 of ABC"},
		{ledger.Transaction{Type: ledger.Sell, Quantity: 10, Price: ledger.M(120), Position: 1}, "Sold 10 of position 1"},
		{ledger.Transaction{Type: ledger.Tax, Quantity: 1, Price: ledger.M(42)}, "taxes"},
	}
	for _, test := range tests {
		if got := Transaction(test.tx); !strings.Contains(got, test.want) {
			t.Errorf("Transaction(%s) = %q, want it to contain %q", test.tx.Type, got, test.want)
		}
	}
}
