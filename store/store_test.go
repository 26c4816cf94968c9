package store

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

var memCounter atomic.Int64

// openMem opens a fresh in-memory database per test.
func openMem(t *testing.T) *Store {
	t.Helper()
	path := fmt.Sprintf("file:test%d?mode=memory&cache=shared", memCounter.Add(1))
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) date.Date { return date.MustParse(s) }

func buildPortfolio(t *testing.T) *ledger.Portfolio {
	t.Helper()
	p := ledger.NewPortfolio("alice")
	if _, err := p.Deposit(day("2019-01-02"), ledger.M(10000)); err != nil {
		t.Fatal(err)
	}
	buy, err := p.Buy(day("2019-01-03"), "ABC", 10, ledger.M(100))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.RecordDividend(day("2019-01-15"), buy.Position, 1, ledger.M(50)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Sell(day("2019-02-01"), buy.Position, 10, ledger.M(120)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Buy(day("2019-02-05"), "XYZ", 5, ledger.M(40)); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPortfolioRoundTrip(t *testing.T) {
	s := openMem(t)
	p := buildPortfolio(t)

	if err := s.SavePortfolio(p); err != nil {
		t.Fatalf("SavePortfolio: %v", err)
	}
	loaded, err := s.LoadPortfolio(p.ID())
	if err != nil {
		t.Fatalf("LoadPortfolio: %v", err)
	}

	if loaded.Owner() != "alice" {
		t.Errorf("owner %q, want alice", loaded.Owner())
	}
	if !loaded.Balance().Equal(p.Balance()) {
		t.Errorf("balance %s, want %s", loaded.Balance(), p.Balance())
	}
	original := p.Transactions(ledger.AcceptAll)
	restored := loaded.Transactions(ledger.AcceptAll)
	if len(restored) != len(original) {
		t.Fatalf("loaded %d transactions, want %d", len(restored), len(original))
	}
	for i := range original {
		if !original[i].Equal(restored[i]) {
			t.Errorf("transaction %d: got %+v, want %+v", i, restored[i], original[i])
		}
	}
	if got := len(loaded.ClosedPositions()); got != 1 {
		t.Errorf("loaded %d closed positions, want 1", got)
	}
	if got := len(loaded.OpenPositions()); got != 1 {
		t.Errorf("loaded %d open positions, want 1", got)
	}
}

func TestSavePortfolio_Resave(t *testing.T) {
	s := openMem(t)
	p := buildPortfolio(t)
	if err := s.SavePortfolio(p); err != nil {
		t.Fatal(err)
	}

	// grow the log and save again: the snapshot is replaced, not duplicated
	if _, err := p.Deposit(day("2019-03-01"), ledger.M(500)); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePortfolio(p); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadPortfolio(p.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(loaded.Transactions(ledger.AcceptAll)), len(p.Transactions(ledger.AcceptAll)); got != want {
		t.Errorf("loaded %d transactions, want %d", got, want)
	}
}

func TestLoadPortfolio_Unknown(t *testing.T) {
	s := openMem(t)
	if _, err := s.LoadPortfolio("nope"); err == nil {
		t.Fatal("loaded a portfolio that was never saved")
	}
}

func TestDeletePortfolio_Cascades(t *testing.T) {
	s := openMem(t)
	p := buildPortfolio(t)
	if err := s.SavePortfolio(p); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePortfolio(p.ID()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadPortfolio(p.ID()); err == nil {
		t.Error("portfolio still loadable after delete")
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d transactions survived the cascade", count)
	}
}

func TestPortfolios(t *testing.T) {
	s := openMem(t)
	a, b := ledger.NewPortfolio("alice"), ledger.NewPortfolio("bob")
	for _, p := range []*ledger.Portfolio{a, b} {
		if err := s.SavePortfolio(p); err != nil {
			t.Fatal(err)
		}
	}
	owners, err := s.Portfolios()
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) != 2 || owners[a.ID()] != "alice" || owners[b.ID()] != "bob" {
		t.Errorf("Portfolios() = %v", owners)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	s := openMem(t)
	m := ledger.NewMarket()

	withDiv := ledger.DailyBar{
		Ticker: "ABC", Day: day("2019-01-03"),
		Open: ledger.M(101), High: ledger.M(103), Low: ledger.M(100), Close: ledger.M(102),
		AdjustedClose: ledger.M(101.5), Volume: 2000,
		Dividend: ledger.M(0.42),
		MACD: &ledger.MACDReading{
			MACD:      decimal.RequireFromString("-2.0715"),
			Signal:    decimal.RequireFromString("-1.9299"),
			Histogram: decimal.RequireFromString("-0.1416"),
		},
	}
	plain := ledger.DailyBar{
		Ticker: "ABC", Day: day("2019-01-02"),
		Open: ledger.M(100), High: ledger.M(101), Low: ledger.M(99), Close: ledger.M(100),
		AdjustedClose: ledger.M(99.5), Volume: 1000,
	}
	for _, b := range []ledger.DailyBar{withDiv, plain} {
		if _, err := m.Append(b); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.SaveMarket(m); err != nil {
		t.Fatalf("SaveMarket: %v", err)
	}
	// saving again must not duplicate or overwrite
	if err := s.SaveMarket(m); err != nil {
		t.Fatalf("second SaveMarket: %v", err)
	}

	loaded, err := s.LoadMarket()
	if err != nil {
		t.Fatalf("LoadMarket: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d bars, want 2", loaded.Len())
	}

	got, ok := loaded.Get("ABC", day("2019-01-03"))
	if !ok {
		t.Fatal("lost the 2019-01-03 bar")
	}
	if !got.Close.Equal(ledger.M(102)) || !got.Dividend.Equal(ledger.M(0.42)) {
		t.Errorf("loaded bar %+v", got)
	}
	if got.MACD == nil || !got.MACD.MACD.Equal(decimal.RequireFromString("-2.0715")) {
		t.Errorf("loaded MACD %+v", got.MACD)
	}

	got, _ = loaded.Get("ABC", day("2019-01-02"))
	if got.MACD != nil {
		t.Error("bar without indicator data grew a MACD reading")
	}
}

func TestTaxTableRoundTrip(t *testing.T) {
	s := openMem(t)
	table := ledger.DefaultTaxTable()

	if err := s.SaveTaxTable(table); err != nil {
		t.Fatalf("SaveTaxTable: %v", err)
	}
	loaded, err := s.LoadTaxTable()
	if err != nil {
		t.Fatalf("LoadTaxTable: %v", err)
	}

	for _, schedule := range []ledger.Schedule{ledger.OrdinaryIncome, ledger.CapitalGains} {
		for year := 2000; year <= 2019; year++ {
			want, err := table.TaxOwed(schedule, year, ledger.M(50000))
			if err != nil {
				t.Fatal(err)
			}
			got, err := loaded.TaxOwed(schedule, year, ledger.M(50000))
			if err != nil {
				t.Fatalf("loaded TaxOwed(%s, %d): %v", schedule, year, err)
			}
			if !got.Equal(want) {
				t.Errorf("TaxOwed(%s, %d) = %s, want %s", schedule, year, got, want)
			}
		}
	}
}
