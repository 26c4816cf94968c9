package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/etnz/ledger/date"
)

// Quotes maps tickers to a per-share valuation price. Reports need a quote
// for every ticker with an open position.
type Quotes map[string]Money

// QuotesOn collects the closing prices of every ticker with a bar on day.
func QuotesOn(m *Market, day date.Date) Quotes {
	quotes := make(Quotes)
	for bar := range m.BarsOn(day) {
		quotes[bar.Ticker] = bar.Close
	}
	return quotes
}

// TickerSummary aggregates every position of one ticker.
type TickerSummary struct {
	Ticker      string
	OpenCount   int
	ClosedCount int

	EntryValue   Money // cost basis of the open positions
	MarketValue  Money // open positions valued at the quote
	UnrealizedPL Money
	TradePL      Money // exit minus entry over the closed positions
	Dividends    Money
	Settlements  Money
}

// TotalPL is the ticker's overall result: realized trade gains, open
// mark-to-market, and cash adjustments.
func (t TickerSummary) TotalPL() Money {
	return t.TradePL.Add(t.UnrealizedPL).Add(t.Dividends).Add(t.Settlements)
}

// PortfolioSummary is the full valuation of one portfolio on a given day.
// Every figure is recomputed from the transaction log and the supplied
// quotes; nothing is read from cached state.
type PortfolioSummary struct {
	PortfolioID string
	Owner       string
	AsOf        date.Date

	Balance        Money
	TotalDeposited Money
	TotalWithdrawn Money
	TaxesPaid      Money

	OpenCount   int
	ClosedCount int

	Dividends       Money
	CashSettlements Money

	// RealizedPL sums the realized result of every closed position:
	// adjustments plus exit value minus entry value.
	RealizedPL        Money
	RealizedPLPercent Percent // of the closed positions' entry cost

	// UnrealizedPL marks the open positions to the quotes.
	UnrealizedPL Money
	OpenValue    Money

	// Equity is cash plus the market value of the open positions.
	Equity Money
	// NetPL is equity minus net contributions.
	NetPL Money
	// CAGR is the compound annual growth rate of equity over net
	// contributions, from the first deposit to AsOf. Zero when undefined.
	CAGR float64

	Tickers []TickerSummary // sorted by ticker

	// Best and worst performing tickers by TotalPL. Empty when the
	// portfolio never held a position.
	BestPerformer  string
	WorstPerformer string
}

// PositionCount is the total number of positions, open and closed.
func (s *PortfolioSummary) PositionCount() int { return s.OpenCount + s.ClosedCount }

// Adjustments is the total cash credited outside of trades: dividends plus
// cash settlements.
func (s *PortfolioSummary) Adjustments() Money { return s.Dividends.Add(s.CashSettlements) }

// Summarize values the portfolio as of day using the given quotes. Every open
// position's ticker must have a quote; a missing one fails the whole report
// rather than silently undervaluing equity.
func Summarize(p *Portfolio, asOf date.Date, quotes Quotes) (*PortfolioSummary, error) {
	summary := &PortfolioSummary{
		PortfolioID: p.ID(),
		Owner:       p.Owner(),
		AsOf:        asOf,
	}

	err := p.read(func(l *Ledger) error {
		summary.Balance = l.Balance()
		summary.TotalDeposited = l.TotalDeposited()
		summary.TotalWithdrawn = l.TotalWithdrawn()

		byTicker := make(map[string]*TickerSummary)
		ticker := func(name string) *TickerSummary {
			t, ok := byTicker[name]
			if !ok {
				t = &TickerSummary{Ticker: name}
				byTicker[name] = t
			}
			return t
		}

		var closedEntry Money
		for _, pos := range l.Positions() {
			t := ticker(pos.Ticker)
			if pos.IsClosed() {
				summary.ClosedCount++
				t.ClosedCount++
				t.TradePL = t.TradePL.Add(pos.ExitValue().Sub(pos.EntryValue()))
				closedEntry = closedEntry.Add(pos.EntryValue())

				ps, err := l.Summarize(pos.ID)
				if err != nil {
					return err
				}
				realized, _ := ps.RealizedPL()
				summary.RealizedPL = summary.RealizedPL.Add(realized)
				continue
			}

			quote, ok := quotes[pos.Ticker]
			if !ok {
				return fmt.Errorf("no quote for open position in %s", pos.Ticker)
			}
			summary.OpenCount++
			t.OpenCount++
			t.EntryValue = t.EntryValue.Add(pos.EntryValue())
			t.MarketValue = t.MarketValue.Add(pos.MarketValue(quote))
			t.UnrealizedPL = t.UnrealizedPL.Add(pos.UnrealizedPL(quote))
			summary.OpenValue = summary.OpenValue.Add(pos.MarketValue(quote))
			summary.UnrealizedPL = summary.UnrealizedPL.Add(pos.UnrealizedPL(quote))
		}
		summary.RealizedPLPercent = summary.RealizedPL.PercentOf(closedEntry)

		for tx := range l.Transactions(ByType(Dividend, CashSettlement, Tax)) {
			switch tx.Type {
			case Dividend:
				summary.Dividends = summary.Dividends.Add(tx.Value())
				if pos, err := l.Position(tx.Position); err == nil {
					ticker(pos.Ticker).Dividends = ticker(pos.Ticker).Dividends.Add(tx.Value())
				}
			case CashSettlement:
				summary.CashSettlements = summary.CashSettlements.Add(tx.Value())
				if pos, err := l.Position(tx.Position); err == nil {
					ticker(pos.Ticker).Settlements = ticker(pos.Ticker).Settlements.Add(tx.Value())
				}
			case Tax:
				summary.TaxesPaid = summary.TaxesPaid.Add(tx.Value())
			}
		}

		summary.Tickers = make([]TickerSummary, 0, len(byTicker))
		for _, t := range byTicker {
			summary.Tickers = append(summary.Tickers, *t)
		}
		sort.Slice(summary.Tickers, func(i, j int) bool {
			return summary.Tickers[i].Ticker < summary.Tickers[j].Ticker
		})

		summary.Equity = summary.Balance.Add(summary.OpenValue)
		contributions := summary.TotalDeposited.Sub(summary.TotalWithdrawn)
		summary.NetPL = summary.Equity.Sub(contributions)
		summary.CAGR = growthRate(l, summary.Equity, summary.TotalDeposited, asOf)

		for i, t := range summary.Tickers {
			if i == 0 {
				summary.BestPerformer = t.Ticker
				summary.WorstPerformer = t.Ticker
				continue
			}
			best := byTicker[summary.BestPerformer]
			worst := byTicker[summary.WorstPerformer]
			if t.TotalPL().GreaterThan(best.TotalPL()) {
				summary.BestPerformer = t.Ticker
			}
			if t.TotalPL().LessThan(worst.TotalPL()) {
				summary.WorstPerformer = t.Ticker
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// growthRate computes the compound annual growth rate of equity over total
// deposits, from the first deposit to asOf. It is zero whenever the rate is
// undefined: no deposit yet, a non-positive equity, or a period shorter than
// a day.
func growthRate(l *Ledger, equity, deposited Money, asOf date.Date) float64 {
	first, ok := l.FirstDeposit()
	if !ok || !deposited.IsPositive() || !equity.IsPositive() {
		return 0
	}
	days := first.Date.DaysUntil(asOf)
	if days <= 0 {
		return 0
	}
	years := float64(days) / 365.25
	return math.Pow(equity.AsFloat()/deposited.AsFloat(), 1/years) - 1
}
