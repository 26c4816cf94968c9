// Package renderer turns engine reports into markdown, ready to print raw or
// through a terminal renderer.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/ledger"
	md "github.com/nao1215/markdown"
)

// Summary renders a portfolio summary to a markdown string.
func Summary(s *ledger.PortfolioSummary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio Summary on %s", s.AsOf))
	if s.Owner != "" {
		doc.PlainText(fmt.Sprintf("Owner: %s", s.Owner))
	}

	doc.H2("Overview")
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Equity", s.Equity.String()},
			{"Cash Balance", s.Balance.String()},
			{"Open Positions Value", s.OpenValue.String()},
			{"Deposited", s.TotalDeposited.String()},
			{"Withdrawn", s.TotalWithdrawn.String()},
			{"Taxes Paid", s.TaxesPaid.String()},
			{"Net P&L", s.NetPL.SignedString()},
			{"CAGR", fmt.Sprintf("%+.2f%%", s.CAGR*100)},
		},
	})

	doc.H2("Results")
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Open Positions", fmt.Sprintf("%d", s.OpenCount)},
			{"Closed Positions", fmt.Sprintf("%d", s.ClosedCount)},
			{"Realized P&L", fmt.Sprintf("%s (%s)", s.RealizedPL.SignedString(), s.RealizedPLPercent.SignedString())},
			{"Unrealized P&L", s.UnrealizedPL.SignedString()},
			{"Dividends", s.Dividends.String()},
			{"Cash Settlements", s.CashSettlements.String()},
		},
	})

	if len(s.Tickers) > 0 {
		doc.H2("Securities")
		rows := make([][]string, 0, len(s.Tickers))
		for _, t := range s.Tickers {
			rows = append(rows, []string{
				t.Ticker,
				fmt.Sprintf("%d", t.OpenCount),
				fmt.Sprintf("%d", t.ClosedCount),
				t.MarketValue.String(),
				t.UnrealizedPL.SignedString(),
				t.TradePL.SignedString(),
				t.Dividends.Add(t.Settlements).String(),
				t.TotalPL().SignedString(),
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Ticker", "Open", "Closed", "Market Value", "Unrealized", "Trade P&L", "Adjustments", "Total P&L"},
			Rows:   rows,
		})
		doc.PlainText(fmt.Sprintf("Best performer: %s. Worst performer: %s.", s.BestPerformer, s.WorstPerformer))
	}

	return doc.String()
}

// Positions renders a position list to a markdown table.
func Positions(title string, positions []ledger.Position) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(title)

	if len(positions) == 0 {
		doc.PlainText("No positions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		status, exit := "open", "-"
		if p.IsClosed() {
			status = fmt.Sprintf("closed %s", p.Closed)
			exit = p.ExitValue().String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.ID),
			p.Ticker,
			p.Opened.String(),
			fmt.Sprintf("%d", p.EntryQuantity),
			p.EntryPrice.String(),
			p.EntryValue().String(),
			exit,
			status,
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"ID", "Ticker", "Opened", "Quantity", "Entry Price", "Entry Value", "Exit Value", "Status"},
		Rows:   rows,
	})
	return doc.String()
}

// Transactions renders a transaction list to a markdown table.
func Transactions(txs []ledger.Transaction) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Transactions")

	if len(txs) == 0 {
		doc.PlainText("No transactions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		position := "-"
		if tx.Position != 0 {
			position = fmt.Sprintf("%d", tx.Position)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", tx.ID),
			tx.Date.String(),
			string(tx.Type),
			position,
			fmt.Sprintf("%d", tx.Quantity),
			tx.Price.String(),
			tx.Value().String(),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"ID", "Date", "Type", "Position", "Quantity", "Price", "Value"},
		Rows:   rows,
	})
	return doc.String()
}

// Transaction renders a transaction to a one-line string.
func Transaction(tx ledger.Transaction) string {
	switch tx.Type {
	case ledger.Deposit:
		return fmt.Sprintf("Deposited %s", tx.Value())
	case ledger.Withdrawal:
		return fmt.Sprintf("Withdrew %s", tx.Value())
	case ledger.Buy:
		return fmt.Sprintf("Bought %d of %s for %s (position %d)", tx.Quantity, tx.Ticker, tx.Value(), tx.Position)
	case ledger.Sell:
		return fmt.Sprintf("Sold %d of position %d for %s", tx.Quantity, tx.Position, tx.Value())
	case ledger.Dividend:
		return fmt.Sprintf("Dividend of %s for position %d", tx.Value(), tx.Position)
	case ledger.CashSettlement:
		return fmt.Sprintf("Cash settlement of %s for position %d", tx.Value(), tx.Position)
	case ledger.Tax:
		return fmt.Sprintf("Paid %s in taxes", tx.Value())
	default:
		return string(tx.Type)
	}
}
