// Package cmd implements the CLI application to manage a portfolio ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package calls Register(), then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&depositCmd{}, "transactions")
	c.Register(&withdrawCmd{}, "transactions")
	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&settleCmd{}, "transactions")
	c.Register(&taxCmd{}, "transactions")

	c.Register(&txCmd{}, "reports")
	c.Register(&positionsCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")

	c.Register(&fmtCmd{}, "ledger")
	c.Register(&importCmd{}, "market")

	c.Register(&backupCmd{}, "database")
	c.Register(&restoreCmd{}, "database")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to
// use global variables.

var ledgerFile = flag.String("ledger-file", "transactions.jsonl", "Path to the ledger file (JSONL format)")
var marketFile = flag.String("market-file", "market.jsonl", "Path to the market data file (JSONL format)")
var portfolioID = flag.String("portfolio", "main", "Portfolio id the ledger file belongs to")
var owner = flag.String("owner", "", "Portfolio owner label, used in reports")

// DecodePortfolio loads the app ledger file into a portfolio. A missing file
// yields an empty portfolio.
func DecodePortfolio() (*ledger.Portfolio, error) {
	f, err := os.Open(*ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.NewPortfolioWithID(*portfolioID, *owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()

	l, err := ledger.DecodeLedger(f, *portfolioID)
	if err != nil {
		return nil, fmt.Errorf("read ledger file %q: %w", *ledgerFile, err)
	}
	var records []ledger.Transaction
	for tx := range l.Transactions(ledger.AcceptAll) {
		records = append(records, tx)
	}
	return ledger.RestorePortfolio(*portfolioID, *owner, records)
}

// DecodeMarket loads the app market file. A missing file yields an empty
// market.
func DecodeMarket() (*ledger.Market, error) {
	f, err := os.Open(*marketFile)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.NewMarket(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open market file %q: %w", *marketFile, err)
	}
	defer f.Close()

	m, err := ledger.DecodeMarket(f)
	if err != nil {
		return nil, fmt.Errorf("read market file %q: %w", *marketFile, err)
	}
	return m, nil
}

// EncodeMarket rewrites the app market file.
func EncodeMarket(m *ledger.Market) error {
	f, err := os.Create(*marketFile)
	if err != nil {
		return fmt.Errorf("write market file %q: %w", *marketFile, err)
	}
	defer f.Close()
	return ledger.EncodeMarket(f, m)
}

// AppendTransaction appends a single recorded transaction to the app ledger
// file.
func AppendTransaction(tx ledger.Transaction) subcommands.ExitStatus {
	f, err := os.OpenFile(*ledgerFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger file %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := ledger.EncodeTransaction(f, tx); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to ledger file %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded: %s\n", tx.Type)
	return subcommands.ExitSuccess
}

// parseDay parses a -d flag value; empty means "let the ledger pick".
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when rendering fails.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
