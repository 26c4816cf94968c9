package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/etnz/ledger/renderer"
	"github.com/google/subcommands"
)

type txCmd struct {
	start string
	end   string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions in the ledger" }
func (*txCmd) Usage() string {
	return `blg tx [-s <start_date>] [-e <end_date>]

  Lists transactions from the ledger, optionally restricted to a date range.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "Start date of the range (YYYY-MM-DD).")
	f.StringVar(&c.end, "e", "", "End date of the range (YYYY-MM-DD).")
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, err := parseDay(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		return subcommands.ExitUsageError
	}
	end, err := parseDay(c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	accept := ledger.Filter(ledger.AcceptAll)
	if !start.IsZero() || !end.IsZero() {
		accept = ledger.ByRange(date.NewRange(start, end))
	}
	printMarkdown(renderer.Transactions(p.Transactions(accept)))
	return subcommands.ExitSuccess
}

type positionsCmd struct {
	all    bool
	closed bool
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list positions" }
func (*positionsCmd) Usage() string {
	return `blg positions [-all | -closed]

  Lists the open positions. Use -closed for the closed ones, -all for both.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "List open and closed positions.")
	f.BoolVar(&c.closed, "closed", false, "List closed positions only.")
}

func (c *positionsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	switch {
	case c.all:
		printMarkdown(renderer.Positions("Positions", p.Positions()))
	case c.closed:
		printMarkdown(renderer.Positions("Closed Positions", p.ClosedPositions()))
	default:
		printMarkdown(renderer.Positions("Open Positions", p.OpenPositions()))
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	date string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the portfolio summary" }
func (*summaryCmd) Usage() string {
	return `blg summary [-d <date>]

  Values the portfolio as of the given date (today by default), marking
  open positions to the closing prices found in the market file.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Valuation date (YYYY-MM-DD). Defaults to today.")
}

func (c *summaryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	if asOf.IsZero() {
		asOf = date.Today()
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	m, err := DecodeMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	summary, err := ledger.Summarize(p, asOf, ledger.QuotesOn(m, asOf))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.Summary(summary))
	return subcommands.ExitSuccess
}
