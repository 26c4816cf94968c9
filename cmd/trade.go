package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type buyCmd struct {
	date     string
	ticker   string
	quantity int64
	price    string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase, opening a new position" }
func (*buyCmd) Usage() string {
	return `blg buy -t <ticker> -q <quantity> -p <price> [-d <date>]

  Records the purchase of quantity shares at the given per-share price.
  A buy always opens a new position; its id is printed on success.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.StringVar(&c.ticker, "t", "", "Ticker symbol.")
	f.Int64Var(&c.quantity, "q", 0, "Number of shares.")
	f.StringVar(&c.price, "p", "", "Per-share price.")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price %q: %v\n", c.price, err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tx, err := p.Buy(day, c.ticker, c.quantity, ledger.M(price))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if status := AppendTransaction(tx); status != subcommands.ExitSuccess {
		return status
	}
	fmt.Printf("Opened position %d\n", tx.Position)
	return subcommands.ExitSuccess
}

type sellCmd struct {
	date     string
	position int64
	quantity int64
	price    string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale, closing a position" }
func (*sellCmd) Usage() string {
	return `blg sell -pos <position> -q <quantity> -p <price> [-d <date>]

  Records the sale of quantity shares at the given per-share price,
  closing the referenced position. A position closes exactly once.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.Int64Var(&c.position, "pos", 0, "Position id to close.")
	f.Int64Var(&c.quantity, "q", 0, "Number of shares sold.")
	f.StringVar(&c.price, "p", "", "Per-share price.")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price %q: %v\n", c.price, err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tx, err := p.Sell(day, c.position, c.quantity, ledger.M(price))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return AppendTransaction(tx)
}

type dividendCmd struct {
	date     string
	position int64
	quantity int64
	perShare string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment for a position" }
func (*dividendCmd) Usage() string {
	return `blg dividend -pos <position> -q <quantity> -p <per-share amount> [-d <date>]

  Credits a per-share dividend for the referenced position.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.Int64Var(&c.position, "pos", 0, "Position id the dividend belongs to.")
	f.Int64Var(&c.quantity, "q", 0, "Number of shares paying the dividend.")
	f.StringVar(&c.perShare, "p", "", "Per-share dividend amount.")
}

func (c *dividendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	perShare, err := decimal.NewFromString(c.perShare)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount %q: %v\n", c.perShare, err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tx, err := p.RecordDividend(day, c.position, c.quantity, ledger.M(perShare))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return AppendTransaction(tx)
}

type settleCmd struct {
	date     string
	position int64
	amount   string
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "record a cash settlement for a position" }
func (*settleCmd) Usage() string {
	return `blg settle -pos <position> -a <amount> [-d <date>]

  Credits a cash settlement (e.g. fractional shares paid out after a
  split) for the referenced position.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.Int64Var(&c.position, "pos", 0, "Position id the settlement belongs to.")
	f.StringVar(&c.amount, "a", "", "Settlement amount.")
}

func (c *settleCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount %q: %v\n", c.amount, err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tx, err := p.RecordCashSettlement(day, c.position, ledger.M(amount))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return AppendTransaction(tx)
}
