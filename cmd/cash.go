package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// recordCash validates and appends one cash transaction (deposit, withdrawal
// or tax) through the portfolio engine.
func recordCash(dayFlag, amountFlag string, record func(*ledger.Portfolio, date.Date, ledger.Money) (ledger.Transaction, error)) subcommands.ExitStatus {
	day, err := parseDay(dayFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	value, err := decimal.NewFromString(amountFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount %q: %v\n", amountFlag, err)
		return subcommands.ExitUsageError
	}

	p, err := DecodePortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tx, err := record(p, day, ledger.M(value))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return AppendTransaction(tx)
}

type depositCmd struct {
	date   string
	amount string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record a cash deposit" }
func (*depositCmd) Usage() string {
	return `blg deposit -a <amount> [-d <date>]

  Records a cash deposit into the portfolio.
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.StringVar(&c.amount, "a", "", "Amount to deposit.")
}

func (c *depositCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return recordCash(c.date, c.amount, (*ledger.Portfolio).Deposit)
}

type withdrawCmd struct {
	date   string
	amount string
}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "record a cash withdrawal" }
func (*withdrawCmd) Usage() string {
	return `blg withdraw -a <amount> [-d <date>]

  Records a cash withdrawal from the portfolio.
`
}

func (c *withdrawCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.StringVar(&c.amount, "a", "", "Amount to withdraw.")
}

func (c *withdrawCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return recordCash(c.date, c.amount, (*ledger.Portfolio).Withdraw)
}

type taxCmd struct {
	date   string
	amount string
}

func (*taxCmd) Name() string     { return "tax" }
func (*taxCmd) Synopsis() string { return "record a tax payment" }
func (*taxCmd) Usage() string {
	return `blg tax -a <amount> [-d <date>]

  Records a tax payment debited from the portfolio.
`
}

func (c *taxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to the ledger's last date.")
	f.StringVar(&c.amount, "a", "", "Tax amount.")
}

func (c *taxCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return recordCash(c.date, c.amount, (*ledger.Portfolio).ApplyTax)
}
