package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type importCmd struct {
	prices string
	macd   string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import Alpha Vantage documents into the market file" }
func (*importCmd) Usage() string {
	return `blg import -prices <file> [-macd <file>]

  Imports a TIME_SERIES_DAILY_ADJUSTED document, and optionally the
  matching MACD document, into the market file. Days already present
  are left untouched.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.prices, "prices", "", "Alpha Vantage daily prices JSON document.")
	f.StringVar(&c.macd, "macd", "", "Alpha Vantage MACD JSON document (optional).")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.prices == "" {
		fmt.Fprintln(os.Stderr, "Error: -prices is required")
		return subcommands.ExitUsageError
	}
	prices, err := os.Open(c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening prices file %q: %v\n", c.prices, err)
		return subcommands.ExitFailure
	}
	defer prices.Close()

	var macd io.Reader
	if c.macd != "" {
		file, err := os.Open(c.macd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening macd file %q: %v\n", c.macd, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		macd = file
	}

	m, err := DecodeMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	n, err := ledger.ImportAlphaVantage(m, prices, macd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", c.prices, err)
		return subcommands.ExitFailure
	}
	if err := EncodeMarket(m); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d bars into %q\n", n, *marketFile)
	return subcommands.ExitSuccess
}
