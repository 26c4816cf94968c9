package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/store"
	"github.com/google/subcommands"
)

type backupCmd struct {
	db string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "back the ledger and market files up into a database" }
func (*backupCmd) Usage() string {
	return `blg backup -db <file>

  Writes the ledger, the market data and the tax tables into a SQLite
  database. The portfolio snapshot in the database is replaced.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "ledger.db", "SQLite database file.")
}

func (c *backupCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	s, err := store.Open(c.db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %q: %v\n", c.db, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	if err := s.SavePortfolio(p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := s.SaveMarket(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving market data: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := s.SaveTaxTable(ledger.DefaultTaxTable()); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving tax tables: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Backed up portfolio %q into %q\n", p.ID(), c.db)
	return subcommands.ExitSuccess
}

type restoreCmd struct {
	db string
}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "restore the ledger and market files from a database" }
func (*restoreCmd) Usage() string {
	return `blg restore -db <file>

  Reads the portfolio and the market data back from a SQLite database
  and rewrites the ledger and market files.
`
}

func (c *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "ledger.db", "SQLite database file.")
}

func (c *restoreCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := store.Open(c.db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %q: %v\n", c.db, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	p, err := s.LoadPortfolio(*portfolioID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio %q: %v\n", *portfolioID, err)
		return subcommands.ExitFailure
	}
	m, err := s.LoadMarket()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading market data: %v\n", err)
		return subcommands.ExitFailure
	}

	out, err := os.Create(*ledgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing ledger file %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	for _, tx := range p.Transactions(ledger.AcceptAll) {
		if err := ledger.EncodeTransaction(out, tx); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing ledger file %q: %v\n", *ledgerFile, err)
			return subcommands.ExitFailure
		}
	}
	if err := EncodeMarket(m); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Restored portfolio %q from %q\n", *portfolioID, c.db)
	return subcommands.ExitSuccess
}
