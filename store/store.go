// Package store persists portfolios, market data and tax schedules in a
// SQLite database. The transaction log is the source of truth: loading a
// portfolio replays its recorded transactions, and the position table is a
// derived mirror kept for ad-hoc SQL queries only.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// Monetary amounts are stored as TEXT so decimals survive round trips
// exactly.
const schema = `
CREATE TABLE IF NOT EXISTS portfolio (
    id    TEXT PRIMARY KEY,
    owner TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transaction_type (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS transactions (
    portfolio_id TEXT    NOT NULL REFERENCES portfolio (id) ON DELETE CASCADE,
    tx_id        INTEGER NOT NULL,
    type         TEXT    NOT NULL REFERENCES transaction_type (name),
    position_id  INTEGER,
    ticker       TEXT,
    quantity     INTEGER NOT NULL,
    price        TEXT    NOT NULL,
    date         TEXT    NOT NULL,
    PRIMARY KEY (portfolio_id, tx_id)
);

CREATE TABLE IF NOT EXISTS position (
    portfolio_id   TEXT    NOT NULL REFERENCES portfolio (id) ON DELETE CASCADE,
    position_id    INTEGER NOT NULL,
    ticker         TEXT    NOT NULL,
    opened         TEXT    NOT NULL,
    closed         TEXT,
    entry_quantity INTEGER NOT NULL,
    entry_price    TEXT    NOT NULL,
    exit_quantity  INTEGER,
    exit_price     TEXT,
    PRIMARY KEY (portfolio_id, position_id)
);

CREATE TABLE IF NOT EXISTS daily_stock_data (
    ticker            TEXT    NOT NULL,
    datetime          TEXT    NOT NULL,
    open              TEXT    NOT NULL,
    high              TEXT    NOT NULL,
    low               TEXT    NOT NULL,
    close             TEXT    NOT NULL,
    adjusted_close    TEXT    NOT NULL,
    volume            INTEGER NOT NULL,
    dividend_amount   TEXT    NOT NULL,
    split_coefficient TEXT    NOT NULL,
    macd              TEXT,
    macd_signal       TEXT,
    macd_hist         TEXT,
    PRIMARY KEY (ticker, datetime)
);

CREATE TABLE IF NOT EXISTS historical_marginal_tax_rates (
    year      INTEGER NOT NULL,
    threshold TEXT    NOT NULL,
    rate      TEXT    NOT NULL,
    PRIMARY KEY (year, threshold)
);

CREATE TABLE IF NOT EXISTS historical_capital_gains_tax_rates (
    year      INTEGER NOT NULL,
    threshold TEXT    NOT NULL,
    rate      TEXT    NOT NULL,
    PRIMARY KEY (year, threshold)
);
`

// Store is a SQLite-backed persistence layer. It is safe for use from
// multiple goroutines; SQLite serializes the writes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// A "file:...?mode=memory" path yields an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path + "?"
	if strings.Contains(path, "?") {
		dsn = path + "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &Store{db: db}
	if err := s.seedTransactionTypes(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) seedTransactionTypes() error {
	for _, t := range ledger.TransactionTypes {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO transaction_type (name) VALUES (?)`, string(t)); err != nil {
			return fmt.Errorf("seed transaction type %s: %w", t, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SavePortfolio writes the portfolio, its full transaction log, and the
// derived position mirror, replacing any previous snapshot atomically.
func (s *Store) SavePortfolio(p *ledger.Portfolio) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO portfolio (id, owner) VALUES (?, ?)`, p.ID(), p.Owner()); err != nil {
			return fmt.Errorf("save portfolio %s: %w", p.ID(), err)
		}
		if _, err := tx.Exec(`DELETE FROM transactions WHERE portfolio_id = ?`, p.ID()); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM position WHERE portfolio_id = ?`, p.ID()); err != nil {
			return err
		}

		for _, t := range p.Transactions(ledger.AcceptAll) {
			_, err := tx.Exec(`
				INSERT INTO transactions (portfolio_id, tx_id, type, position_id, ticker, quantity, price, date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID(), t.ID, string(t.Type), nullInt(t.Position), nullString(t.Ticker),
				t.Quantity, t.Price.Decimal().String(), t.Date.String())
			if err != nil {
				return fmt.Errorf("save transaction %d: %w", t.ID, err)
			}
		}

		for _, pos := range p.Positions() {
			var closed, exitQty, exitPrice interface{}
			if pos.IsClosed() {
				closed = pos.Closed.String()
				exitQty = pos.ExitQuantity
				exitPrice = pos.ExitPrice.Decimal().String()
			}
			_, err := tx.Exec(`
				INSERT INTO position (portfolio_id, position_id, ticker, opened, closed, entry_quantity, entry_price, exit_quantity, exit_price)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID(), pos.ID, pos.Ticker, pos.Opened.String(), closed,
				pos.EntryQuantity, pos.EntryPrice.Decimal().String(), exitQty, exitPrice)
			if err != nil {
				return fmt.Errorf("save position %d: %w", pos.ID, err)
			}
		}
		return nil
	})
}

// LoadPortfolio reads the transaction log and replays it into a portfolio.
func (s *Store) LoadPortfolio(id string) (*ledger.Portfolio, error) {
	var owner string
	err := s.db.QueryRow(`SELECT owner FROM portfolio WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("portfolio %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT tx_id, type, position_id, ticker, quantity, price, date
		FROM transactions WHERE portfolio_id = ? ORDER BY tx_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.Transaction
	for rows.Next() {
		var (
			t        ledger.Transaction
			typeName string
			position sql.NullInt64
			ticker   sql.NullString
			price    string
			dateStr  string
		)
		if err := rows.Scan(&t.ID, &typeName, &position, &ticker, &t.Quantity, &price, &dateStr); err != nil {
			return nil, err
		}
		t.Type = ledger.TransactionType(typeName)
		t.Position = position.Int64
		t.Ticker = ticker.String
		value, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("transaction %d has bad price %q: %w", t.ID, price, err)
		}
		t.Price = ledger.M(value)
		if t.Date, err = date.Parse(dateStr); err != nil {
			return nil, fmt.Errorf("transaction %d has bad date %q: %w", t.ID, dateStr, err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ledger.RestorePortfolio(id, owner, records)
}

// Portfolios lists the stored portfolio ids with their owners.
func (s *Store) Portfolios() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT id, owner FROM portfolio ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make(map[string]string)
	for rows.Next() {
		var id, owner string
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, err
		}
		owners[id] = owner
	}
	return owners, rows.Err()
}

// DeletePortfolio removes the portfolio; its transactions and positions go
// with it through the foreign key cascade.
func (s *Store) DeletePortfolio(id string) error {
	_, err := s.db.Exec(`DELETE FROM portfolio WHERE id = ?`, id)
	return err
}

// SaveMarket inserts every bar, silently keeping existing rows: re-saving an
// overlapping market is harmless.
func (s *Store) SaveMarket(m *ledger.Market) error {
	return s.withTx(func(tx *sql.Tx) error {
		for b := range m.Bars() {
			var macd, signal, hist interface{}
			if b.MACD != nil {
				macd = b.MACD.MACD.String()
				signal = b.MACD.Signal.String()
				hist = b.MACD.Histogram.String()
			}
			_, err := tx.Exec(`
				INSERT OR IGNORE INTO daily_stock_data
				    (ticker, datetime, open, high, low, close, adjusted_close, volume,
				     dividend_amount, split_coefficient, macd, macd_signal, macd_hist)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				b.Ticker, b.Day.String(),
				b.Open.Decimal().String(), b.High.Decimal().String(), b.Low.Decimal().String(),
				b.Close.Decimal().String(), b.AdjustedClose.Decimal().String(), b.Volume,
				b.Dividend.Decimal().String(), b.SplitRatio().String(), macd, signal, hist)
			if err != nil {
				return fmt.Errorf("save bar %s %s: %w", b.Ticker, b.Day, err)
			}
		}
		return nil
	})
}

// LoadMarket reads every stored bar into a market.
func (s *Store) LoadMarket() (*ledger.Market, error) {
	rows, err := s.db.Query(`
		SELECT ticker, datetime, open, high, low, close, adjusted_close, volume,
		       dividend_amount, split_coefficient, macd, macd_signal, macd_hist
		FROM daily_stock_data`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := ledger.NewMarket()
	for rows.Next() {
		var (
			b                        ledger.DailyBar
			dateStr                  string
			open, high, low, closing string
			adjusted, dividend       string
			split                    string
			macd, signal, hist       sql.NullString
		)
		err := rows.Scan(&b.Ticker, &dateStr, &open, &high, &low, &closing, &adjusted,
			&b.Volume, &dividend, &split, &macd, &signal, &hist)
		if err != nil {
			return nil, err
		}
		if b.Day, err = date.Parse(dateStr); err != nil {
			return nil, fmt.Errorf("bar %s has bad date %q: %w", b.Ticker, dateStr, err)
		}
		for _, f := range []struct {
			src string
			dst *ledger.Money
		}{
			{open, &b.Open}, {high, &b.High}, {low, &b.Low},
			{closing, &b.Close}, {adjusted, &b.AdjustedClose}, {dividend, &b.Dividend},
		} {
			value, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("bar %s %s has bad amount %q: %w", b.Ticker, b.Day, f.src, err)
			}
			*f.dst = ledger.M(value)
		}
		if b.SplitCoefficient, err = decimal.NewFromString(split); err != nil {
			return nil, fmt.Errorf("bar %s %s has bad split %q: %w", b.Ticker, b.Day, split, err)
		}
		if macd.Valid && signal.Valid && hist.Valid {
			reading := &ledger.MACDReading{}
			if reading.MACD, err = decimal.NewFromString(macd.String); err != nil {
				return nil, err
			}
			if reading.Signal, err = decimal.NewFromString(signal.String); err != nil {
				return nil, err
			}
			if reading.Histogram, err = decimal.NewFromString(hist.String); err != nil {
				return nil, err
			}
			b.MACD = reading
		}
		if _, err := m.Append(b); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func rateTable(s ledger.Schedule) string {
	if s == ledger.CapitalGains {
		return "historical_capital_gains_tax_rates"
	}
	return "historical_marginal_tax_rates"
}

// SaveTaxTable writes every bracket into the two historical rate tables.
func (s *Store) SaveTaxTable(t *ledger.TaxTable) error {
	return s.withTx(func(tx *sql.Tx) error {
		for row := range t.Rows() {
			_, err := tx.Exec(
				`INSERT OR REPLACE INTO `+rateTable(row.Schedule)+` (year, threshold, rate) VALUES (?, ?, ?)`,
				row.Year, row.Threshold.Decimal().String(), row.Rate.String())
			if err != nil {
				return fmt.Errorf("save %s bracket %d/%s: %w", row.Schedule, row.Year, row.Threshold, err)
			}
		}
		return nil
	})
}

// LoadTaxTable reads both historical rate tables into a tax table.
func (s *Store) LoadTaxTable() (*ledger.TaxTable, error) {
	t := ledger.NewTaxTable()
	for _, schedule := range []ledger.Schedule{ledger.OrdinaryIncome, ledger.CapitalGains} {
		rows, err := s.db.Query(`SELECT year, threshold, rate FROM ` + rateTable(schedule))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				year            int
				threshold, rate string
			)
			if err := rows.Scan(&year, &threshold, &rate); err != nil {
				rows.Close()
				return nil, err
			}
			thresholdValue, err := decimal.NewFromString(threshold)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("%s %d has bad threshold %q: %w", schedule, year, threshold, err)
			}
			rateValue, err := decimal.NewFromString(rate)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("%s %d has bad rate %q: %w", schedule, year, rate, err)
			}
			bracket := ledger.Bracket{Threshold: ledger.M(thresholdValue), Rate: rateValue}
			if err := t.Add(schedule, year, bracket); err != nil {
				rows.Close()
				return nil, err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return t, nil
}

func nullInt(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
