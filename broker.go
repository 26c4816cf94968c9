package ledger

import (
	"fmt"
	"sort"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// Broker manages portfolios and executes trade intents against market data.
// Orders fill at the bar's closing price. On each simulated day, Update pays
// dividends and settles stock splits for every open position; at year end,
// ApplyTaxes sweeps the year's taxable income into one TAX transaction per
// portfolio.
//
// The ledger is append-only, so a split never rewrites a position's recorded
// entry. Instead the broker tracks the post-split share count separately and
// uses it for later dividends and for the closing sale.
type Broker struct {
	market     *Market
	taxes      *TaxTable
	today      date.Date
	portfolios map[string]*Portfolio
	// effective share counts for split-adjusted positions, keyed by
	// portfolio id then position id
	shares map[string]map[int64]int64
}

// NewBroker creates a broker over the given market and tax table.
func NewBroker(market *Market, taxes *TaxTable) *Broker {
	return &Broker{
		market:     market,
		taxes:      taxes,
		portfolios: make(map[string]*Portfolio),
		shares:     make(map[string]map[int64]int64),
	}
}

// CreatePortfolio registers a new portfolio, seeded with an initial deposit
// when the amount is positive.
func (b *Broker) CreatePortfolio(owner string, day date.Date, initial Money) (*Portfolio, error) {
	p := NewPortfolio(owner)
	if initial.IsNegative() {
		return nil, fmt.Errorf("%w: initial deposit %s", ErrInvalidAmount, initial)
	}
	if initial.IsPositive() {
		if _, err := p.Deposit(day, initial); err != nil {
			return nil, err
		}
	}
	b.portfolios[p.ID()] = p
	return p, nil
}

// AddPortfolio registers an existing (e.g. restored) portfolio.
func (b *Broker) AddPortfolio(p *Portfolio) {
	b.portfolios[p.ID()] = p
}

// Portfolio returns a registered portfolio by id.
func (b *Broker) Portfolio(id string) (*Portfolio, bool) {
	p, ok := b.portfolios[id]
	return p, ok
}

// Portfolios returns all registered portfolios, ordered by id.
func (b *Broker) Portfolios() []*Portfolio {
	all := make([]*Portfolio, 0, len(b.portfolios))
	for _, p := range b.portfolios {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return all
}

// Today returns the last day passed to Update.
func (b *Broker) Today() date.Date { return b.today }

// ExecuteBuy opens a position of quantity shares, filled at the day's closing
// price. It fails when the market has no bar for the ticker that day.
func (b *Broker) ExecuteBuy(portfolioID, ticker string, quantity int64, day date.Date) (Transaction, error) {
	p, ok := b.portfolios[portfolioID]
	if !ok {
		return Transaction{}, fmt.Errorf("unknown portfolio %q", portfolioID)
	}
	price, ok := b.market.ClosePrice(ticker, day)
	if !ok {
		return Transaction{}, fmt.Errorf("no market data for %s on %s", ticker, day)
	}
	return p.Buy(day, ticker, quantity, price)
}

// ClosePosition sells the position's full effective share count at the day's
// closing price.
func (b *Broker) ClosePosition(portfolioID string, positionID int64, day date.Date) (Transaction, error) {
	p, ok := b.portfolios[portfolioID]
	if !ok {
		return Transaction{}, fmt.Errorf("unknown portfolio %q", portfolioID)
	}
	pos, err := p.Position(positionID)
	if err != nil {
		return Transaction{}, err
	}
	price, ok := b.market.ClosePrice(pos.Ticker, day)
	if !ok {
		return Transaction{}, fmt.Errorf("no market data for %s on %s", pos.Ticker, day)
	}
	tx, err := p.Sell(day, positionID, b.effectiveQuantity(portfolioID, pos), price)
	if err != nil {
		return Transaction{}, err
	}
	delete(b.shares[portfolioID], positionID)
	return tx, nil
}

// effectiveQuantity is the position's share count after any splits.
func (b *Broker) effectiveQuantity(portfolioID string, pos Position) int64 {
	if qty, ok := b.shares[portfolioID][pos.ID]; ok {
		return qty
	}
	return pos.EntryQuantity
}

// Update advances the broker to day and processes that day's corporate
// actions: a dividend is credited per open position of the ticker, and a
// split converts the share count, paying the fractional remainder in cash at
// the post-split open price. A split that leaves no whole share closes the
// position.
func (b *Broker) Update(day date.Date) error {
	b.today = day
	for bar := range b.market.BarsOn(day) {
		if !bar.Dividend.IsPositive() && !bar.HasSplit() {
			continue
		}
		for _, p := range b.Portfolios() {
			for _, pos := range p.OpenPositions() {
				if pos.Ticker != bar.Ticker {
					continue
				}
				if err := b.applyAction(p, pos, bar); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *Broker) applyAction(p *Portfolio, pos Position, bar DailyBar) error {
	qty := b.effectiveQuantity(p.ID(), pos)

	if bar.Dividend.IsPositive() {
		_, err := p.RecordDividend(bar.Day, pos.ID, qty, bar.Dividend)
		return err
	}

	// split: qty x ratio whole shares kept, fractional remainder cashed out
	converted := bar.SplitRatio().Mul(decimal.NewFromInt(qty))
	whole := converted.Floor()
	fractional := converted.Sub(whole)

	if fractional.IsPositive() {
		settlement := bar.Open.MulDecimal(fractional)
		if settlement.IsPositive() {
			if _, err := p.RecordCashSettlement(bar.Day, pos.ID, settlement); err != nil {
				return err
			}
		}
	}

	if whole.IsZero() {
		// reverse split wiped the position out
		if _, err := p.Sell(bar.Day, pos.ID, 0, bar.Open); err != nil {
			return err
		}
		delete(b.shares[p.ID()], pos.ID)
		return nil
	}

	if b.shares[p.ID()] == nil {
		b.shares[p.ID()] = make(map[int64]int64)
	}
	b.shares[p.ID()][pos.ID] = whole.IntPart()
	return nil
}

// ApplyTaxes computes each portfolio's tax for the given year and appends one
// TAX transaction dated December 31 when something is owed. Trade gains of
// positions closed during the year go through the capital-gains schedule;
// dividends and cash settlements received during the year go through the
// ordinary schedule. Net losses owe nothing.
func (b *Broker) ApplyTaxes(year int) (Money, error) {
	var total Money
	yearRange := date.NewRange(date.New(year, 1, 1), date.New(year, 12, 31))

	for _, p := range b.Portfolios() {
		owed, err := b.taxFor(p, year, yearRange)
		if err != nil {
			return total, err
		}
		if !owed.IsPositive() {
			continue
		}
		if _, err := p.ApplyTax(date.New(year, 12, 31), owed); err != nil {
			return total, err
		}
		total = total.Add(owed)
	}
	return total, nil
}

func (b *Broker) taxFor(p *Portfolio, year int, yearRange date.Range) (Money, error) {
	var gains, income Money

	for _, pos := range p.ClosedPositions() {
		if pos.Closed.Year() != year {
			continue
		}
		gains = gains.Add(pos.ExitValue().Sub(pos.EntryValue()))
	}
	for _, tx := range p.Transactions(ByRange(yearRange)) {
		switch tx.Type {
		case Dividend, CashSettlement:
			income = income.Add(tx.Value())
		}
	}

	gainsTax, err := b.taxes.TaxOwed(CapitalGains, year, gains)
	if err != nil {
		return Money{}, err
	}
	incomeTax, err := b.taxes.TaxOwed(OrdinaryIncome, year, income)
	if err != nil {
		return Money{}, err
	}
	return gainsTax.Add(incomeTax), nil
}
