package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"sort"

	_ "embed"

	"github.com/shopspring/decimal"
)

// Schedule names one of the two progressive tax schedules.
type Schedule string

const (
	// OrdinaryIncome is the marginal income schedule, applied to dividends
	// and cash settlements.
	OrdinaryIncome Schedule = "ordinary"
	// CapitalGains is the schedule applied to realized gains.
	CapitalGains Schedule = "capital-gains"
)

// Bracket is one step of a progressive schedule: the rate applies to income
// above Threshold and below the next bracket's threshold.
type Bracket struct {
	Threshold Money
	Rate      decimal.Decimal
}

// BracketRow is the flat persisted form of one bracket, mirroring the
// historical tax-rate tables.
type BracketRow struct {
	Schedule  Schedule        `json:"schedule"`
	Year      int             `json:"year"`
	Threshold Money           `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// TaxTable holds, per schedule and tax year, an ascending sequence of
// brackets. Historical schedules are immutable data: the table is populated
// once (embedded dataset or store load) and then only read.
//
// Rates are exact decimals; the progressive sums below never touch floating
// point, so multi-decade simulated runs accumulate no rounding drift.
type TaxTable struct {
	schedules map[Schedule]map[int][]Bracket
}

// NewTaxTable creates an empty table.
func NewTaxTable() *TaxTable {
	return &TaxTable{schedules: make(map[Schedule]map[int][]Bracket)}
}

//go:embed tax_brackets.jsonl
var bracketData []byte

// DefaultTaxTable returns a table loaded with the embedded US single-filer
// schedules covering tax years 2000-2019, the span the engine's back-tests
// are valid for.
func DefaultTaxTable() *TaxTable {
	t, err := DecodeTaxTable(bytes.NewReader(bracketData))
	if err != nil {
		// the dataset ships with the binary; failing to parse it is a bug
		panic(fmt.Sprintf("embedded tax bracket data is invalid: %v", err))
	}
	return t
}

// DecodeTaxTable reads bracket rows in JSONL form.
func DecodeTaxTable(r *bytes.Reader) (*TaxTable, error) {
	t := NewTaxTable()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row BracketRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("invalid bracket row %q: %w", line, err)
		}
		if err := t.Add(row.Schedule, row.Year, Bracket{Threshold: row.Threshold, Rate: row.Rate}); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Add inserts one bracket, keeping the year's sequence ascending by
// threshold. Duplicate thresholds for the same schedule and year are
// rejected.
func (t *TaxTable) Add(s Schedule, year int, b Bracket) error {
	if s != OrdinaryIncome && s != CapitalGains {
		return fmt.Errorf("unknown tax schedule %q", s)
	}
	if b.Threshold.IsNegative() {
		return fmt.Errorf("%w: bracket threshold %s", ErrInvalidAmount, b.Threshold)
	}
	if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: bracket rate %s", ErrInvalidAmount, b.Rate)
	}
	years, ok := t.schedules[s]
	if !ok {
		years = make(map[int][]Bracket)
		t.schedules[s] = years
	}
	brackets := years[year]
	for _, existing := range brackets {
		if existing.Threshold.Equal(b.Threshold) {
			return fmt.Errorf("duplicate %s bracket threshold %s for year %d", s, b.Threshold, year)
		}
	}
	brackets = append(brackets, b)
	sort.Slice(brackets, func(i, j int) bool {
		return brackets[i].Threshold.LessThan(brackets[j].Threshold)
	})
	years[year] = brackets
	return nil
}

// Brackets returns the ascending bracket sequence for a schedule and year.
// A year with no entry fails with ErrNoBracketForYear: back-testing outside
// the covered span is invalid, so there is no nearest-year fallback.
func (t *TaxTable) Brackets(s Schedule, year int) ([]Bracket, error) {
	brackets := t.schedules[s][year]
	if len(brackets) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNoBracketForYear, s, year)
	}
	return brackets, nil
}

// MarginalRate returns the rate of the bracket the given income falls into.
func (t *TaxTable) MarginalRate(s Schedule, year int, income Money) (decimal.Decimal, error) {
	brackets, err := t.Brackets(s, year)
	if err != nil {
		return decimal.Decimal{}, err
	}
	rate := brackets[0].Rate
	for _, b := range brackets {
		if income.LessThan(b.Threshold) {
			break
		}
		rate = b.Rate
	}
	return rate, nil
}

// TaxOwed applies the standard progressive formula: income above each
// threshold and below the next is taxed at that bracket's rate, summed across
// all brackets reached. Non-positive income owes nothing.
func (t *TaxTable) TaxOwed(s Schedule, year int, income Money) (Money, error) {
	brackets, err := t.Brackets(s, year)
	if err != nil {
		return Money{}, err
	}
	if !income.IsPositive() {
		return Money{}, nil
	}

	var owed Money
	for i, b := range brackets {
		if income.LessThanOrEqual(b.Threshold) {
			break
		}
		upper := income
		if i+1 < len(brackets) && brackets[i+1].Threshold.LessThan(income) {
			upper = brackets[i+1].Threshold
		}
		owed = owed.Add(upper.Sub(b.Threshold).MulDecimal(b.Rate))
	}
	return owed, nil
}

// Years returns the covered tax years of a schedule, ascending.
func (t *TaxTable) Years(s Schedule) []int {
	years := make([]int, 0, len(t.schedules[s]))
	for y := range t.schedules[s] {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Rows iterates every bracket as a flat row, ordered by schedule, year, and
// threshold, for persistence.
func (t *TaxTable) Rows() iter.Seq[BracketRow] {
	return func(yield func(BracketRow) bool) {
		for _, s := range []Schedule{OrdinaryIncome, CapitalGains} {
			for _, year := range t.Years(s) {
				for _, b := range t.schedules[s][year] {
					row := BracketRow{Schedule: s, Year: year, Threshold: b.Threshold, Rate: b.Rate}
					if !yield(row) {
						return
					}
				}
			}
		}
	}
}
