package ledger

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// MACDReading is the moving average convergence divergence indicator computed
// for one trading day.
type MACDReading struct {
	MACD      decimal.Decimal `json:"macd"`
	Signal    decimal.Decimal `json:"signal"`
	Histogram decimal.Decimal `json:"hist"`
}

// DailyBar is one trading day of one security: prices, volume, and the
// corporate actions (dividend, split) effective that day.
type DailyBar struct {
	Ticker string
	Day    date.Date

	Open          Money
	High          Money
	Low           Money
	Close         Money
	AdjustedClose Money
	Volume        int64

	// Dividend is the per-share cash dividend paid that day, zero otherwise.
	Dividend Money
	// SplitCoefficient is the split ratio effective that day. Zero or one
	// means no split.
	SplitCoefficient decimal.Decimal

	// MACD is present only when indicator data was imported for the day.
	MACD *MACDReading
}

// SplitRatio returns the effective split ratio, normalizing the unset zero
// value to one.
func (b DailyBar) SplitRatio() decimal.Decimal {
	if b.SplitCoefficient.IsZero() {
		return decimal.NewFromInt(1)
	}
	return b.SplitCoefficient
}

// HasSplit reports whether a split takes effect on this bar's day.
func (b DailyBar) HasSplit() bool {
	return !b.SplitCoefficient.IsZero() && !b.SplitCoefficient.Equal(decimal.NewFromInt(1))
}

// MarshalJSON encodes the bar with a stable field order for JSONL files.
func (b DailyBar) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ticker", b.Ticker)
	w.Append("date", b.Day)
	w.Append("open", b.Open)
	w.Append("high", b.High)
	w.Append("low", b.Low)
	w.Append("close", b.Close)
	w.Append("adjusted_close", b.AdjustedClose)
	w.Append("volume", b.Volume)
	w.Optional("dividend", b.Dividend)
	w.Optional("split_coefficient", b.SplitCoefficient)
	w.Optional("macd", b.MACD)
	return w.MarshalJSON()
}

// UnmarshalJSON decodes a bar from its JSONL form.
func (b *DailyBar) UnmarshalJSON(data []byte) error {
	var temp struct {
		Ticker           string          `json:"ticker"`
		Day              date.Date       `json:"date"`
		Open             Money           `json:"open"`
		High             Money           `json:"high"`
		Low              Money           `json:"low"`
		Close            Money           `json:"close"`
		AdjustedClose    Money           `json:"adjusted_close"`
		Volume           int64           `json:"volume"`
		Dividend         Money           `json:"dividend"`
		SplitCoefficient decimal.Decimal `json:"split_coefficient"`
		MACD             *MACDReading    `json:"macd"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*b = DailyBar{
		Ticker:           temp.Ticker,
		Day:              temp.Day,
		Open:             temp.Open,
		High:             temp.High,
		Low:              temp.Low,
		Close:            temp.Close,
		AdjustedClose:    temp.AdjustedClose,
		Volume:           temp.Volume,
		Dividend:         temp.Dividend,
		SplitCoefficient: temp.SplitCoefficient,
		MACD:             temp.MACD,
	}
	return nil
}

// Market is an in-memory collection of daily bars, keyed by ticker and day.
// It is the price source for mark-to-market reports and for broker-driven
// simulations.
//
// A Market is not safe for concurrent mutation; imports happen before
// simulations read it.
type Market struct {
	bars map[string]map[date.Date]DailyBar
}

// NewMarket creates an empty market.
func NewMarket() *Market {
	return &Market{bars: make(map[string]map[date.Date]DailyBar)}
}

// Append adds one bar. It reports false when a bar for the same ticker and
// day already exists, leaving the existing bar in place, so re-importing an
// overlapping feed is harmless.
func (m *Market) Append(b DailyBar) (bool, error) {
	if b.Ticker == "" || len(b.Ticker) > MaxTickerLen {
		return false, fmt.Errorf("%w: %q", ErrInvalidTicker, b.Ticker)
	}
	if b.Day.IsZero() {
		return false, fmt.Errorf("bar for %s has no date", b.Ticker)
	}
	days, ok := m.bars[b.Ticker]
	if !ok {
		days = make(map[date.Date]DailyBar)
		m.bars[b.Ticker] = days
	}
	if _, exists := days[b.Day]; exists {
		return false, nil
	}
	days[b.Day] = b
	return true, nil
}

// Get returns the bar for a ticker on a day.
func (m *Market) Get(ticker string, day date.Date) (DailyBar, bool) {
	b, ok := m.bars[ticker][day]
	return b, ok
}

// ClosePrice returns the closing price for a ticker on a day.
func (m *Market) ClosePrice(ticker string, day date.Date) (Money, bool) {
	b, ok := m.bars[ticker][day]
	return b.Close, ok
}

// Len returns the total number of bars.
func (m *Market) Len() int {
	n := 0
	for _, days := range m.bars {
		n += len(days)
	}
	return n
}

// Tickers returns all known tickers, sorted.
func (m *Market) Tickers() []string {
	tickers := make([]string, 0, len(m.bars))
	for t := range m.bars {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Days iterates a ticker's trading days in ascending order.
func (m *Market) Days(ticker string) iter.Seq[date.Date] {
	days := make([]date.Date, 0, len(m.bars[ticker]))
	for d := range m.bars[ticker] {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return func(yield func(date.Date) bool) {
		for _, d := range days {
			if !yield(d) {
				return
			}
		}
	}
}

// BarsOn iterates every ticker's bar for one day, ordered by ticker. Tickers
// without a bar that day are skipped.
func (m *Market) BarsOn(day date.Date) iter.Seq[DailyBar] {
	return func(yield func(DailyBar) bool) {
		for _, t := range m.Tickers() {
			if b, ok := m.bars[t][day]; ok {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// Bars iterates every bar, ordered by ticker then day.
func (m *Market) Bars() iter.Seq[DailyBar] {
	return func(yield func(DailyBar) bool) {
		for _, t := range m.Tickers() {
			for d := range m.Days(t) {
				if !yield(m.bars[t][d]) {
					return
				}
			}
		}
	}
}
