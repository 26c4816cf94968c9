package ledger

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// ImportAlphaVantage reads an Alpha Vantage daily-adjusted price document and
// appends one bar per trading day to the market. When macd is non-nil, the
// matching MACD document is joined by date and attached to each bar.
//
// Days already present in the market are skipped. Returns the number of bars
// actually appended.
func ImportAlphaVantage(m *Market, prices io.Reader, macd io.Reader) (int, error) {
	var priceDoc interface{}
	if err := json.NewDecoder(prices).Decode(&priceDoc); err != nil {
		return 0, fmt.Errorf("invalid price document: %w", err)
	}

	symbol, err := jsonpath.Get(`$["Meta Data"]["2. Symbol"]`, priceDoc)
	if err != nil {
		return 0, fmt.Errorf("price document has no symbol: %w", err)
	}
	ticker, ok := symbol.(string)
	if !ok || ticker == "" {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTicker, symbol)
	}

	series, err := jsonpath.Get(`$["Time Series (Daily)"]`, priceDoc)
	if err != nil {
		return 0, fmt.Errorf("price document has no daily series: %w", err)
	}
	days, ok := series.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected daily series shape %T", series)
	}

	indicators, err := readMACDDocument(macd)
	if err != nil {
		return 0, err
	}

	appended := 0
	for key, raw := range days {
		day, err := date.Parse(key)
		if err != nil {
			return appended, fmt.Errorf("bad series date %q: %w", key, err)
		}
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return appended, fmt.Errorf("unexpected entry shape for %s: %T", key, raw)
		}
		bar := DailyBar{Ticker: ticker, Day: day, MACD: indicators[key]}
		if err := fillBar(&bar, fields); err != nil {
			return appended, fmt.Errorf("bad entry for %s: %w", key, err)
		}
		ok, err = m.Append(bar)
		if err != nil {
			return appended, err
		}
		if ok {
			appended++
		}
	}
	return appended, nil
}

func fillBar(bar *DailyBar, fields map[string]interface{}) error {
	for key, dst := range map[string]*Money{
		"1. open":            &bar.Open,
		"2. high":            &bar.High,
		"3. low":             &bar.Low,
		"4. close":           &bar.Close,
		"5. adjusted close":  &bar.AdjustedClose,
		"7. dividend amount": &bar.Dividend,
	} {
		value, err := decimalField(fields, key)
		if err != nil {
			return err
		}
		*dst = Money{value: value}
	}

	volume, err := decimalField(fields, "6. volume")
	if err != nil {
		return err
	}
	bar.Volume = volume.IntPart()

	split, err := decimalField(fields, "8. split coefficient")
	if err != nil {
		return err
	}
	bar.SplitCoefficient = split
	return nil
}

// readMACDDocument parses the technical analysis document into per-date
// readings. A nil reader means no indicator feed.
func readMACDDocument(r io.Reader) (map[string]*MACDReading, error) {
	if r == nil {
		return nil, nil
	}
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid MACD document: %w", err)
	}
	series, err := jsonpath.Get(`$["Technical Analysis: MACD"]`, doc)
	if err != nil {
		return nil, fmt.Errorf("MACD document has no analysis series: %w", err)
	}
	days, ok := series.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected MACD series shape %T", series)
	}

	readings := make(map[string]*MACDReading, len(days))
	for key, raw := range days {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected MACD entry shape for %s: %T", key, raw)
		}
		value, err := decimalField(fields, "MACD")
		if err != nil {
			return nil, fmt.Errorf("bad MACD entry for %s: %w", key, err)
		}
		signal, err := decimalField(fields, "MACD_Signal")
		if err != nil {
			return nil, fmt.Errorf("bad MACD entry for %s: %w", key, err)
		}
		hist, err := decimalField(fields, "MACD_Hist")
		if err != nil {
			return nil, fmt.Errorf("bad MACD entry for %s: %w", key, err)
		}
		readings[key] = &MACDReading{MACD: value, Signal: signal, Histogram: hist}
	}
	return readings, nil
}

// decimalField reads one field as a decimal. Alpha Vantage encodes numbers as
// strings, but plain JSON numbers are accepted too.
func decimalField(fields map[string]interface{}, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("missing field %q", key)
	}
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("field %q has type %T", key, raw)
	}
}
