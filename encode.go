package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are numbers in the JSONL files, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// EncodeTransaction writes one transaction as a single JSONL line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// EncodeLedger writes the full log, one transaction per line, in append
// order. The output is a valid ledger file for DecodeLedger.
func EncodeLedger(w io.Writer, l *Ledger) error {
	for tx := range l.Transactions(AcceptAll) {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLedger reads a JSONL ledger file and rebuilds the ledger for the
// given portfolio id. Lines may be out of order; Restore sorts by date then
// id before replaying.
func DecodeLedger(r io.Reader, portfolioID string) (*Ledger, error) {
	var records []Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		records = append(records, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return Restore(portfolioID, records)
}

// EncodeMarket writes every bar, one per line, ordered by ticker then day.
func EncodeMarket(w io.Writer, m *Market) error {
	for b := range m.Bars() {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMarket reads a JSONL market file. Duplicate (ticker, day) lines are
// ignored, first one wins.
func DecodeMarket(r io.Reader) (*Market, error) {
	m := NewMarket()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var b DailyBar
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("market line %d: %w", line, err)
		}
		if _, err := m.Append(b); err != nil {
			return nil, fmt.Errorf("market line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
