package ledger

import "fmt"

// Percent is a display-oriented percentage (25.0 means 25%).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// compared with a small tolerance, percents come from float ratios
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" {
		return "-"
	}
	return res
}
