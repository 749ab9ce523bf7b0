package domain

import (
	"math"
	"strconv"
)

// Cents is a currency amount in integer minor units. All aggregation happens
// on Cents so sums across many small balances stay exact; conversion to a
// two-decimal number happens only at the presentation edge.
type Cents int64

// CentsFromFloat converts a dollar amount from an ingestion payload, rounding
// half away from zero to the nearest cent.
func CentsFromFloat(dollars float64) Cents {
	return Cents(math.Round(dollars * 100))
}

// Dollars returns the amount as a float for presentation. The value is exact
// for any amount within the 2^53 significand.
func (c Cents) Dollars() float64 { return float64(c) / 100 }

// MarshalJSON renders the amount as a plain two-decimal number, the shape
// upstream callers depend on.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(c.Dollars(), 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a JSON number of dollars.
func (c *Cents) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*c = CentsFromFloat(f)
	return nil
}
