package types

import "time"

// Price represents a single hourly electricity spot price quote.
// TS is the hour-aligned start of the interval in the feed's own zone and
// EurPerKWH is the tax-inclusive price for that hour.
type Price struct {
	TS        time.Time `json:"ts"`
	EurPerKWH float64   `json:"eurPerKWH"`
}

// Cents returns the price scaled to cents per kilowatt-hour, which is the
// unit spoken to the user.
func (p Price) Cents() float64 {
	return p.EurPerKWH * 100
}
