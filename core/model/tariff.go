package model

import "fmt"

// Tariff is the hourly electricity price vector for one scheduling horizon.
// The configured hour shift has already been applied by the loader, so index 0
// is the first hour of the scheduling day.
type Tariff struct {
	ID     string
	Prices []float64
}

// Horizon returns the number of hours the tariff covers.
func (t Tariff) Horizon() int { return len(t.Prices) }

// Validate rejects empty or negative tariffs.
func (t Tariff) Validate() error {
	if len(t.Prices) == 0 {
		return fmt.Errorf("tariff %s: empty price vector", t.ID)
	}
	for h, p := range t.Prices {
		if p < 0 {
			return fmt.Errorf("tariff %s: negative price %.4f at hour %d", t.ID, p, h)
		}
	}
	return nil
}
