// Package pricing derives the billable nights and total of a stay.
package pricing

import (
	"math"
	"time"
)

const night = 24 * time.Hour

// Nights returns the number of started 24h periods between check-in and check-out.
// A non-positive range yields 0.
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}

	n := int(d / night)
	if d%night != 0 {
		n++
	}

	return n
}

// TotalPrice multiplies nights by the nightly rate, rounded to cents.
func TotalPrice(nights int, pricePerNight float64) float64 {
	if nights <= 0 || pricePerNight <= 0 {
		return 0
	}

	return math.Round(float64(nights)*pricePerNight*100) / 100
}
