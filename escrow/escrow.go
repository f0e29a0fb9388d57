// Package escrow computes the hold placed on seller funds after a sale.
package escrow

import "time"

const (
	// CommissionRate is the marketplace cut of every sale.
	CommissionRate = 0.10

	// HoldPeriod is the cooling-off window before funds are released to the
	// seller. Release itself is an external batch job.
	HoldPeriod = 7 * 24 * time.Hour
)

// Split divides an order total into the marketplace commission and the
// seller payout. The two always sum back to total exactly: the seller
// amount is computed as the remainder rather than as its own percentage.
func Split(total float64) (commission, sellerAmount float64) {
	commission = total * CommissionRate
	sellerAmount = total - commission
	return commission, sellerAmount
}

// ReleaseDate returns when a hold created at paidAt becomes releasable.
func ReleaseDate(paidAt time.Time) time.Time {
	return paidAt.Add(HoldPeriod)
}
