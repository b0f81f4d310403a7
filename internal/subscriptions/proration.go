package subscriptions

import "github.com/shopspring/decimal"

// Proration is the outcome of a mid-cycle plan change.
type Proration struct {
	UnusedCredit decimal.Decimal
	AmountDue    decimal.Decimal
}

// Prorate credits the unused fraction of the old plan against the new
// plan's full price. The credit is rounded half-even to paise and the
// amount due never goes below zero.
func Prorate(oldPrice, newPrice decimal.Decimal, remainingDays, periodDays int) Proration {
	if periodDays <= 0 || remainingDays <= 0 {
		return Proration{UnusedCredit: decimal.Zero, AmountDue: newPrice}
	}
	if remainingDays > periodDays {
		remainingDays = periodDays
	}

	credit := oldPrice.
		Mul(decimal.NewFromInt(int64(remainingDays))).
		Div(decimal.NewFromInt(int64(periodDays))).
		RoundBank(2)

	due := newPrice.Sub(credit)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return Proration{UnusedCredit: credit, AmountDue: due}
}
