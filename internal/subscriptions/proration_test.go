package subscriptions

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProrateMidCycleUpgrade(t *testing.T) {
	// 15 of 30 days remaining on a 999 plan, moving to 1999:
	// credit 499.50, amount due 1499.50.
	got := Prorate(decimal.NewFromInt(999), decimal.NewFromInt(1999), 15, 30)

	if !got.UnusedCredit.Equal(decimal.NewFromFloat(499.50)) {
		t.Fatalf("expected credit 499.50, got %s", got.UnusedCredit)
	}
	if !got.AmountDue.Equal(decimal.NewFromFloat(1499.50)) {
		t.Fatalf("expected amount due 1499.50, got %s", got.AmountDue)
	}
}

func TestProrateDowngradeFloorsAtZero(t *testing.T) {
	got := Prorate(decimal.NewFromInt(1999), decimal.NewFromInt(999), 29, 30)

	if got.AmountDue.IsNegative() {
		t.Fatalf("amount due must not be negative, got %s", got.AmountDue)
	}
	if !got.AmountDue.Equal(decimal.Zero) {
		t.Fatalf("expected amount due 0, got %s", got.AmountDue)
	}
}

func TestProrateNoRemainingDays(t *testing.T) {
	got := Prorate(decimal.NewFromInt(999), decimal.NewFromInt(1999), 0, 30)

	if !got.UnusedCredit.Equal(decimal.Zero) {
		t.Fatalf("expected zero credit, got %s", got.UnusedCredit)
	}
	if !got.AmountDue.Equal(decimal.NewFromInt(1999)) {
		t.Fatalf("expected full price due, got %s", got.AmountDue)
	}
}

func TestProrateClampsRemainingToPeriod(t *testing.T) {
	got := Prorate(decimal.NewFromInt(999), decimal.NewFromInt(1999), 45, 30)

	if !got.UnusedCredit.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected full old price credited, got %s", got.UnusedCredit)
	}
	if !got.AmountDue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected 1000 due, got %s", got.AmountDue)
	}
}

func TestProrateRoundsHalfEven(t *testing.T) {
	// 100.01 / 2 = 50.005; banker's rounding lands on the even paise.
	got := Prorate(decimal.NewFromFloat(100.01), decimal.NewFromInt(200), 1, 2)

	if !got.UnusedCredit.Equal(decimal.NewFromFloat(50.00)) {
		t.Fatalf("expected credit 50.00, got %s", got.UnusedCredit)
	}
	if !got.AmountDue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected amount due 150, got %s", got.AmountDue)
	}
}

func TestProrateRoundsCreditToPaise(t *testing.T) {
	got := Prorate(decimal.NewFromInt(999), decimal.NewFromInt(1999), 7, 30)

	if got.UnusedCredit.Exponent() < -2 {
		t.Fatalf("credit must be rounded to two places, got %s", got.UnusedCredit)
	}
	if !got.UnusedCredit.Equal(decimal.NewFromFloat(233.10)) {
		t.Fatalf("expected credit 233.10, got %s", got.UnusedCredit)
	}
}
