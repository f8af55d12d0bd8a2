package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"payments-engine/internal/errors"
)

// ParseAmount parses a monetary amount exactly as written. The precision of the
// input is kept; no rounding is performed.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.ErrAmountRequired
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewAppErrorf(errors.InvalidAmount, "invalid amount %q", s).WithDetails(err.Error())
	}

	if !amount.IsPositive() {
		return decimal.Zero, errors.NewAppErrorf(errors.InvalidAmount, "amount must be positive, got %s", amount)
	}

	return amount, nil
}
