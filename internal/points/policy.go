package points

import (
	"github.com/shopspring/decimal"

	"github.com/shopvia/shopvia-backend/pkg/config"
)

// Policy converts between currency amounts and reward points. All amounts
// are minor currency units; points are whole and rounding always floors.
type Policy struct {
	pointValue       decimal.Decimal
	earnDivisor      decimal.Decimal
	redeemCapPercent decimal.Decimal
}

func NewPolicy(cfg config.PointsConfig) *Policy {
	return &Policy{
		pointValue:       decimal.NewFromInt(cfg.PointValue),
		earnDivisor:      decimal.NewFromInt(cfg.EarnDivisor),
		redeemCapPercent: decimal.NewFromInt(int64(cfg.RedeemCapPercent)),
	}
}

// Earned returns the points granted for a captured order total.
func (p *Policy) Earned(totalAmount int64) int64 {
	if totalAmount <= 0 {
		return 0
	}
	return decimal.NewFromInt(totalAmount).Div(p.earnDivisor).Floor().IntPart()
}

// RedemptionValue returns the currency amount a point spend is worth.
func (p *Policy) RedemptionValue(pts int64) int64 {
	if pts <= 0 {
		return 0
	}
	return decimal.NewFromInt(pts).Mul(p.pointValue).IntPart()
}

// MaxRedeemable caps the spendable points at the user's balance and at the
// configured percentage of the order subtotal.
func (p *Policy) MaxRedeemable(balance, subtotalAmount int64) int64 {
	if balance <= 0 || subtotalAmount <= 0 {
		return 0
	}
	capAmount := decimal.NewFromInt(subtotalAmount).
		Mul(p.redeemCapPercent).
		Div(decimal.NewFromInt(100))
	capPoints := capAmount.Div(p.pointValue).Floor().IntPart()
	if balance < capPoints {
		return balance
	}
	return capPoints
}

// CanRedeem reports whether the requested spend fits the balance and cap.
func (p *Policy) CanRedeem(requested, balance, subtotalAmount int64) bool {
	if requested < 0 {
		return false
	}
	return requested <= p.MaxRedeemable(balance, subtotalAmount)
}
