// Package loyalty implements the points program: earn on spend, redeem
// as a bill discount, with every movement recorded in an append-only
// per-customer ledger.
package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
)

// Program evaluates earn and redemption rules against a settings
// snapshot. Zero-valued rates disable the corresponding side.
type Program struct {
	Settings model.LoyaltySettings
}

// CanRedeem checks the program gates for a customer and bill: program
// enabled, bill over the minimum, balance over the floor.
func (p Program) CanRedeem(c *model.Customer, billTotal decimal.Decimal) bool {
	s := p.Settings
	if !s.Enabled || s.RedemptionValue.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if c == nil || c.LoyaltyPoints < s.MinPointsToRedeem {
		return false
	}
	return billTotal.GreaterThanOrEqual(s.MinOrderValueRedeem)
}

// MaxRedeemablePoints is the most points this customer may spend on
// this bill: capped by balance and by the point count whose value
// covers the bill.
func (p Program) MaxRedeemablePoints(c *model.Customer, billTotal decimal.Decimal) int64 {
	if !p.CanRedeem(c, billTotal) {
		return 0
	}
	coverBill := billTotal.Div(p.Settings.RedemptionValue).Ceil().IntPart()
	if c.LoyaltyPoints < coverBill {
		return c.LoyaltyPoints
	}
	return coverBill
}

// RedemptionDiscount converts a point spend into its currency value.
func (p Program) RedemptionDiscount(points int64) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(points).Mul(p.Settings.RedemptionValue)
}

// PointsEarned is floor(bill total / earning rate); zero when the
// program is off or the rate is unset.
func (p Program) PointsEarned(billTotal decimal.Decimal) int64 {
	s := p.Settings
	if !s.Enabled || s.EarningRate.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return billTotal.Div(s.EarningRate).Floor().IntPart()
}

// Apply posts an earn and/or redeem movement for one order onto the
// customer: ledger entries appended, running balance and lifetime
// counters adjusted, last visit stamped. Points arguments are
// magnitudes; zero means no entry of that kind.
func (p Program) Apply(c *model.Customer, orderID string, earned, redeemed int64, at time.Time) {
	if redeemed > 0 {
		c.LoyaltyHistory = append(c.LoyaltyHistory, model.LoyaltyTransaction{
			ID:          uuid.NewString(),
			Date:        at,
			Type:        enum.LoyaltyTxRedeemed,
			Points:      redeemed,
			OrderID:     orderID,
			Description: "Redeemed against order " + orderID,
		})
		c.LoyaltyPoints -= redeemed
		c.TotalPointsRedeemed += redeemed
	}
	if earned > 0 {
		tx := model.LoyaltyTransaction{
			ID:          uuid.NewString(),
			Date:        at,
			Type:        enum.LoyaltyTxEarned,
			Points:      earned,
			OrderID:     orderID,
			Description: "Earned on order " + orderID,
		}
		if p.Settings.ExpiryMonths > 0 {
			tx.ExpiryDate = at.AddDate(0, p.Settings.ExpiryMonths, 0)
		}
		c.LoyaltyHistory = append(c.LoyaltyHistory, tx)
		c.LoyaltyPoints += earned
		c.TotalPointsEarned += earned
	}
	c.LastVisit = at
	if c.FirstVisit.IsZero() {
		c.FirstVisit = at
	}
}

// FoldBalance recomputes the balance implied by the ledger. Used by
// audits to cross-check the running LoyaltyPoints field.
func FoldBalance(history []model.LoyaltyTransaction) int64 {
	var bal int64
	for _, tx := range history {
		switch tx.Type {
		case enum.LoyaltyTxEarned, enum.LoyaltyTxAdjustment:
			bal += tx.Points
		case enum.LoyaltyTxRedeemed, enum.LoyaltyTxExpired:
			bal -= tx.Points
		}
	}
	return bal
}
