package domain

import "time"

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// Coupon as returned by the coupon-validation collaborator.
type Coupon struct {
	Code      string     `json:"code"`
	Type      CouponType `json:"type"`
	Value     float64    `json:"value"`
	MinSpend  float64    `json:"min_spend,omitempty"`
	PlaceID   string     `json:"place_id,omitempty"`
	ExpiresAt time.Time  `json:"expires_at,omitempty"`
}

// DiscountOn computes the absolute discount for a given subtotal, rounded to
// cents. A fixed coupon never discounts more than the subtotal itself.
func (c Coupon) DiscountOn(subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	var d float64
	switch c.Type {
	case CouponTypePercentage:
		d = subtotal * c.Value / 100
	case CouponTypeFixed:
		d = c.Value
	}
	if d > subtotal {
		d = subtotal
	}
	return roundCents(d)
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
