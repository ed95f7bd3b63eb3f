package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeOnline PaymentType = "online"
)

// CheckoutSnapshot is the full checkout form state captured at submission
// time, so a failed payment redirect can restore the cart and the form.
type CheckoutSnapshot struct {
	Items       []CartItem  `json:"items"`
	CartPrice   float64     `json:"cart_price"`
	Discount    float64     `json:"discount"`
	TotalPrice  float64     `json:"total_price"`
	Coupon      *Coupon     `json:"coupon,omitempty"`
	CouponCode  string      `json:"coupon_code,omitempty"`
	PaymentType PaymentType `json:"payment_type"`
	Notes       string      `json:"notes,omitempty"`
	UserName    string      `json:"user_name,omitempty"`
	UserPhone   string      `json:"user_phone,omitempty"`
	PlaceID     string      `json:"place_id,omitempty"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// PaymentAttempt is the single persisted record describing the in-flight or
// most recently resolved online payment. One live instance per browser; a new
// initiate overwrites the previous snapshot.
type PaymentAttempt struct {
	OrderID     string           `json:"order_id"`
	PaymentURL  string           `json:"payment_url"`
	Status      PaymentStatus    `json:"status"`
	Snapshot    CheckoutSnapshot `json:"checkout_data"`
	Restores    int              `json:"restores"`
	InitiatedAt time.Time        `json:"payment_initiated_at"`
}
