package api

import (
	"errors"
	"fmt"
)

// ErrUnavailable wraps transport-level failures and open-breaker rejections;
// callers leave cart/session state untouched and let the user retry.
var ErrUnavailable = errors.New("service unavailable")

// CouponErrorKind classifies coupon-validation rejections.
type CouponErrorKind string

const (
	CouponInvalid       CouponErrorKind = "invalid"
	CouponExpired       CouponErrorKind = "expired"
	CouponAlreadyUsed   CouponErrorKind = "already_used"
	CouponBelowMinimum  CouponErrorKind = "below_minimum"
	CouponInactive      CouponErrorKind = "inactive"
	CouponUsageExceeded CouponErrorKind = "usage_exceeded"
)

type CouponError struct {
	Kind    CouponErrorKind
	Message string
}

func (e *CouponError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coupon %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("coupon %s", e.Kind)
}

// AsCouponError unwraps a classified coupon rejection, if err is one.
func AsCouponError(err error) (*CouponError, bool) {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
