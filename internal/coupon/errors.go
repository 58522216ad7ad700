package coupon

import (
	"errors"
	"fmt"
)

// Reason is the sub-cause of a rejected coupon code.
type Reason string

const (
	ReasonNotFound       Reason = "NOT_FOUND"
	ReasonExpired        Reason = "EXPIRED"
	ReasonMinimumNotMet  Reason = "MINIMUM_NOT_MET"
	ReasonAlreadyApplied Reason = "ALREADY_APPLIED"
)

// Error is returned for any rejected coupon; it leaves the cart untouched.
type Error struct {
	Code   string
	Reason Reason
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid coupon %q: %s", e.Code, e.Reason)
}

// AsCouponError unwraps an *Error from an error chain.
func AsCouponError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
