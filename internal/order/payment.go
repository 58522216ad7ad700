package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDeclined is returned by an Authorizer when the payment method is
// rejected. Anything else from the collaborator is a transport failure.
var ErrDeclined = errors.New("authorization declined")

// Authorizer is the payment collaborator contract, consumed before an
// order moves Pending -> Confirmed. It returns an authorization token.
type Authorizer interface {
	Authorize(ctx context.Context, paymentMethod string, amount int64) (string, error)
}

// ApproveAllAuthorizer authorizes everything. Stands in for the real
// payment collaborator in tests and the demo binary.
type ApproveAllAuthorizer struct{}

func (ApproveAllAuthorizer) Authorize(ctx context.Context, paymentMethod string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return uuid.New().String(), nil
}
