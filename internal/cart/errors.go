package cart

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrUnknownSyncMode = errors.New("unknown sync mode")
	ErrMergeSameOwner  = errors.New("cannot merge a cart into itself")
)
