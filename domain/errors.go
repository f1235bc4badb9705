package domain

import "errors"

var (
	ErrUnknownKind      = errors.New("unknown object kind")
	ErrCustomersMissing = errors.New("customers are required once the object is submitted")
	ErrHistoryMismatch  = errors.New("latest modification does not match status")
)
