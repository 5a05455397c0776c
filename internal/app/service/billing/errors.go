package billing

import "errors"

var (
	// ErrIncompletePayment is returned when the gateway's record of a charge
	// is missing amount, billing key, order name or customer id. Nothing is
	// written to the ledger in that case.
	ErrIncompletePayment = errors.New("payment record is missing required fields")

	// ErrNotOwner is returned when the caller holds no ledger row for the
	// transaction key it is trying to cancel.
	ErrNotOwner = errors.New("transaction does not belong to caller")

	// ErrPaidRecordNotFound is returned when cancellation finds no active Paid
	// row, i.e. the subscription was never paid or is already cancelled.
	ErrPaidRecordNotFound = errors.New("no active paid record for transaction")
)
