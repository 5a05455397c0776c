package types

type PaymentProvider string

const (
	PaymentProviderPortOne PaymentProvider = "portone"
)

// PaymentStatus is the status of a ledger row, not of the gateway-side
// payment. A cancellation inserts a new Cancel row; Paid rows are never
// updated.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "Paid"
	PaymentStatusCancel PaymentStatus = "Cancel"
)

// WebhookStatus values accepted from the gateway.
type WebhookStatus string

const (
	WebhookStatusPaid      WebhookStatus = "Paid"
	WebhookStatusCancelled WebhookStatus = "Cancelled"
)

func (s WebhookStatus) Valid() bool {
	return s == WebhookStatusPaid || s == WebhookStatusCancelled
}
