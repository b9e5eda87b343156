package enums

// PaymentStatus maps to the order_payment_status enum in Postgres.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
)

var validPaymentStatuses = values[PaymentStatus]{
	PaymentStatusPaid,
	PaymentStatusPending,
}

func (p PaymentStatus) IsValid() bool {
	return validPaymentStatuses.has(p)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return validPaymentStatuses.parse("payment status", value)
}
