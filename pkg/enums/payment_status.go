package enums

// PaymentStatus is derived from the payments registered against a work order.
// PENDING means nothing paid, PARTIAL means short of the total, PAID means
// the total is covered.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

var paymentStatuses = set[PaymentStatus]{PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse(value, "payment status", true)
}
