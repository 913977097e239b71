package enums

// PaymentStatus tracks an order row through the two payment paths. Online
// orders start awaiting_payment and become paid when the provider webhook
// finalizes them; cash orders start cod_pending and become cod_confirmed on
// delivery settlement.
type PaymentStatus string

const (
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusCODPending      PaymentStatus = "cod_pending"
	PaymentStatusCODConfirmed    PaymentStatus = "cod_confirmed"
)

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusAwaitingPayment, PaymentStatusPaid, PaymentStatusCODPending, PaymentStatusCODConfirmed:
		return true
	}
	return false
}

// Finalized reports whether the order's stock and points effects have been
// applied. Provisional online orders are the only non-finalized state.
func (p PaymentStatus) Finalized() bool {
	return p != PaymentStatusAwaitingPayment && p.IsValid()
}
