package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusOnTheWay  = "on_the_way"
	OrderStatusReceived  = "received"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusUnpaid              = "unpaid"
	PaymentStatusPendingVerification = "pending_verification"
	PaymentStatusPaid                = "paid"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodQR   = "qr_payment"
)

// ── Accounts ──

// Signup roles. A super_admin account gets both is_staff and is_superuser.
const (
	SignupRoleCustomer   = "customer"
	SignupRoleSuperAdmin = "super_admin"
)

// ── Display labels ──

var paymentMethodLabels = map[string]string{
	PaymentMethodCash: "Cash",
	PaymentMethodQR:   "QR Payment",
}

// PaymentMethodLabel returns the human-readable name of a payment method.
func PaymentMethodLabel(method string) string {
	if l, ok := paymentMethodLabels[method]; ok {
		return l
	}
	return method
}

// IsPaymentMethod reports whether method is a known payment method.
func IsPaymentMethod(method string) bool {
	_, ok := paymentMethodLabels[method]
	return ok
}
