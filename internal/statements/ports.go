package statements

import "context"

// InvoiceSource reads the invoice behind a line. Implementations return
// ErrInvoiceNotFound when the invoice no longer exists.
type InvoiceSource interface {
	InvoiceSnapshot(ctx context.Context, id int64) (InvoiceSnapshot, error)
}

// PaymentSource reads the payment behind a line. Implementations return
// ErrPaymentNotFound when the payment no longer exists.
type PaymentSource interface {
	PaymentSnapshot(ctx context.Context, id int64) (PaymentSnapshot, error)
}
