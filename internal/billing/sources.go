package billing

import (
	"context"
	"errors"

	"github.com/rvt-fleet/fleetledger/internal/statements"
)

// StatementSources lets the statement ledger read invoices and payments.
type StatementSources struct {
	repo Repository
}

var (
	_ statements.InvoiceSource = (*StatementSources)(nil)
	_ statements.PaymentSource = (*StatementSources)(nil)
)

// NewStatementSources adapts the billing repository to the statement ports.
func NewStatementSources(repo Repository) *StatementSources {
	return &StatementSources{repo: repo}
}

// InvoiceSnapshot implements statements.InvoiceSource.
func (s *StatementSources) InvoiceSnapshot(ctx context.Context, id int64) (statements.InvoiceSnapshot, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if errors.Is(err, ErrInvoiceNotFound) {
		return statements.InvoiceSnapshot{}, statements.ErrInvoiceNotFound
	}
	if err != nil {
		return statements.InvoiceSnapshot{}, err
	}
	return statements.InvoiceSnapshot{
		ID:           inv.ID,
		ContractorID: inv.ContractorID,
		Number:       inv.Number,
		IssueDate:    inv.IssueDate,
		Amount:       inv.TotalAmount,
	}, nil
}

// PaymentSnapshot implements statements.PaymentSource.
func (s *StatementSources) PaymentSnapshot(ctx context.Context, id int64) (statements.PaymentSnapshot, error) {
	pay, err := s.repo.GetPayment(ctx, id)
	if errors.Is(err, ErrPaymentNotFound) {
		return statements.PaymentSnapshot{}, statements.ErrPaymentNotFound
	}
	if err != nil {
		return statements.PaymentSnapshot{}, err
	}
	return statements.PaymentSnapshot{
		ID:           pay.ID,
		InvoiceID:    pay.InvoiceID,
		ContractorID: pay.ContractorID,
		Date:         pay.Date,
		Type:         pay.Type,
		ChequeNo:     pay.ChequeNo,
		Amount:       pay.Amount,
	}, nil
}
