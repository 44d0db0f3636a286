package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/statements"
)

// RecordPayment applies a receipt to an invoice. The payment row and the
// invoice's paid amount commit together.
func (s *Service) RecordPayment(ctx context.Context, invoiceID int64, input PaymentInput) (Payment, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Payment{}, err
	}
	if err := httpx.Validate(s.validator, input); err != nil {
		return Payment{}, err
	}
	amount := decimal.NewFromFloat(input.Amount).Round(2)
	input.Amount = amount.InexactFloat64()

	var pay Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		id, err := tx.CreatePayment(ctx, invoiceID, input)
		if err != nil {
			return err
		}
		paid := inv.Paid().Add(amount)
		if err := tx.UpdateInvoicePaid(ctx, invoiceID, paid.InexactFloat64(), StatusFor(paid, inv.Total())); err != nil {
			return err
		}
		pay = paymentFrom(id, inv, input)
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	s.invalidate(ctx)
	s.record(ctx, "payment.create", pay.ID, map[string]any{"invoice_id": invoiceID, "amount": pay.Amount})
	s.metrics.PaymentMutation("create")
	return pay, nil
}

// UpdatePayment replaces a payment's fields. The invoice's paid amount moves by
// the difference only when the amount changed.
func (s *Service) UpdatePayment(ctx context.Context, paymentID int64, input PaymentInput) (Payment, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Payment{}, err
	}
	if err := httpx.Validate(s.validator, input); err != nil {
		return Payment{}, err
	}
	amount := decimal.NewFromFloat(input.Amount).Round(2)
	input.Amount = amount.InexactFloat64()

	var (
		updated Payment
		diff    decimal.Decimal
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		inv, err := tx.GetInvoiceForUpdate(ctx, current.InvoiceID)
		if err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, paymentID, input); err != nil {
			return err
		}
		diff = amount.Sub(decimal.NewFromFloat(current.Amount))
		if !diff.IsZero() {
			paid := clampZero(inv.Paid().Add(diff))
			if err := tx.UpdateInvoicePaid(ctx, inv.ID, paid.InexactFloat64(), StatusFor(paid, inv.Total())); err != nil {
				return err
			}
		}
		updated = paymentFrom(paymentID, inv, input)
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	_, err = s.statements.UpdatePaymentInStatements(ctx, paymentID, updated.ContractorID, statements.PaymentPatch{
		Amount:   &updated.Amount,
		Date:     &updated.Date,
		Type:     updated.Type,
		ChequeNo: updated.ChequeNo,
	})
	s.syncFailed("update_payment", paymentID, err)

	s.invalidate(ctx)
	s.record(ctx, "payment.update", paymentID, map[string]any{"amount": updated.Amount, "diff": diff.InexactFloat64()})
	s.metrics.PaymentMutation("update")
	return updated, nil
}

// DeletePayment removes the payment's statement lines, then the payment, and
// takes its amount back off the invoice.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64) error {
	if err := shared.RequireAdmin(ctx); err != nil {
		return err
	}
	pay, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	_, err = s.statements.RemovePaymentFromStatements(ctx, pay.ID, pay.ContractorID)
	s.metrics.StatementSync("remove_payment", err)
	if err != nil {
		return fmt.Errorf("remove payment from statements: %w", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		inv, err := tx.GetInvoiceForUpdate(ctx, current.InvoiceID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		paid := clampZero(inv.Paid().Sub(decimal.NewFromFloat(current.Amount)))
		return tx.UpdateInvoicePaid(ctx, inv.ID, paid.InexactFloat64(), StatusFor(paid, inv.Total()))
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.record(ctx, "payment.delete", paymentID, map[string]any{"invoice_id": pay.InvoiceID, "amount": pay.Amount})
	s.metrics.PaymentMutation("delete")
	s.logger.Info("payment deleted", slog.Int64("payment_id", paymentID), slog.Int64("invoice_id", pay.InvoiceID))
	return nil
}

// ListPayments lists the payments applied to an invoice.
func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []Payment{}
	}
	return payments, nil
}

func paymentFrom(id int64, inv Invoice, input PaymentInput) Payment {
	return Payment{
		ID:           id,
		InvoiceID:    inv.ID,
		ContractorID: inv.ContractorID,
		Date:         input.Date,
		Type:         input.Type,
		Amount:       input.Amount,
		ChequeNo:     input.ChequeNo,
		BankName:     input.BankName,
		Note:         input.Note,
		ImageURL:     input.ImageURL,
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
