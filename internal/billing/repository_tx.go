package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rvt-fleet/fleetledger/internal/platform/db"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

// TxRepository defines operations within a transaction.
type TxRepository interface {
	LatestInvoiceNumber(ctx context.Context, contractorID int64) (string, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	LinkTrips(ctx context.Context, invoiceID int64, tripIDs []int64) error
	ClearTrips(ctx context.Context, invoiceID int64) error
	DeleteInvoice(ctx context.Context, id int64) error

	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoicePaid(ctx context.Context, id int64, paid float64, status Status) error
	UpdateInvoiceTotal(ctx context.Context, id int64, total float64, status Status) error
	UpdateMetadata(ctx context.Context, id int64, metadata string) error

	CreatePayment(ctx context.Context, invoiceID int64, input PaymentInput) (int64, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error)
	UpdatePayment(ctx context.Context, id int64, input PaymentInput) error
	DeletePayment(ctx context.Context, id int64) error
	DeletePaymentsForInvoice(ctx context.Context, invoiceID int64) error
}

var _ TxRepository = (*pgTxRepository)(nil)

type pgTxRepository struct {
	q db.Querier
}

func (tx *pgTxRepository) LatestInvoiceNumber(ctx context.Context, contractorID int64) (string, error) {
	var number string
	err := tx.q.QueryRow(ctx, `SELECT invoice_number FROM invoices WHERE contractor_id = $1 ORDER BY id DESC LIMIT 1`, contractorID).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest invoice number: %w", err)
	}
	return number, nil
}

func (tx *pgTxRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := tx.q.QueryRow(ctx, `INSERT INTO invoices (invoice_number, contractor_id, issue_date, material, from_location, to_location,
	net_amount, vat_amount, total_amount, paid_amount, status, letterhead, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		inv.Number, inv.ContractorID, inv.IssueDate, inv.Material, inv.From, inv.To,
		inv.NetAmount, inv.VATAmount, inv.TotalAmount, inv.PaidAmount, string(inv.Status), toText(inv.Letterhead), inv.CreatedBy).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrNumberTaken
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

func (tx *pgTxRepository) LinkTrips(ctx context.Context, invoiceID int64, tripIDs []int64) error {
	return trips.LinkInvoice(ctx, tx.q, invoiceID, tripIDs)
}

func (tx *pgTxRepository) ClearTrips(ctx context.Context, invoiceID int64) error {
	return trips.ClearInvoice(ctx, tx.q, invoiceID)
}

func (tx *pgTxRepository) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := tx.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (tx *pgTxRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, tx.q, selectInvoices+` WHERE i.id = $1 FOR UPDATE OF i`, id)
}

func (tx *pgTxRepository) UpdateInvoicePaid(ctx context.Context, id int64, paid float64, status Status) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET paid_amount = $2, status = $3 WHERE id = $1`, id, paid, string(status))
	if err != nil {
		return fmt.Errorf("update paid amount: %w", err)
	}
	return nil
}

func (tx *pgTxRepository) UpdateInvoiceTotal(ctx context.Context, id int64, total float64, status Status) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET total_amount = $2, status = $3 WHERE id = $1`, id, total, string(status))
	if err != nil {
		return fmt.Errorf("update total amount: %w", err)
	}
	return nil
}

func (tx *pgTxRepository) UpdateMetadata(ctx context.Context, id int64, metadata string) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET metadata = $2 WHERE id = $1`, id, metadata)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

func (tx *pgTxRepository) CreatePayment(ctx context.Context, invoiceID int64, input PaymentInput) (int64, error) {
	var id int64
	err := tx.q.QueryRow(ctx, `INSERT INTO payments (invoice_id, payment_date, type, amount, cheque_no, bank_name, note, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		invoiceID, input.Date, input.Type, input.Amount, toText(input.ChequeNo), toText(input.BankName), toText(input.Note), toText(input.ImageURL)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (tx *pgTxRepository) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return getPayment(ctx, tx.q, selectPayments+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

func (tx *pgTxRepository) UpdatePayment(ctx context.Context, id int64, input PaymentInput) error {
	_, err := tx.q.Exec(ctx, `UPDATE payments SET payment_date = $2, type = $3, amount = $4, cheque_no = $5, bank_name = $6, note = $7, image_url = $8 WHERE id = $1`,
		id, input.Date, input.Type, input.Amount, toText(input.ChequeNo), toText(input.BankName), toText(input.Note), toText(input.ImageURL))
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (tx *pgTxRepository) DeletePayment(ctx context.Context, id int64) error {
	if _, err := tx.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

func (tx *pgTxRepository) DeletePaymentsForInvoice(ctx context.Context, invoiceID int64) error {
	if _, err := tx.q.Exec(ctx, `DELETE FROM payments WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice payments: %w", err)
	}
	return nil
}
