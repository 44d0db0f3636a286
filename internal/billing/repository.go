package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rvt-fleet/fleetledger/internal/platform/db"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Repository defines invoice and payment data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	UpdateReception(ctx context.Context, id int64, input ReceptionInput) error

	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed billing repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{q: tx})
	})
}

const selectInvoices = `SELECT i.id, i.invoice_number, i.contractor_id, COALESCE(c.name, ''), i.issue_date,
	i.material, i.from_location, i.to_location, i.net_amount, i.vat_amount, i.total_amount, i.paid_amount,
	i.status, COALESCE(i.letterhead, ''), i.metadata, i.received, i.reception_date, COALESCE(i.reception_copy_url, ''),
	ARRAY(SELECT t.id FROM trips t WHERE t.invoice_id = i.id ORDER BY t.id),
	COALESCE(i.created_by, 0), i.created_at
FROM invoices i
LEFT JOIN contractors c ON c.id = i.contractor_id`

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, selectInvoices+` WHERE i.id = $1`, id)
}

func (r *pgRepository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ContractorID > 0 {
		args = append(args, filter.ContractorID)
		clauses = append(clauses, fmt.Sprintf("i.contractor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("i.status = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	args = append(args, filter.PerPage, shared.Offset(filter.Page, filter.PerPage))
	query := fmt.Sprintf("%s%s ORDER BY i.id DESC LIMIT $%d OFFSET $%d", selectInvoices, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateReception(ctx context.Context, id int64, input ReceptionInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET received = $2, reception_date = $3, reception_copy_url = $4 WHERE id = $1`,
		id, input.Received, toDate(input.Date), toText(input.CopyURL))
	if err != nil {
		return fmt.Errorf("update reception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

const selectPayments = `SELECT p.id, p.invoice_id, i.contractor_id, p.payment_date, p.type, p.amount,
	COALESCE(p.cheque_no, ''), COALESCE(p.bank_name, ''), COALESCE(p.note, ''), COALESCE(p.image_url, ''), p.created_at
FROM payments p
JOIN invoices i ON i.id = p.invoice_id`

func (r *pgRepository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return getPayment(ctx, r.pool, selectPayments+` WHERE p.id = $1`, id)
}

func (r *pgRepository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, selectPayments+` WHERE p.invoice_id = $1 ORDER BY p.payment_date, p.id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pay)
	}
	return out, rows.Err()
}

func getInvoice(ctx context.Context, q db.Querier, sql string, args ...any) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func getPayment(ctx context.Context, q db.Querier, sql string, args ...any) (Payment, error) {
	pay, err := scanPayment(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return pay, err
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv                   Invoice
		net, vat, total, paid pgtype.Numeric
		status                string
		metadata              pgtype.Text
		receptionDate         pgtype.Date
		issueDate             pgtype.Date
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.ContractorID, &inv.ContractorName, &issueDate,
		&inv.Material, &inv.From, &inv.To, &net, &vat, &total, &paid,
		&status, &inv.Letterhead, &metadata, &inv.Received, &receptionDate, &inv.ReceptionCopyURL,
		&inv.TripIDs, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.IssueDate = issueDate.Time
	inv.NetAmount = numericToFloat(net)
	inv.VATAmount = numericToFloat(vat)
	inv.TotalAmount = numericToFloat(total)
	inv.PaidAmount = numericToFloat(paid)
	inv.Status = Status(status)
	inv.Metadata = toStrPtr(metadata)
	inv.ReceptionDate = dateToTimePtr(receptionDate)
	return inv, nil
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		pay    Payment
		amount pgtype.Numeric
		date   pgtype.Date
	)
	err := row.Scan(&pay.ID, &pay.InvoiceID, &pay.ContractorID, &date, &pay.Type, &amount,
		&pay.ChequeNo, &pay.BankName, &pay.Note, &pay.ImageURL, &pay.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	pay.Date = date.Time
	pay.Amount = numericToFloat(amount)
	return pay, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Helpers

func numericToFloat(n pgtype.Numeric) float64 {
	f, _ := n.Float64Value()
	return f.Float64
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toStrPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func toDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func dateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}
