package trips

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rvt-fleet/fleetledger/internal/platform/db"
)

// Repository reads trip records.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Trip, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Trip, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed trip repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const selectTrips = `SELECT t.id, t.trip_date, t.from_location, t.to_location, t.material_type,
	t.vehicle_id, COALESCE(v.plate_number, ''), COALESCE(v.capacity, ''), COALESCE(v.ownership, ''),
	t.driver_id, COALESCE(d.name, ''), t.contractor_id, t.invoice_id
FROM trips t
LEFT JOIN vehicles v ON v.id = t.vehicle_id
LEFT JOIN drivers d ON d.id = t.driver_id`

func (r *pgRepository) List(ctx context.Context, filter Filter) ([]Trip, error) {
	var (
		clauses = []string{"t.contractor_id = $1"}
		args    = []any{filter.ContractorID}
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.UninvoicedOnly {
		clauses = append(clauses, "t.invoice_id IS NULL")
	}
	if filter.Material != "" {
		add("TRIM(t.material_type) = $%d", strings.TrimSpace(filter.Material))
	}
	if filter.From != "" {
		add("TRIM(t.from_location) = $%d", strings.TrimSpace(filter.From))
	}
	if filter.To != "" {
		add("TRIM(t.to_location) = $%d", strings.TrimSpace(filter.To))
	}
	if filter.DateFrom != nil {
		add("t.trip_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("t.trip_date <= $%d", *filter.DateTo)
	}
	query := selectTrips + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY t.trip_date, t.id"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return collectTrips(rows)
}

func (r *pgRepository) GetByIDs(ctx context.Context, ids []int64) ([]Trip, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectTrips+" WHERE t.id = ANY($1) ORDER BY t.id", ids)
	if err != nil {
		return nil, fmt.Errorf("get trips: %w", err)
	}
	return collectTrips(rows)
}

func collectTrips(rows pgx.Rows) ([]Trip, error) {
	defer rows.Close()
	var out []Trip
	for rows.Next() {
		var (
			trip      Trip
			driverID  pgtype.Int8
			invoiceID pgtype.Int8
		)
		if err := rows.Scan(&trip.ID, &trip.Date, &trip.FromLocation, &trip.ToLocation, &trip.MaterialType,
			&trip.VehicleID, &trip.Vehicle.PlateNumber, &trip.Vehicle.Capacity, &trip.Vehicle.Ownership,
			&driverID, &trip.DriverName, &trip.ContractorID, &invoiceID); err != nil {
			return nil, err
		}
		trip.DriverID = int8Ptr(driverID)
		trip.InvoiceID = int8Ptr(invoiceID)
		out = append(out, trip)
	}
	return out, rows.Err()
}

// LinkInvoice points every trip in tripIDs at invoiceID. Runs on the caller's transaction.
func LinkInvoice(ctx context.Context, q db.Querier, invoiceID int64, tripIDs []int64) error {
	tag, err := q.Exec(ctx, `UPDATE trips SET invoice_id = $1 WHERE id = ANY($2) AND invoice_id IS NULL`, invoiceID, tripIDs)
	if err != nil {
		return fmt.Errorf("link trips: %w", err)
	}
	if tag.RowsAffected() != int64(len(tripIDs)) {
		return fmt.Errorf("link trips: %d of %d trips were still uninvoiced", tag.RowsAffected(), len(tripIDs))
	}
	return nil
}

// ClearInvoice detaches every trip linked to invoiceID.
func ClearInvoice(ctx context.Context, q db.Querier, invoiceID int64) error {
	if _, err := q.Exec(ctx, `UPDATE trips SET invoice_id = NULL WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("clear trip links: %w", err)
	}
	return nil
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
