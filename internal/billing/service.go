package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rvt-fleet/fleetledger/internal/observability"
	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/statements"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

// TripReader loads the trips selected for billing.
type TripReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]trips.Trip, error)
}

// ContractorReader loads a contractor with its price list.
type ContractorReader interface {
	GetContractor(ctx context.Context, id int64) (pricing.Contractor, error)
}

// StatementSync mirrors invoice and payment changes into statements.
type StatementSync interface {
	RemoveInvoiceFromAllStatements(ctx context.Context, invoiceID, contractorID int64) (int, error)
	RemovePaymentFromStatements(ctx context.Context, paymentID, contractorID int64) (int, error)
	UpdateInvoiceInAllStatements(ctx context.Context, invoiceID, contractorID int64, newAmount float64) (int, error)
	UpdatePaymentInStatements(ctx context.Context, paymentID, contractorID int64, patch statements.PaymentPatch) (int, error)
}

// ListCache is the versioned cache backing invoice listings.
type ListCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error
	Bump(ctx context.Context) error
}

// Dependencies are the collaborators of the billing service.
type Dependencies struct {
	Trips         TripReader
	Contractors   ContractorReader
	Statements    StatementSync
	Cache         ListCache
	Audit         shared.AuditRecorder
	Metrics       *observability.BillingMetrics
	Logger        *slog.Logger
	InvoicePrefix string
	Now           func() time.Time
}

// Service implements invoice generation and the payment ledger.
type Service struct {
	repo        Repository
	trips       TripReader
	contractors ContractorReader
	statements  StatementSync
	cache       ListCache
	audit       shared.AuditRecorder
	metrics     *observability.BillingMetrics
	logger      *slog.Logger
	validator   *validator.Validate
	prefix      string
	now         func() time.Time
}

// NewService constructs the billing service.
func NewService(repo Repository, deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.InvoicePrefix == "" {
		deps.InvoicePrefix = "RVT"
	}
	return &Service{
		repo:        repo,
		trips:       deps.Trips,
		contractors: deps.Contractors,
		statements:  deps.Statements,
		cache:       deps.Cache,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		validator:   validator.New(),
		prefix:      deps.InvoicePrefix,
		now:         deps.Now,
	}
}

// GenerateInvoice bills the selected trips at the contractor's rate for the
// requested material and route.
func (s *Service) GenerateInvoice(ctx context.Context, input GenerateInvoiceInput) (Invoice, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Invoice{}, err
	}
	ids := uniqueIDs(input.TripIDs)
	if len(ids) == 0 {
		return Invoice{}, ErrNoTrips
	}
	selected, err := s.trips.GetByIDs(ctx, ids)
	if err != nil {
		return Invoice{}, fmt.Errorf("load trips: %w", err)
	}
	if len(selected) == 0 {
		return Invoice{}, ErrNoTrips
	}
	if len(selected) < len(ids) {
		s.logger.Warn("generate invoice: some selected trips do not exist",
			slog.Int("requested", len(ids)), slog.Int("found", len(selected)))
	}

	contractor, err := s.contractors.GetContractor(ctx, input.ContractorID)
	if err != nil {
		return Invoice{}, err
	}

	material := strings.TrimSpace(input.Material)
	route := pricing.Route{From: strings.TrimSpace(input.Route.From), To: strings.TrimSpace(input.Route.To)}
	tripIDs := make([]int64, 0, len(selected))
	for _, trip := range selected {
		if trip.ContractorID != contractor.ID {
			return Invoice{}, errTripContractor(trip.ID)
		}
		if !trip.Carries(material, route.From, route.To) {
			return Invoice{}, ErrMixedSelection
		}
		if trip.Invoiced() {
			return Invoice{}, errTripInvoiced(trip.ID)
		}
		tripIDs = append(tripIDs, trip.ID)
	}

	rate, ok := pricing.ResolvePrice(contractor, material, route.From, route.To)
	if !ok {
		return Invoice{}, ErrPriceNotDefined
	}
	net := decimal.Zero
	for _, trip := range selected {
		net = net.Add(pricing.ValueOf(trip, rate))
	}
	gross := pricing.Gross(net)
	net = net.Round(2)

	issued := s.now()
	inv := Invoice{
		ContractorID: contractor.ID,
		IssueDate:    issued,
		Material:     material,
		From:         route.From,
		To:           route.To,
		NetAmount:    net.InexactFloat64(),
		VATAmount:    gross.Sub(net).InexactFloat64(),
		TotalAmount:  gross.InexactFloat64(),
		PaidAmount:   0,
		Status:       StatusUnpaid,
		Letterhead:   input.Letterhead,
		TripIDs:      tripIDs,
		CreatedBy:    shared.ActorID(ctx),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		latest, err := tx.LatestInvoiceNumber(ctx, contractor.ID)
		if err != nil {
			return err
		}
		inv.Number = InvoiceNumber(s.prefix, issued, contractor.Abbreviation, NextSequence(latest))
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return tx.LinkTrips(ctx, id, tripIDs)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.invalidate(ctx)
	s.record(ctx, "invoice.generate", inv.ID, map[string]any{
		"number": inv.Number, "contractor_id": inv.ContractorID, "trips": len(tripIDs), "total": inv.TotalAmount,
	})
	s.metrics.InvoiceGenerated()
	s.logger.Info("invoice generated", slog.Int64("invoice_id", inv.ID), slog.String("number", inv.Number))
	return inv, nil
}

// DeleteInvoice scrubs the invoice and its payments from statements, then
// detaches its trips and deletes it together with its payments.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if err := shared.RequireAdmin(ctx); err != nil {
		return err
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.statements.RemoveInvoiceFromAllStatements(ctx, inv.ID, inv.ContractorID)
	s.metrics.StatementSync("remove_invoice", err)
	if err != nil {
		return fmt.Errorf("remove invoice from statements: %w", err)
	}
	for _, pay := range payments {
		_, err = s.statements.RemovePaymentFromStatements(ctx, pay.ID, inv.ContractorID)
		s.metrics.StatementSync("remove_payment", err)
		if err != nil {
			return fmt.Errorf("remove payment %d from statements: %w", pay.ID, err)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClearTrips(ctx, id); err != nil {
			return err
		}
		if err := tx.DeletePaymentsForInvoice(ctx, id); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.record(ctx, "invoice.delete", id, map[string]any{"number": inv.Number, "payments": len(payments)})
	return nil
}

// UpdateInvoiceMetadata saves the print-layout state. When newTotal is given the
// stored total and status change and the statements follow.
func (s *Service) UpdateInvoiceMetadata(ctx context.Context, id int64, metadataJSON string, newTotal *float64) error {
	if err := shared.RequireAdmin(ctx); err != nil {
		return err
	}
	if _, err := ParseMetadata(metadataJSON); err != nil {
		return err
	}
	var total decimal.Decimal
	if newTotal != nil {
		total = decimal.NewFromFloat(*newTotal).Round(2)
		if total.IsNegative() {
			return ErrInvalidTotal
		}
	}

	var contractorID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		contractorID = inv.ContractorID
		if err := tx.UpdateMetadata(ctx, id, metadataJSON); err != nil {
			return err
		}
		if newTotal == nil {
			return nil
		}
		return tx.UpdateInvoiceTotal(ctx, id, total.InexactFloat64(), StatusFor(inv.Paid(), total))
	})
	if err != nil {
		return err
	}

	if newTotal != nil {
		_, err := s.statements.UpdateInvoiceInAllStatements(ctx, id, contractorID, total.InexactFloat64())
		s.syncFailed("update_invoice", id, err)
	}
	s.invalidate(ctx)
	meta := map[string]any{}
	if newTotal != nil {
		meta["total"] = total.InexactFloat64()
	}
	s.record(ctx, "invoice.metadata", id, meta)
	return nil
}

// MarkReceived records the contractor's acknowledgement of the invoice.
func (s *Service) MarkReceived(ctx context.Context, id int64, input ReceptionInput) error {
	if err := shared.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := httpx.Validate(s.validator, input); err != nil {
		return err
	}
	if input.Received && input.Date == nil {
		today := s.now()
		input.Date = &today
	}
	if !input.Received {
		input.Date = nil
		input.CopyURL = ""
	}
	if err := s.repo.UpdateReception(ctx, id, input); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.record(ctx, "invoice.reception", id, map[string]any{"received": input.Received})
	return nil
}

// GetInvoice loads one invoice with its linked trips.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}

// GetInvoiceMetadata returns the typed print-layout state. Corrupt blobs yield the empty shape.
func (s *Service) GetInvoiceMetadata(ctx context.Context, id int64) (InvoiceMetadata, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceMetadata{}, err
	}
	meta, ok := MetadataOrEmpty(inv.Metadata)
	if !ok {
		s.logger.Warn("invoice metadata unreadable, using empty layout", slog.Int64("invoice_id", id))
	}
	return meta, nil
}

// ListInvoices returns a page of invoices, served from the versioned cache when warm.
func (s *Service) ListInvoices(ctx context.Context, filter ListFilter) (InvoicePage, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return InvoicePage{}, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 50
	}
	load := func(ctx context.Context) (interface{}, error) {
		invoices, total, err := s.repo.ListInvoices(ctx, filter)
		if err != nil {
			return nil, err
		}
		if invoices == nil {
			invoices = []Invoice{}
		}
		return InvoicePage{Invoices: invoices, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
	}
	if s.cache == nil {
		page, err := load(ctx)
		if err != nil {
			return InvoicePage{}, err
		}
		return page.(InvoicePage), nil
	}
	key, err := s.cache.BuildKey(ctx, "billing", "invoices",
		strconv.FormatInt(filter.ContractorID, 10), string(filter.Status),
		strconv.Itoa(filter.Page), strconv.Itoa(filter.PerPage))
	if err != nil {
		return InvoicePage{}, err
	}
	var page InvoicePage
	if err := s.cache.FetchJSON(ctx, key, &page, load); err != nil {
		return InvoicePage{}, err
	}
	return page, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invoice cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entity := "invoice"
	if strings.HasPrefix(action, "payment.") {
		entity = "payment"
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}

// syncFailed records a cascade that ran after its source change committed.
// Failures are left for the reconciliation sweep.
func (s *Service) syncFailed(op string, id int64, err error) {
	s.metrics.StatementSync(op, err)
	if err != nil {
		s.logger.Warn("statement sync failed, reconciliation will repair",
			slog.String("op", op), slog.Int64("id", id), slog.Any("error", err))
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
