package billing

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/statements"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

type memoryStore struct {
	invoices    map[int64]Invoice
	payments    map[int64]Payment
	trips       map[int64]trips.Trip
	nextInvoice int64
	nextPayment int64
	failCommit  bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		invoices: make(map[int64]Invoice),
		payments: make(map[int64]Payment),
		trips:    make(map[int64]trips.Trip),
	}
}

// WithTx restores the previous state when fn fails.
func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	invoices := make(map[int64]Invoice, len(m.invoices))
	for k, v := range m.invoices {
		invoices[k] = v
	}
	payments := make(map[int64]Payment, len(m.payments))
	for k, v := range m.payments {
		payments[k] = v
	}
	linked := make(map[int64]trips.Trip, len(m.trips))
	for k, v := range m.trips {
		linked[k] = v
	}
	err := fn(ctx, m)
	if err == nil && m.failCommit {
		err = errors.New("commit failed")
	}
	if err != nil {
		m.invoices, m.payments, m.trips = invoices, payments, linked
	}
	return err
}

func (m *memoryStore) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryStore) ListInvoices(_ context.Context, filter ListFilter) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if filter.ContractorID != 0 && inv.ContractorID != filter.ContractorID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := shared.Offset(filter.Page, filter.PerPage)
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memoryStore) UpdateReception(_ context.Context, id int64, input ReceptionInput) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Received = input.Received
	inv.ReceptionDate = input.Date
	inv.ReceptionCopyURL = input.CopyURL
	m.invoices[id] = inv
	return nil
}

func (m *memoryStore) GetPayment(_ context.Context, id int64) (Payment, error) {
	pay, ok := m.payments[id]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return pay, nil
}

func (m *memoryStore) ListPayments(_ context.Context, invoiceID int64) ([]Payment, error) {
	var out []Payment
	for _, pay := range m.payments {
		if pay.InvoiceID == invoiceID {
			out = append(out, pay)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) LatestInvoiceNumber(_ context.Context, contractorID int64) (string, error) {
	var (
		latest   string
		latestID int64
	)
	for _, inv := range m.invoices {
		if inv.ContractorID == contractorID && inv.ID > latestID {
			latest, latestID = inv.Number, inv.ID
		}
	}
	return latest, nil
}

func (m *memoryStore) CreateInvoice(_ context.Context, inv Invoice) (int64, error) {
	for _, existing := range m.invoices {
		if existing.Number == inv.Number {
			return 0, ErrNumberTaken
		}
	}
	m.nextInvoice++
	inv.ID = m.nextInvoice
	m.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (m *memoryStore) LinkTrips(_ context.Context, invoiceID int64, tripIDs []int64) error {
	for _, id := range tripIDs {
		trip, ok := m.trips[id]
		if !ok || trip.InvoiceID != nil {
			return errors.New("trip already linked")
		}
		linked := invoiceID
		trip.InvoiceID = &linked
		m.trips[id] = trip
	}
	return nil
}

func (m *memoryStore) ClearTrips(_ context.Context, invoiceID int64) error {
	for id, trip := range m.trips {
		if trip.InvoiceID != nil && *trip.InvoiceID == invoiceID {
			trip.InvoiceID = nil
			m.trips[id] = trip
		}
	}
	return nil
}

func (m *memoryStore) DeleteInvoice(_ context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrInvoiceNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memoryStore) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return m.GetInvoice(ctx, id)
}

func (m *memoryStore) UpdateInvoicePaid(_ context.Context, id int64, paid float64, status Status) error {
	inv := m.invoices[id]
	inv.PaidAmount, inv.Status = paid, status
	m.invoices[id] = inv
	return nil
}

func (m *memoryStore) UpdateInvoiceTotal(_ context.Context, id int64, total float64, status Status) error {
	inv := m.invoices[id]
	inv.TotalAmount, inv.Status = total, status
	m.invoices[id] = inv
	return nil
}

func (m *memoryStore) UpdateMetadata(_ context.Context, id int64, metadata string) error {
	inv := m.invoices[id]
	inv.Metadata = &metadata
	m.invoices[id] = inv
	return nil
}

func (m *memoryStore) CreatePayment(_ context.Context, invoiceID int64, input PaymentInput) (int64, error) {
	m.nextPayment++
	inv := m.invoices[invoiceID]
	m.payments[m.nextPayment] = paymentFrom(m.nextPayment, inv, input)
	return m.nextPayment, nil
}

func (m *memoryStore) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return m.GetPayment(ctx, id)
}

func (m *memoryStore) UpdatePayment(_ context.Context, id int64, input PaymentInput) error {
	pay, ok := m.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}
	m.payments[id] = paymentFrom(id, m.invoices[pay.InvoiceID], input)
	return nil
}

func (m *memoryStore) DeletePayment(_ context.Context, id int64) error {
	delete(m.payments, id)
	return nil
}

func (m *memoryStore) DeletePaymentsForInvoice(_ context.Context, invoiceID int64) error {
	for id, pay := range m.payments {
		if pay.InvoiceID == invoiceID {
			delete(m.payments, id)
		}
	}
	return nil
}

// GetByIDs serves the trip reader from the same store so links are visible.
func (m *memoryStore) GetByIDs(_ context.Context, ids []int64) ([]trips.Trip, error) {
	var out []trips.Trip
	for _, id := range ids {
		if trip, ok := m.trips[id]; ok {
			out = append(out, trip)
		}
	}
	return out, nil
}

type memoryContractors map[int64]pricing.Contractor

func (m memoryContractors) GetContractor(_ context.Context, id int64) (pricing.Contractor, error) {
	c, ok := m[id]
	if !ok {
		return pricing.Contractor{}, pricing.ErrContractorNotFound
	}
	return c, nil
}

type syncCall struct {
	op     string
	id     int64
	amount float64
}

type recordingSync struct {
	calls []syncCall
	err   error
}

func (r *recordingSync) RemoveInvoiceFromAllStatements(_ context.Context, invoiceID, _ int64) (int, error) {
	r.calls = append(r.calls, syncCall{op: "remove_invoice", id: invoiceID})
	return 1, r.err
}

func (r *recordingSync) RemovePaymentFromStatements(_ context.Context, paymentID, _ int64) (int, error) {
	r.calls = append(r.calls, syncCall{op: "remove_payment", id: paymentID})
	return 1, r.err
}

func (r *recordingSync) UpdateInvoiceInAllStatements(_ context.Context, invoiceID, _ int64, amount float64) (int, error) {
	r.calls = append(r.calls, syncCall{op: "update_invoice", id: invoiceID, amount: amount})
	return 1, r.err
}

func (r *recordingSync) UpdatePaymentInStatements(_ context.Context, paymentID, _ int64, patch statements.PaymentPatch) (int, error) {
	call := syncCall{op: "update_payment", id: paymentID}
	if patch.Amount != nil {
		call.amount = *patch.Amount
	}
	r.calls = append(r.calls, call)
	return 1, r.err
}

func (r *recordingSync) ops() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.op)
	}
	return out
}

type memoryAudit struct {
	actions []string
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.actions = append(m.actions, log.Action)
	return nil
}

const (
	contractorID = int64(7)
	otherID      = int64(8)
)

var issueDay = time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store *memoryStore
	sync  *recordingSync
	audit *memoryAudit
	svc   *Service
}

func newFixture() *fixture {
	store := newMemoryStore()
	for id := int64(1); id <= 3; id++ {
		store.trips[id] = trips.Trip{
			ID: id, ContractorID: contractorID, MaterialType: "Sand",
			FromLocation: "SiteA", ToLocation: "SiteB",
			Vehicle: trips.Vehicle{PlateNumber: "A-1", Capacity: "20 tons"},
		}
	}
	store.trips[4] = trips.Trip{ID: 4, ContractorID: contractorID, MaterialType: "Gravel", FromLocation: "SiteA", ToLocation: "SiteB"}
	store.trips[5] = trips.Trip{ID: 5, ContractorID: otherID, MaterialType: "Sand", FromLocation: "SiteA", ToLocation: "SiteB"}
	store.trips[6] = trips.Trip{ID: 6, ContractorID: contractorID, MaterialType: " Sand ", FromLocation: "SiteA", ToLocation: "SiteB",
		Vehicle: trips.Vehicle{Capacity: "12.5t"}}

	contractors := memoryContractors{
		contractorID: {ID: contractorID, Name: "Gulf Aggregates", Abbreviation: "GA", Sites: []pricing.Site{{
			ID: 1, Name: "Main",
			Rules: []pricing.PriceRule{
				{Material: "Sand", From: "SiteA", To: "SiteB", Price: 50, Unit: "Per Trip"},
				{Material: "Gravel", From: "SiteA", To: "SiteB", Price: 3, Unit: "per ton"},
			},
		}}},
		otherID: {ID: otherID, Name: "No Prices"},
	}
	sync := &recordingSync{}
	audit := &memoryAudit{}
	svc := NewService(store, Dependencies{
		Trips:         store,
		Contractors:   contractors,
		Statements:    sync,
		Audit:         audit,
		InvoicePrefix: "RVT",
		Now:           func() time.Time { return issueDay },
	})
	return &fixture{store: store, sync: sync, audit: audit, svc: svc}
}

func adminCtx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: 1, Role: shared.RoleAdmin})
}

func viewerCtx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: 2, Role: shared.RoleViewer})
}

func sandInput(ids ...int64) GenerateInvoiceInput {
	return GenerateInvoiceInput{
		ContractorID: contractorID,
		TripIDs:      ids,
		Material:     "Sand",
		Route:        pricing.Route{From: "SiteA", To: "SiteB"},
	}
}

func payment(amount float64) PaymentInput {
	return PaymentInput{Date: issueDay, Type: "cheque", Amount: amount, ChequeNo: "000123"}
}
