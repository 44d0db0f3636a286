package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

func TestInvoiceLifecycle(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "RVT/MAY/24/GA/001", inv.Number)
	assert.Equal(t, 150.0, inv.NetAmount)
	assert.Equal(t, 7.5, inv.VATAmount)
	assert.Equal(t, 157.5, inv.TotalAmount)
	assert.Equal(t, StatusUnpaid, inv.Status)
	assert.ElementsMatch(t, []int64{1, 2, 3}, inv.TripIDs)
	for id := int64(1); id <= 3; id++ {
		require.NotNil(t, f.store.trips[id].InvoiceID)
		assert.Equal(t, inv.ID, *f.store.trips[id].InvoiceID)
	}

	pay, err := f.svc.RecordPayment(ctx, inv.ID, payment(157.5))
	require.NoError(t, err)
	assert.Equal(t, contractorID, pay.ContractorID)
	stored := f.store.invoices[inv.ID]
	assert.Equal(t, 157.5, stored.PaidAmount)
	assert.Equal(t, StatusPaid, stored.Status)

	require.NoError(t, f.svc.DeletePayment(ctx, pay.ID))
	stored = f.store.invoices[inv.ID]
	assert.Equal(t, 0.0, stored.PaidAmount)
	assert.Equal(t, StatusUnpaid, stored.Status)
	assert.Equal(t, []string{"remove_payment"}, f.sync.ops())
	assert.Equal(t, []string{"invoice.generate", "payment.create", "payment.delete"}, f.audit.actions)
}

func TestGenerateInvoiceNumbersSequentially(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	first, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)
	second, err := f.svc.GenerateInvoice(ctx, sandInput(2, 6))
	require.NoError(t, err)

	assert.Equal(t, "RVT/MAY/24/GA/001", first.Number)
	assert.Equal(t, "RVT/MAY/24/GA/002", second.Number)
	assert.Equal(t, 105.0, second.TotalAmount)
}

func TestGenerateInvoicePerTonUsesCapacity(t *testing.T) {
	f := newFixture()
	input := sandInput(4)
	input.Material = "Gravel"
	trip := f.store.trips[4]
	trip.Vehicle.Capacity = "20 tons"
	f.store.trips[4] = trip

	inv, err := f.svc.GenerateInvoice(adminCtx(), input)
	require.NoError(t, err)
	assert.Equal(t, 60.0, inv.NetAmount)
	assert.Equal(t, 63.0, inv.TotalAmount)
}

func TestGenerateInvoiceRejections(t *testing.T) {
	linked := int64(99)
	cases := []struct {
		name  string
		setup func(f *fixture)
		input GenerateInvoiceInput
		want  string
	}{
		{name: "no trips", input: sandInput(), want: "No trips selected"},
		{name: "unknown trips", input: sandInput(40, 41), want: "No trips selected"},
		{name: "mixed material", input: sandInput(1, 4), want: "selected trips must share the same material and route"},
		{name: "other contractor", input: sandInput(1, 5), want: "trip 5 belongs to a different contractor"},
		{
			name:  "already invoiced",
			setup: func(f *fixture) { trip := f.store.trips[2]; trip.InvoiceID = &linked; f.store.trips[2] = trip },
			input: sandInput(1, 2),
			want:  "trip 2 is already invoiced",
		},
		{
			name: "no price",
			input: func() GenerateInvoiceInput {
				in := sandInput(5)
				in.ContractorID = otherID
				return in
			}(),
			want: "price not defined for this material and route",
		},
		{
			name: "unknown contractor",
			input: func() GenerateInvoiceInput {
				in := sandInput(1)
				in.ContractorID = 404
				return in
			}(),
			want: "Contractor not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.svc.GenerateInvoice(adminCtx(), tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.want, httpx.UserMessage(err))
			assert.Empty(t, f.store.invoices)
		})
	}
}

func TestGenerateInvoiceRequiresAdmin(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GenerateInvoice(viewerCtx(), sandInput(1))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = f.svc.GenerateInvoice(context.Background(), sandInput(1))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestGenerateInvoiceRollsBackOnFailedCommit(t *testing.T) {
	f := newFixture()
	f.store.failCommit = true

	_, err := f.svc.GenerateInvoice(adminCtx(), sandInput(1, 2))
	require.Error(t, err)
	assert.Empty(t, f.store.invoices)
	assert.Nil(t, f.store.trips[1].InvoiceID)
	assert.Empty(t, f.audit.actions)
}

func TestPartialPaymentsAndEdits(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1, 2))
	require.NoError(t, err)
	require.Equal(t, 105.0, inv.TotalAmount)

	first, err := f.svc.RecordPayment(ctx, inv.ID, payment(40))
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, f.store.invoices[inv.ID].Status)

	_, err = f.svc.RecordPayment(ctx, inv.ID, payment(65))
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, f.store.invoices[inv.ID].Status)

	edited := payment(10)
	edited.Type = "cash"
	updated, err := f.svc.UpdatePayment(ctx, first.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, "cash", updated.Type)
	assert.Equal(t, 75.0, f.store.invoices[inv.ID].PaidAmount)
	assert.Equal(t, StatusPartial, f.store.invoices[inv.ID].Status)
	require.Len(t, f.sync.calls, 1)
	assert.Equal(t, syncCall{op: "update_payment", id: first.ID, amount: 10}, f.sync.calls[0])
}

func TestUpdatePaymentKeepsPaidWhenAmountUnchanged(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)
	pay, err := f.svc.RecordPayment(ctx, inv.ID, payment(20))
	require.NoError(t, err)

	edit := payment(20)
	edit.Note = "corrected bank"
	_, err = f.svc.UpdatePayment(ctx, pay.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, 20.0, f.store.invoices[inv.ID].PaidAmount)
	assert.Equal(t, "corrected bank", f.store.payments[pay.ID].Note)
}

func TestPaymentValidation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, inv.ID, payment(0))
	require.Error(t, err)
	assert.Equal(t, "amount must be greater than 0", httpx.UserMessage(err))

	_, err = f.svc.RecordPayment(ctx, 404, payment(5))
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = f.svc.UpdatePayment(ctx, 404, payment(5))
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.Empty(t, f.store.payments)
}

func TestDeleteInvoiceCascadesFirst(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1, 2, 3))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, inv.ID, payment(50))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, inv.ID, payment(25))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteInvoice(ctx, inv.ID))
	assert.Equal(t, []string{"remove_invoice", "remove_payment", "remove_payment"}, f.sync.ops())
	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.store.payments)
	for id := int64(1); id <= 3; id++ {
		assert.Nil(t, f.store.trips[id].InvoiceID)
	}
}

func TestDeleteInvoiceAbortsWhenStatementsFail(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)
	f.sync.err = errors.New("statement store down")

	err = f.svc.DeleteInvoice(ctx, inv.ID)
	require.Error(t, err)
	assert.Contains(t, f.store.invoices, inv.ID)
	assert.NotNil(t, f.store.trips[1].InvoiceID)
}

func TestUpdatePaymentToleratesStatementFailure(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)
	pay, err := f.svc.RecordPayment(ctx, inv.ID, payment(10))
	require.NoError(t, err)
	f.sync.err = errors.New("statement store down")

	_, err = f.svc.UpdatePayment(ctx, pay.ID, payment(30))
	require.NoError(t, err)
	assert.Equal(t, 30.0, f.store.invoices[inv.ID].PaidAmount)
}

func TestUpdateInvoiceMetadata(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1, 2, 3))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, inv.ID, payment(100))
	require.NoError(t, err)

	total := 100.0
	require.NoError(t, f.svc.UpdateInvoiceMetadata(ctx, inv.ID, `{"items":[{"description":"Sand"}],"note":"x"}`, &total))
	stored := f.store.invoices[inv.ID]
	assert.Equal(t, 100.0, stored.TotalAmount)
	assert.Equal(t, StatusPaid, stored.Status)
	require.NotNil(t, stored.Metadata)
	assert.Equal(t, []syncCall{{op: "update_invoice", id: inv.ID, amount: 100}}, f.sync.calls)

	meta, err := f.svc.GetInvoiceMetadata(viewerCtx(), inv.ID)
	require.NoError(t, err)
	assert.Len(t, meta.Items, 1)

	require.NoError(t, f.svc.UpdateInvoiceMetadata(ctx, inv.ID, `{"items":[]}`, nil))
	assert.Len(t, f.sync.calls, 1)

	err = f.svc.UpdateInvoiceMetadata(ctx, inv.ID, `[1,2]`, nil)
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	negative := -1.0
	err = f.svc.UpdateInvoiceMetadata(ctx, inv.ID, `{}`, &negative)
	assert.ErrorIs(t, err, ErrInvalidTotal)
}

func TestGetInvoiceMetadataFallsBackOnCorruptBlob(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.GenerateInvoice(adminCtx(), sandInput(1))
	require.NoError(t, err)
	corrupt := "not json"
	stored := f.store.invoices[inv.ID]
	stored.Metadata = &corrupt
	f.store.invoices[inv.ID] = stored

	meta, err := f.svc.GetInvoiceMetadata(viewerCtx(), inv.ID)
	require.NoError(t, err)
	assert.Empty(t, meta.Items)
}

func TestMarkReceived(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	inv, err := f.svc.GenerateInvoice(ctx, sandInput(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkReceived(ctx, inv.ID, ReceptionInput{Received: true}))
	stored := f.store.invoices[inv.ID]
	assert.True(t, stored.Received)
	require.NotNil(t, stored.ReceptionDate)
	assert.Equal(t, issueDay, *stored.ReceptionDate)

	require.NoError(t, f.svc.MarkReceived(ctx, inv.ID, ReceptionInput{Received: false, CopyURL: "https://files.example.com/a.pdf"}))
	stored = f.store.invoices[inv.ID]
	assert.False(t, stored.Received)
	assert.Nil(t, stored.ReceptionDate)
	assert.Empty(t, stored.ReceptionCopyURL)

	err = f.svc.MarkReceived(ctx, inv.ID, ReceptionInput{Received: true, CopyURL: "not a url"})
	assert.Equal(t, "copyURL is invalid", httpx.UserMessage(err))
}

func TestListInvoicesPaginates(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	for _, id := range []int64{1, 2, 3} {
		_, err := f.svc.GenerateInvoice(ctx, sandInput(id))
		require.NoError(t, err)
	}

	page, err := f.svc.ListInvoices(viewerCtx(), ListFilter{ContractorID: contractorID, Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Invoices, 1)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	_, err = f.svc.ListInvoices(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestStatementSourcesMapNotFound(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.GenerateInvoice(adminCtx(), sandInput(1))
	require.NoError(t, err)
	sources := NewStatementSources(f.store)

	snap, err := sources.InvoiceSnapshot(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, snap.Number)
	assert.Equal(t, 52.5, snap.Amount)

	_, err = sources.InvoiceSnapshot(context.Background(), 404)
	assert.Equal(t, "Invoice not found", httpx.UserMessage(err))
	_, err = sources.PaymentSnapshot(context.Background(), 404)
	assert.Equal(t, "Payment not found", httpx.UserMessage(err))
}
