package observability

import "github.com/prometheus/client_golang/prometheus"

// Statement sync outcomes.
const (
	SyncOK      = "ok"
	SyncFailed  = "failed"
	SyncSkipped = "skipped"
)

// BillingMetrics counts invoice, payment and statement mutations. A nil value is a no-op.
type BillingMetrics struct {
	invoices      prometheus.Counter
	payments      *prometheus.CounterVec
	statementSync *prometheus.CounterVec
}

// NewBillingMetrics registers billing collectors on registerer.
func NewBillingMetrics(registerer prometheus.Registerer) *BillingMetrics {
	return newBillingMetrics(registerer)
}

func newBillingMetrics(registerer prometheus.Registerer) *BillingMetrics {
	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetledger_invoices_generated_total",
		Help: "Invoices generated from trips.",
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetledger_payment_mutations_total",
		Help: "Payment create, update and delete operations.",
	}, []string{"op"})
	statementSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetledger_statement_sync_total",
		Help: "Statement cascade operations by outcome.",
	}, []string{"op", "result"})
	registerer.MustRegister(invoices, payments, statementSync)
	return &BillingMetrics{invoices: invoices, payments: payments, statementSync: statementSync}
}

// InvoiceGenerated increments the invoice counter.
func (m *BillingMetrics) InvoiceGenerated() {
	if m == nil {
		return
	}
	m.invoices.Inc()
}

// PaymentMutation counts a payment operation (create, update, delete).
func (m *BillingMetrics) PaymentMutation(op string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(op).Inc()
}

// StatementSync counts one cascade into statements.
func (m *BillingMetrics) StatementSync(op string, err error) {
	if m == nil {
		return
	}
	result := SyncOK
	if err != nil {
		result = SyncFailed
	}
	m.statementSync.WithLabelValues(op, result).Inc()
}
