package statements

import (
	"encoding/json"
	"strings"
)

type addInvoiceRequest struct {
	InvoiceID int64 `json:"invoiceId" validate:"required,gt=0"`
}

type addPaymentRequest struct {
	PaymentID int64 `json:"paymentId" validate:"required,gt=0"`
}

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// updateRequest accepts details either as a JSON object or as a JSON-encoded string.
type updateRequest struct {
	Details json.RawMessage `json:"details"`
}

func (r updateRequest) detailsJSON() string {
	raw := strings.TrimSpace(string(r.Details))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(r.Details, &s); err == nil {
			return s
		}
	}
	return raw
}
