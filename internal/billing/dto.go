package billing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
)

type generateRequest struct {
	ContractorID int64   `json:"contractorId" validate:"required,gt=0"`
	TripIDs      []int64 `json:"tripIds"`
	Material     string  `json:"material" validate:"required"`
	Route        string  `json:"route" validate:"required"`
	Letterhead   string  `json:"letterhead"`
}

func (req generateRequest) input() (GenerateInvoiceInput, error) {
	route, err := pricing.ParseRoute(req.Route)
	if err != nil {
		return GenerateInvoiceInput{}, httpx.NewError(httpx.ErrValidation, err.Error())
	}
	return GenerateInvoiceInput{
		ContractorID: req.ContractorID,
		TripIDs:      req.TripIDs,
		Material:     req.Material,
		Route:        route,
		Letterhead:   req.Letterhead,
	}, nil
}

type metadataRequest struct {
	Metadata    json.RawMessage `json:"metadata"`
	TotalAmount *float64        `json:"totalAmount"`
}

// metadataJSON accepts the blob either as a JSON string or an inline object.
func (req metadataRequest) metadataJSON() string {
	raw := strings.TrimSpace(string(req.Metadata))
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw
}

type paymentRequest struct {
	Date     string  `json:"date"`
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	ChequeNo string  `json:"chequeNo"`
	BankName string  `json:"bankName"`
	Note     string  `json:"note"`
	ImageURL string  `json:"imageUrl"`
}

var errInvalidPaymentDate = httpx.NewError(httpx.ErrValidation, "date must be YYYY-MM-DD")

func (req paymentRequest) input() (PaymentInput, error) {
	date, err := parseDay(req.Date)
	if err != nil {
		return PaymentInput{}, errInvalidPaymentDate
	}
	return PaymentInput{
		Date:     date,
		Type:     strings.TrimSpace(req.Type),
		Amount:   req.Amount,
		ChequeNo: strings.TrimSpace(req.ChequeNo),
		BankName: strings.TrimSpace(req.BankName),
		Note:     req.Note,
		ImageURL: strings.TrimSpace(req.ImageURL),
	}, nil
}

type receptionRequest struct {
	Received bool   `json:"received"`
	Date     string `json:"receptionDate"`
	CopyURL  string `json:"receptionCopyUrl"`
}

func (req receptionRequest) input() (ReceptionInput, error) {
	input := ReceptionInput{Received: req.Received, CopyURL: strings.TrimSpace(req.CopyURL)}
	if strings.TrimSpace(req.Date) != "" {
		date, err := parseDay(req.Date)
		if err != nil {
			return ReceptionInput{}, httpx.NewError(httpx.ErrValidation, "receptionDate must be YYYY-MM-DD")
		}
		input.Date = &date
	}
	return input, nil
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
