package statements

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type wireDetails struct {
	ContractorName string     `json:"contractorName"`
	Date           string     `json:"date"`
	LpoNo          string     `json:"lpoNo"`
	Site           string     `json:"site"`
	Items          []wireItem `json:"items"`
}

type wireItem struct {
	ID          string          `json:"id"`
	OriginalID  json.RawMessage `json:"originalId"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Credit      wireNumber      `json:"credit"`
	Debit       wireNumber      `json:"debit"`
	Balance     wireNumber      `json:"balance"`
	Vehicle     string          `json:"vehicle"`
	Type        string          `json:"type"`
}

// wireNumber accepts JSON numbers, numeric strings and null.
type wireNumber struct {
	decimal.Decimal
}

func (n wireNumber) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

func (n *wireNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			n.Decimal = decimal.Zero
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

// EmptyDetails is the shell used when a statement has no readable body.
func EmptyDetails() Details {
	return Details{Items: []Item{}}
}

// ParseDetails decodes a stored body. It never fails: unreadable input yields
// the empty shell and ok=false so the caller can log it.
func ParseDetails(raw string) (Details, bool) {
	if strings.TrimSpace(raw) == "" {
		return EmptyDetails(), true
	}
	details, err := DecodeDetails(raw)
	if err != nil {
		return EmptyDetails(), false
	}
	return details, true
}

// DecodeDetails strictly decodes a body submitted by an editor.
func DecodeDetails(raw string) (Details, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Details{}, errors.New("statement details must be a JSON object")
	}
	var wire wireDetails
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Details{}, err
	}
	details := Details{
		ContractorName: wire.ContractorName,
		Date:           wire.Date,
		LpoNo:          wire.LpoNo,
		Site:           wire.Site,
		Items:          make([]Item, 0, len(wire.Items)),
	}
	for _, w := range wire.Items {
		details.Items = append(details.Items, fromWire(w))
	}
	return details, nil
}

// Encode renders the persisted JSON body with freshly recomputed balances.
func (d Details) Encode() (string, error) {
	items := RecomputeBalances(d.Items)
	wire := wireDetails{
		ContractorName: d.ContractorName,
		Date:           d.Date,
		LpoNo:          d.LpoNo,
		Site:           d.Site,
		Items:          make([]wireItem, 0, len(items)),
	}
	for _, item := range items {
		wire.Items = append(wire.Items, toWire(item))
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// MarshalJSON exposes details over the API in the persisted shape.
func (d Details) MarshalJSON() ([]byte, error) {
	encoded, err := d.Encode()
	if err != nil {
		return nil, err
	}
	return []byte(encoded), nil
}

func fromWire(w wireItem) Item {
	item := Item{
		Date:        w.Date,
		Description: w.Description,
		Credit:      w.Credit.Decimal,
		Debit:       w.Debit.Decimal,
		Balance:     w.Balance.Decimal,
		Vehicle:     w.Vehicle,
	}
	if key, ok := ParseItemKey(w.ID); ok {
		item.Key = key
		return item
	}
	// Non-canonical id: fall back to originalId + type when both are usable.
	item.rawID = w.ID
	item.rawOriginalID = w.OriginalID
	item.rawType = w.Type
	if id, ok := originalID(w.OriginalID); ok {
		switch ItemKind(strings.ToUpper(w.Type)) {
		case KindInvoice:
			item.Key = InvoiceKey(id)
		case KindPayment:
			item.Key = PaymentKey(id)
		}
	}
	return item
}

func toWire(item Item) wireItem {
	w := wireItem{
		ID:          item.ID(),
		Date:        item.Date,
		Description: item.Description,
		Credit:      wireNumber{item.Credit},
		Debit:       wireNumber{item.Debit},
		Balance:     wireNumber{item.Balance},
		Vehicle:     item.Vehicle,
	}
	if item.Key.IsZero() {
		w.OriginalID = item.rawOriginalID
		w.Type = item.rawType
	} else {
		w.OriginalID = json.RawMessage(strconv.FormatInt(item.Key.ID, 10))
		w.Type = string(item.Key.Kind)
	}
	if len(w.OriginalID) == 0 {
		w.OriginalID = json.RawMessage("null")
	}
	return w
}

func originalID(raw json.RawMessage) (int64, bool) {
	var n wireNumber
	if len(raw) == 0 || n.UnmarshalJSON(raw) != nil || !n.IsInteger() || !n.IsPositive() {
		return 0, false
	}
	return n.IntPart(), true
}
