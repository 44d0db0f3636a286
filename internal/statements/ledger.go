package statements

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02/01/2006"

// RecomputeBalances returns a copy of items whose balances are the exact running
// sum of credit minus debit in array order. Every mutation of a ledger ends here.
func RecomputeBalances(items []Item) []Item {
	out := make([]Item, len(items))
	running := decimal.Zero
	for i, item := range items {
		running = running.Add(item.Net())
		item.Balance = running
		out[i] = item
	}
	return out
}

// AppendItem adds item at the end of the ledger.
func AppendItem(items []Item, item Item) []Item {
	next := make([]Item, 0, len(items)+1)
	next = append(next, items...)
	next = append(next, item)
	return RecomputeBalances(next)
}

// Contains reports whether any line mirrors key.
func Contains(items []Item, key ItemKey) bool {
	for _, item := range items {
		if item.Key.Matches(key) {
			return true
		}
	}
	return false
}

// RemoveItems drops every line mirroring key and returns how many were removed.
func RemoveItems(items []Item, key ItemKey) ([]Item, int) {
	kept := make([]Item, 0, len(items))
	removed := 0
	for _, item := range items {
		if item.Key.Matches(key) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed == 0 {
		return items, 0
	}
	return RecomputeBalances(kept), removed
}

// UpdateItems applies fn to every line mirroring key and returns how many changed.
func UpdateItems(items []Item, key ItemKey, fn func(*Item)) ([]Item, int) {
	next := make([]Item, len(items))
	copy(next, items)
	updated := 0
	for i := range next {
		if next[i].Key.Matches(key) {
			fn(&next[i])
			updated++
		}
	}
	if updated == 0 {
		return items, 0
	}
	return RecomputeBalances(next), updated
}

// Reorder arranges items following ids. ids must be a permutation of the current
// line ids; repeated ids are consumed in their existing relative order.
func Reorder(items []Item, ids []string) ([]Item, error) {
	if len(ids) != len(items) {
		return nil, ErrInvalidOrder
	}
	buckets := make(map[string][]Item, len(items))
	for _, item := range items {
		buckets[item.ID()] = append(buckets[item.ID()], item)
	}
	next := make([]Item, 0, len(items))
	for _, id := range ids {
		queue := buckets[id]
		if len(queue) == 0 {
			return nil, ErrInvalidOrder
		}
		next = append(next, queue[0])
		buckets[id] = queue[1:]
	}
	return RecomputeBalances(next), nil
}

// InvoiceItem builds the credit line for an invoice.
func InvoiceItem(inv InvoiceSnapshot) Item {
	return Item{
		Key:         InvoiceKey(inv.ID),
		Date:        FormatDate(inv.IssueDate),
		Description: inv.Number,
		Credit:      decimal.NewFromFloat(inv.Amount),
		Debit:       decimal.Zero,
	}
}

// PaymentItem builds the debit line for a payment.
func PaymentItem(pay PaymentSnapshot) Item {
	return Item{
		Key:         PaymentKey(pay.ID),
		Date:        FormatDate(pay.Date),
		Description: PaymentDescription(pay.Type, pay.ChequeNo),
		Credit:      decimal.Zero,
		Debit:       decimal.NewFromFloat(pay.Amount),
	}
}

// PaymentDescription renders "<type> - <cheque>" descriptions. The type is kept as entered.
func PaymentDescription(paymentType, chequeNo string) string {
	desc := strings.TrimSpace(paymentType)
	if cheque := strings.TrimSpace(chequeNo); cheque != "" {
		desc += " - " + cheque
	}
	return desc
}

// FormatDate renders DD/MM/YYYY. The zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
