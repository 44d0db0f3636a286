package statements

// SourceLookup returns the current line for key built from its source document.
// found is false when the document no longer exists.
type SourceLookup func(key ItemKey) (fresh Item, found bool, err error)

// Reconcile drops lines whose source is gone and re-syncs the fields the cascades
// own: credit for invoices; debit, date and description for payments. Manual
// lines are left alone. changed also reports stale stored balances.
func Reconcile(details Details, lookup SourceLookup) (Details, bool, error) {
	changed := false
	items := make([]Item, 0, len(details.Items))
	for _, item := range details.Items {
		if item.Key.IsZero() {
			items = append(items, item)
			continue
		}
		fresh, found, err := lookup(item.Key)
		if err != nil {
			return details, false, err
		}
		if !found {
			changed = true
			continue
		}
		synced := item
		switch item.Key.Kind {
		case KindInvoice:
			synced.Credit = fresh.Credit
		case KindPayment:
			synced.Debit = fresh.Debit
			synced.Date = fresh.Date
			synced.Description = fresh.Description
		}
		if !sameLine(item, synced) {
			changed = true
		}
		items = append(items, synced)
	}
	recomputed := RecomputeBalances(items)
	if !changed {
		for i := range recomputed {
			if !recomputed[i].Balance.Equal(details.Items[i].Balance) {
				changed = true
				break
			}
		}
	}
	details.Items = recomputed
	return details, changed, nil
}

func sameLine(a, b Item) bool {
	return a.Credit.Equal(b.Credit) && a.Debit.Equal(b.Debit) && a.Date == b.Date && a.Description == b.Description
}
