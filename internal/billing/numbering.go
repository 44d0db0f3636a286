package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const genericAbbreviation = "GEN"

// InvoiceNumber renders <prefix>/<MON>/<YY>/<ABBR>/<seq>, e.g. RVT/MAY/24/GA/007.
func InvoiceNumber(prefix string, at time.Time, abbreviation string, seq int) string {
	abbr := strings.TrimSpace(abbreviation)
	if abbr == "" {
		abbr = genericAbbreviation
	}
	return fmt.Sprintf("%s/%s/%s/%s/%03d", prefix, strings.ToUpper(at.Format("Jan")), at.Format("06"), abbr, seq)
}

// NextSequence is one past the numeric suffix of the contractor's latest
// invoice number. A missing or unreadable suffix restarts at 1.
func NextSequence(latest string) int {
	if latest == "" {
		return 1
	}
	suffix := latest
	if i := strings.LastIndex(latest, "/"); i >= 0 {
		suffix = latest[i+1:]
	}
	suffix = strings.TrimSpace(suffix)
	end := strings.IndexFunc(suffix, func(r rune) bool { return !unicode.IsDigit(r) })
	if end >= 0 {
		suffix = suffix[:end]
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 1
	}
	return n + 1
}
