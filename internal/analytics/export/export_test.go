package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/rvt-fleet/fleetledger/internal/analytics"
)

func TestWriteTripRevenueCSV(t *testing.T) {
	revenue := analytics.TripRevenue{
		Materials: []analytics.MaterialRevenue{
			{Material: "Gravel", Trips: 2, Net: 60, Gross: 63},
			{Material: "Sand", Trips: 3, Net: 150, Gross: 157.5},
		},
		Matched: 5,
		Skipped: 1,
		Net:     210,
		Gross:   220.5,
	}
	buf := &bytes.Buffer{}
	if err := WriteTripRevenueCSV(buf, revenue); err != nil {
		t.Fatalf("revenue csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(records))
	}
	if got := records[2]; got[0] != "Sand" || got[3] != "157.50" {
		t.Fatalf("unexpected sand row %v", got)
	}
	if got := records[3]; got[0] != "Total" || got[1] != "5" || got[3] != "220.50" {
		t.Fatalf("unexpected total row %v", got)
	}
	if got := records[4]; got[0] != "Skipped" || got[1] != "1" {
		t.Fatalf("unexpected skipped row %v", got)
	}
}
