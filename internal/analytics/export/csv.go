package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rvt-fleet/fleetledger/internal/analytics"
)

// WriteTripRevenueCSV serialises a revenue estimate, one row per material plus a total.
func WriteTripRevenueCSV(w io.Writer, revenue analytics.TripRevenue) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Material", "Trips", "Net", "Gross"}); err != nil {
		return err
	}
	for _, m := range revenue.Materials {
		if err := writer.Write([]string{m.Material, strconv.Itoa(m.Trips), formatFloat(m.Net), formatFloat(m.Gross)}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", strconv.Itoa(revenue.Matched), formatFloat(revenue.Net), formatFloat(revenue.Gross)}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Skipped", strconv.Itoa(revenue.Skipped), "", ""}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
