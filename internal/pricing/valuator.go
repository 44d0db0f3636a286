package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// VATRate is the fixed value-added tax rate applied to invoices.
var VATRate = decimal.RequireFromString("0.05")

var (
	grossMultiplier = decimal.NewFromInt(1).Add(VATRate)
	leadingNumber   = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Valuable is anything that can be priced by a rate.
type Valuable interface {
	VehicleCapacity() string
}

// ValueOf prices a single trip. Per-ton rates multiply by the vehicle capacity,
// every other unit bills the flat price.
func ValueOf(trip Valuable, rate Rate) decimal.Decimal {
	if rate.Unit != UnitPerTon {
		return rate.Price
	}
	return rate.Price.Mul(ParseCapacity(trip.VehicleCapacity()))
}

// ParseCapacity reads the leading numeric prefix of a capacity label
// ("20 tons" -> 20). Missing or non-numeric input yields zero.
func ParseCapacity(raw string) decimal.Decimal {
	match := leadingNumber.FindString(raw)
	if match == "" {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(match), 64)
	if err != nil || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Gross is net plus VAT rounded half-up to two decimals. Rounding happens once, here.
func Gross(net decimal.Decimal) decimal.Decimal {
	return net.Mul(grossMultiplier).Round(2)
}

// VAT is the unrounded tax on net, for display only.
func VAT(net decimal.Decimal) decimal.Decimal {
	return net.Mul(VATRate)
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
