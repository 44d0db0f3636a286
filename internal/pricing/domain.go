package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnitKind describes how a price rule multiplies against a trip.
type UnitKind string

const (
	UnitPerTrip UnitKind = "Per Trip"
	UnitPerTon  UnitKind = "Per Ton"
)

// ParseUnit maps a stored unit label onto a UnitKind. Unrecognised labels bill per trip.
func ParseUnit(raw string) UnitKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "per ton":
		return UnitPerTon
	default:
		return UnitPerTrip
	}
}

// Contractor is a billing party with sites carrying price rules.
type Contractor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Sites        []Site `json:"sites"`
}

// Site groups price rules for one contractor location.
type Site struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Rules []PriceRule `json:"rules"`
}

// PriceRule prices one material moved between two locations.
type PriceRule struct {
	Material string  `json:"material"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
}

// Rate is a resolved price rule.
type Rate struct {
	Price decimal.Decimal
	Unit  UnitKind
}

// Route is an origin/destination pair.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}
