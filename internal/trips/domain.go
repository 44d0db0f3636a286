package trips

import (
	"strings"
	"time"
)

// Vehicle is the subset of vehicle data needed for billing.
type Vehicle struct {
	PlateNumber string `json:"plateNumber"`
	Capacity    string `json:"capacity"`
	Ownership   string `json:"ownership"`
}

// Trip is a single vehicle movement, the billable unit.
type Trip struct {
	ID           int64     `json:"id"`
	Date         time.Time `json:"date"`
	FromLocation string    `json:"fromLocation"`
	ToLocation   string    `json:"toLocation"`
	MaterialType string    `json:"materialType"`
	VehicleID    int64     `json:"vehicleId"`
	Vehicle      Vehicle   `json:"vehicle"`
	DriverID     *int64    `json:"driverId,omitempty"`
	DriverName   string    `json:"driverName,omitempty"`
	ContractorID int64     `json:"contractorId"`
	InvoiceID    *int64    `json:"invoiceId,omitempty"`
}

// VehicleCapacity exposes the raw capacity label for valuation.
func (t Trip) VehicleCapacity() string {
	return t.Vehicle.Capacity
}

// Invoiced reports whether the trip is already linked to an invoice.
func (t Trip) Invoiced() bool {
	return t.InvoiceID != nil
}

// Carries reports whether the trip moved material from -> to, ignoring surrounding whitespace.
func (t Trip) Carries(material, from, to string) bool {
	return strings.TrimSpace(t.MaterialType) == strings.TrimSpace(material) &&
		strings.TrimSpace(t.FromLocation) == strings.TrimSpace(from) &&
		strings.TrimSpace(t.ToLocation) == strings.TrimSpace(to)
}

// Filter narrows trip listings.
type Filter struct {
	ContractorID   int64 `validate:"required,gt=0"`
	Material       string
	From           string
	To             string
	DateFrom       *time.Time
	DateTo         *time.Time
	UninvoicedOnly bool
}
