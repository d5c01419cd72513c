package entity

import "time"

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is an engagement between a wedding and a vendor service.
// There is at most one booking per (WeddingID, ServiceID).
type Booking struct {
	ID               string          `json:"id"`
	WeddingID        string          `json:"wedding_id"`
	ServiceID        string          `json:"service_id"`
	VendorID         string          `json:"vendor_id"`
	Status           BookingStatus   `json:"status"`
	EventDate        time.Time       `json:"event_date"`
	TotalPrice       float64         `json:"total_price"`
	DepositPaid      float64         `json:"deposit_paid"`
	Notes            string          `json:"notes,omitempty"`
	SelectedPackages []PackageDetail `json:"selected_packages,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BookingOverrides are couple-supplied values applied when accepting an offer.
// Set fields take precedence over the offer.
type BookingOverrides struct {
	EventDate  *string  `json:"event_date,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
	Deposit    *float64 `json:"deposit,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}
