package entity

import (
	"fmt"
	"strings"
	"time"
)

// OfferStatus is the lifecycle state of a booking offer
type OfferStatus string

const (
	OfferPending     OfferStatus = "pending"
	OfferAccepted    OfferStatus = "accepted"
	OfferRejected    OfferStatus = "rejected"
	OfferNegotiating OfferStatus = "negotiating"
)

// offerTransitions lists the statuses reachable from each status.
// accepted and rejected are terminal.
var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferPending:     {OfferAccepted, OfferRejected, OfferNegotiating},
	OfferNegotiating: {OfferAccepted, OfferRejected},
}

// Valid reports whether s is a known offer status
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferRejected, OfferNegotiating:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed
func (s OfferStatus) Terminal() bool {
	return len(offerTransitions[s]) == 0
}

// CanTransition reports whether an offer may move from one status to another
func CanTransition(from, to OfferStatus) bool {
	for _, next := range offerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PackageDetail is a frozen copy of a service package at offer time
type PackageDetail struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

// OfferDateLayout is the layout of OfferData.Date
const OfferDateLayout = "2006-01-02"

// OfferData is the structured payload of an offer message
type OfferData struct {
	ServiceID        string          `json:"service_id"`
	ServiceName      string          `json:"service_name,omitempty"`
	ServiceCategory  string          `json:"service_category,omitempty"`
	Price            float64         `json:"price"`
	Date             string          `json:"date"`
	Services         []string        `json:"services"`
	SelectedPackages []string        `json:"selected_packages,omitempty"`
	PackageDetails   []PackageDetail `json:"package_details,omitempty"`
	Status           OfferStatus     `json:"status"`
}

// Validate checks the fields a vendor must supply when creating an offer
func (o *OfferData) Validate() error {
	var missing []string
	if o.ServiceID == "" {
		missing = append(missing, "serviceId")
	}
	if o.Price <= 0 {
		missing = append(missing, "price")
	}
	if o.Date == "" {
		missing = append(missing, "date")
	}
	if len(o.Services) == 0 {
		missing = append(missing, "services")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOfferFields, strings.Join(missing, ", "))
	}
	if _, err := o.EventDate(); err != nil {
		return ErrInvalidOfferDate
	}
	return nil
}

// EventDate parses Date
func (o *OfferData) EventDate() (time.Time, error) {
	return time.Parse(OfferDateLayout, o.Date)
}

// ResolvePackages snapshots the selected packages out of the service's current
// packages. Unknown ids are dropped. The result shares no memory with available.
func ResolvePackages(selected []string, available []PackageDetail) []PackageDetail {
	if len(selected) == 0 {
		return nil
	}

	byID := make(map[string]PackageDetail, len(available))
	for _, p := range available {
		byID[p.ID] = p
	}

	details := make([]PackageDetail, 0, len(selected))
	for _, id := range selected {
		if p, ok := byID[id]; ok {
			details = append(details, p)
		}
	}
	return details
}

// OfferLabelPrefix starts the synthetic content of every offer message
const OfferLabelPrefix = "[Offer]"

// OfferLabel is the content stored for an offer message and used as the
// conversation preview. It never contains ":" so it is never mistaken for ciphertext.
func OfferLabel(serviceName string, price float64) string {
	name := strings.ReplaceAll(serviceName, ":", " ")
	if name == "" {
		name = "Booking"
	}
	return fmt.Sprintf("%s %s - $%.2f", OfferLabelPrefix, name, price)
}

// IsOfferLabel reports whether text was produced by OfferLabel
func IsOfferLabel(text string) bool {
	return strings.HasPrefix(text, OfferLabelPrefix)
}
