package entity

import "time"

// Wedding is the planning record a couple's bookings attach to
type Wedding struct {
	ID        string     `json:"id"`
	CoupleID  string     `json:"couple_id"`
	Date      *time.Time `json:"date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// VendorService is a service a vendor publishes, with its current packages
type VendorService struct {
	ID       string          `json:"id"`
	VendorID string          `json:"vendor_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Packages []PackageDetail `json:"packages,omitempty"`
}

// Profile holds the display fields of a user
type Profile struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Category    string `json:"category,omitempty"`
}
