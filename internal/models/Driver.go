// internal/models/driver.go
package models

import "time"

type ComplianceStatus string

const (
	ComplianceCompliant ComplianceStatus = "compliant"
	ComplianceWarning   ComplianceStatus = "warning"
	ComplianceExceeded  ComplianceStatus = "exceeded"
)

// Driver is both the account and the HOS snapshot the server attaches to it.
// The snapshot fields are never persisted; the server fills them on every read.
type Driver struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Username      string `json:"username" gorm:"uniqueIndex;not null"`
	Email         string `json:"email"`
	Password      string `json:"-"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name" gorm:"-"`
	LicenseNumber string `json:"license_number" gorm:"uniqueIndex;not null"`
	Phone         string `json:"phone"`
	IsAdmin       bool   `json:"is_admin"`
	IsActive      bool   `json:"-" gorm:"default:true"`

	TotalHours8Days     Decimal          `json:"total_hours_8days" gorm:"-"`
	RemainingHours8Days Decimal          `json:"remaining_hours_8days" gorm:"-"`
	ComplianceStatus    ComplianceStatus `json:"compliance_status" gorm:"-"`
	MilesSinceLastFuel  Decimal          `json:"miles_since_last_fuel" gorm:"-"`
	NeedsRefuel         bool             `json:"needs_refuel" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Driver) TableName() string {
	return "drivers"
}

// DisplayName prefers the full name and falls back to the username.
func (d Driver) DisplayName() string {
	if d.FullName != "" {
		return d.FullName
	}
	if name := joinName(d.FirstName, d.LastName); name != "" {
		return name
	}
	return d.Username
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// FullNameOf is the name the server reports as full_name and driver_name.
func FullNameOf(d Driver) string {
	return joinName(d.FirstName, d.LastName)
}
