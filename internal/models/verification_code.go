package models

import (
	"time"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// VerificationCode holds the latest one-time sign-in code of an employee.
// Only the bcrypt hash is stored.
type VerificationCode struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeCode string     `gorm:"size:64;uniqueIndex;not null" json:"employee_code"`
	CodeHash     string     `gorm:"size:255;not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null" json:"expires_at"`
	Attempts     int        `gorm:"default:0" json:"attempts"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Usable reports whether the code can still be redeemed at now.
func (v *VerificationCode) Usable(now time.Time) bool {
	return v != nil && v.ConsumedAt == nil && now.Before(v.ExpiresAt)
}

func init() {
	coreServer.RegisterMigration(func() interface{} { return &VerificationCode{} })
}
