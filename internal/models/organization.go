package models

import (
	"time"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"gorm.io/gorm"
)

// Organization is the company an employee record belongs to.
type Organization struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1024" json:"description"`
	Domain      string `gorm:"size:255;uniqueIndex" json:"domain"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func init() {
	coreServer.RegisterMigration(func() interface{} { return &Organization{} })
}
