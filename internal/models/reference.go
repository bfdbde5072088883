package models

import (
	"strconv"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// Reference is a lookup row identified by a natural key.
type Reference interface {
	ReferenceID() uint64
	NaturalKey() string
}

type Status struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	StatusName string `gorm:"size:128;uniqueIndex;not null" json:"status_name"`
}

type Entity struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityName string `gorm:"size:255;uniqueIndex;not null" json:"entity_name"`
}

type Budget struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BudgetName string `gorm:"size:255;uniqueIndex;not null" json:"budget_name"`
}

// Department is the HR department reference, named in English and Arabic.
type Department struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DepartmentEn string  `gorm:"size:255;uniqueIndex;not null" json:"department_en"`
	DepartmentAr *string `gorm:"size:255" json:"department_ar,omitempty"`
}

type Division struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DivisionName string `gorm:"size:255;uniqueIndex;not null" json:"division_name"`
}

type Unit struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitName string `gorm:"size:255;uniqueIndex;not null" json:"unit_name"`
}

type Position struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PositionEn string  `gorm:"size:255;uniqueIndex;not null" json:"position_en"`
	PositionAr *string `gorm:"size:255" json:"position_ar,omitempty"`
}

// Grade is keyed by the official numeric grade; the internal label rides along.
type Grade struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GradeOfficial int     `gorm:"uniqueIndex;not null" json:"grade_official"`
	GradeInternal *string `gorm:"size:64" json:"grade_internal,omitempty"`
}

type Location struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	LocationName string `gorm:"size:255;uniqueIndex;not null" json:"location_name"`
}

type ContractType struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TypeName string `gorm:"size:128;uniqueIndex;not null" json:"type_name"`
}

type Nationality struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	NationalityEn string  `gorm:"size:128;uniqueIndex;not null" json:"nationality_en"`
	NationalityAr *string `gorm:"size:128" json:"nationality_ar,omitempty"`
}

type Gender struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GenderEn string  `gorm:"size:64;uniqueIndex;not null" json:"gender_en"`
	GenderAr *string `gorm:"size:64" json:"gender_ar,omitempty"`
}

type MaritalStatus struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	StatusEn string  `gorm:"size:64;uniqueIndex;not null" json:"status_en"`
	StatusAr *string `gorm:"size:64" json:"status_ar,omitempty"`
}

func (r Status) ReferenceID() uint64        { return r.ID }
func (r Status) NaturalKey() string         { return r.StatusName }
func (r Entity) ReferenceID() uint64        { return r.ID }
func (r Entity) NaturalKey() string         { return r.EntityName }
func (r Budget) ReferenceID() uint64        { return r.ID }
func (r Budget) NaturalKey() string         { return r.BudgetName }
func (r Department) ReferenceID() uint64    { return r.ID }
func (r Department) NaturalKey() string     { return r.DepartmentEn }
func (r Division) ReferenceID() uint64      { return r.ID }
func (r Division) NaturalKey() string       { return r.DivisionName }
func (r Unit) ReferenceID() uint64          { return r.ID }
func (r Unit) NaturalKey() string           { return r.UnitName }
func (r Position) ReferenceID() uint64      { return r.ID }
func (r Position) NaturalKey() string       { return r.PositionEn }
func (r Grade) ReferenceID() uint64         { return r.ID }
func (r Grade) NaturalKey() string          { return strconv.Itoa(r.GradeOfficial) }
func (r Location) ReferenceID() uint64      { return r.ID }
func (r Location) NaturalKey() string       { return r.LocationName }
func (r ContractType) ReferenceID() uint64  { return r.ID }
func (r ContractType) NaturalKey() string   { return r.TypeName }
func (r Nationality) ReferenceID() uint64   { return r.ID }
func (r Nationality) NaturalKey() string    { return r.NationalityEn }
func (r Gender) ReferenceID() uint64        { return r.ID }
func (r Gender) NaturalKey() string         { return r.GenderEn }
func (r MaritalStatus) ReferenceID() uint64 { return r.ID }
func (r MaritalStatus) NaturalKey() string  { return r.StatusEn }

func init() {
	coreServer.RegisterMigration(func() interface{} { return &Status{} })
	coreServer.RegisterMigration(func() interface{} { return &Entity{} })
	coreServer.RegisterMigration(func() interface{} { return &Budget{} })
	coreServer.RegisterMigration(func() interface{} { return &Department{} })
	coreServer.RegisterMigration(func() interface{} { return &Division{} })
	coreServer.RegisterMigration(func() interface{} { return &Unit{} })
	coreServer.RegisterMigration(func() interface{} { return &Position{} })
	coreServer.RegisterMigration(func() interface{} { return &Grade{} })
	coreServer.RegisterMigration(func() interface{} { return &Location{} })
	coreServer.RegisterMigration(func() interface{} { return &ContractType{} })
	coreServer.RegisterMigration(func() interface{} { return &Nationality{} })
	coreServer.RegisterMigration(func() interface{} { return &Gender{} })
	coreServer.RegisterMigration(func() interface{} { return &MaritalStatus{} })
}
