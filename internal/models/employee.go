package models

import (
	"strings"
	"time"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// Employee is the HR record of one person, keyed by employee code.
type Employee struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeCode     string  `gorm:"size:64;uniqueIndex;not null" json:"employee_code"`
	EmployeeCategory *string `gorm:"size:128" json:"employee_category,omitempty"`
	RegisterName     *string `gorm:"size:255" json:"register_name,omitempty"`

	OrganizationID *uint64       `gorm:"type:bigint;index" json:"organization_id,omitempty"`
	Organization   *Organization `json:"organization,omitempty"`

	StatusID *uint64 `gorm:"type:bigint;index" json:"status_id,omitempty"`
	Status   *Status `json:"status,omitempty"`

	ExpectedStartDate *time.Time `json:"expected_start_date,omitempty"`
	ActualStartDate   *time.Time `gorm:"index" json:"actual_start_date,omitempty"`
	ProbationEndDate  *time.Time `json:"probation_end_date,omitempty"`
	TerminationDate   *time.Time `gorm:"index" json:"termination_date,omitempty"`
	TerminationReason *string    `gorm:"size:255" json:"termination_reason,omitempty"`
	ResignationType   *string    `gorm:"size:128" json:"resignation_type,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`

	IDName      *string `gorm:"size:255" json:"id_name,omitempty"`
	IDNameAr    *string `gorm:"size:255" json:"id_name_ar,omitempty"`
	FirstName   *string `gorm:"size:128" json:"first_name,omitempty"`
	LastName    *string `gorm:"size:128" json:"last_name,omitempty"`
	FirstNameAr *string `gorm:"size:128" json:"first_name_ar,omitempty"`
	LastNameAr  *string `gorm:"size:128" json:"last_name_ar,omitempty"`

	EntityID       *uint64       `gorm:"type:bigint;index" json:"entity_id,omitempty"`
	Entity         *Entity       `json:"entity,omitempty"`
	BudgetID       *uint64       `gorm:"type:bigint;index" json:"budget_id,omitempty"`
	Budget         *Budget       `json:"budget,omitempty"`
	DepartmentID   *uint64       `gorm:"type:bigint;index" json:"department_id,omitempty"`
	Department     *Department   `json:"department,omitempty"`
	DivisionID     *uint64       `gorm:"type:bigint;index" json:"division_id,omitempty"`
	Division       *Division     `json:"division,omitempty"`
	UnitID         *uint64       `gorm:"type:bigint;index" json:"unit_id,omitempty"`
	Unit           *Unit         `json:"unit,omitempty"`
	PositionID     *uint64       `gorm:"type:bigint;index" json:"position_id,omitempty"`
	Position       *Position     `json:"position,omitempty"`
	GradeID        *uint64       `gorm:"type:bigint;index" json:"grade_id,omitempty"`
	Grade          *Grade        `json:"grade,omitempty"`
	LocationID     *uint64       `gorm:"type:bigint;index" json:"location_id,omitempty"`
	Location       *Location     `json:"location,omitempty"`
	ContractTypeID *uint64       `gorm:"type:bigint;index" json:"contract_type_id,omitempty"`
	ContractType   *ContractType `json:"contract_type,omitempty"`
	NationalityID  *uint64       `gorm:"type:bigint;index" json:"nationality_id,omitempty"`
	Nationality    *Nationality  `json:"nationality,omitempty"`
	GenderID       *uint64       `gorm:"type:bigint;index" json:"gender_id,omitempty"`
	Gender         *Gender       `json:"gender,omitempty"`

	MaritalStatusID *uint64        `gorm:"type:bigint;index" json:"marital_status_id,omitempty"`
	MaritalStatus   *MaritalStatus `json:"marital_status,omitempty"`

	// Manager linkage: the code comes from HR data, the id is resolved by reconciliation.
	DirectManagerCode *string   `gorm:"size:64;index" json:"direct_manager_code,omitempty"`
	DirectManagerName *string   `gorm:"size:255" json:"direct_manager_name,omitempty"`
	ManagerID         *uint64   `gorm:"type:bigint;index" json:"manager_id,omitempty"`
	Manager           *Employee `gorm:"foreignKey:ManagerID;constraint:OnDelete:SET NULL" json:"-"`

	Email                *string `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	PersonalPhoneNumber1 *string `gorm:"size:64" json:"personal_phone_number1,omitempty"`
	CorporatePhoneNumber *string `gorm:"size:64;index" json:"corporate_phone_number,omitempty"`
	IDNumber             *string `gorm:"size:64" json:"id_number,omitempty"`
	IDPlaceOfIssue       *string `gorm:"size:255" json:"id_place_of_issue,omitempty"`
	IDAddress            *string `gorm:"size:512" json:"id_address,omitempty"`
	IDAddressAr          *string `gorm:"size:512" json:"id_address_ar,omitempty"`
	IDZoneOfResidence    *string `gorm:"size:255" json:"id_zone_of_residence,omitempty"`
	PlaceOfBirth         *string `gorm:"size:255" json:"place_of_birth,omitempty"`
	CompanyID            *string `gorm:"size:64" json:"company_id,omitempty"`
	Cleared              *string `gorm:"size:64" json:"cleared,omitempty"`
	DisabilityType       *string `gorm:"size:128" json:"disability_type,omitempty"`
	SourceID             *int64  `json:"source_id,omitempty"`

	// Security fields
	IsSuperAdmin  bool       `gorm:"default:false" json:"is_super_admin"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil   *time.Time `json:"-"`

	// Timestamps
	InsertionDate time.Time `gorm:"autoCreateTime" json:"insertion_date"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName joins first and last name with a space, skipping empty parts.
func (e *Employee) FullName() string {
	parts := make([]string, 0, 2)
	if v := deref(e.FirstName); v != "" {
		parts = append(parts, v)
	}
	if v := deref(e.LastName); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// IsLocked reports whether the lockout window is still open at now.
func (e *Employee) IsLocked(now time.Time) bool {
	return e.LockedUntil != nil && e.LockedUntil.After(now)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func init() {
	coreServer.RegisterMigration(func() interface{} { return &Employee{} })
}
