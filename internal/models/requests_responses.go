package models

import (
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// SendTokenRequest asks for a one-time code. Email may also carry a phone
// number suffix or an employee code.
type SendTokenRequest struct {
	Email string `json:"email" validate:"required"`
}

// LoginRequest redeems a one-time code.
type LoginRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse represents the response after successful login
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int              `json:"expires_in"`
	TokenType    string           `json:"token_type"`
	User         *EmployeeProfile `json:"user"`
}

// EmployeeProfile is the session view of the signed-in employee with every
// reference resolved to its display name.
type EmployeeProfile struct {
	ID            uint64  `json:"id"`
	EmployeeCode  string  `json:"employee_code"`
	Email         string  `json:"email"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	FirstNameAr   string  `json:"first_name_ar"`
	LastNameAr    string  `json:"last_name_ar"`
	IDName        string  `json:"id_name"`
	DepartmentID  *uint64 `json:"department_id,omitempty"`
	UnitID        *uint64 `json:"unit_id,omitempty"`
	ManagerID     *uint64 `json:"manager_id,omitempty"`
	Organization  string  `json:"organization"`
	PositionEn    string  `json:"position_en"`
	PositionAr    string  `json:"position_ar"`
	DepartmentEn  string  `json:"department_en"`
	DepartmentAr  string  `json:"department_ar"`
	Division      string  `json:"division"`
	Unit          string  `json:"unit"`
	GradeInternal string  `json:"grade_internal"`
	GradeOfficial int     `json:"grade_official"`
	Location      string  `json:"location"`
	ContractType  string  `json:"contract_type"`
	NationalityEn string  `json:"nationality_en"`
	NationalityAr string  `json:"nationality_ar"`
	GenderEn      string  `json:"gender_en"`
	GenderAr      string  `json:"gender_ar"`
	MaritalEn     string  `json:"marital_status_en"`
	MaritalAr     string  `json:"marital_status_ar"`
	Entity        string  `json:"entity"`
	Budget        string  `json:"budget"`
	Status        string  `json:"status"`
	IsSuperAdmin  bool    `json:"is_super_admin"`
	HRAccess      bool    `json:"hr_access"`

	Navigation map[string]bool `json:"navigation"`
}

// EmployeeSummary is a directory row.
type EmployeeSummary struct {
	ID                uint64  `json:"id"`
	EmployeeCode      string  `json:"employee_code"`
	Name              string  `json:"name"`
	Email             string  `json:"email,omitempty"`
	Department        string  `json:"department,omitempty"`
	Position          string  `json:"position,omitempty"`
	GradeOfficial     int     `json:"grade_official,omitempty"`
	Status            string  `json:"status,omitempty"`
	ManagerID         *uint64 `json:"manager_id,omitempty"`
	DirectManagerCode string  `json:"direct_manager_code,omitempty"`
}

func init() {
	coreServer.RegisterSchemaType("send-token-request", SendTokenRequest{})
	coreServer.RegisterSchemaType("login-request", LoginRequest{})
	coreServer.RegisterSchemaType("login-response", LoginResponse{})
	coreServer.RegisterSchemaType("employee-profile", EmployeeProfile{})
}
