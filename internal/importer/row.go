package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// Keys of the camelCased sheet columns the importer reads.
const (
	KeyEmployeeCode         = "employeeCode"
	KeyEmployeeCategory     = "employeeCategory"
	KeyRegisterName         = "registername"
	KeyStatus               = "status"
	KeyExpectedStartDate    = "expectedStartDate"
	KeyActualStartDate      = "actualStartDate"
	KeyProbationEndDate     = "probationEndDate"
	KeyTerminationDate      = "termination/ResignationDate"
	KeyTerminationReason    = "termination/ResignationReason"
	KeyResignationType      = "resignationType"
	KeyDateOfBirth          = "dateOfBirth"
	KeyIDName               = "idName"
	KeyIDNameAr             = "idNameAr"
	KeyFirstName            = "firstName"
	KeyLastName             = "lastName"
	KeyFirstNameAr          = "firstNameAr"
	KeyLastNameAr           = "lastNameAr"
	KeyEntity               = "entity"
	KeyBudget               = "budget"
	KeyDepartment           = "department"
	KeyDepartmentAr         = "departmentAr"
	KeyDivision             = "division"
	KeyUnit                 = "unit"
	KeyPosition             = "position"
	KeyPositionAr           = "positionAr"
	KeyGradeOfficial        = "gradeOfficial"
	KeyGradeInternal        = "gradeInternal"
	KeyLocation             = "location"
	KeyContractType         = "contractType"
	KeyNationality          = "nationality"
	KeyNationalityAr        = "nationalityAr"
	KeyGender               = "gender"
	KeyGenderAr             = "genderAr"
	KeyMaritalStatus        = "maritalStatus"
	KeyMaritalStatusAr      = "maritalStatusAr"
	KeyDirectManagerCode    = "directManagerCode"
	KeyDirectManagerName    = "directManagerName"
	KeyEmail                = "email"
	KeyPersonalPhoneNumber1 = "personalPhoneNumber1"
	KeyCorporatePhoneNumber = "corporatePhoneNumber"
	KeyIDNumber             = "idNumber"
	KeyIDPlaceOfIssue       = "idPlaceOfIssueEn"
	KeyIDAddress            = "idAddress"
	KeyIDAddressAr          = "idAddressAr"
	KeyIDZoneOfResidence    = "idZoneOfResidence"
	KeyPlaceOfBirth         = "placeOfBirthEn"
	KeyCompanyID            = "companyId"
	KeyCleared              = "cleared"
	KeyDisabilityType       = "disabilityType"
	KeySourceID             = "sourceid"
)

// Row is one employee as read from a sheet: camelCased header → cell text.
// Empty cells are absent.
type Row map[string]string

// Get returns the trimmed value of key, or "".
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Optional returns a pointer to the value of key, or nil when it is empty.
func (r Row) Optional(key string) *string {
	v := r.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// Date parses key as an Excel serial or a date string.
func (r Row) Date(key string) (*time.Time, error) {
	v := r.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}

// Int parses key as a whole number; "5.0" is accepted.
func (r Row) Int(key string) (*int64, error) {
	v := r.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := ParseInt(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &n, nil
}

// ParseInt reads a whole number written as an integer or an integral float.
func ParseInt(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", v)
	}
	return int64(f), nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate accepts an Excel serial (days since 1899-12-30) or one of the
// common date spellings. Slash dates are read day first.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, fmt.Errorf("invalid date serial %q", v)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", v, err)
		}
		return t.UTC(), nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

// normalise trims and NFC-normalises a cell.
func normalise(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// RowFromJSON converts a decoded JSON object into a Row, formatting numbers
// without exponent so serials and codes survive.
func RowFromJSON(obj map[string]any) Row {
	row := make(Row, len(obj))
	for key, raw := range obj {
		var v string
		switch val := raw.(type) {
		case nil:
			continue
		case string:
			v = val
		case float64:
			v = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			v = strconv.FormatBool(val)
		default:
			v = fmt.Sprint(val)
		}
		if v = normalise(v); v != "" {
			row[key] = v
		}
	}
	return row
}
