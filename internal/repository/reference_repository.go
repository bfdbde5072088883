package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferenceKind names one reference table.
type ReferenceKind string

const (
	KindStatus        ReferenceKind = "status"
	KindEntity        ReferenceKind = "entity"
	KindBudget        ReferenceKind = "budget"
	KindDepartment    ReferenceKind = "department"
	KindDivision      ReferenceKind = "division"
	KindUnit          ReferenceKind = "unit"
	KindPosition      ReferenceKind = "position"
	KindGrade         ReferenceKind = "grade"
	KindLocation      ReferenceKind = "location"
	KindContractType  ReferenceKind = "contractType"
	KindNationality   ReferenceKind = "nationality"
	KindGender        ReferenceKind = "gender"
	KindMaritalStatus ReferenceKind = "maritalStatus"
)

// ReferenceKinds lists every kind in the order an import creates them.
var ReferenceKinds = []ReferenceKind{
	KindStatus, KindEntity, KindBudget, KindDepartment, KindDivision, KindUnit,
	KindPosition, KindGrade, KindLocation, KindContractType, KindNationality,
	KindGender, KindMaritalStatus,
}

// ReferenceValue is one natural key with its optional companion column
// (Arabic name, internal grade).
type ReferenceValue struct {
	Key       string
	Companion *string
}

type referenceTable struct {
	table     string
	keyColumn string
	companion string
}

var referenceTables = map[ReferenceKind]referenceTable{
	KindStatus:        {"statuses", "status_name", ""},
	KindEntity:        {"entities", "entity_name", ""},
	KindBudget:        {"budgets", "budget_name", ""},
	KindDepartment:    {"departments", "department_en", "department_ar"},
	KindDivision:      {"divisions", "division_name", ""},
	KindUnit:          {"units", "unit_name", ""},
	KindPosition:      {"positions", "position_en", "position_ar"},
	KindGrade:         {"grades", "grade_official", "grade_internal"},
	KindLocation:      {"locations", "location_name", ""},
	KindContractType:  {"contract_types", "type_name", ""},
	KindNationality:   {"nationalities", "nationality_en", "nationality_ar"},
	KindGender:        {"genders", "gender_en", "gender_ar"},
	KindMaritalStatus: {"marital_statuses", "status_en", "status_ar"},
}

// ReferenceRepository upserts and resolves the lookup tables employees point at.
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Upsert creates the missing rows of kind, refreshes non-empty companion
// values and returns the id of every key. It runs on tx when given.
func (r *ReferenceRepository) Upsert(ctx context.Context, tx *gorm.DB, kind ReferenceKind, values []ReferenceValue) (map[string]uint64, error) {
	if tx == nil {
		tx = r.db
	}
	tx = tx.WithContext(ctx)

	meta, ok := referenceTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	values = dedupeReferenceValues(values)
	if len(values) == 0 {
		return map[string]uint64{}, nil
	}

	switch kind {
	case KindStatus:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Status { return models.Status{StatusName: v.Key} }))
	case KindEntity:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Entity { return models.Entity{EntityName: v.Key} }))
	case KindBudget:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Budget { return models.Budget{BudgetName: v.Key} }))
	case KindDepartment:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Department {
			return models.Department{DepartmentEn: v.Key, DepartmentAr: v.Companion}
		}))
	case KindDivision:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Division { return models.Division{DivisionName: v.Key} }))
	case KindUnit:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Unit { return models.Unit{UnitName: v.Key} }))
	case KindPosition:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Position {
			return models.Position{PositionEn: v.Key, PositionAr: v.Companion}
		}))
	case KindGrade:
		grades := make([]models.Grade, 0, len(values))
		for _, v := range values {
			official, err := strconv.Atoi(v.Key)
			if err != nil {
				return nil, fmt.Errorf("grade %q is not a number", v.Key)
			}
			grades = append(grades, models.Grade{GradeOfficial: official, GradeInternal: v.Companion})
		}
		return upsertReferences(tx, meta, grades)
	case KindLocation:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Location { return models.Location{LocationName: v.Key} }))
	case KindContractType:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.ContractType { return models.ContractType{TypeName: v.Key} }))
	case KindNationality:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Nationality {
			return models.Nationality{NationalityEn: v.Key, NationalityAr: v.Companion}
		}))
	case KindGender:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.Gender {
			return models.Gender{GenderEn: v.Key, GenderAr: v.Companion}
		}))
	case KindMaritalStatus:
		return upsertReferences(tx, meta, mapValues(values, func(v ReferenceValue) models.MaritalStatus {
			return models.MaritalStatus{StatusEn: v.Key, StatusAr: v.Companion}
		}))
	}
	return nil, fmt.Errorf("unknown reference kind %q", kind)
}

// Ensure upserts a single key and returns its id.
func (r *ReferenceRepository) Ensure(ctx context.Context, kind ReferenceKind, key string) (uint64, error) {
	ids, err := r.Upsert(ctx, nil, kind, []ReferenceValue{{Key: key}})
	if err != nil {
		return 0, err
	}
	id, ok := ids[strings.TrimSpace(key)]
	if !ok {
		return 0, fmt.Errorf("%s %q was not stored", kind, key)
	}
	return id, nil
}

func upsertReferences[T models.Reference](tx *gorm.DB, meta referenceTable, rows []T) (map[string]uint64, error) {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: meta.keyColumn}},
		DoNothing: true,
	}
	if meta.companion != "" {
		conflict = clause.OnConflict{
			Columns: []clause.Column{{Name: meta.keyColumn}},
			DoUpdates: clause.Set{{
				Column: clause.Column{Name: meta.companion},
				Value: gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, %s.%s)",
					meta.companion, meta.table, meta.companion)),
			}},
		}
	}
	if err := tx.Clauses(conflict).CreateInBatches(&rows, 100).Error; err != nil {
		return nil, err
	}

	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		if grade, ok := any(row).(models.Grade); ok {
			keys = append(keys, grade.GradeOfficial)
			continue
		}
		keys = append(keys, row.NaturalKey())
	}
	return loadReferenceIDs[T](tx, meta.keyColumn, keys)
}

func loadReferenceIDs[T models.Reference](tx *gorm.DB, keyColumn string, keys []any) (map[string]uint64, error) {
	var stored []T
	if err := tx.Where(keyColumn+" IN ?", keys).Find(&stored).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint64, len(stored))
	for _, row := range stored {
		ids[row.NaturalKey()] = row.ReferenceID()
	}
	return ids, nil
}

// dedupeReferenceValues trims keys, drops empty ones and keeps the first
// non-empty companion seen for each key.
func dedupeReferenceValues(values []ReferenceValue) []ReferenceValue {
	index := make(map[string]int, len(values))
	out := make([]ReferenceValue, 0, len(values))
	for _, v := range values {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			continue
		}
		companion := v.Companion
		if companion != nil && strings.TrimSpace(*companion) == "" {
			companion = nil
		}
		if i, seen := index[key]; seen {
			if out[i].Companion == nil {
				out[i].Companion = companion
			}
			continue
		}
		index[key] = len(out)
		out = append(out, ReferenceValue{Key: key, Companion: companion})
	}
	return out
}

func mapValues[T any](values []ReferenceValue, fn func(ReferenceValue) T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		out = append(out, fn(v))
	}
	return out
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.ReferenceRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewReferenceRepository(app.DB), nil
	})
}
