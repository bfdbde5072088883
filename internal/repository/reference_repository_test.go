package repository

import (
	"context"
	"testing"

	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceUpsertIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, nil, KindDepartment, []ReferenceValue{
		{Key: "Finance"},
		{Key: " Finance ", Companion: strPtr("المالية")},
		{Key: "IT"},
		{Key: ""},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repo.Upsert(ctx, nil, KindDepartment, []ReferenceValue{{Key: "Finance"}, {Key: "HR"}})
	require.NoError(t, err)
	assert.Equal(t, first["Finance"], second["Finance"])
	assert.NotZero(t, second["HR"])

	var dept models.Department
	require.NoError(t, db.First(&dept, "department_en = ?", "Finance").Error)
	require.NotNil(t, dept.DepartmentAr)
	assert.Equal(t, "المالية", *dept.DepartmentAr, "a missing companion must not erase the stored one")

	_, err = repo.Upsert(ctx, nil, KindDepartment, []ReferenceValue{{Key: "Finance", Companion: strPtr("قسم المالية")}})
	require.NoError(t, err)
	require.NoError(t, db.First(&dept, "department_en = ?", "Finance").Error)
	assert.Equal(t, "قسم المالية", *dept.DepartmentAr)

	var count int64
	require.NoError(t, db.Model(&models.Department{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestReferenceUpsertGrades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	ids, err := repo.Upsert(ctx, nil, KindGrade, []ReferenceValue{{Key: "5", Companion: strPtr("G5")}, {Key: "7"}})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotZero(t, ids["5"])

	_, err = repo.Upsert(ctx, nil, KindGrade, []ReferenceValue{{Key: "five"}})
	assert.Error(t, err)
}

func TestReferenceEnsureAndUnknownKind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	id, err := repo.Ensure(ctx, KindStatus, "Active")
	require.NoError(t, err)
	again, err := repo.Ensure(ctx, KindStatus, "Active")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	for _, kind := range ReferenceKinds {
		_, err := repo.Upsert(ctx, nil, kind, []ReferenceValue{{Key: "1"}})
		assert.NoError(t, err, kind)
	}

	_, err = repo.Upsert(ctx, nil, ReferenceKind("planet"), []ReferenceValue{{Key: "x"}})
	assert.Error(t, err)
}

func TestCreatedRowsGetDistinctIDs(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	a := models.Status{StatusName: "Active"}
	b := models.Status{StatusName: "Terminated"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	assert.NotZero(t, a.ID)
	assert.NotZero(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)

	ids, err := NewReferenceRepository(db).Upsert(ctx, nil, KindDepartment, []ReferenceValue{{Key: "IT"}, {Key: "Finance"}})
	require.NoError(t, err)
	assert.NotZero(t, ids["IT"])
	assert.NotZero(t, ids["Finance"])
	assert.NotEqual(t, ids["IT"], ids["Finance"])

	orgs := NewOrganizationRepository(db)
	org, err := orgs.EnsureOrganization(ctx, "Root", "", "root.local")
	require.NoError(t, err)
	assert.NotZero(t, org.ID)

	again, err := orgs.EnsureOrganization(ctx, "Root", "Head office", "root.local")
	require.NoError(t, err)
	assert.Equal(t, org.ID, again.ID)
}
