package service

import (
	"context"
	"testing"

	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "E2", First: "Mona", Last: "Hassan", Department: "IT", Grade: 5, Position: "Engineer", ManagerCode: "E1"})
	seed.Employee(testutil.Seed{Code: "E1", First: "Omar"})
	seed.Employee(testutil.Seed{Code: "E3", Inactive: true})
	seed.Link("E2", "E1")

	svc := NewDirectoryService(repository.NewEmployeeRepository(db))
	ctx := context.Background()

	page, total, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "E1", page[0].EmployeeCode)
	assert.Equal(t, models.EmployeeSummary{
		ID:                page[1].ID,
		EmployeeCode:      "E2",
		Name:              "Mona Hassan",
		Email:             "e2@example.com",
		Department:        "IT",
		Position:          "Engineer",
		GradeOfficial:     5,
		Status:            "Active",
		ManagerID:         page[1].ManagerID,
		DirectManagerCode: "E1",
	}, page[1])
	require.NotNil(t, page[1].ManagerID)

	last, _, err := svc.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "Terminated", last[0].Status)

	emp, err := svc.Get(ctx, " E2 ")
	require.NoError(t, err)
	assert.Equal(t, "E2", emp.EmployeeCode)

	_, err = svc.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}
