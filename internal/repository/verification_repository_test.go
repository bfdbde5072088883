package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewVerificationRepository(db)
	ctx := context.Background()
	expires := time.Now().Add(10 * time.Minute)

	require.NoError(t, repo.Replace(ctx, "E1", "hash-1", expires))
	row, err := repo.Get(ctx, "E1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Usable(time.Now()))

	require.NoError(t, repo.IncrementAttempts(ctx, row.ID))
	ok, err := repo.Consume(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Consume(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a code is single use")

	require.NoError(t, repo.Replace(ctx, "E1", "hash-2", expires))
	row, err = repo.Get(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", row.CodeHash)
	assert.Zero(t, row.Attempts)
	assert.Nil(t, row.ConsumedAt)

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	missing, err := repo.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Replace(ctx, "E2", "hash", time.Now().Add(-time.Minute)))
	removed, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestImportJobRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewImportJobRepository(db)
	ctx := context.Background()

	job := &models.ImportJob{ID: uuid.NewString(), FileName: "staff.xlsx", Stage: models.ImportStageIdle, Total: 3}
	require.NoError(t, repo.Create(ctx, job))

	job.Stage = models.ImportStageCompleted
	job.Errors = models.StringList{"Error with employee E1: boom"}
	require.NoError(t, repo.Save(ctx, job))

	stored, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.ImportStageCompleted, stored.Stage)
	assert.Equal(t, []string{"Error with employee E1: boom"}, []string(stored.Errors))

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	missing, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnsureOrganization(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	org, err := repo.EnsureOrganization(ctx, "RDMC", "", "rdmc.example")
	require.NoError(t, err)
	again, err := repo.EnsureOrganization(ctx, "RDMC", "Head office", "rdmc.example")
	require.NoError(t, err)
	assert.Equal(t, org.ID, again.ID)
	assert.Equal(t, "Head office", again.Description)

	def, err := repo.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, org.ID, def.ID)

	_, err = repo.EnsureOrganization(ctx, " ", "", "")
	assert.Error(t, err)
}
