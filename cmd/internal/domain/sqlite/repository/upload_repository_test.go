package repository

import (
	"context"
	"testing"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/stretchr/testify/require"
)

func TestUploadRepository_FindRecentAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := NewUploadRepository(openTestDB(t))

	for i, createdAt := range []int64{1000, 3000, 2000} {
		err := repo.Save(ctx, &entity.UploadReport{
			ID:        int64(i + 1),
			FileName:  "companies.xlsx",
			Policy:    "UPSERT",
			Status:    entity.UploadCompleted,
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
	}

	recent, err := repo.FindRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, int64(2), recent[0].ID)
	require.Equal(t, int64(3), recent[1].ID)

	deleted, err := repo.DeleteOlderThan(ctx, 2500)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	recent, err = repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, int64(3000), recent[0].CreatedAt)
}
