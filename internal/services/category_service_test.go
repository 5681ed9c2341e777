package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renewhub/renewhub/internal/database/testutil"
)

func newCategoryService(t *testing.T) *CategoryService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCategoryService(db)
	require.NoError(t, err)
	return svc
}

func TestCategoryCRUD(t *testing.T) {
	svc := newCategoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CategoryInput{Name: "Hosting", Description: "Servers and DNS"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	listed, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	updated, err := svc.Update(ctx, "user-1", created.ID, CategoryInput{Name: "Infrastructure"})
	require.NoError(t, err)
	require.Equal(t, "Infrastructure", updated.Name)

	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))

	_, err = svc.Get(ctx, "user-1", created.ID)
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryScopedPerUser(t *testing.T) {
	svc := newCategoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CategoryInput{Name: "Private"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", created.ID)
	require.ErrorIs(t, err, ErrCategoryNotFound)

	other, err := svc.List(ctx, "user-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestCategoryRequiresName(t *testing.T) {
	svc := newCategoryService(t)

	_, err := svc.Create(context.Background(), "user-1", CategoryInput{Name: "   "})
	require.Error(t, err)
}
