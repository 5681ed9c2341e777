package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renewhub/renewhub/internal/database/testutil"
	"github.com/renewhub/renewhub/internal/models"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db)
	require.NoError(t, err)
	return svc
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Email: "Owner@Example.com", Name: "Owner", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, first.Role)
	require.Equal(t, "owner@example.com", first.Email)
	require.NotEqual(t, "password123", first.PasswordHash, "password must be hashed")

	second, err := svc.Register(ctx, RegisterInput{Email: "member@example.com", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, second.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "password456"})
	require.Error(t, err)

	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
}

func TestAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "login@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "LOGIN@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "login@example.com", user.Email)

	_, err = svc.Authenticate(ctx, "login@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUpdateLastAdminCannotBeDemoted(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	role := models.RoleUser
	_, err = svc.Update(ctx, admin.ID, UpdateUserInput{Role: &role})
	require.ErrorIs(t, err, ErrLastAdmin)

	// With a second admin in place the demotion goes through.
	_, err = svc.Create(ctx, CreateUserInput{Email: "backup@example.com", Password: "password123", Role: models.RoleAdmin})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, admin.ID, UpdateUserInput{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, updated.Role)
}

func TestDeleteLastAdminRejected(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, admin.ID), ErrLastAdmin)

	member, err := svc.Register(ctx, RegisterInput{Email: "member@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, member.ID))

	_, err = svc.GetByID(ctx, member.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	current := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newUserService(t).WithClock(func() time.Time { return current })
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "reset@example.com", Password: "password123"})
	require.NoError(t, err)

	code, user, err := svc.BeginPasswordReset(ctx, "reset@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.Equal(t, "reset@example.com", user.Email)

	// Wrong code is rejected without consuming the stored one.
	err = svc.CompletePasswordReset(ctx, "reset@example.com", "000000x", "newpassword1")
	require.ErrorIs(t, err, ErrResetCodeInvalid)

	require.NoError(t, svc.CompletePasswordReset(ctx, "reset@example.com", code, "newpassword1"))

	_, err = svc.Authenticate(ctx, "reset@example.com", "newpassword1")
	require.NoError(t, err)

	// The code cannot be replayed.
	err = svc.CompletePasswordReset(ctx, "reset@example.com", code, "anotherpass1")
	require.ErrorIs(t, err, ErrResetCodeInvalid)
}

func TestPasswordResetCodeExpires(t *testing.T) {
	current := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newUserService(t).WithClock(func() time.Time { return current })
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "slow@example.com", Password: "password123"})
	require.NoError(t, err)

	code, _, err := svc.BeginPasswordReset(ctx, "slow@example.com")
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)
	err = svc.CompletePasswordReset(ctx, "slow@example.com", code, "newpassword1")
	require.ErrorIs(t, err, ErrResetCodeInvalid)
}

func TestBeginPasswordResetUnknownEmail(t *testing.T) {
	svc := newUserService(t)
	_, _, err := svc.BeginPasswordReset(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}
