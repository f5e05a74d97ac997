package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dealdesk/internal/database/testutil"
	"dealdesk/internal/models"
	apperrors "dealdesk/pkg/errors"
)

func newUserFixture(t *testing.T) *UserService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db)
	require.NoError(t, err)
	return svc
}

func registerInvestor(t *testing.T, svc *UserService, email string) *models.User {
	t.Helper()
	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:     email,
		Password:  "correct horse battery",
		FirstName: "Ada",
		LastName:  "Laine",
		Role:      models.RoleInvestor,
	})
	require.NoError(t, err)
	return user
}

func TestCreateUserHashesPasswordAndNormalisesEmail(t *testing.T) {
	svc := newUserFixture(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:     "  Ada@Example.COM ",
		Password:  "correct horse battery",
		FirstName: "Ada",
		LastName:  "Laine",
		Role:      models.RoleInvestor,
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.NotEqual(t, "correct horse battery", user.Password)
	require.Equal(t, "en", user.Locale)
	require.True(t, user.Enabled)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Email:     "ADA@example.com",
		Password:  "another password",
		FirstName: "Ada",
		LastName:  "Laine",
		Role:      models.RoleInvestor,
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	svc := newUserFixture(t)
	user := registerInvestor(t, svc, "ada@example.com")

	got, err := svc.Authenticate(context.Background(), "Ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)

	_, err = svc.Authenticate(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "correct horse battery")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthenticateRejectsDisabledAccounts(t *testing.T) {
	svc := newUserFixture(t)
	user := registerInvestor(t, svc, "ada@example.com")

	require.NoError(t, svc.SetEnabled(context.Background(), user.ID, false))

	_, err := svc.Authenticate(context.Background(), "ada@example.com", "correct horse battery")
	require.ErrorIs(t, err, apperrors.ErrAccountDisabled)

	require.NoError(t, svc.SetEnabled(context.Background(), user.ID, true))
	_, err = svc.Authenticate(context.Background(), "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	require.ErrorIs(t, svc.SetEnabled(context.Background(), "missing", false), apperrors.ErrNotFound)
}

func TestListUsersByRole(t *testing.T) {
	svc := newUserFixture(t)
	registerInvestor(t, svc, "one@example.com")
	registerInvestor(t, svc, "two@example.com")

	_, err := svc.Create(context.Background(), CreateUserInput{
		Email:     "staff@example.com",
		Password:  "correct horse battery",
		FirstName: "Sam",
		LastName:  "Ops",
		Role:      models.RoleTeam,
	})
	require.NoError(t, err)

	investors, err := svc.List(context.Background(), models.RoleInvestor)
	require.NoError(t, err)
	require.Len(t, investors, 2)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}
