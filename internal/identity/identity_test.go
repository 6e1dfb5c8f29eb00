package identity

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/mocks"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

const testSecret = "test-signing-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewVerifier(testSecret)

	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub": strconv.FormatInt(42, 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	session, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.UserID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewVerifier(testSecret)

	token := signedToken(t, "other-secret", jwt.MapClaims{"sub": "42"})

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier := NewVerifier(testSecret)

	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	verifier := NewVerifier(testSecret)

	for _, sub := range []string{"", "abc", "-1", "0"} {
		token := signedToken(t, testSecret, jwt.MapClaims{"sub": sub})
		_, err := verifier.Verify(token)
		require.ErrorIs(t, err, ErrInvalidSession, "subject %q", sub)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := NewVerifier(testSecret)

	_, err := verifier.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolveGuardianWinsOverProfessional(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	profiles.On("HasGuardian", mock.Anything, int64(1)).Return(true, nil).Once()

	resolver := NewResolver(profiles)
	identity := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, models.RoleGuardian, identity.Role)
	profiles.AssertNotCalled(t, "HasProfessional", mock.Anything, mock.Anything)
}

func TestResolveProfessional(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	profiles.On("HasGuardian", mock.Anything, int64(2)).Return(false, nil).Once()
	profiles.On("HasProfessional", mock.Anything, int64(2)).Return(true, nil).Once()

	resolver := NewResolver(profiles)
	identity := resolver.Resolve(context.Background(), 2)

	assert.Equal(t, models.RoleProfessional, identity.Role)
}

func TestResolveNoMembershipMeansNoRole(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	profiles.On("HasGuardian", mock.Anything, int64(3)).Return(false, nil).Once()
	profiles.On("HasProfessional", mock.Anything, int64(3)).Return(false, nil).Once()

	resolver := NewResolver(profiles)
	identity := resolver.Resolve(context.Background(), 3)

	assert.Equal(t, models.RoleNone, identity.Role)
	assert.Equal(t, int64(3), identity.UserID)
}

func TestResolveQueryErrorFailsClosed(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	profiles.On("HasGuardian", mock.Anything, int64(4)).Return(false, assert.AnError).Once()

	resolver := NewResolver(profiles)
	identity := resolver.Resolve(context.Background(), 4)

	assert.Equal(t, models.RoleNone, identity.Role)
}
