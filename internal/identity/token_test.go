package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
)

var tokenService = NewTokenService("test-signing-key", "test-audience")

var alice = domain.Identity{Issuer: "OrgA", Subject: "Alice", Role: domain.RoleEvidenceCollector}

func Test_IssueAndValidate(t *testing.T) {
	token, err := tokenService.IssueToken(alice, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func Test_ValidateToken_WithoutRole(t *testing.T) {
	token, err := tokenService.IssueToken(domain.Identity{Issuer: "OrgB", Subject: "Bob"}, time.Hour)
	require.NoError(t, err)

	got, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, got.HasRole())
	assert.Equal(t, "OrgB:Bob", got.Actor())
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "invalid token")
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := tokenService.IssueToken(alice, -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewTokenService("another-signing-key", "test-audience")
	token, err := other.IssueToken(alice, time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewTokenService("test-signing-key", "someone-else")
	token, err := other.IssueToken(alice, time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "OrgA",
			Subject:   "Mallory",
			Audience:  jwt.ClaimStrings{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_MissingSubject(t *testing.T) {
	token, err := tokenService.IssueToken(domain.Identity{Issuer: "OrgA"}, time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_IssuerWithColon(t *testing.T) {
	token, err := tokenService.IssueToken(domain.Identity{Issuer: "Org:A", Subject: "Alice"}, time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_AllowedIssuers(t *testing.T) {
	restricted := NewTokenService("test-signing-key", "test-audience", WithAllowedIssuers("OrgA", " "))

	token, err := restricted.IssueToken(alice, time.Hour)
	require.NoError(t, err)
	_, err = restricted.ValidateToken(token)
	require.NoError(t, err)

	token, err = restricted.IssueToken(domain.Identity{Issuer: "OrgC", Subject: "Carol"}, time.Hour)
	require.NoError(t, err)
	_, err = restricted.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_Clock(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewTokenService("test-signing-key", "", WithClock(func() time.Time { return issuedAt }))
	token, err := svc.IssueToken(alice, time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.NoError(t, err)

	later := NewTokenService("test-signing-key", "", WithClock(func() time.Time { return issuedAt.Add(2 * time.Minute) }))
	_, err = later.ValidateToken(token)
	assert.Contains(t, err.Error(), "token has expired")
}
