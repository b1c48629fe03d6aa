package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	roleID := uuid.New()
	sub := Subject{ID: uuid.New(), Kind: "internal", RoleID: &roleID}

	pair, err := m.Issue(sub)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)

	claims, err := m.Parse(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, sub.ID.String(), claims.Subject)
	assert.Equal(t, "internal", claims.Kind)
	assert.Equal(t, roleID.String(), claims.RoleID)

	refresh, err := m.Parse(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.ID)
}

func TestParseRejectsWrongType(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	pair, err := m.Issue(Subject{ID: uuid.New(), Kind: "client"})
	require.NoError(t, err)

	_, err = m.Parse(pair.RefreshToken, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	issued := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return issued }
	pair, err := m.Issue(Subject{ID: uuid.New(), Kind: "internal"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(pair.AccessToken, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	other := NewTokenManager("another", time.Minute, time.Hour)
	pair, err := other.Issue(Subject{ID: uuid.New(), Kind: "internal"})
	require.NoError(t, err)

	_, err = m.Parse(pair.AccessToken, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: TypeAccess})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(raw, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashTokenID(t *testing.T) {
	assert.Len(t, HashTokenID("abc"), 64)
	assert.Equal(t, HashTokenID("abc"), HashTokenID("abc"))
	assert.NotEqual(t, HashTokenID("abc"), HashTokenID("abd"))
}

func TestPIN(t *testing.T) {
	_, err := HashPIN("12a4")
	assert.ErrorIs(t, err, ErrInvalidPIN)
	_, err = HashPIN("12345")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	hash, err := HashPIN("4321")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "4321"))
	assert.False(t, CheckPassword(hash, "1234"))
}
