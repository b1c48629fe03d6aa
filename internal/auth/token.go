package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload for internal and portal sessions
type Claims struct {
	Kind         string `json:"kind"`
	Type         string `json:"typ"`
	Name         string `json:"name,omitempty"`
	RoleID       string `json:"role_id,omitempty"`
	CompanyID    string `json:"company_id,omitempty"`
	ContractorID string `json:"contractor_id,omitempty"`
	jwt.RegisteredClaims
}

// Subject identifies who a token pair is issued to
type Subject struct {
	ID           uuid.UUID
	Kind         string
	Name         string
	RoleID       *uuid.UUID
	CompanyID    *uuid.UUID
	ContractorID *uuid.UUID
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	// RefreshID is the jti of the refresh token; only its hash is persisted
	RefreshID string `json:"-"`
}

// TokenManager signs and verifies HS256 tokens
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     "zyllen",
		now:        time.Now,
	}
}

// Issue creates a new access/refresh pair for the subject
func (m *TokenManager) Issue(sub Subject) (*TokenPair, error) {
	now := m.now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access, err := m.sign(sub, TypeAccess, uuid.NewString(), now, accessExp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refresh, err := m.sign(sub, TypeRefresh, refreshID, now, refreshExp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		RefreshID:        refreshID,
	}, nil
}

func (m *TokenManager) sign(sub Subject, typ, jti string, now, exp time.Time) (string, error) {
	claims := Claims{
		Kind: sub.Kind,
		Type: typ,
		Name: sub.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			Issuer:    m.issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if sub.RoleID != nil {
		claims.RoleID = sub.RoleID.String()
	}
	if sub.CompanyID != nil {
		claims.CompanyID = sub.CompanyID.String()
	}
	if sub.ContractorID != nil {
		claims.ContractorID = sub.ContractorID.String()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies signature, expiry and token type
func (m *TokenManager) Parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, wantType)
	}
	return claims, nil
}

// HashTokenID returns the hex SHA-256 of a refresh token id
func HashTokenID(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])
}
