package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/model"
	"zyllen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	perms map[uuid.UUID][]string
	err   error
	calls int
}

func (s *stubResolver) PermissionsForRole(_ context.Context, roleID uuid.UUID) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.perms[roleID], nil
}

func setupGate(t *testing.T, resolver *stubResolver) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	gate := NewGate(tokens, resolver, false, zap.NewNop())

	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	api := r.Group("", gate.Authenticate())
	api.GET("/inventory", gate.RequirePermission("inventory.view"), func(c *gin.Context) {
		actor := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID.String(), "name": actor.Name})
	})
	api.POST("/inventory/approve", gate.RequirePermission("inventory.view", "inventory.approve"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	api.GET("/client/tickets", gate.RequireKind(model.KindClient), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	api.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r, tokens
}

func issue(t *testing.T, tokens *auth.TokenManager, sub auth.Subject) string {
	t.Helper()
	pair, err := tokens.Issue(sub)
	require.NoError(t, err)
	return pair.AccessToken
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGate_MissingAndInvalidToken(t *testing.T) {
	r, _ := setupGate(t, &stubResolver{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/inventory", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/inventory", "not-a-jwt").Code)
}

func TestGate_RefreshTokenIsNotAccepted(t *testing.T) {
	r, tokens := setupGate(t, &stubResolver{})
	roleID := uuid.New()
	pair, err := tokens.Issue(auth.Subject{ID: uuid.New(), Kind: model.KindInternal, RoleID: &roleID})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/inventory", pair.RefreshToken).Code)
}

func TestGate_RequirePermission(t *testing.T) {
	roleID := uuid.New()
	resolver := &stubResolver{perms: map[uuid.UUID][]string{roleID: {"inventory.view"}}}
	r, tokens := setupGate(t, resolver)
	token := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindInternal, Name: "Ana", RoleID: &roleID})

	w := do(r, http.MethodGet, "/inventory", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ana"`)

	// every listed code is required
	w = do(r, http.MethodPost, "/inventory/approve", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "inventory.approve")
}

func TestGate_PermissionRouteRejectsPortalUsers(t *testing.T) {
	resolver := &stubResolver{}
	r, tokens := setupGate(t, resolver)
	companyID := uuid.New()
	token := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindClient, CompanyID: &companyID})

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/inventory", token).Code)
	assert.Zero(t, resolver.calls)
}

func TestGate_ResolverFailureIs500(t *testing.T) {
	roleID := uuid.New()
	r, tokens := setupGate(t, &stubResolver{err: errors.New("db down")})
	token := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindInternal, RoleID: &roleID})

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/inventory", token).Code)
}

func TestGate_RequireKind(t *testing.T) {
	roleID := uuid.New()
	r, tokens := setupGate(t, &stubResolver{})

	companyID := uuid.New()
	client := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindClient, CompanyID: &companyID})
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/client/tickets", client).Code)

	contractorID := uuid.New()
	contractor := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindContractor, ContractorID: &contractorID})
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/client/tickets", contractor).Code)

	internal := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindInternal, RoleID: &roleID})
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/client/tickets", internal).Code)
}

func TestGate_CookieToken(t *testing.T) {
	roleID := uuid.New()
	resolver := &stubResolver{perms: map[uuid.UUID][]string{roleID: {"inventory.view"}}}
	r, tokens := setupGate(t, resolver)
	token := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindInternal, RoleID: &roleID})

	req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	roleID := uuid.New()
	r, tokens := setupGate(t, &stubResolver{})
	token := issue(t, tokens, auth.Subject{ID: uuid.New(), Kind: model.KindInternal, RoleID: &roleID})

	w := do(r, http.MethodGet, "/panic", token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestSetTokenCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gate := NewGate(auth.NewTokenManager("s", time.Minute, time.Hour), &stubResolver{}, true, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	gate.SetTokenCookies(c, &auth.TokenPair{
		AccessToken:      "a",
		RefreshToken:     "r",
		AccessExpiresAt:  time.Now().Add(time.Minute),
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	}
}

var _ service.PermissionResolver = (*stubResolver)(nil)
