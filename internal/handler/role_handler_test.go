package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/middleware"
	"zyllen/internal/model"
	"zyllen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAccess implements only what the tests touch; other methods panic via the nil embed
type fakeAccess struct {
	service.AccessService
	perms      map[uuid.UUID][]string
	replaceErr error
	gotActor   *service.Actor
	gotRole    string
	gotReq     service.ReplacePermissionsRequest
}

func (f *fakeAccess) PermissionsForRole(_ context.Context, roleID uuid.UUID) ([]string, error) {
	return f.perms[roleID], nil
}

func (f *fakeAccess) ReplaceRolePermissions(_ context.Context, actor *service.Actor, roleID string, req service.ReplacePermissionsRequest) (*service.RolePermissionsResponse, error) {
	f.gotActor, f.gotRole, f.gotReq = actor, roleID, req
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	return &service.RolePermissionsResponse{RoleID: roleID, PermissionIDs: req.PermissionIDs, Added: req.PermissionIDs}, nil
}

type roleFixture struct {
	router  *gin.Engine
	access  *fakeAccess
	tokens  *auth.TokenManager
	admin   uuid.UUID
	limited uuid.UUID
}

func newRoleFixture(t *testing.T) *roleFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &roleFixture{admin: uuid.New(), limited: uuid.New()}
	f.access = &fakeAccess{perms: map[uuid.UUID][]string{
		f.admin:   {"access.manage"},
		f.limited: {"inventory.view"},
	}}
	f.tokens = auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	gate := middleware.NewGate(f.tokens, f.access, false, zap.NewNop())

	f.router = gin.New()
	NewRoleHandler(f.access, gate).RegisterRoutes(f.router.Group(""))
	return f
}

func (f *roleFixture) token(t *testing.T, roleID uuid.UUID) string {
	t.Helper()
	pair, err := f.tokens.Issue(auth.Subject{ID: uuid.New(), Kind: model.KindInternal, Name: "Ana", RoleID: &roleID})
	require.NoError(t, err)
	return pair.AccessToken
}

func (f *roleFixture) put(token, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRoleHandler_ReplacePermissionsRequiresAccessManage(t *testing.T) {
	f := newRoleFixture(t)

	w := f.put(f.token(t, f.limited), "/access/roles/r1/permissions", `{"permission_ids":["p1"]}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.access.gotRole)
}

func TestRoleHandler_ReplacePermissions(t *testing.T) {
	f := newRoleFixture(t)
	roleID := uuid.New().String()

	w := f.put(f.token(t, f.admin), "/access/roles/"+roleID+"/permissions", `{"permission_ids":["p1","p2"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, roleID, f.access.gotRole)
	assert.Equal(t, []string{"p1", "p2"}, f.access.gotReq.PermissionIDs)
	require.NotNil(t, f.access.gotActor)
	assert.Equal(t, "Ana", f.access.gotActor.Name)

	var body struct {
		Data service.RolePermissionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"p1", "p2"}, body.Data.PermissionIDs)
}

func TestRoleHandler_ReplacePermissionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"unknown permission", fmt.Errorf("%w: unknown permission ids", service.ErrValidation), `{"permission_ids":["nope"]}`, http.StatusBadRequest},
		{"missing role", fmt.Errorf("%w: role", service.ErrNotFound), `{"permission_ids":[]}`, http.StatusNotFound},
		{"malformed body", nil, `{"permission_ids":`, http.StatusBadRequest},
		{"database down", errors.New("connection refused"), `{"permission_ids":[]}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoleFixture(t)
			f.access.replaceErr = tt.err

			w := f.put(f.token(t, f.admin), "/access/roles/r1/permissions", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}
