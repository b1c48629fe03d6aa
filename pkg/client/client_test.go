package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_LoginThenReplacePermissions(t *testing.T) {
	var gotAuth string
	var gotBody map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status":      "success",
				"status_code": 200,
				"data": map[string]interface{}{
					"access_token":  "tok",
					"refresh_token": "ref",
					"permissions":   []string{"access.manage"},
				},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/access/roles/r1/permissions":
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status":      "success",
				"status_code": 200,
				"data": map[string]interface{}{
					"role_id":        "r1",
					"permission_ids": gotBody["permission_ids"],
					"added":          []string{"p2"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	session, err := c.Login(context.Background(), "admin@zyllen.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.AccessToken)
	assert.Equal(t, []string{"access.manage"}, session.Permissions)

	perms, err := c.ReplaceRolePermissions(context.Background(), "r1", []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, []string{"p1", "p2"}, gotBody["permission_ids"])
	assert.Equal(t, []string{"p1", "p2"}, perms.PermissionIDs)
	assert.Equal(t, []string{"p2"}, perms.Added)
}

func TestClient_ReplaceWithNilSendsEmptySet(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": map[string]interface{}{"role_id": "r1"}})
	}))
	defer srv.Close()

	_, err := New(srv.URL).SetToken("t").ReplaceRolePermissions(context.Background(), "r1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw["permission_ids"]))
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"status":      "error",
			"status_code": 403,
			"error":       "Access denied: missing permission 'access.manage'",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).SetToken("t").ListRoles(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.Contains(t, err.Error(), "access.manage")
}
