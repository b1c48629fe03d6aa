package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type accessFixture struct {
	svc   AccessService
	roles *fakeRoles
	cache *fakeCache
	audit *fakeAudit
	role  *model.Role
	perms []model.ScreenPermission
}

func newAccessFixture() *accessFixture {
	role := &model.Role{ID: uuid.New(), Name: "Técnico"}
	perms := []model.ScreenPermission{
		{ID: uuid.New(), Screen: "inventory", Action: "view"},
		{ID: uuid.New(), Screen: "inventory", Action: "approve"},
		{ID: uuid.New(), Screen: "tickets", Action: "view"},
	}
	roles := &fakeRoles{
		roles:       map[uuid.UUID]*model.Role{role.ID: role},
		permissions: map[uuid.UUID]model.ScreenPermission{},
		grants:      map[uuid.UUID]map[uuid.UUID]bool{role.ID: {perms[0].ID: true, perms[1].ID: true}},
	}
	for _, p := range perms {
		roles.permissions[p.ID] = p
	}
	f := &accessFixture{
		roles: roles,
		cache: &fakeCache{codes: map[string][]string{}},
		audit: &fakeAudit{},
		role:  role,
		perms: perms,
	}
	f.svc = NewAccessService(roles, f.audit, fakeTx{}, f.cache, zap.NewNop())
	return f
}

func TestAccessService_ReplaceRolePermissionsSetsExactSet(t *testing.T) {
	f := newAccessFixture()
	ctx := context.Background()

	// warm the cache so the invalidation is observable
	codes, err := f.svc.PermissionsForRole(ctx, f.role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.approve", "inventory.view"}, codes)

	resp, err := f.svc.ReplaceRolePermissions(ctx, nil, f.role.ID.String(), ReplacePermissionsRequest{
		PermissionIDs: []string{f.perms[0].ID.String(), f.perms[2].ID.String(), f.perms[2].ID.String()},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{f.perms[0].ID.String(), f.perms[2].ID.String()}, resp.PermissionIDs)
	assert.Equal(t, []string{f.perms[2].ID.String()}, resp.Added)
	assert.Equal(t, []string{f.perms[1].ID.String()}, resp.Removed)
	assert.Equal(t, map[uuid.UUID]bool{f.perms[0].ID: true, f.perms[2].ID: true}, f.roles.grants[f.role.ID])
	assert.Equal(t, []string{f.role.ID.String()}, f.cache.invalidated)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.ActionGrant, f.audit.entries[0].Action)
	assert.Equal(t, "system", f.audit.entries[0].ActorKind)

	codes, err = f.svc.PermissionsForRole(ctx, f.role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.view", "tickets.view"}, codes)
}

func TestAccessService_ReplaceRolePermissionsSameSetIsNoop(t *testing.T) {
	f := newAccessFixture()

	resp, err := f.svc.ReplaceRolePermissions(context.Background(), nil, f.role.ID.String(), ReplacePermissionsRequest{
		PermissionIDs: []string{f.perms[1].ID.String(), f.perms[0].ID.String()},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Added)
	assert.Empty(t, resp.Removed)
	assert.Empty(t, f.audit.entries)
}

func TestAccessService_ReplaceRolePermissionsEmptyClearsRole(t *testing.T) {
	f := newAccessFixture()

	resp, err := f.svc.ReplaceRolePermissions(context.Background(), nil, f.role.ID.String(), ReplacePermissionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.PermissionIDs)
	assert.Len(t, resp.Removed, 2)
	assert.Empty(t, f.roles.grants[f.role.ID])
}

func TestAccessService_ReplaceRolePermissionsRejectsUnknownIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"unknown id", []string{uuid.NewString()}},
		{"malformed id", []string{"inventory.view"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccessFixture()
			_, err := f.svc.ReplaceRolePermissions(context.Background(), nil, f.role.ID.String(), ReplacePermissionsRequest{PermissionIDs: tt.ids})
			assert.ErrorIs(t, err, ErrValidation)
			assert.Len(t, f.roles.grants[f.role.ID], 2, "grants untouched")
			assert.Empty(t, f.cache.invalidated)
		})
	}
}

func TestAccessService_ReplaceRolePermissionsUnknownRole(t *testing.T) {
	f := newAccessFixture()
	_, err := f.svc.ReplaceRolePermissions(context.Background(), nil, uuid.NewString(), ReplacePermissionsRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessService_LoadOverlappingReplaceIsNotCached(t *testing.T) {
	f := newAccessFixture()
	ctx := context.Background()

	// the grants change after the reader loaded the old set but before it fills the cache
	f.roles.afterLoad = func() {
		_, err := f.svc.ReplaceRolePermissions(ctx, nil, f.role.ID.String(), ReplacePermissionsRequest{
			PermissionIDs: []string{f.perms[2].ID.String()},
		})
		require.NoError(t, err)
	}

	codes, err := f.svc.PermissionsForRole(ctx, f.role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.approve", "inventory.view"}, codes)
	assert.NotContains(t, f.cache.codes, f.role.ID.String())

	codes, err = f.svc.PermissionsForRole(ctx, f.role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tickets.view"}, codes)
	assert.Equal(t, []string{"tickets.view"}, f.cache.codes[f.role.ID.String()])
}
