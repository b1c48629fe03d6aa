package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (UserService, *fakeUsers, *model.InternalUser, *model.InternalUser) {
	roleID := uuid.New()
	self := &model.InternalUser{ID: uuid.New(), Name: "Ana", Email: "ana@zyllen.com", RoleID: roleID, IsActive: true}
	other := &model.InternalUser{ID: uuid.New(), Name: "Bruno", Email: "bruno@zyllen.com", RoleID: roleID, IsActive: true}
	users := &fakeUsers{users: map[uuid.UUID]*model.InternalUser{self.ID: self, other.ID: other}}
	roles := &fakeRoles{roles: map[uuid.UUID]*model.Role{roleID: {ID: roleID, Name: "Gestor"}}}
	return NewUserService(users, roles, &fakeAudit{}, fakeTx{}), users, self, other
}

func TestUserService_CannotDeleteOwnAccount(t *testing.T) {
	svc, users, self, other := newUserFixture()
	actor := &Actor{ID: self.ID, Kind: model.KindInternal, Name: self.Name}
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteUser(ctx, actor, self.ID.String()), ErrValidation)
	assert.Contains(t, users.users, self.ID)

	require.NoError(t, svc.DeleteUser(ctx, actor, other.ID.String()))
	assert.NotContains(t, users.users, other.ID)
}

func TestUserService_CannotDeactivateOwnAccount(t *testing.T) {
	svc, users, self, other := newUserFixture()
	actor := &Actor{ID: self.ID, Kind: model.KindInternal, Name: self.Name}
	ctx := context.Background()
	inactive := false

	_, err := svc.UpdateUser(ctx, actor, self.ID.String(), UpdateUserRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, users.users[self.ID].IsActive)

	resp, err := svc.UpdateUser(ctx, actor, other.ID.String(), UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.False(t, users.users[other.ID].IsActive)
}
