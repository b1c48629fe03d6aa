package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type externalUserFixture struct {
	svc        ExternalUserService
	users      *fakeExternalUsers
	tokens     *fakeTokens
	company    *model.Company
	contractor *model.Contractor
	closed     *model.Company
}

func newExternalUserFixture() *externalUserFixture {
	f := &externalUserFixture{
		users:      &fakeExternalUsers{users: map[uuid.UUID]*model.ExternalUser{}},
		tokens:     &fakeTokens{},
		company:    &model.Company{ID: uuid.New(), Name: "Hospital Santa Luzia", IsActive: true},
		contractor: &model.Contractor{ID: uuid.New(), Name: "Refrigeração Polar", IsActive: true},
		closed:     &model.Company{ID: uuid.New(), Name: "Clínica Antiga", IsActive: false},
	}
	companies := newFakeRefs(func(c *model.Company) uuid.UUID { return c.ID }, func(c *model.Company) string { return c.Name }, f.company, f.closed)
	contractors := newFakeRefs(func(c *model.Contractor) uuid.UUID { return c.ID }, func(c *model.Contractor) string { return c.Name }, f.contractor)
	f.svc = NewExternalUserService(f.users, companies, contractors, f.tokens, &fakeAudit{}, fakeTx{})
	return f
}

func TestExternalUserService_CreateBindsTenantByType(t *testing.T) {
	f := newExternalUserFixture()
	company := f.company.ID.String()
	contractor := f.contractor.ID.String()

	tests := []struct {
		name         string
		userType     string
		companyID    *string
		contractorID *string
		wantErr      error
	}{
		{name: "client with company", userType: model.ExternalClient, companyID: &company},
		{name: "client without company", userType: model.ExternalClient, contractorID: &contractor, wantErr: ErrValidation},
		{name: "client with inactive company", userType: model.ExternalClient, companyID: ptrString(f.closed.ID.String()), wantErr: ErrValidation},
		{name: "client with unknown company", userType: model.ExternalClient, companyID: ptrString(uuid.New().String()), wantErr: ErrValidation},
		{name: "contractor with contractor", userType: model.ExternalContractor, contractorID: &contractor},
		{name: "contractor without contractor", userType: model.ExternalContractor, companyID: &company, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.CreateUser(context.Background(), nil, CreateExternalUserRequest{
				Name:         "Carla",
				Email:        uuid.New().String() + "@cliente.com",
				Password:     "segredo1",
				Type:         tt.userType,
				CompanyID:    tt.companyID,
				ContractorID: tt.contractorID,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			stored := f.users.users[uuid.MustParse(resp.ID)]
			require.NotNil(t, stored)
			if tt.userType == model.ExternalClient {
				assert.Equal(t, f.company.ID, *stored.CompanyID)
				assert.Nil(t, stored.ContractorID)
			} else {
				assert.Equal(t, f.contractor.ID, *stored.ContractorID)
				assert.Nil(t, stored.CompanyID)
			}
		})
	}
}

func TestExternalUserService_RevokesSessions(t *testing.T) {
	f := newExternalUserFixture()
	ctx := context.Background()
	user := &model.ExternalUser{ID: uuid.New(), Name: "Carla", Email: "carla@cliente.com", Type: model.ExternalClient, CompanyID: &f.company.ID, IsActive: true}
	f.users.users[user.ID] = user

	_, err := f.svc.UpdateUser(ctx, nil, user.ID.String(), UpdateExternalUserRequest{Name: "Carla Souza"})
	require.NoError(t, err)
	assert.Empty(t, f.tokens.revoked, "renaming keeps sessions")

	_, err = f.svc.UpdateUser(ctx, nil, user.ID.String(), UpdateExternalUserRequest{Password: "nova-senha"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, f.tokens.revoked)

	inactive := false
	_, err = f.svc.UpdateUser(ctx, nil, user.ID.String(), UpdateExternalUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID, user.ID}, f.tokens.revoked)
	assert.False(t, f.users.users[user.ID].IsActive)

	// already inactive: nothing left to revoke
	_, err = f.svc.UpdateUser(ctx, nil, user.ID.String(), UpdateExternalUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Len(t, f.tokens.revoked, 2)
}
