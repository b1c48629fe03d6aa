package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/cache"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memTx struct{}

func (memTx) RunInTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memRoles struct {
	repository.RoleRepository
	perms  map[string]*model.ScreenPermission
	roles  map[string]*model.Role
	grants map[uuid.UUID]map[uuid.UUID]bool
}

func (m *memRoles) UpsertPermission(_ context.Context, p *model.ScreenPermission) error {
	if existing, ok := m.perms[p.Code()]; ok {
		existing.Description = p.Description
		*p = *existing
		return nil
	}
	p.ID = uuid.New()
	cp := *p
	m.perms[p.Code()] = &cp
	return nil
}

func (m *memRoles) FindByName(_ context.Context, name string) (*model.Role, error) {
	if r, ok := m.roles[name]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRoles) Create(_ context.Context, r *model.Role) error {
	r.ID = uuid.New()
	m.roles[r.Name] = r
	return nil
}

func (m *memRoles) ReplacePermissions(_ context.Context, roleID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	current := m.grants[roleID]
	next := make(map[uuid.UUID]bool, len(ids))
	var added, removed []uuid.UUID
	for _, id := range ids {
		next[id] = true
		if !current[id] {
			added = append(added, id)
		}
	}
	for id := range current {
		if !next[id] {
			removed = append(removed, id)
		}
	}
	m.grants[roleID] = next
	return added, removed, nil
}

type memUsers struct {
	repository.UserRepository
	users map[string]*model.InternalUser
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.InternalUser, error) {
	if u, ok := m.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) Create(_ context.Context, u *model.InternalUser) error {
	u.ID = uuid.New()
	m.users[u.Email] = u
	return nil
}

type memRefs[T repository.Reference] struct {
	repository.ReferenceRepository[T]
	rows map[string]*T
}

func (m *memRefs[T]) FirstOrCreate(_ context.Context, item *T, name string) (bool, error) {
	if existing, ok := m.rows[name]; ok {
		*item = *existing
		return false, nil
	}
	cp := *item
	m.rows[name] = &cp
	return true, nil
}

type fixture struct {
	seeder *Seeder
	roles  *memRoles
	users  *memUsers
	types  *memRefs[model.MovementType]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := LoadCatalog(nil)
	require.NoError(t, err)

	f := &fixture{
		roles: &memRoles{perms: map[string]*model.ScreenPermission{}, roles: map[string]*model.Role{}, grants: map[uuid.UUID]map[uuid.UUID]bool{}},
		users: &memUsers{users: map[string]*model.InternalUser{}},
		types: &memRefs[model.MovementType]{rows: map[string]*model.MovementType{}},
	}
	f.seeder = NewSeeder(catalog, f.roles, f.users,
		&memRefs[model.Location]{rows: map[string]*model.Location{}},
		f.types,
		&memRefs[model.Category]{rows: map[string]*model.Category{}},
		memTx{}, zap.NewNop())
	return f
}

func (f *fixture) codes(role string) []string {
	var out []string
	for id := range f.roles.grants[f.roles.roles[role].ID] {
		for code, p := range f.roles.perms {
			if p.ID == id {
				out = append(out, code)
			}
		}
	}
	return out
}

var admin = Admin{Email: "Admin@Zyllen.com", Password: "admin123", Name: "Administrador"}

func TestSeeder_FirstRunCreatesEverything(t *testing.T) {
	f := newFixture(t)

	res, err := f.seeder.Run(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, 3, res.RolesCreated)
	assert.True(t, res.AdminCreated)
	assert.Equal(t, 7, res.ReferenceCreated)
	assert.Equal(t, len(f.roles.perms), res.Permissions)

	for _, name := range []string{"Admin", "Técnico", "Gestor"} {
		require.Contains(t, f.roles.roles, name)
		assert.True(t, f.roles.roles[name].IsSystem)
	}
	assert.Len(t, f.codes("Admin"), len(f.roles.perms))
	assert.Contains(t, f.codes("Técnico"), "inventory.bipar_entrada")
	assert.NotContains(t, f.codes("Técnico"), "access.manage")
	assert.Contains(t, f.codes("Gestor"), "purchases.receive")
	assert.NotContains(t, f.codes("Gestor"), "inventory.configure")

	user := f.users.users["admin@zyllen.com"]
	require.NotNil(t, user)
	assert.Equal(t, f.roles.roles["Admin"].ID, user.RoleID)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "admin123"))

	purchase := f.types.rows[model.MovementTypePurchase]
	require.NotNil(t, purchase)
	assert.Equal(t, model.DirectionIn, purchase.Direction)
}

func TestSeeder_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.seeder.Run(ctx, admin)
	require.NoError(t, err)
	perms := len(f.roles.perms)
	hash := f.users.users["admin@zyllen.com"].PasswordHash

	res, err := f.seeder.Run(ctx, Admin{Email: admin.Email, Password: "another-password", Name: "Outro"})
	require.NoError(t, err)

	assert.False(t, res.Changed(), "%+v", res)
	assert.Equal(t, perms, len(f.roles.perms))
	assert.Len(t, f.users.users, 1)
	assert.Equal(t, hash, f.users.users["admin@zyllen.com"].PasswordHash, "existing admin keeps its password")
}

func TestSeeder_RestoresDriftedGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.seeder.Run(ctx, admin)
	require.NoError(t, err)

	tech := f.roles.roles["Técnico"].ID
	f.roles.grants[tech][f.roles.perms["access.manage"].ID] = true

	res, err := f.seeder.Run(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GrantsRemoved)
	assert.NotContains(t, f.codes("Técnico"), "access.manage")
}

func TestSeeder_FlushesPermissionCacheWhenGrantsChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	permCache := cache.NewMemoryCache(time.Hour)
	f.seeder.WithCache(permCache)

	_, err := f.seeder.Run(ctx, admin)
	require.NoError(t, err)

	tech := f.roles.roles["Técnico"].ID.String()
	require.NoError(t, permCache.Set(ctx, tech, []string{"tickets.view"}))

	// nothing changed: cached entries survive
	res, err := f.seeder.Run(ctx, admin)
	require.NoError(t, err)
	require.False(t, res.GrantsChanged())
	_, ok, err := permCache.Get(ctx, tech)
	require.NoError(t, err)
	assert.True(t, ok)

	f.roles.grants[f.roles.roles["Técnico"].ID][f.roles.perms["access.manage"].ID] = true
	require.NoError(t, permCache.Set(ctx, tech, []string{"tickets.view", "access.manage"}))

	res, err = f.seeder.Run(ctx, admin)
	require.NoError(t, err)
	assert.True(t, res.GrantsChanged())
	_, ok, err = permCache.Get(ctx, tech)
	require.NoError(t, err)
	assert.False(t, ok, "drifted grant list must not be served from cache")
}

func TestLoadCatalog_RejectsUnknownGrant(t *testing.T) {
	_, err := LoadCatalog([]byte(`
screens:
  - name: tickets
    actions:
      view: Ver
roles:
  - name: Admin
    grants: ["tickets.delete"]
admin_role: Admin
`))
	assert.Error(t, err)
}

func TestExpandGrants(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	perms := map[string]uuid.UUID{"tickets.view": a, "tickets.edit": b, "audit.view": c}

	assert.Len(t, expandGrants([]string{"*"}, perms), 3)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, expandGrants([]string{"tickets.*"}, perms))
	assert.Equal(t, []uuid.UUID{c}, expandGrants([]string{"audit.view"}, perms))
	assert.Empty(t, expandGrants([]string{"assets.*"}, perms))
}
