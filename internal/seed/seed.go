// Package seed bootstraps permissions, system roles, the first admin and the
// reference rows every installation needs. Running it again changes nothing.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"zyllen/internal/auth"
	"zyllen/internal/cache"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Screen struct {
	Name    string            `yaml:"name"`
	Actions map[string]string `yaml:"actions"`
}

type RoleSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Grants      []string `yaml:"grants"`
}

type NamedRow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type MovementTypeRow struct {
	Name        string `yaml:"name"`
	Direction   string `yaml:"direction"`
	Description string `yaml:"description"`
}

// Catalog is the declarative content of catalog.yaml
type Catalog struct {
	Screens       []Screen          `yaml:"screens"`
	Roles         []RoleSpec        `yaml:"roles"`
	AdminRole     string            `yaml:"admin_role"`
	Locations     []NamedRow        `yaml:"locations"`
	MovementTypes []MovementTypeRow `yaml:"movement_types"`
	Categories    []NamedRow        `yaml:"categories"`
}

// Admin describes the first administrator account
type Admin struct {
	Email    string
	Password string
	Name     string
}

// Result counts what a run created or changed
type Result struct {
	Permissions      int  `json:"permissions"`
	RolesCreated     int  `json:"roles_created"`
	GrantsAdded      int  `json:"grants_added"`
	GrantsRemoved    int  `json:"grants_removed"`
	AdminCreated     bool `json:"admin_created"`
	ReferenceCreated int  `json:"reference_created"`
}

// GrantsChanged reports whether any role's permission set differs from before the run
func (r Result) GrantsChanged() bool {
	return r.RolesCreated > 0 || r.GrantsAdded > 0 || r.GrantsRemoved > 0
}

// Changed reports whether the run wrote anything
func (r Result) Changed() bool {
	return r.RolesCreated > 0 || r.GrantsAdded > 0 || r.GrantsRemoved > 0 || r.AdminCreated || r.ReferenceCreated > 0
}

// LoadCatalog parses a catalog; nil data selects the embedded default
func LoadCatalog(data []byte) (*Catalog, error) {
	if data == nil {
		data = defaultCatalog
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Screens) == 0 {
		return fmt.Errorf("seed catalog has no screens")
	}
	known := make(map[string]bool)
	for _, s := range c.Screens {
		for action := range s.Actions {
			known[model.PermissionCode(s.Name, action)] = true
		}
	}
	roles := make(map[string]bool)
	for _, r := range c.Roles {
		roles[r.Name] = true
		for _, g := range r.Grants {
			if g == "*" || strings.HasSuffix(g, ".*") {
				continue
			}
			if !known[g] {
				return fmt.Errorf("role %s grants unknown permission %s", r.Name, g)
			}
		}
	}
	if !roles[c.AdminRole] {
		return fmt.Errorf("admin role %q is not declared", c.AdminRole)
	}
	for _, mt := range c.MovementTypes {
		if !model.ValidDirection(mt.Direction) {
			return fmt.Errorf("movement type %s has unknown direction %s", mt.Name, mt.Direction)
		}
	}
	return nil
}

// Seeder applies a Catalog through the repositories in one transaction
type Seeder struct {
	catalog    *Catalog
	roles      repository.RoleRepository
	users      repository.UserRepository
	locations  repository.ReferenceRepository[model.Location]
	types      repository.ReferenceRepository[model.MovementType]
	categories repository.ReferenceRepository[model.Category]
	txManager  repository.TransactionManager
	cache      cache.PermissionCache
	log        *zap.Logger
}

func NewSeeder(
	catalog *Catalog,
	roles repository.RoleRepository,
	users repository.UserRepository,
	locations repository.ReferenceRepository[model.Location],
	types repository.ReferenceRepository[model.MovementType],
	categories repository.ReferenceRepository[model.Category],
	txManager repository.TransactionManager,
	log *zap.Logger,
) *Seeder {
	return &Seeder{
		catalog:    catalog,
		roles:      roles,
		users:      users,
		locations:  locations,
		types:      types,
		categories: categories,
		txManager:  txManager,
		log:        log.Named("seed"),
	}
}

// WithCache makes Run flush cached role permissions after it changes grants
func (s *Seeder) WithCache(c cache.PermissionCache) *Seeder {
	s.cache = c
	return s
}

// Run upserts everything. The admin is created only when its email is unused;
// an existing admin keeps its password.
func (s *Seeder) Run(ctx context.Context, admin Admin) (*Result, error) {
	res := &Result{}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		perms, err := s.permissions(txCtx)
		if err != nil {
			return err
		}
		res.Permissions = len(perms)

		roleIDs, err := s.systemRoles(txCtx, perms, res)
		if err != nil {
			return err
		}
		if err := s.admin(txCtx, admin, roleIDs[s.catalog.AdminRole], res); err != nil {
			return err
		}
		return s.reference(txCtx, res)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil && res.GrantsChanged() {
		if err := s.cache.Invalidate(ctx, ""); err != nil {
			// the grants are committed; cached lists expire with the TTL
			s.log.Warn("failed to flush permission cache", zap.Error(err))
		}
	}

	s.log.Info("seed finished",
		zap.Int("permissions", res.Permissions),
		zap.Int("roles_created", res.RolesCreated),
		zap.Int("grants_added", res.GrantsAdded),
		zap.Int("grants_removed", res.GrantsRemoved),
		zap.Bool("admin_created", res.AdminCreated),
		zap.Int("reference_created", res.ReferenceCreated),
	)
	return res, nil
}

// permissions upserts the screen catalog and returns code -> id
func (s *Seeder) permissions(ctx context.Context) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	for _, screen := range s.catalog.Screens {
		actions := make([]string, 0, len(screen.Actions))
		for a := range screen.Actions {
			actions = append(actions, a)
		}
		sort.Strings(actions)

		for _, action := range actions {
			perm := &model.ScreenPermission{Screen: screen.Name, Action: action, Description: screen.Actions[action]}
			if err := s.roles.UpsertPermission(ctx, perm); err != nil {
				return nil, fmt.Errorf("failed to upsert permission %s: %w", perm.Code(), err)
			}
			out[perm.Code()] = perm.ID
		}
	}
	return out, nil
}

func (s *Seeder) systemRoles(ctx context.Context, perms map[string]uuid.UUID, res *Result) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(s.catalog.Roles))
	for _, spec := range s.catalog.Roles {
		role, err := s.roles.FindByName(ctx, spec.Name)
		switch {
		case repository.IsNotFound(err):
			role = &model.Role{Name: spec.Name, Description: spec.Description, IsSystem: true}
			if err := s.roles.Create(ctx, role); err != nil {
				return nil, fmt.Errorf("failed to create role %s: %w", spec.Name, err)
			}
			res.RolesCreated++
		case err != nil:
			return nil, fmt.Errorf("failed to fetch role %s: %w", spec.Name, err)
		}
		ids[spec.Name] = role.ID

		added, removed, err := s.roles.ReplacePermissions(ctx, role.ID, expandGrants(spec.Grants, perms))
		if err != nil {
			return nil, fmt.Errorf("failed to grant role %s: %w", spec.Name, err)
		}
		res.GrantsAdded += len(added)
		res.GrantsRemoved += len(removed)
	}
	return ids, nil
}

// expandGrants resolves "*", "screen.*" and exact codes into sorted permission ids
func expandGrants(grants []string, perms map[string]uuid.UUID) []uuid.UUID {
	selected := make(map[uuid.UUID]bool)
	for _, g := range grants {
		for code, id := range perms {
			if g == "*" || g == code || (strings.HasSuffix(g, ".*") && strings.HasPrefix(code, strings.TrimSuffix(g, "*"))) {
				selected[id] = true
			}
		}
	}
	ids := make([]uuid.UUID, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *Seeder) admin(ctx context.Context, admin Admin, roleID uuid.UUID, res *Result) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !repository.IsNotFound(err) {
		return fmt.Errorf("failed to fetch admin user: %w", err)
	}

	hashed, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	user := &model.InternalUser{
		Name:         admin.Name,
		Email:        email,
		PasswordHash: hashed,
		RoleID:       roleID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	res.AdminCreated = true
	s.log.Info("admin user created", zap.String("email", email))
	return nil
}

func (s *Seeder) reference(ctx context.Context, res *Result) error {
	for _, row := range s.catalog.Locations {
		created, err := s.locations.FirstOrCreate(ctx, &model.Location{Name: row.Name, Description: row.Description, IsActive: true}, row.Name)
		if err != nil {
			return fmt.Errorf("failed to seed location %s: %w", row.Name, err)
		}
		if created {
			res.ReferenceCreated++
		}
	}
	for _, row := range s.catalog.MovementTypes {
		created, err := s.types.FirstOrCreate(ctx, &model.MovementType{Name: row.Name, Direction: row.Direction, Description: row.Description}, row.Name)
		if err != nil {
			return fmt.Errorf("failed to seed movement type %s: %w", row.Name, err)
		}
		if created {
			res.ReferenceCreated++
		}
	}
	for _, row := range s.catalog.Categories {
		created, err := s.categories.FirstOrCreate(ctx, &model.Category{Name: row.Name, Description: row.Description}, row.Name)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", row.Name, err)
		}
		if created {
			res.ReferenceCreated++
		}
	}
	return nil
}
