package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIDs(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name       string
		current    []uuid.UUID
		desired    []uuid.UUID
		wantAdd    []uuid.UUID
		wantRemove []uuid.UUID
	}{
		{name: "empty to set", desired: []uuid.UUID{a, b}, wantAdd: []uuid.UUID{a, b}},
		{name: "set to empty", current: []uuid.UUID{a, b}, wantRemove: []uuid.UUID{a, b}},
		{name: "unchanged", current: []uuid.UUID{a, b}, desired: []uuid.UUID{b, a}},
		{name: "swap", current: []uuid.UUID{a, b, c}, desired: []uuid.UUID{b, d}, wantAdd: []uuid.UUID{d}, wantRemove: []uuid.UUID{a, c}},
		{name: "duplicates in desired", current: []uuid.UUID{a}, desired: []uuid.UUID{b, b, a}, wantAdd: []uuid.UUID{b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, remove := diffIDs(tt.current, tt.desired)
			assert.ElementsMatch(t, tt.wantAdd, add)
			assert.ElementsMatch(t, tt.wantRemove, remove)
		})
	}
}

func TestRoleRepository_PermissionCodes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(db)
	roleID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INNER JOIN role_permissions rp ON rp.screen_permission_id = sp.id")).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).
			AddRow("inventory.approve").
			AddRow("inventory.view"))

	codes, err := repo.PermissionCodes(context.Background(), roleID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.approve", "inventory.view"}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepository_ReplacePermissions_WritesOnlyDifference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(db)

	roleID := uuid.New()
	keep, drop, add := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "screen_permission_id" FROM "role_permissions"`)).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"screen_permission_id"}).
			AddRow(keep.String()).
			AddRow(drop.String()))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "role_permissions"`)).
		WithArgs(roleID, drop).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "role_permissions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	added, removed, err := repo.ReplacePermissions(context.Background(), roleID, []uuid.UUID{keep, add})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{add}, added)
	assert.Equal(t, []uuid.UUID{drop}, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepository_ReplacePermissions_NoChange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(db)

	roleID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "screen_permission_id" FROM "role_permissions"`)).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"screen_permission_id"}).
			AddRow(p1.String()).
			AddRow(p2.String()))

	added, removed, err := repo.ReplacePermissions(context.Background(), roleID, []uuid.UUID{p2, p1})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
