package main

import (
	"testing"

	"zyllen/pkg/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionIDs(t *testing.T) {
	catalog := []client.Permission{
		{ID: "1", Code: "inventory.view"},
		{ID: "2", Code: "inventory.bipar_entrada"},
		{ID: "3", Code: "tickets.view"},
	}

	ids, err := permissionIDs(catalog, []string{"tickets.view", "inventory.view", "tickets.view"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids)

	ids, err = permissionIDs(catalog, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = permissionIDs(catalog, []string{"inventory.view", "inventory.nuke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory.nuke")
}
