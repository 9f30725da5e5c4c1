package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPermissionFile(t *testing.T) {
	path := writeFile(t, `
roles:
  user:
    permissions:
      - dataset:read
      - " document:read "
  editor:
    permissions: [dataset:write, ""]
`)
	mapping, err := loadPermissionFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"dataset:read", "document:read"}, mapping[model.RoleUser])
	assert.Equal(t, []string{"dataset:write"}, mapping["editor"])
	// 系统角色总会存在
	_, ok := mapping[model.RoleAdmin]
	assert.True(t, ok)
	assert.Empty(t, mapping[model.RoleAdmin])
}

func TestLoadPermissionFile_Errors(t *testing.T) {
	_, err := loadPermissionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadPermissionFile(writeFile(t, "roles: [not, a, map]"))
	assert.Error(t, err)
}
