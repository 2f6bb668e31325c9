package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeKingdomsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kingdoms.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeKingdomsFile(t, `[
		{"id": 1, "name": "Royaume Principal", "ip": "127.0.0.1", "port": 7777, "maxPlayers": 500},
		{"id": 2, "name": "Royaume Nord", "ip": "127.0.0.1", "port": 7778}
	]`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	first := reg.GetByID(1)
	require.NotNil(t, first)
	assert.Equal(t, "Royaume Principal", first.Name)
	assert.Equal(t, 500, first.MaxPlayers)
	assert.Equal(t, StatusOnline, first.Status)

	// maxPlayers defaults to 1000 when omitted.
	second := reg.GetByID(2)
	require.NotNil(t, second)
	assert.Equal(t, 1000, second.MaxPlayers)

	assert.Nil(t, reg.GetByID(99))
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRegistryBadJSON(t *testing.T) {
	path := writeKingdomsFile(t, `{not json`)
	_, err := LoadRegistry(path)
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	require.Equal(t, 1, reg.Len())
	info := reg.GetByID(1)
	require.NotNil(t, info)
	assert.Equal(t, "Royaume Principal", info.Name)
	assert.Equal(t, 1000, info.MaxPlayers)
}

func TestBuildKingdoms(t *testing.T) {
	log := zap.NewNop()

	path := writeKingdomsFile(t, `[
		{"id": 1, "name": "Alpha", "ip": "0.0.0.0", "port": 1},
		{"id": 7, "name": "Beta", "ip": "0.0.0.0", "port": 2}
	]`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	kingdoms := BuildKingdoms(reg, log)
	require.Len(t, kingdoms, 2)
	assert.Equal(t, "Alpha", kingdoms[1].Name)
	assert.Equal(t, "Beta", kingdoms[7].Name)

	// An empty registry still yields the default kingdom.
	empty := &Registry{byID: map[int]int{}}
	kingdoms = BuildKingdoms(empty, log)
	require.Len(t, kingdoms, 1)
	assert.Equal(t, "Royaume Principal", kingdoms[1].Name)
}
