package console

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProcessPendingExecutesCommands(t *testing.T) {
	s := NewSystem(zap.NewNop())

	var got []string
	s.Register("greet", "test command", func(args []string) {
		got = append(got, args...)
	})

	s.pending.Push("greet bonjour le monde")
	s.pending.Push("unknown-command and args") // logged, not fatal
	s.pending.Push("greet encore")
	s.ProcessPending()

	assert.Equal(t, []string{"bonjour", "le", "monde", "encore"}, got)
}

func TestStopCommand(t *testing.T) {
	s := NewSystem(zap.NewNop())
	stopped := false
	RegisterServerCommands(s, CommandContext{
		DBPath:     "game.db",
		StopServer: func() { stopped = true },
		Log:        zap.NewNop(),
	})

	s.pending.Push("stop")
	s.ProcessPending()
	assert.True(t, stopped)
}

func TestDeleteDBRemovesSidecars(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	for _, name := range []string{"game.db", "game.db-wal", "game.db-shm", "other.db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	s := NewSystem(zap.NewNop())
	stopped := false
	RegisterServerCommands(s, CommandContext{
		DBPath:     "game.db",
		StopServer: func() { stopped = true },
		Log:        zap.NewNop(),
	})

	s.pending.Push("deletedb game.db")
	s.ProcessPending()

	assert.True(t, stopped, "deletedb must stop the server before removing files")
	for _, name := range []string{"game.db", "game.db-wal", "game.db-shm"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), "%s should be gone", name)
	}
	_, err = os.Stat(filepath.Join(dir, "other.db"))
	assert.NoError(t, err, "unrelated databases stay")
}

func TestDeleteDBAll(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	for _, name := range []string{"a.db", "b.db", "keep.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	s := NewSystem(zap.NewNop())
	RegisterServerCommands(s, CommandContext{
		DBPath:     "a.db",
		StopServer: func() {},
		Log:        zap.NewNop(),
	})

	s.pending.Push("deletedb all")
	s.ProcessPending()

	for _, name := range []string{"a.db", "b.db"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err))
	}
	_, err = os.Stat(filepath.Join(dir, "keep.txt"))
	assert.NoError(t, err)
}

func TestDeleteDBWithoutArgsIsSafe(t *testing.T) {
	s := NewSystem(zap.NewNop())
	stopped := false
	RegisterServerCommands(s, CommandContext{
		StopServer: func() { stopped = true },
		Log:        zap.NewNop(),
	})

	s.pending.Push("deletedb")
	s.ProcessPending()
	assert.False(t, stopped)
}
