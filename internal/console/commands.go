package console

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// CommandContext carries what the built-in server commands need.
type CommandContext struct {
	DBPath     string
	StopServer func()
	Log        *zap.Logger
}

// RegisterServerCommands wires the built-in operator commands.
func RegisterServerCommands(s *System, ctx CommandContext) {
	s.Register("stop", "shut the server down cleanly", func([]string) {
		ctx.Log.Info("shutdown requested from console")
		ctx.StopServer()
	})

	s.Register("deletedb", "delete a database and stop. usage: deletedb <name.db> | all", func(args []string) {
		if len(args) == 0 {
			ctx.Log.Warn("usage: deletedb <name.db> or deletedb all")
			return
		}

		// Stop first: releases the SQLite handle so the file (and its
		// -wal/-shm siblings) can actually be removed.
		ctx.Log.Warn("stopping server before deleting database files")
		ctx.StopServer()

		if args[0] == "all" {
			paths, err := filepath.Glob("*.db")
			if err != nil {
				ctx.Log.Error("glob failed", zap.Error(err))
				return
			}
			for _, p := range paths {
				removeDBFiles(p, ctx.Log)
			}
			ctx.Log.Info("database files removed, restart the server",
				zap.Int("count", len(paths)))
			return
		}

		name := args[0]
		if _, err := os.Stat(name); err != nil {
			ctx.Log.Warn("file not found", zap.String("file", name))
			return
		}
		removeDBFiles(name, ctx.Log)
		ctx.Log.Info("database removed, restart the server", zap.String("file", name))
	})
}

// removeDBFiles deletes a SQLite database together with its WAL sidecars.
func removeDBFiles(path string, log *zap.Logger) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Error("remove failed", zap.String("file", p), zap.Error(err))
		}
	}
	log.Info("removed", zap.String("file", path))
}
