package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for server-side game rules.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file from the given
// directory. A missing directory is not an error — the server simply runs
// without scripted systems.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasKingdomTick reports whether the scripts define the kingdom tick hook.
func (e *Engine) HasKingdomTick() bool {
	return e.vm.GetGlobal("on_kingdom_tick") != lua.LNil
}

// OnKingdomTick calls the Lua on_kingdom_tick(kingdom_id, dt_seconds,
// player_count) hook. Script errors are logged and swallowed — a broken
// script must never stall the tick.
func (e *Engine) OnKingdomTick(kingdomID int, dtSeconds float64, playerCount int) {
	fn := e.vm.GetGlobal("on_kingdom_tick")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(kingdomID), lua.LNumber(dtSeconds), lua.LNumber(playerCount)); err != nil {
		e.log.Error("lua on_kingdom_tick error",
			zap.Int("kingdom", kingdomID),
			zap.Error(err),
		)
	}
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
