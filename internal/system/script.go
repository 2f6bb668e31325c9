package system

import (
	"time"

	"github.com/kingdomsgo/server/internal/scripting"
	"github.com/kingdomsgo/server/internal/world"
)

// ScriptSystem bridges a kingdom's tick into the Lua engine. It is the
// reference game system: gameplay rules plug into a kingdom through the
// same GameSystem interface.
type ScriptSystem struct {
	engine *scripting.Engine
}

func NewScriptSystem(engine *scripting.Engine) *ScriptSystem {
	return &ScriptSystem{engine: engine}
}

func (s *ScriptSystem) Name() string { return "lua" }

func (s *ScriptSystem) OnTick(dt time.Duration, k *world.Kingdom) {
	s.engine.OnKingdomTick(k.ID, dt.Seconds(), k.PlayerCount())
}
