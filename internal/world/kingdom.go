package world

import (
	"time"

	"github.com/kingdomsgo/server/internal/core/ecs"
	"go.uber.org/zap"
)

// GameSystem is the plug-in contract for gameplay logic. Each system is
// ticked by its owning Kingdom in registration order.
type GameSystem interface {
	OnTick(dt time.Duration, k *Kingdom)
	Name() string
}

// Kingdom is one isolated simulated world: its own entity/component store,
// spatial index, and game systems. Owned by the game loop goroutine.
type Kingdom struct {
	ID   int
	Name string

	ECS  *ecs.World
	Grid *SpatialGrid

	// Typed component stores, registered with the ECS world so Destroy
	// clears them.
	Players   *ecs.Store[PlayerInfo]
	Positions *ecs.Store[Position]
	Resources *ecs.Store[Resources]

	systems []GameSystem
	log     *zap.Logger
}

func NewKingdom(id int, name string, log *zap.Logger) *Kingdom {
	k := &Kingdom{
		ID:        id,
		Name:      name,
		ECS:       ecs.NewWorld(),
		Grid:      NewSpatialGrid(DefaultCellSize),
		Players:   ecs.NewStore[PlayerInfo](),
		Positions: ecs.NewStore[Position](),
		Resources: ecs.NewStore[Resources](),
		log:       log,
	}
	k.ECS.RegisterStore(k.Players)
	k.ECS.RegisterStore(k.Positions)
	k.ECS.RegisterStore(k.Resources)

	log.Info("kingdom created", zap.Int("id", id), zap.String("name", name))
	return k
}

// AddSystem appends a game system; systems tick in insertion order.
func (k *Kingdom) AddSystem(s GameSystem) {
	k.log.Info("game system registered",
		zap.String("kingdom", k.Name),
		zap.String("system", s.Name()),
	)
	k.systems = append(k.systems, s)
}

// OnTick advances every registered game system by dt.
func (k *Kingdom) OnTick(dt time.Duration) {
	for _, s := range k.systems {
		s.OnTick(dt, k)
	}
}

// SpawnPlayer creates the player entity with its components and registers
// it in the spatial grid.
func (k *Kingdom) SpawnPlayer(info PlayerInfo, pos Position, res Resources) ecs.EntityID {
	entity := k.ECS.Create()
	k.Players.Set(entity, &info)
	k.Positions.Set(entity, &pos)
	k.Resources.Set(entity, &res)
	k.Grid.Insert(entity, pos.X, pos.Y)
	return entity
}

// DespawnEntity removes the entity from the spatial grid before destroying
// it; grid removal must precede destruction.
func (k *Kingdom) DespawnEntity(entity ecs.EntityID) {
	k.Grid.Remove(entity)
	if k.ECS.Alive(entity) {
		k.ECS.Destroy(entity)
	}
}

// PlayerCount returns the number of player entities in this kingdom.
func (k *Kingdom) PlayerCount() int {
	return k.Players.Len()
}
