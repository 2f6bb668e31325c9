package core

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kingdomsgo/server/internal/config"
	"github.com/kingdomsgo/server/internal/console"
	"github.com/kingdomsgo/server/internal/core/event"
	"github.com/kingdomsgo/server/internal/core/queue"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/persist"
	"github.com/kingdomsgo/server/internal/util"
	"github.com/kingdomsgo/server/internal/world"
	"go.uber.org/zap"
)

// GameLoop drives the server at a fixed tick rate. It owns all kingdom
// state: component stores, spatial grids, the session map, and the
// main-thread callback queue are only touched from Run's goroutine.
type GameLoop struct {
	cfg      *config.Config
	network  *gonet.Manager
	sessions *gonet.SessionManager
	worker   *persist.Worker
	players  *persist.PlayerRepo
	kingdoms map[int]*world.Kingdom
	console  *console.System
	bus      *event.Bus

	callbacks *queue.Queue[func()]
	running   atomic.Bool
	stopOnce  sync.Once
	log       *zap.Logger
}

func NewGameLoop(
	cfg *config.Config,
	network *gonet.Manager,
	sessions *gonet.SessionManager,
	worker *persist.Worker,
	players *persist.PlayerRepo,
	kingdoms map[int]*world.Kingdom,
	consoleSys *console.System,
	bus *event.Bus,
	log *zap.Logger,
) *GameLoop {
	l := &GameLoop{
		cfg:       cfg,
		network:   network,
		sessions:  sessions,
		worker:    worker,
		players:   players,
		kingdoms:  kingdoms,
		console:   consoleSys,
		bus:       bus,
		callbacks: queue.New[func()](),
		log:       log,
	}
	l.setupDisconnectHandler()
	return l
}

// RunOnMain schedules a callback for execution on the loop goroutine during
// the next UpdateLogic. Safe to call from any goroutine.
func (l *GameLoop) RunOnMain(fn func()) {
	l.callbacks.Push(fn)
}

// Run executes the fixed-cadence loop until Stop. Each iteration pumps the
// network, drains the callback queue, ticks every kingdom, and processes
// console commands, then holds the cadence: OS sleep up to 2 ms short of
// the deadline, busy-yield across the remainder.
func (l *GameLoop) Run() {
	period := l.cfg.Server.TickPeriod()
	dt := period
	periodMs := float64(period) / float64(time.Millisecond)

	l.running.Store(true)
	l.log.Info("game loop started",
		zap.Int("tick_rate", l.cfg.Server.TickRate),
		zap.Duration("period", period),
	)

	next := time.Now()
	watch := util.NewStopwatch()

	for l.running.Load() {
		watch.Reset()

		l.processNetworkIn()
		l.updateLogic(dt)
		l.processNetworkOut()

		if taken := watch.ElapsedMilliseconds(); taken > periodMs {
			l.log.Warn("server overloaded, tick overran",
				zap.Float64("tick_ms", taken),
				zap.Float64("budget_ms", periodMs),
				zap.Int("pending_events", l.bus.Pending()),
			)
		}

		next = next.Add(period)
		sleep := time.Until(next)
		if sleep > 0 {
			if osSleep := sleep - 2*time.Millisecond; osSleep > 0 {
				time.Sleep(osSleep)
			}
			for time.Now().Before(next) {
				runtime.Gosched()
			}
		} else {
			// Catastrophic overrun: resetting the deadline avoids a
			// spiral of ever-later ticks.
			l.log.Error("tick deadline missed, resetting cadence")
			next = time.Now()
		}
	}

	l.log.Info("game loop stopped")
}

// Stop clears the run flag and shuts subsystems down in order: console,
// network, persistence worker. Safe to call from any goroutine and
// idempotent.
func (l *GameLoop) Stop() {
	l.stopOnce.Do(func() {
		l.running.Store(false)
		l.console.Stop()
		l.network.Shutdown()
		l.worker.Shutdown()
	})
}

func (l *GameLoop) processNetworkIn() {
	l.network.ProcessEvents()
}

func (l *GameLoop) updateLogic(dt time.Duration) {
	// Deliver last tick's events, then collect this tick's.
	l.bus.Swap()
	l.bus.Dispatch()

	// Drain the main-thread callback queue fully before ticking worlds.
	for {
		fn, ok := l.callbacks.TryPop()
		if !ok {
			break
		}
		if fn != nil {
			fn()
		}
	}

	for _, k := range l.kingdoms {
		k.OnTick(dt)
	}

	l.console.ProcessPending()
}

// processNetworkOut is reserved for batched broadcasts.
func (l *GameLoop) processNetworkOut() {}

// setupDisconnectHandler wires session teardown to entity cleanup. The
// callback runs during the network pump on the loop goroutine, but the
// entity work is still marshalled through the callback queue so it lands
// in UpdateLogic with everything else.
func (l *GameLoop) setupDisconnectHandler() {
	l.sessions.SetDisconnectCallback(func(s gonet.PlayerSession) {
		event.Emit(l.bus, event.PlayerDisconnected{
			PeerID:        s.PeerID,
			AccountID:     s.PlayerID,
			KingdomID:     s.KingdomID,
			Authenticated: s.Authenticated,
		})

		if !s.EntityID.Valid() || s.KingdomID < 0 {
			return
		}
		entityID, kingdomID, playerID := s.EntityID, s.KingdomID, s.PlayerID

		l.RunOnMain(func() {
			k, ok := l.kingdoms[kingdomID]
			if !ok {
				return
			}
			// Persist the last known state before the entity goes away.
			if pos, ok := k.Positions.Get(entityID); ok {
				l.players.UpdatePosition(playerID, kingdomID, pos.X, pos.Y)
			}
			if res, ok := k.Resources.Get(entityID); ok {
				l.players.UpdateResources(playerID, kingdomID, res.Food, res.Wood, res.Stone, res.Gold)
			}

			alive := k.ECS.Alive(entityID)
			k.DespawnEntity(entityID)
			if alive {
				l.log.Info("entity destroyed for disconnected player",
					zap.Int64("player", playerID),
					zap.Int("kingdom", kingdomID),
				)
			}
		})
	})
}
