package handler

import (
	"fmt"

	"github.com/kingdomsgo/server/internal/core/event"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/persist"
	"github.com/kingdomsgo/server/internal/world"
	"go.uber.org/zap"
)

// Sender sends enveloped frames toward peers. Satisfied by *net.Manager;
// tests substitute a recorder.
type Sender interface {
	SendPacket(peer *gonet.Peer, data []byte, reliable bool)
}

// Deps carries everything the packet handlers share. Handlers run on the
// game loop goroutine; repository callbacks run on the persistence worker
// and must re-post through RunOnMain before touching sessions or kingdoms,
// re-resolving the peer by id.
type Deps struct {
	Accounts *persist.AccountRepo
	Players  *persist.PlayerRepo
	Sessions *gonet.SessionManager
	Net      Sender
	Kingdoms map[int]*world.Kingdom
	Registry *world.Registry
	Limiter  *RateLimiter

	RunOnMain func(func())
	Bus       *event.Bus
	Log       *zap.Logger
}

// RegisterAll wires every opcode handler into the dispatch registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.MustRegister(packet.C2SPing, wrap(deps, HandlePing))
	reg.MustRegister(packet.C2SLogin, wrap(deps, HandleLogin))
	reg.MustRegister(packet.C2SGuestLogin, wrap(deps, HandleGuestLogin))
	reg.MustRegister(packet.C2SReconnect, wrap(deps, HandleReconnect))
	reg.MustRegister(packet.C2SBindAccount, wrap(deps, HandleBindAccount))
	reg.MustRegister(packet.C2SBindSocialAccount, wrap(deps, HandleBindSocialAccount))
	reg.MustRegister(packet.C2SSocialLogin, wrap(deps, HandleSocialLogin))
	reg.MustRegister(packet.C2SRequestKingdoms, wrap(deps, HandleRequestKingdoms))
	reg.MustRegister(packet.C2SSelectKingdom, wrap(deps, HandleSelectKingdom))
	reg.MustRegister(packet.C2SModifyResources, wrap(deps, HandleModifyResources))

	deps.Log.Info("network handlers registered",
		zap.Strings("groups", []string{"ping", "auth", "kingdom", "resource"}),
	)
}

func wrap(deps *Deps, fn func(*gonet.Peer, *packet.Reader, *Deps) error) packet.HandlerFunc {
	return func(peer any, r *packet.Reader) error {
		p, ok := peer.(*gonet.Peer)
		if !ok {
			return fmt.Errorf("unexpected peer type %T", peer)
		}
		return fn(p, r, deps)
	}
}
