package handler

import (
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// Server-side clamp on a single resource mutation.
const maxResourceDelta int32 = 1000

// HandleModifyResources applies a clamped delta to one resource of the
// player's entity, persists the tuple fire-and-forget, and confirms with
// the full resource state. Requires a session placed in a kingdom.
func HandleModifyResources(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.ModifyResources
	if err := req.Decode(r); err != nil {
		return err
	}

	delta := clampI32(req.Delta, -maxResourceDelta, maxResourceDelta)

	sess := deps.Sessions.GetSession(peer)
	if sess == nil || !sess.InKingdom() || !sess.EntityID.Valid() {
		deps.Log.Warn("resource change outside a kingdom", zap.Uint32("peer", peer.ID))
		return nil
	}

	k, ok := deps.Kingdoms[sess.KingdomID]
	if !ok {
		return nil
	}
	entity := sess.EntityID
	if !k.ECS.Alive(entity) {
		return nil
	}
	res, okRes := k.Resources.Get(entity)
	info, okInfo := k.Players.Get(entity)
	if !okRes || !okInfo {
		return nil
	}

	switch req.ResourceType {
	case packet.ResourceFood:
		res.Food = floorZero(res.Food + delta)
	case packet.ResourceWood:
		res.Wood = floorZero(res.Wood + delta)
	case packet.ResourceStone:
		res.Stone = floorZero(res.Stone + delta)
	case packet.ResourceGold:
		res.Gold = floorZero(res.Gold + delta)
	default:
		deps.Log.Warn("unknown resource type", zap.Uint8("type", uint8(req.ResourceType)))
		return nil
	}

	deps.Log.Info("resources changed",
		zap.String("username", info.Username),
		zap.Stringer("type", req.ResourceType),
		zap.Int32("delta", delta),
		zap.Int32("food", res.Food),
		zap.Int32("wood", res.Wood),
		zap.Int32("stone", res.Stone),
		zap.Int32("gold", res.Gold),
	)

	// Async save keyed on (account, kingdom).
	deps.Players.UpdateResources(info.AccountID, sess.KingdomID, res.Food, res.Wood, res.Stone, res.Gold)

	update := packet.ResourceUpdate{Food: res.Food, Wood: res.Wood, Stone: res.Stone, Gold: res.Gold}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CResourceUpdate, &update), false)
	return nil
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorZero(v int32) int32 {
	if v < 0 {
		return 0
	}
	return v
}
