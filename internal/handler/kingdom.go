package handler

import (
	"sort"

	"github.com/kingdomsgo/server/internal/core/event"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/persist"
	"github.com/kingdomsgo/server/internal/world"
	"go.uber.org/zap"
)

// HandleRequestKingdoms sends the configured kingdom list with live player
// counts. Requires an authenticated session; anything else is dropped.
func HandleRequestKingdoms(peer *gonet.Peer, _ *packet.Reader, deps *Deps) error {
	sess := deps.Sessions.GetSession(peer)
	if sess == nil || !sess.Authenticated {
		deps.Log.Warn("kingdom list requested by unauthenticated peer", zap.Uint32("peer", peer.ID))
		return nil
	}

	ids := make([]int, 0, len(deps.Kingdoms))
	for id := range deps.Kingdoms {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	list := packet.KingdomList{}
	for _, id := range ids {
		k := deps.Kingdoms[id]
		maxPlayers := 1000
		status := world.StatusOnline
		if info := deps.Registry.GetByID(id); info != nil {
			maxPlayers = info.MaxPlayers
			status = info.Status
		}
		list.Kingdoms = append(list.Kingdoms, packet.KingdomEntry{
			ID:          int32(id),
			Name:        k.Name,
			PlayerCount: int32(deps.Sessions.CountByKingdom(id)),
			MaxPlayers:  int32(maxPlayers),
			Status:      status,
		})
	}

	deps.Log.Info("sending kingdom list",
		zap.Int("kingdoms", len(list.Kingdoms)),
		zap.Int64("player", sess.PlayerID),
	)
	deps.Net.SendPacket(peer, packet.Build(packet.S2CKingdomList, &list), true)
	return nil
}

// HandleSelectKingdom loads (or creates) the player's profile for the
// chosen kingdom, then on the main thread spawns the entity, places the
// session, and replies with the profile.
func HandleSelectKingdom(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.SelectKingdom
	if err := req.Decode(r); err != nil {
		return err
	}

	sess := deps.Sessions.GetSession(peer)
	if sess == nil || !sess.Authenticated {
		deps.Log.Warn("kingdom select by unauthenticated peer", zap.Uint32("peer", peer.ID))
		return nil
	}
	if sess.InKingdom() {
		deps.Log.Warn("player already in a kingdom",
			zap.Int64("player", sess.PlayerID),
			zap.Int("kingdom", sess.KingdomID),
		)
		return nil
	}

	kingdomID := int(req.KingdomID)
	k, ok := deps.Kingdoms[kingdomID]
	if !ok {
		deps.Log.Warn("unknown kingdom selected", zap.Int("kingdom", kingdomID))
		return nil
	}

	accountID := sess.PlayerID
	peerID := peer.ID
	deps.Log.Info("kingdom selected",
		zap.Int64("player", accountID),
		zap.String("kingdom", k.Name),
	)

	deps.Accounts.GetByID(accountID, func(acc *persist.Account) {
		if acc == nil {
			deps.Log.Error("account vanished during kingdom select", zap.Int64("account", accountID))
			return
		}

		deps.Players.GetByAccountAndKingdom(accountID, kingdomID, func(pd *persist.PlayerData) {
			if pd != nil {
				joinKingdomOnMain(deps, peerID, acc, pd, kingdomID)
				return
			}

			// First visit: create the profile with default resources.
			deps.Log.Info("creating kingdom profile",
				zap.Int64("account", accountID),
				zap.Int("kingdom", kingdomID),
			)
			deps.Players.Create(accountID, kingdomID, func(created *persist.PlayerData) {
				if created == nil {
					deps.Log.Error("kingdom profile creation failed", zap.Int64("account", accountID))
					return
				}
				joinKingdomOnMain(deps, peerID, acc, created, kingdomID)
			})
		})
	})
	return nil
}

// joinKingdomOnMain finishes the join on the main thread: the peer is
// re-resolved, the entity is spawned with its components, the session is
// placed, and the profile goes back to the client.
func joinKingdomOnMain(deps *Deps, peerID uint32, acc *persist.Account, pd *persist.PlayerData, kingdomID int) {
	deps.RunOnMain(func() {
		p := deps.Sessions.FindPeer(peerID)
		if p == nil {
			return // peer vanished between enqueue and completion
		}
		k, ok := deps.Kingdoms[kingdomID]
		if !ok {
			return
		}
		sess := deps.Sessions.GetSession(p)
		if sess == nil || !sess.Authenticated || sess.InKingdom() {
			return
		}

		entity := k.SpawnPlayer(
			world.PlayerInfo{PeerID: peerID, AccountID: acc.ID, Username: acc.Username},
			world.Position{X: pd.PosX, Y: pd.PosY},
			world.Resources{Food: pd.Food, Wood: pd.Wood, Stone: pd.Stone, Gold: pd.Gold},
		)
		if err := deps.Sessions.OnJoinKingdom(p, kingdomID, entity); err != nil {
			deps.Log.Error("kingdom join failed", zap.Error(err))
			k.DespawnEntity(entity)
			return
		}

		event.Emit(deps.Bus, event.PlayerJoinedKingdom{
			AccountID: acc.ID,
			KingdomID: kingdomID,
			Username:  acc.Username,
		})

		data := packet.PlayerData{
			AccountID: acc.ID,
			Username:  acc.Username,
			PosX:      pd.PosX,
			PosY:      pd.PosY,
			Food:      pd.Food,
			Wood:      pd.Wood,
			Stone:     pd.Stone,
			Gold:      pd.Gold,
		}
		deps.Net.SendPacket(p, packet.Build(packet.S2CPlayerData, &data), true)

		deps.Log.Info("player joined kingdom",
			zap.String("username", acc.Username),
			zap.String("kingdom", k.Name),
		)
	})
}
