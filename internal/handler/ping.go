package handler

import (
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/util"
)

// HandlePing echoes the client timestamp plus a server monotonic-ms
// timestamp. Pong is high frequency, so it goes out unreliable.
func HandlePing(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.Ping
	if err := req.Decode(r); err != nil {
		return err
	}

	pong := packet.Pong{
		ClientTimestamp: req.ClientTimestamp,
		ServerTimestamp: util.MonotonicMillis(),
	}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CPong, &pong), false)
	return nil
}
