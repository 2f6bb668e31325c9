package net

import (
	"github.com/kingdomsgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// Manager wraps the transport host and routes its events to the session
// manager and the packet dispatcher. Runs entirely on the game loop
// goroutine; handlers therefore execute on the main thread.
type Manager struct {
	host       Host
	dispatcher *packet.Registry
	sessions   *SessionManager
	log        *zap.Logger
}

func NewManager(host Host, dispatcher *packet.Registry, sessions *SessionManager, log *zap.Logger) *Manager {
	return &Manager{
		host:       host,
		dispatcher: dispatcher,
		sessions:   sessions,
		log:        log,
	}
}

// ProcessEvents drains pending transport events in a single non-blocking
// pass. Connects and disconnects go through the session manager; received
// frames go through the dispatcher.
func (m *Manager) ProcessEvents() {
	m.host.Service(func(ev Event) {
		switch ev.Type {
		case EventConnect:
			m.sessions.OnConnect(ev.Peer)
		case EventReceive:
			m.dispatcher.Dispatch(ev.Peer, ev.Data)
		case EventDisconnect:
			m.sessions.OnDisconnect(ev.Peer)
		case EventDisconnectTimeout:
			m.log.Info("peer timed out", zap.Uint32("peer", ev.Peer.ID))
			m.sessions.OnDisconnect(ev.Peer)
		}
	})
}

// SendPacket sends an enveloped frame to one peer.
func (m *Manager) SendPacket(peer *Peer, data []byte, reliable bool) {
	peer.Send(data, reliable)
}

// BroadcastPacket sends an enveloped frame to every connected peer.
func (m *Manager) BroadcastPacket(data []byte, reliable bool) {
	m.host.Broadcast(data, reliable)
}

func (m *Manager) Addr() string {
	return m.host.Addr()
}

// Shutdown tears the transport down.
func (m *Manager) Shutdown() {
	m.host.Close()
	m.log.Info("network manager stopped")
}
