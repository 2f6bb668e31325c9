package net

// EventType identifies a transport event surfaced by a Host.
type EventType int

const (
	EventConnect EventType = iota
	EventReceive
	EventDisconnect
	EventDisconnectTimeout
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventReceive:
		return "receive"
	case EventDisconnect:
		return "disconnect"
	case EventDisconnectTimeout:
		return "disconnect_timeout"
	default:
		return "unknown"
	}
}

// Event is one transport occurrence. Data is only set for EventReceive and
// is owned by the callee for the duration of the callback.
type Event struct {
	Type EventType
	Peer *Peer
	Data []byte
}

// Host abstracts the transport. Implementations must deliver all events for
// a single peer in arrival order.
type Host interface {
	// Service performs one non-blocking pass over pending transport
	// events, invoking fn for each. Called from the game loop goroutine.
	Service(fn func(Event))
	// Broadcast sends to every connected peer.
	Broadcast(data []byte, reliable bool)
	// Addr returns the bound listen address.
	Addr() string
	// Close stops accepting and tears down all connections.
	Close()
}

// Peer is a transport-level endpoint with a stable numeric identifier
// assigned on connect. Peer handles must not be captured across thread
// hops — re-resolve by ID through the session manager instead.
type Peer struct {
	ID   uint32
	Addr string // remote ip:port

	send func(data []byte, reliable bool)
}

// NewPeer wraps a send capability. Used by hosts and by tests.
func NewPeer(id uint32, addr string, send func(data []byte, reliable bool)) *Peer {
	return &Peer{ID: id, Addr: addr, send: send}
}

// Send queues data toward the peer. The reliable flag maps to the
// transport's delivery class; transports without the distinction ignore it.
func (p *Peer) Send(data []byte, reliable bool) {
	if p == nil || p.send == nil {
		return
	}
	p.send(data, reliable)
}

// IP returns the address without the port, for rate-limit keying.
func (p *Peer) IP() string {
	for i := len(p.Addr) - 1; i >= 0; i-- {
		if p.Addr[i] == ':' {
			return p.Addr[:i]
		}
	}
	return p.Addr
}
