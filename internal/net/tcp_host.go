package net

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/kingdomsgo/server/internal/config"
	"go.uber.org/zap"
)

// TCPHost implements Host over framed TCP. The reliable/unsequenced flag
// of Send is accepted but meaningless here: TCP delivers everything in
// order. Connections are accepted on a dedicated goroutine and handed to
// the game loop through a channel; all other state is owned by the
// Service caller.
type TCPHost struct {
	listener net.Listener
	nextID   atomic.Uint32
	newConns chan *Conn

	// Owned by the Service goroutine.
	conns map[uint32]*Conn
	peers map[uint32]*Peer

	maxPlayers int
	maxPerPass int
	codec      FrameCodec
	netCfg     config.NetworkConfig

	closeCh chan struct{}
	log     *zap.Logger
}

// NewTCPHost binds 0.0.0.0:port and starts the accept loop.
func NewTCPHost(port uint16, maxPlayers int, netCfg config.NetworkConfig, log *zap.Logger) (*TCPHost, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind port %d: %w", port, err)
	}
	h := &TCPHost{
		listener:   ln,
		newConns:   make(chan *Conn, 64),
		conns:      make(map[uint32]*Conn),
		peers:      make(map[uint32]*Peer),
		maxPlayers: maxPlayers,
		maxPerPass: netCfg.MaxPacketsPerTick,
		codec:      FrameCodec{MaxPayload: netCfg.MaxFrameBytes},
		netCfg:     netCfg,
		closeCh:    make(chan struct{}),
		log:        log,
	}
	go h.acceptLoop()
	return h, nil
}

func (h *TCPHost) acceptLoop() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-h.closeCh:
				return
			default:
			}
			h.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := h.nextID.Add(1)
		c := newConn(conn, id, h.codec, h.netCfg.InQueueSize, h.netCfg.OutQueueSize,
			h.netCfg.ReadTimeout, h.netCfg.WriteTimeout, h.log)
		c.start()

		select {
		case h.newConns <- c:
		default:
			h.log.Warn("connection backlog full, rejecting", zap.String("ip", c.IP))
			c.Close()
		}
	}
}

// Service drains pending transport events in one non-blocking pass:
// new connections, received frames (bounded per connection), and deaths.
func (h *TCPHost) Service(fn func(Event)) {
	// New connections.
	for {
		select {
		case c := <-h.newConns:
			if len(h.conns) >= h.maxPlayers {
				h.log.Warn("server full, rejecting connection", zap.String("ip", c.IP))
				c.Close()
				continue
			}
			h.conns[c.ID] = c
			peer := NewPeer(c.ID, c.IP, func(data []byte, _ bool) { c.Send(data) })
			h.peers[c.ID] = peer
			fn(Event{Type: EventConnect, Peer: peer})
		default:
			goto drained
		}
	}
drained:

	for id, c := range h.conns {
		peer := h.peers[id]

		// Flush frames that arrived before a disconnect was noticed, so a
		// final request sent just before the drop is still handled.
		h.drainFrames(c, peer, fn)

		if c.IsClosed() {
			evType := EventDisconnect
			if c.TimedOut() {
				evType = EventDisconnectTimeout
			}
			fn(Event{Type: evType, Peer: peer})
			delete(h.conns, id)
			delete(h.peers, id)
		}
	}
}

func (h *TCPHost) drainFrames(c *Conn, peer *Peer, fn func(Event)) {
	for i := 0; i < h.maxPerPass; i++ {
		select {
		case data := <-c.InQueue:
			fn(Event{Type: EventReceive, Peer: peer, Data: data})
		default:
			return
		}
	}
}

func (h *TCPHost) Broadcast(data []byte, _ bool) {
	for _, c := range h.conns {
		c.Send(data)
	}
}

func (h *TCPHost) Addr() string {
	return h.listener.Addr().String()
}

// Close stops accepting and closes every connection.
func (h *TCPHost) Close() {
	close(h.closeCh)
	h.listener.Close()
	for _, c := range h.conns {
		c.Close()
	}
}
