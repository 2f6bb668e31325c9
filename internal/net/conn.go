package net

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Conn is a single client connection. Network I/O runs in dedicated
// goroutines; everything else happens on the game loop via the host's
// Service pass.
type Conn struct {
	ID   uint32
	conn net.Conn

	InQueue  chan []byte // game loop reads frames from here
	OutQueue chan []byte // writer goroutine reads from here

	IP string

	codec        FrameCodec
	readTimeout  time.Duration
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	timedOut  atomic.Bool

	log *zap.Logger
}

func newConn(conn net.Conn, id uint32, codec FrameCodec, inSize, outSize int, readTO, writeTO time.Duration, log *zap.Logger) *Conn {
	return &Conn{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, inSize),
		OutQueue:     make(chan []byte, outSize),
		IP:           conn.RemoteAddr().String(),
		codec:        codec,
		readTimeout:  readTO,
		writeTimeout: writeTO,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint32("peer", id)),
	}
}

// start launches the reader and writer goroutines.
func (c *Conn) start() {
	go c.readLoop()
	go c.writeLoop()
}

// Send queues an already-built frame for sending. Non-blocking: if OutQueue
// is full the connection is dropped (backpressure on slow clients).
func (c *Conn) Send(data []byte) {
	if c.closed.Load() {
		return
	}
	select {
	case c.OutQueue <- data:
	default:
		c.log.Warn("output queue full, dropping slow connection")
		c.Close()
	}
}

// Close shuts the connection down. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		c.conn.Close()
	})
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// TimedOut reports whether the connection died from an idle read timeout
// rather than a remote close.
func (c *Conn) TimedOut() bool {
	return c.timedOut.Load()
}

// readLoop reads frames from the socket and pushes them onto InQueue.
// Blocking on a full InQueue is safe: the goroutine is per-connection, so
// it only stalls this client.
func (c *Conn) readLoop() {
	defer c.Close()

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		payload, err := c.codec.ReadFrame(c.conn)
		if err != nil {
			if !c.closed.Load() {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					c.timedOut.Store(true)
					c.log.Debug("idle timeout")
				} else {
					c.log.Debug("read error", zap.Error(err))
				}
			}
			return
		}

		select {
		case c.InQueue <- payload:
		case <-c.closeCh:
			return
		}
	}
}

// writeLoop drains OutQueue and writes frames to the socket.
func (c *Conn) writeLoop() {
	defer c.Close()

	for {
		select {
		case data := <-c.OutQueue:
			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.codec.WriteFrame(c.conn, data); err != nil {
				if !c.closed.Load() {
					c.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
