package net

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/kingdomsgo/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHost(t *testing.T) *TCPHost {
	t.Helper()
	// Port 0: the OS picks a free port, Addr() reports it.
	h, err := NewTCPHost(0, 16, config.Defaults().Network, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func dialHost(t *testing.T, h *TCPHost) net.Conn {
	t.Helper()
	port := h.Addr()[strings.LastIndex(h.Addr(), ":"):]
	conn, err := net.Dial("tcp", "127.0.0.1"+port)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// collect polls Service until the predicate is satisfied or the deadline
// passes, gathering every event seen.
func collect(t *testing.T, h *TCPHost, deadline time.Duration, enough func([]Event) bool) []Event {
	t.Helper()
	var events []Event
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		h.Service(func(ev Event) {
			// Copy receive payloads: they are only valid during the callback.
			if ev.Data != nil {
				data := make([]byte, len(ev.Data))
				copy(data, ev.Data)
				ev.Data = data
			}
			events = append(events, ev)
		})
		if enough(events) {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out with %d events", len(events))
	return nil
}

func hasType(events []Event, typ EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func TestTCPHostConnectReceiveDisconnect(t *testing.T) {
	h := newTestHost(t)
	client := dialHost(t, h)

	events := collect(t, h, 2*time.Second, func(evs []Event) bool {
		return hasType(evs, EventConnect)
	})
	require.True(t, hasType(events, EventConnect))
	peer := events[0].Peer
	require.NotNil(t, peer)
	assert.NotZero(t, peer.ID)

	codec := FrameCodec{}

	// One frame from the client surfaces as one RECEIVE with the payload.
	require.NoError(t, codec.WriteFrame(client, []byte{0xAA, 0xBB, 0xCC}))
	events = collect(t, h, 2*time.Second, func(evs []Event) bool {
		return hasType(evs, EventReceive)
	})
	for _, ev := range events {
		if ev.Type == EventReceive {
			assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, ev.Data)
			assert.Equal(t, peer.ID, ev.Peer.ID)
		}
	}

	// Server → client via the peer handle.
	peer.Send([]byte{0x01, 0x02}, true)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	payload, err := codec.ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, payload)

	// Closing the socket surfaces a DISCONNECT.
	client.Close()
	events = collect(t, h, 2*time.Second, func(evs []Event) bool {
		return hasType(evs, EventDisconnect) || hasType(evs, EventDisconnectTimeout)
	})
	assert.True(t, hasType(events, EventDisconnect))
}

func TestTCPHostPerPeerOrdering(t *testing.T) {
	h := newTestHost(t)
	client := dialHost(t, h)

	codec := FrameCodec{}
	const frames = 10
	for i := byte(0); i < frames; i++ {
		require.NoError(t, codec.WriteFrame(client, []byte{i}))
	}

	events := collect(t, h, 2*time.Second, func(evs []Event) bool {
		n := 0
		for _, ev := range evs {
			if ev.Type == EventReceive {
				n++
			}
		}
		return n == frames
	})

	next := byte(0)
	for _, ev := range events {
		if ev.Type != EventReceive {
			continue
		}
		assert.Equal(t, []byte{next}, ev.Data, "frames must arrive in order")
		next++
	}
}

func TestFrameCodecRoundTrip(t *testing.T) {
	codec := FrameCodec{}
	var buf strings.Builder
	require.NoError(t, codec.WriteFrame(&buf, []byte("bonjour")))

	payload, err := codec.ReadFrame(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []byte("bonjour"), payload)
}

func TestFrameCodecEnforcesBoundsBothWays(t *testing.T) {
	codec := FrameCodec{MaxPayload: 16}

	// A zero-length payload is malformed.
	_, err := codec.ReadFrame(strings.NewReader("\x00\x00"))
	assert.Error(t, err)

	// A prefix over the bound is rejected before the payload is read.
	_, err = codec.ReadFrame(strings.NewReader("\xff\xff"))
	assert.ErrorContains(t, err, "exceeds limit")

	// The same bound applies on the way out.
	var sb strings.Builder
	assert.ErrorContains(t, codec.WriteFrame(&sb, make([]byte, 17)), "exceeds limit")
	assert.Error(t, codec.WriteFrame(&sb, nil))

	// A frame the codec writes is always one it reads back.
	sb.Reset()
	require.NoError(t, codec.WriteFrame(&sb, make([]byte, 16)))
	payload, err := codec.ReadFrame(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, payload, 16)
}
