package net

import (
	"testing"

	"github.com/kingdomsgo/server/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPeer(id uint32) *Peer {
	return NewPeer(id, "127.0.0.1:40000", func([]byte, bool) {})
}

func testEntity() ecs.EntityID {
	return ecs.NewWorld().Create()
}

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(1)

	m.OnConnect(peer)
	require.True(t, m.IsConnected(1))

	sess := m.GetSession(peer)
	require.NotNil(t, sess)
	assert.False(t, sess.Authenticated)
	assert.Equal(t, InvalidPlayer, sess.PlayerID)
	assert.Equal(t, -1, sess.KingdomID)
	assert.False(t, sess.InKingdom())

	token, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, sess.Authenticated)
	assert.Equal(t, int64(42), sess.PlayerID)

	entity := testEntity()
	require.NoError(t, m.OnJoinKingdom(peer, 3, entity))
	assert.Equal(t, 3, sess.KingdomID)
	assert.Equal(t, entity, sess.EntityID)
	assert.True(t, sess.InKingdom())

	removed := m.OnDisconnect(peer)
	require.NotNil(t, removed)
	assert.Equal(t, int64(42), removed.PlayerID)
	assert.False(t, m.IsConnected(1))
	assert.Nil(t, m.FindPeer(1))
}

// Authenticated implies a real player id; a kingdom placement implies an
// authenticated session with a live entity.
func TestSessionInvariants(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(1)
	m.OnConnect(peer)

	_, err := m.OnLogin(peer, InvalidPlayer, ecs.InvalidEntity)
	assert.Error(t, err)
	assert.False(t, m.GetSession(peer).Authenticated)

	// Join before login must fail.
	assert.Error(t, m.OnJoinKingdom(peer, 1, testEntity()))

	_, err = m.OnLogin(peer, 7, ecs.InvalidEntity)
	require.NoError(t, err)

	// Join with the invalid entity sentinel must fail.
	assert.Error(t, m.OnJoinKingdom(peer, 1, ecs.InvalidEntity))
}

func TestLoginIsIdempotentAndRotatesToken(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(1)
	m.OnConnect(peer)

	first, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)
	assert.True(t, m.ValidateSessionToken(42, first))

	second, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The previous token no longer validates after rotation.
	assert.False(t, m.ValidateSessionToken(42, first))
	assert.True(t, m.ValidateSessionToken(42, second))
}

func TestValidateSessionToken(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(1)
	m.OnConnect(peer)

	token, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)

	assert.True(t, m.ValidateSessionToken(42, token))
	assert.False(t, m.ValidateSessionToken(42, "wrong"))
	assert.False(t, m.ValidateSessionToken(42, ""))
	assert.False(t, m.ValidateSessionToken(99, token))
}

// Tokens outlive the connection: a dropped player reconnects on a fresh
// session and validates with the token issued before the drop.
func TestTokenSurvivesDisconnect(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(1)
	m.OnConnect(peer)

	token, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)
	m.OnDisconnect(peer)

	assert.True(t, m.ValidateSessionToken(42, token))
}

func TestDisconnectCallbackReceivesSnapshot(t *testing.T) {
	m := NewSessionManager(zap.NewNop())
	peer := testPeer(5)
	m.OnConnect(peer)
	_, err := m.OnLogin(peer, 42, ecs.InvalidEntity)
	require.NoError(t, err)
	entity := testEntity()
	require.NoError(t, m.OnJoinKingdom(peer, 2, entity))

	var got *PlayerSession
	m.SetDisconnectCallback(func(s PlayerSession) { got = &s })

	m.OnDisconnect(peer)
	require.NotNil(t, got)
	assert.Equal(t, uint32(5), got.PeerID)
	assert.Equal(t, int64(42), got.PlayerID)
	assert.Equal(t, 2, got.KingdomID)
	assert.Equal(t, entity, got.EntityID)

	// Unknown peers do not trigger the callback.
	got = nil
	assert.Nil(t, m.OnDisconnect(testPeer(99)))
	assert.Nil(t, got)
}

func TestSessionsByKingdom(t *testing.T) {
	m := NewSessionManager(zap.NewNop())

	for i := uint32(1); i <= 4; i++ {
		p := testPeer(i)
		m.OnConnect(p)
		_, err := m.OnLogin(p, int64(i), ecs.InvalidEntity)
		require.NoError(t, err)
	}
	require.NoError(t, m.OnJoinKingdom(m.FindPeer(1), 1, testEntity()))
	require.NoError(t, m.OnJoinKingdom(m.FindPeer(2), 1, testEntity()))
	require.NoError(t, m.OnJoinKingdom(m.FindPeer(3), 2, testEntity()))

	assert.Equal(t, 2, m.CountByKingdom(1))
	assert.Equal(t, 1, m.CountByKingdom(2))
	assert.Equal(t, 0, m.CountByKingdom(9))
	assert.Len(t, m.GetSessionsByKingdom(1), 2)
	assert.Equal(t, 4, m.Count())
}
