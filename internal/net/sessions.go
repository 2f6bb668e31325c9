package net

import (
	"crypto/subtle"
	"fmt"

	"github.com/kingdomsgo/server/internal/core/ecs"
	"github.com/kingdomsgo/server/internal/util"
	"go.uber.org/zap"
)

// InvalidPlayer is the player-id sentinel for an unauthenticated session.
const InvalidPlayer int64 = 0

// PlayerSession is the volatile per-peer state. Lifecycle:
//
//	connect → authenticated (login/guest/reconnect/social) → in kingdom
//
// with disconnect possible from any state. Invariants:
// Authenticated ⇒ PlayerID != InvalidPlayer;
// KingdomID >= 0 ⇒ Authenticated && EntityID valid.
type PlayerSession struct {
	Peer          *Peer
	PeerID        uint32
	PlayerID      int64
	EntityID      ecs.EntityID
	Authenticated bool
	KingdomID     int // -1 = none
}

// InKingdom reports whether the session has been placed in a kingdom.
func (s *PlayerSession) InKingdom() bool {
	return s.KingdomID >= 0
}

// DisconnectFunc receives the final session snapshot before removal.
type DisconnectFunc func(PlayerSession)

// SessionManager owns the peer-id → session map and the in-memory session
// tokens. Main goroutine only — the transport pump runs on the same
// goroutine, so no locking is needed.
type SessionManager struct {
	sessions     map[uint32]*PlayerSession
	tokens       map[int64]string // playerID → current token
	onDisconnect DisconnectFunc
	log          *zap.Logger
}

func NewSessionManager(log *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uint32]*PlayerSession),
		tokens:   make(map[int64]string),
		log:      log,
	}
}

// SetDisconnectCallback installs the single disconnect sink. The game loop
// owns it and marshals entity cleanup onto the main-thread queue.
func (m *SessionManager) SetDisconnectCallback(fn DisconnectFunc) {
	m.onDisconnect = fn
}

// OnConnect creates a fresh session keyed by the peer id.
func (m *SessionManager) OnConnect(peer *Peer) {
	if peer == nil {
		return
	}
	m.sessions[peer.ID] = &PlayerSession{
		Peer:      peer,
		PeerID:    peer.ID,
		PlayerID:  InvalidPlayer,
		EntityID:  ecs.InvalidEntity,
		KingdomID: -1,
	}
	m.log.Info("session created", zap.Uint32("peer", peer.ID), zap.String("addr", peer.Addr))
}

// OnDisconnect emits the disconnect callback with the final snapshot, then
// removes the session. Returns the snapshot, or nil for an unknown peer.
func (m *SessionManager) OnDisconnect(peer *Peer) *PlayerSession {
	if peer == nil {
		return nil
	}
	sess, ok := m.sessions[peer.ID]
	if !ok {
		m.log.Warn("disconnect for peer without session", zap.Uint32("peer", peer.ID))
		return nil
	}
	snapshot := *sess

	if sess.Authenticated {
		m.log.Info("player disconnected",
			zap.Int64("player", sess.PlayerID),
			zap.Uint32("peer", peer.ID),
		)
	} else {
		m.log.Info("unauthenticated client disconnected", zap.Uint32("peer", peer.ID))
	}

	if m.onDisconnect != nil {
		m.onDisconnect(snapshot)
	}
	delete(m.sessions, peer.ID)
	return &snapshot
}

// OnLogin promotes a session to authenticated and issues a fresh token,
// invalidating any prior token for that player. Idempotent for a session
// that is already authenticated (re-login rotates the token); refused for a
// session already placed in a kingdom, so its entity id stays valid. The
// entity id may be ecs.InvalidEntity for a master login without a kingdom
// entity.
func (m *SessionManager) OnLogin(peer *Peer, playerID int64, entityID ecs.EntityID) (string, error) {
	if peer == nil {
		return "", fmt.Errorf("nil peer")
	}
	if playerID == InvalidPlayer {
		return "", fmt.Errorf("invalid player id")
	}
	sess, ok := m.sessions[peer.ID]
	if !ok {
		return "", fmt.Errorf("no session for peer %d", peer.ID)
	}
	if sess.InKingdom() {
		return "", fmt.Errorf("peer %d is already in a kingdom", peer.ID)
	}

	sess.PlayerID = playerID
	sess.EntityID = entityID
	sess.Authenticated = true

	token := util.NewSessionToken()
	m.tokens[playerID] = token

	m.log.Info("session authenticated",
		zap.Uint32("peer", peer.ID),
		zap.Int64("player", playerID),
	)
	return token, nil
}

// ValidateSessionToken compares in constant time against the in-memory
// store. Tokens do not survive a process restart.
func (m *SessionManager) ValidateSessionToken(playerID int64, token string) bool {
	current, ok := m.tokens[playerID]
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1
}

// OnJoinKingdom places an authenticated session in a kingdom.
func (m *SessionManager) OnJoinKingdom(peer *Peer, kingdomID int, entityID ecs.EntityID) error {
	if peer == nil {
		return fmt.Errorf("nil peer")
	}
	sess, ok := m.sessions[peer.ID]
	if !ok {
		return fmt.Errorf("no session for peer %d", peer.ID)
	}
	if !sess.Authenticated {
		return fmt.Errorf("peer %d not authenticated", peer.ID)
	}
	if !entityID.Valid() {
		return fmt.Errorf("invalid entity for kingdom join")
	}

	sess.KingdomID = kingdomID
	sess.EntityID = entityID

	m.log.Info("session joined kingdom",
		zap.Int("kingdom", kingdomID),
		zap.Uint32("peer", peer.ID),
		zap.Int64("player", sess.PlayerID),
	)
	return nil
}

// FindPeer re-resolves a peer by id. Callbacks crossing the worker thread
// MUST go through this and abort on nil — the session may have vanished
// between enqueue and completion.
func (m *SessionManager) FindPeer(peerID uint32) *Peer {
	if sess, ok := m.sessions[peerID]; ok {
		return sess.Peer
	}
	return nil
}

func (m *SessionManager) IsConnected(peerID uint32) bool {
	_, ok := m.sessions[peerID]
	return ok
}

func (m *SessionManager) GetSession(peer *Peer) *PlayerSession {
	if peer == nil {
		return nil
	}
	return m.sessions[peer.ID]
}

// GetSessionsByKingdom returns every session placed in the given kingdom.
func (m *SessionManager) GetSessionsByKingdom(kingdomID int) []*PlayerSession {
	var out []*PlayerSession
	for _, sess := range m.sessions {
		if sess.KingdomID == kingdomID {
			out = append(out, sess)
		}
	}
	return out
}

// CountByKingdom returns the number of sessions placed in the kingdom.
func (m *SessionManager) CountByKingdom(kingdomID int) int {
	n := 0
	for _, sess := range m.sessions {
		if sess.KingdomID == kingdomID {
			n++
		}
	}
	return n
}

// Count returns the total number of live sessions.
func (m *SessionManager) Count() int {
	return len(m.sessions)
}
