package handler

import (
	"regexp"

	"github.com/kingdomsgo/server/internal/auth"
	"github.com/kingdomsgo/server/internal/core/ecs"
	"github.com/kingdomsgo/server/internal/core/event"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/persist"
	"go.uber.org/zap"
)

const minPasswordLength = 4

// Alphanumeric plus underscores, 3 to 16 characters.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

func sendLoginError(deps *Deps, peer *gonet.Peer, message string) {
	res := packet.LoginResult{Success: false, AccountID: -1, Message: message}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CLoginResult, &res), true)
}

func sendLoginSuccess(deps *Deps, peer *gonet.Peer, accountID int64, message, token string) {
	res := packet.LoginResult{
		Success:      true,
		AccountID:    accountID,
		Message:      message,
		SessionToken: token,
	}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CLoginResult, &res), true)
}

// completeLogin promotes the session and replies. Main goroutine only;
// callers arriving from the worker re-post through RunOnMain first.
func completeLogin(deps *Deps, peer *gonet.Peer, accountID int64, username, message string, guest bool) {
	token, err := deps.Sessions.OnLogin(peer, accountID, ecs.InvalidEntity)
	if err != nil {
		deps.Log.Error("login promotion failed", zap.Int64("account", accountID), zap.Error(err))
		sendLoginError(deps, peer, "Erreur serveur lors de la connexion.")
		return
	}
	event.Emit(deps.Bus, event.PlayerLoggedIn{
		PeerID:    peer.ID,
		AccountID: accountID,
		Username:  username,
		Guest:     guest,
	})
	sendLoginSuccess(deps, peer, accountID, message, token)
}

// HandleLogin processes C2S_Login: classic username/password, with
// auto-creation for unknown usernames.
func HandleLogin(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.Login
	if err := req.Decode(r); err != nil {
		return err
	}
	username, password := req.Username, req.Password

	if !deps.Limiter.Allow(peer.IP()) {
		deps.Log.Warn("login rate limited", zap.Uint32("peer", peer.ID))
		sendLoginError(deps, peer, "Trop de tentatives. Reessayez dans 1 minute.")
		return nil
	}
	if !usernameRegex.MatchString(username) {
		sendLoginError(deps, peer, "Pseudo invalide (3-16 caracteres, lettres/chiffres/underscores uniquement).")
		return nil
	}
	if len(password) < minPasswordLength {
		sendLoginError(deps, peer, "Mot de passe trop court (4 caracteres minimum).")
		return nil
	}

	deps.Log.Info("login request", zap.String("username", username), zap.Uint32("peer", peer.ID))
	peerID := peer.ID

	deps.Accounts.GetAccountByUsername(username, func(acc *persist.Account) {
		// Worker goroutine from here until RunOnMain.
		if acc != nil {
			if !auth.VerifyPassword(password, acc.PasswordHash) {
				deps.Log.Warn("wrong password", zap.String("username", username))
				deps.RunOnMain(func() {
					if p := deps.Sessions.FindPeer(peerID); p != nil {
						sendLoginError(deps, p, "Mot de passe incorrect.")
					}
				})
				return
			}

			deps.Accounts.UpdateLastLogin(acc.ID)
			accountID, accName := acc.ID, acc.Username
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				completeLogin(deps, p, accountID, accName, "Bienvenue de retour !", false)
			})
			return
		}

		deps.Log.Info("account not found, creating", zap.String("username", username))
		deps.Accounts.CreateAccount(username, password, func(ok bool, newAcc *persist.Account) {
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				if !ok || newAcc == nil {
					sendLoginError(deps, p, "Echec de la creation du compte.")
					return
				}
				completeLogin(deps, p, newAcc.ID, newAcc.Username, "Compte cree avec succes !", false)
			})
		})
	})
	return nil
}

// HandleGuestLogin processes C2S_GuestLogin: device-id login without a
// password, auto-creating a Guest_<device prefix> account.
func HandleGuestLogin(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.GuestLogin
	if err := req.Decode(r); err != nil {
		return err
	}
	deviceID := req.DeviceID

	if !deps.Limiter.Allow(peer.IP()) {
		sendLoginError(deps, peer, "Trop de tentatives.")
		return nil
	}
	if deviceID == "" {
		sendLoginError(deps, peer, "Identifiant d'appareil manquant.")
		return nil
	}

	deps.Log.Info("guest login request", zap.Uint32("peer", peer.ID))
	peerID := peer.ID

	deps.Accounts.GetAccountByDeviceID(deviceID, func(acc *persist.Account) {
		if acc != nil {
			deps.Accounts.UpdateLastLogin(acc.ID)
			accountID, accName := acc.ID, acc.Username
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				completeLogin(deps, p, accountID, accName, "Connexion invite reussie !", true)
			})
			return
		}

		guestName := "Guest_" + devicePrefix(deviceID)
		deps.Log.Info("creating guest account", zap.String("username", guestName))
		deps.Accounts.CreateGuestAccount(deviceID, guestName, func(ok bool, newAcc *persist.Account) {
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				if !ok || newAcc == nil {
					sendLoginError(deps, p, "Impossible de creer le compte invite.")
					return
				}
				completeLogin(deps, p, newAcc.ID, newAcc.Username, "Bienvenue au nouveau joueur !", true)
			})
		})
	})
	return nil
}

// HandleReconnect processes C2S_Reconnect: fast re-authentication with an
// in-memory session token, rotating the token on success.
func HandleReconnect(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.Reconnect
	if err := req.Decode(r); err != nil {
		return err
	}

	if !deps.Limiter.Allow(peer.IP()) {
		sendLoginError(deps, peer, "Trop de tentatives.")
		return nil
	}

	// Pure in-memory validation, no database round trip.
	if !deps.Sessions.ValidateSessionToken(req.AccountID, req.SessionToken) {
		deps.Log.Warn("invalid session token", zap.Int64("account", req.AccountID))
		sendLoginError(deps, peer, "Session invalide. Veuillez vous reconnecter.")
		return nil
	}

	deps.Log.Info("reconnect accepted", zap.Int64("account", req.AccountID))
	deps.Accounts.UpdateLastLogin(req.AccountID)

	// A fresh token is issued on every reconnect; the old one stops
	// validating immediately.
	completeLogin(deps, peer, req.AccountID, "", "Reconnexion reussie !", false)
	return nil
}

func devicePrefix(deviceID string) string {
	if len(deviceID) > 8 {
		return deviceID[:8]
	}
	return deviceID
}
