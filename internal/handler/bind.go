package handler

import (
	"github.com/kingdomsgo/server/internal/auth"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/persist"
	"go.uber.org/zap"
)

func sendBindAccountResult(deps *Deps, peer *gonet.Peer, success bool, message string) {
	res := packet.BindAccountResult{Success: success, Message: message}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CBindAccountResult, &res), true)
}

func sendBindSocialResult(deps *Deps, peer *gonet.Peer, success bool, message string) {
	res := packet.BindSocialAccountResult{Success: success, Message: message}
	deps.Net.SendPacket(peer, packet.Build(packet.S2CBindSocialAccountResult, &res), true)
}

// HandleBindAccount attaches classic credentials to the current (guest)
// account. The password is hashed on the worker goroutine inside the
// availability check, and the repository only ever sees the finished hash.
func HandleBindAccount(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	sess := deps.Sessions.GetSession(peer)
	if sess == nil {
		sendBindAccountResult(deps, peer, false, "Vous n'etes pas connecte.")
		return nil
	}

	var req packet.BindAccount
	if err := req.Decode(r); err != nil {
		return err
	}
	username, password := req.Username, req.Password

	if !deps.Limiter.Allow(peer.IP()) {
		sendBindAccountResult(deps, peer, false, "Trop de requetes. Veuillez patienter.")
		return nil
	}
	if !usernameRegex.MatchString(username) {
		sendBindAccountResult(deps, peer, false, "Pseudo invalide (3-16 caracteres, alphanumerique).")
		return nil
	}
	if len(password) < minPasswordLength {
		sendBindAccountResult(deps, peer, false, "Mot de passe trop court (4 caracteres minimum).")
		return nil
	}

	deps.Log.Info("account bind request",
		zap.String("username", username),
		zap.Int64("account", sess.PlayerID),
	)
	peerID := peer.ID
	accountID := sess.PlayerID

	// First check the username is free, then bind.
	deps.Accounts.GetAccountByUsername(username, func(acc *persist.Account) {
		if acc != nil {
			deps.RunOnMain(func() {
				if p := deps.Sessions.FindPeer(peerID); p != nil {
					sendBindAccountResult(deps, p, false, "Ce pseudo est deja utilise.")
				}
			})
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			deps.Log.Error("bind hashing failed", zap.Error(err))
			deps.RunOnMain(func() {
				if p := deps.Sessions.FindPeer(peerID); p != nil {
					sendBindAccountResult(deps, p, false, "Erreur serveur lors de la liaison de compte.")
				}
			})
			return
		}

		deps.Accounts.BindAccount(accountID, username, hash, func(ok bool) {
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				if ok {
					sendBindAccountResult(deps, p, true, "Compte '"+username+"' lie avec succes !")
					deps.Log.Info("account bound",
						zap.Int64("account", accountID),
						zap.String("username", username),
					)
				} else {
					sendBindAccountResult(deps, p, false, "Erreur serveur lors de la liaison de compte.")
				}
			})
		})
	})
	return nil
}

// HandleBindSocialAccount links the current account to an external
// provider; one account per (provider, providerID) pair.
func HandleBindSocialAccount(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	sess := deps.Sessions.GetSession(peer)
	if sess == nil {
		sendBindSocialResult(deps, peer, false, "Vous n'etes pas connecte.")
		return nil
	}

	var req packet.BindSocialAccount
	if err := req.Decode(r); err != nil {
		return err
	}
	provider, providerID := req.AuthProvider, req.ProviderID

	if !deps.Limiter.Allow(peer.IP()) {
		sendBindSocialResult(deps, peer, false, "Trop de requetes. Veuillez patienter.")
		return nil
	}
	if provider == "" || providerID == "" {
		sendBindSocialResult(deps, peer, false, "Informations de fournisseur invalides.")
		return nil
	}

	deps.Log.Info("social bind request",
		zap.String("provider", provider),
		zap.Int64("account", sess.PlayerID),
	)
	peerID := peer.ID
	accountID := sess.PlayerID

	// Refuse when the social identity is already linked to another account.
	deps.Accounts.GetAccountBySocialID(provider, providerID, func(acc *persist.Account) {
		if acc != nil {
			deps.RunOnMain(func() {
				if p := deps.Sessions.FindPeer(peerID); p != nil {
					sendBindSocialResult(deps, p, false, "Ce compte "+provider+" est deja lie a un autre joueur.")
				}
			})
			return
		}

		deps.Accounts.BindSocialAccount(accountID, provider, providerID, func(ok bool) {
			deps.RunOnMain(func() {
				p := deps.Sessions.FindPeer(peerID)
				if p == nil {
					return
				}
				if ok {
					sendBindSocialResult(deps, p, true, "Liaison "+provider+" reussie !")
				} else {
					sendBindSocialResult(deps, p, false, "Erreur serveur lors de la liaison "+provider+".")
				}
			})
		})
	})
	return nil
}

// HandleSocialLogin authenticates directly through a linked provider
// identity.
func HandleSocialLogin(peer *gonet.Peer, r *packet.Reader, deps *Deps) error {
	var req packet.SocialLogin
	if err := req.Decode(r); err != nil {
		return err
	}
	provider, providerID := req.AuthProvider, req.ProviderID

	if !deps.Limiter.Allow(peer.IP()) {
		sendLoginError(deps, peer, "Trop de tentatives. Veuillez patienter.")
		return nil
	}
	if provider == "" || providerID == "" {
		sendLoginError(deps, peer, "Informations de fournisseur invalides.")
		return nil
	}

	deps.Log.Info("social login request", zap.String("provider", provider))
	peerID := peer.ID

	deps.Accounts.GetAccountBySocialID(provider, providerID, func(acc *persist.Account) {
		if acc == nil {
			deps.RunOnMain(func() {
				if p := deps.Sessions.FindPeer(peerID); p != nil {
					sendLoginError(deps, p, "Aucun compte n'est lie a ce login social.")
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
			completeLogin(deps, p, accountID, accName, "Connexion social reussie !", false)
		})
	})
	return nil
}
