package persist

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/kingdomsgo/server/internal/auth"
	"go.uber.org/zap"
)

// Account is one row of the accounts table. Guest accounts have an empty
// password hash; classic accounts have an empty device id.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	DeviceID     string
	CreatedAt    string
	LastLoginAt  string
}

// AccountRepo is the asynchronous façade over the accounts and
// account_bindings tables. Every method enqueues a job on the shared
// persistence worker; callbacks run on the worker goroutine.
type AccountRepo struct {
	worker *Worker
	log    *zap.Logger
}

func NewAccountRepo(worker *Worker, log *zap.Logger) *AccountRepo {
	return &AccountRepo{worker: worker, log: log}
}

const accountColumns = `id, username, COALESCE(password_hash,''), COALESCE(device_id,''),
	COALESCE(created_at,''), COALESCE(last_login_at,'')`

func scanAccount(row *sql.Row) (*Account, error) {
	acc := &Account{}
	err := row.Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.DeviceID,
		&acc.CreatedAt, &acc.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// isUniqueViolation matches SQLite constraint failures without depending on
// driver-internal error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetAccountByUsername looks an account up by its unique username.
// The callback receives nil when no row matches.
func (r *AccountRepo) GetAccountByUsername(username string, cb func(*Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		acc, err := scanAccount(db.QueryRow(
			`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
		if err != nil {
			r.log.Error("GetAccountByUsername failed", zap.String("username", username), zap.Error(err))
		}
		if cb != nil {
			cb(acc)
		}
	})
}

// GetByID looks an account up by primary key.
func (r *AccountRepo) GetByID(accountID int64, cb func(*Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		acc, err := scanAccount(db.QueryRow(
			`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
		if err != nil {
			r.log.Error("GetByID failed", zap.Int64("account", accountID), zap.Error(err))
		}
		if cb != nil {
			cb(acc)
		}
	})
}

// GetAccountByDeviceID looks a guest account up by its device id.
func (r *AccountRepo) GetAccountByDeviceID(deviceID string, cb func(*Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		acc, err := scanAccount(db.QueryRow(
			`SELECT `+accountColumns+` FROM accounts WHERE device_id = ?`, deviceID))
		if err != nil {
			r.log.Error("GetAccountByDeviceID failed", zap.Error(err))
		}
		if cb != nil {
			cb(acc)
		}
	})
}

// GetAccountBySocialID resolves a (provider, providerID) binding to its
// account through the account_bindings table.
func (r *AccountRepo) GetAccountBySocialID(provider, providerID string, cb func(*Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		acc, err := scanAccount(db.QueryRow(
			`SELECT a.id, a.username, COALESCE(a.password_hash,''), COALESCE(a.device_id,''),
			        COALESCE(a.created_at,''), COALESCE(a.last_login_at,'')
			 FROM accounts a
			 JOIN account_bindings b ON a.id = b.account_id
			 WHERE b.auth_provider = ? AND b.auth_provider_id = ?`, provider, providerID))
		if err != nil {
			r.log.Error("GetAccountBySocialID failed", zap.String("provider", provider), zap.Error(err))
		}
		if cb != nil {
			cb(acc)
		}
	})
}

// CreateAccount hashes the raw password with the KDF (inline on the worker,
// keeping the cost off the main thread) and inserts the account in a
// transaction. A username collision yields ok=false with no partial row.
func (r *AccountRepo) CreateAccount(username, rawPassword string, cb func(ok bool, acc *Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		hash, err := auth.HashPassword(rawPassword)
		if err != nil {
			r.log.Error("password hashing failed", zap.String("username", username), zap.Error(err))
			if cb != nil {
				cb(false, nil)
			}
			return
		}
		r.insertAccount(db, username, hash, "", cb)
	})
}

// CreateGuestAccount inserts a device-bound account with an empty password
// hash.
func (r *AccountRepo) CreateGuestAccount(deviceID, username string, cb func(ok bool, acc *Account)) {
	r.worker.Enqueue(func(db *sql.DB) {
		r.insertAccount(db, username, "", deviceID, cb)
	})
}

func (r *AccountRepo) insertAccount(db *sql.DB, username, hash, deviceID string, cb func(bool, *Account)) {
	tx, err := db.Begin()
	if err != nil {
		r.log.Error("begin transaction failed", zap.Error(err))
		if cb != nil {
			cb(false, nil)
		}
		return
	}

	var res sql.Result
	if deviceID != "" {
		res, err = tx.Exec(`INSERT INTO accounts (username, device_id) VALUES (?, ?)`, username, deviceID)
	} else {
		res, err = tx.Exec(`INSERT INTO accounts (username, password_hash) VALUES (?, ?)`, username, hash)
	}
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			r.log.Warn("account creation collided", zap.String("username", username), zap.Error(err))
		} else {
			r.log.Error("account creation failed", zap.String("username", username), zap.Error(err))
		}
		if cb != nil {
			cb(false, nil)
		}
		return
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		r.log.Error("last insert id failed", zap.Error(err))
		if cb != nil {
			cb(false, nil)
		}
		return
	}
	if err := tx.Commit(); err != nil {
		r.log.Error("commit failed", zap.Error(err))
		if cb != nil {
			cb(false, nil)
		}
		return
	}

	if cb != nil {
		cb(true, &Account{ID: id, Username: username, PasswordHash: hash, DeviceID: deviceID})
	}
}

// BindAccount attaches classic credentials to an existing (guest) account.
// Callers pre-hash the password; passwordHash must already be a KDF string.
func (r *AccountRepo) BindAccount(accountID int64, username, passwordHash string, cb func(ok bool)) {
	r.worker.Enqueue(func(db *sql.DB) {
		res, err := db.Exec(
			`UPDATE accounts SET username = ?, password_hash = ? WHERE id = ?`,
			username, passwordHash, accountID)
		if err != nil {
			if isUniqueViolation(err) {
				r.log.Warn("account bind collided", zap.String("username", username), zap.Error(err))
			} else {
				r.log.Error("account bind failed", zap.Int64("account", accountID), zap.Error(err))
			}
			if cb != nil {
				cb(false)
			}
			return
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			r.log.Warn("account bind matched no row", zap.Int64("account", accountID))
		}
		if cb != nil {
			cb(n > 0)
		}
	})
}

// BindSocialAccount links an account to an external provider. A duplicate
// (provider, providerID) pair fails without a partial row.
func (r *AccountRepo) BindSocialAccount(accountID int64, provider, providerID string, cb func(ok bool)) {
	r.worker.Enqueue(func(db *sql.DB) {
		_, err := db.Exec(
			`INSERT INTO account_bindings (account_id, auth_provider, auth_provider_id) VALUES (?, ?, ?)`,
			accountID, provider, providerID)
		if err != nil {
			if isUniqueViolation(err) {
				r.log.Warn("social binding already exists",
					zap.String("provider", provider), zap.Error(err))
			} else {
				r.log.Error("social bind failed", zap.Int64("account", accountID), zap.Error(err))
			}
			if cb != nil {
				cb(false)
			}
			return
		}
		if cb != nil {
			cb(true)
		}
	})
}

// UpdateLastLogin stamps the last-login time. Fire-and-forget.
func (r *AccountRepo) UpdateLastLogin(accountID int64) {
	r.worker.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`UPDATE accounts SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`, accountID); err != nil {
			r.log.Error("UpdateLastLogin failed", zap.Int64("account", accountID), zap.Error(err))
		}
	})
}
