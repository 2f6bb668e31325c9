package persist

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

// Starting resources for a freshly created kingdom profile.
const (
	DefaultFood  int32 = 500
	DefaultWood  int32 = 500
	DefaultStone int32 = 200
	DefaultGold  int32 = 100
)

// PlayerData is the per-account, per-kingdom profile. At most one row
// exists per (account, kingdom) pair.
type PlayerData struct {
	ID        int64
	AccountID int64
	KingdomID int
	PosX      float32
	PosY      float32
	Food      int32
	Wood      int32
	Stone     int32
	Gold      int32
}

// PlayerRepo is the asynchronous façade over the player_data table.
type PlayerRepo struct {
	worker *Worker
	log    *zap.Logger
}

func NewPlayerRepo(worker *Worker, log *zap.Logger) *PlayerRepo {
	return &PlayerRepo{worker: worker, log: log}
}

func scanPlayerData(row *sql.Row) (*PlayerData, error) {
	pd := &PlayerData{}
	err := row.Scan(&pd.ID, &pd.AccountID, &pd.KingdomID, &pd.PosX, &pd.PosY,
		&pd.Food, &pd.Wood, &pd.Stone, &pd.Gold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pd, nil
}

// GetByAccountAndKingdom loads the profile for one (account, kingdom) pair.
// The callback receives nil when the player has never entered that kingdom.
func (r *PlayerRepo) GetByAccountAndKingdom(accountID int64, kingdomID int, cb func(*PlayerData)) {
	r.worker.Enqueue(func(db *sql.DB) {
		pd, err := scanPlayerData(db.QueryRow(
			`SELECT id, account_id, kingdom_id, pos_x, pos_y, food, wood, stone, gold
			 FROM player_data WHERE account_id = ? AND kingdom_id = ?`, accountID, kingdomID))
		if err != nil {
			r.log.Error("GetByAccountAndKingdom failed",
				zap.Int64("account", accountID),
				zap.Int("kingdom", kingdomID),
				zap.Error(err),
			)
		}
		if cb != nil {
			cb(pd)
		}
	})
}

// Create inserts a fresh profile with the default spawn position and
// starting resources, inside a transaction.
func (r *PlayerRepo) Create(accountID int64, kingdomID int, cb func(*PlayerData)) {
	r.worker.Enqueue(func(db *sql.DB) {
		pd := &PlayerData{
			AccountID: accountID,
			KingdomID: kingdomID,
			Food:      DefaultFood,
			Wood:      DefaultWood,
			Stone:     DefaultStone,
			Gold:      DefaultGold,
		}

		tx, err := db.Begin()
		if err != nil {
			r.log.Error("begin transaction failed", zap.Error(err))
			if cb != nil {
				cb(nil)
			}
			return
		}
		res, err := tx.Exec(
			`INSERT INTO player_data (account_id, kingdom_id, pos_x, pos_y, food, wood, stone, gold)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			pd.AccountID, pd.KingdomID, pd.PosX, pd.PosY, pd.Food, pd.Wood, pd.Stone, pd.Gold)
		if err != nil {
			tx.Rollback()
			if isUniqueViolation(err) {
				r.log.Warn("player profile already exists",
					zap.Int64("account", accountID), zap.Int("kingdom", kingdomID))
			} else {
				r.log.Error("player profile creation failed",
					zap.Int64("account", accountID), zap.Error(err))
			}
			if cb != nil {
				cb(nil)
			}
			return
		}
		pd.ID, _ = res.LastInsertId()
		if err := tx.Commit(); err != nil {
			r.log.Error("commit failed", zap.Error(err))
			if cb != nil {
				cb(nil)
			}
			return
		}

		r.log.Info("player profile created",
			zap.Int64("account", accountID),
			zap.Int("kingdom", kingdomID),
			zap.Int64("profile", pd.ID),
		)
		if cb != nil {
			cb(pd)
		}
	})
}

// UpdateResources writes the full resource tuple for the composite key.
// Fire-and-forget.
func (r *PlayerRepo) UpdateResources(accountID int64, kingdomID int, food, wood, stone, gold int32) {
	r.worker.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`UPDATE player_data SET food = ?, wood = ?, stone = ?, gold = ?
			 WHERE account_id = ? AND kingdom_id = ?`,
			food, wood, stone, gold, accountID, kingdomID); err != nil {
			r.log.Error("UpdateResources failed",
				zap.Int64("account", accountID),
				zap.Int("kingdom", kingdomID),
				zap.Error(err),
			)
		}
	})
}

// UpdatePosition persists the last known world position. Fire-and-forget.
func (r *PlayerRepo) UpdatePosition(accountID int64, kingdomID int, x, y float32) {
	r.worker.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`UPDATE player_data SET pos_x = ?, pos_y = ? WHERE account_id = ? AND kingdom_id = ?`,
			x, y, accountID, kingdomID); err != nil {
			r.log.Error("UpdatePosition failed", zap.Int64("account", accountID), zap.Error(err))
		}
	})
}
