package persist

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingdomsgo/server/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorker(t *testing.T) (*sql.DB, *Worker) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(context.Background(), path, zap.NewNop())
	require.NoError(t, err)

	w := NewWorker(db, zap.NewNop())
	t.Cleanup(func() {
		w.Shutdown()
		db.Close()
	})
	return db, w
}

// flush blocks until every job enqueued before it has run.
func flush(t *testing.T, w *Worker) {
	t.Helper()
	done := make(chan struct{})
	w.Enqueue(func(*sql.DB) { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain")
	}
}

func TestWorkerRunsJobsInFIFOOrder(t *testing.T) {
	_, w := newTestWorker(t)

	var order []int
	for i := 0; i < 20; i++ {
		i := i
		w.Enqueue(func(*sql.DB) { order = append(order, i) })
	}
	flush(t, w)

	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestWorkerSurvivesPanickingJob(t *testing.T) {
	_, w := newTestWorker(t)

	w.Enqueue(func(*sql.DB) { panic("bad job") })
	ran := false
	w.Enqueue(func(*sql.DB) { ran = true })
	flush(t, w)

	assert.True(t, ran)
}

func TestWorkerShutdownDropsLateJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(context.Background(), path, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	w := NewWorker(db, zap.NewNop())
	w.Shutdown()
	w.Shutdown() // idempotent

	w.Enqueue(func(*sql.DB) { t.Error("job ran after shutdown") })
	time.Sleep(50 * time.Millisecond)
}

func TestCreateAccountAndLookup(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	type result struct {
		ok  bool
		acc *Account
	}
	created := make(chan result, 1)
	repo.CreateAccount("alice", "pw12", func(ok bool, acc *Account) {
		created <- result{ok, acc}
	})

	res := <-created
	require.True(t, res.ok)
	require.NotNil(t, res.acc)
	assert.Equal(t, int64(1), res.acc.ID)
	assert.Equal(t, "alice", res.acc.Username)
	assert.NotEmpty(t, res.acc.PasswordHash)
	assert.True(t, auth.VerifyPassword("pw12", res.acc.PasswordHash))

	found := make(chan *Account, 1)
	repo.GetAccountByUsername("alice", func(acc *Account) { found <- acc })
	acc := <-found
	require.NotNil(t, acc)
	assert.Equal(t, int64(1), acc.ID)
	assert.NotEmpty(t, acc.CreatedAt)

	missing := make(chan *Account, 1)
	repo.GetAccountByUsername("nobody", func(acc *Account) { missing <- acc })
	assert.Nil(t, <-missing)

	byID := make(chan *Account, 1)
	repo.GetByID(1, func(acc *Account) { byID <- acc })
	require.NotNil(t, <-byID)
}

func TestCreateAccountUniqueViolation(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	first := make(chan bool, 1)
	repo.CreateAccount("alice", "pw12", func(ok bool, _ *Account) { first <- ok })
	require.True(t, <-first)

	second := make(chan bool, 1)
	repo.CreateAccount("alice", "other", func(ok bool, acc *Account) {
		second <- ok
		assert.Nil(t, acc)
	})
	assert.False(t, <-second)
}

func TestGuestAccountFlow(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	created := make(chan *Account, 1)
	repo.CreateGuestAccount("device-1234-abcd", "Guest_device-1", func(ok bool, acc *Account) {
		require.True(t, ok)
		created <- acc
	})
	acc := <-created
	require.NotNil(t, acc)
	assert.Empty(t, acc.PasswordHash)

	found := make(chan *Account, 1)
	repo.GetAccountByDeviceID("device-1234-abcd", func(a *Account) { found <- a })
	got := <-found
	require.NotNil(t, got)
	assert.Equal(t, acc.ID, got.ID)
}

func TestBindAccount(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	created := make(chan *Account, 1)
	repo.CreateGuestAccount("dev-1", "Guest_dev1", func(_ bool, acc *Account) { created <- acc })
	acc := <-created
	require.NotNil(t, acc)

	hash, err := auth.HashPassword("secret99")
	require.NoError(t, err)

	bound := make(chan bool, 1)
	repo.BindAccount(acc.ID, "clovis", hash, func(ok bool) { bound <- ok })
	require.True(t, <-bound)

	found := make(chan *Account, 1)
	repo.GetAccountByUsername("clovis", func(a *Account) { found <- a })
	got := <-found
	require.NotNil(t, got)
	assert.Equal(t, acc.ID, got.ID)
	assert.True(t, auth.VerifyPassword("secret99", got.PasswordHash))

	// Unknown account id binds nothing.
	none := make(chan bool, 1)
	repo.BindAccount(9999, "ghost", hash, func(ok bool) { none <- ok })
	assert.False(t, <-none)
}

func TestBindSocialAccountUniqueness(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	ids := make(chan int64, 2)
	repo.CreateAccount("alice", "pw12", func(_ bool, acc *Account) { ids <- acc.ID })
	repo.CreateAccount("bob", "pw34", func(_ bool, acc *Account) { ids <- acc.ID })
	aliceID, bobID := <-ids, <-ids

	ok1 := make(chan bool, 1)
	repo.BindSocialAccount(aliceID, "google", "g-123", func(ok bool) { ok1 <- ok })
	require.True(t, <-ok1)

	// The same (provider, providerID) pair cannot bind twice.
	ok2 := make(chan bool, 1)
	repo.BindSocialAccount(bobID, "google", "g-123", func(ok bool) { ok2 <- ok })
	assert.False(t, <-ok2)

	found := make(chan *Account, 1)
	repo.GetAccountBySocialID("google", "g-123", func(a *Account) { found <- a })
	got := <-found
	require.NotNil(t, got)
	assert.Equal(t, aliceID, got.ID)

	missing := make(chan *Account, 1)
	repo.GetAccountBySocialID("apple", "g-123", func(a *Account) { missing <- a })
	assert.Nil(t, <-missing)
}

func TestUpdateLastLogin(t *testing.T) {
	_, w := newTestWorker(t)
	repo := NewAccountRepo(w, zap.NewNop())

	created := make(chan *Account, 1)
	repo.CreateAccount("alice", "pw12", func(_ bool, acc *Account) { created <- acc })
	acc := <-created
	require.NotNil(t, acc)

	repo.UpdateLastLogin(acc.ID)

	found := make(chan *Account, 1)
	repo.GetByID(acc.ID, func(a *Account) { found <- a })
	got := <-found
	require.NotNil(t, got)
	assert.NotEmpty(t, got.LastLoginAt)
}

func TestPlayerCreateDefaultsAndUniqueness(t *testing.T) {
	_, w := newTestWorker(t)
	accounts := NewAccountRepo(w, zap.NewNop())
	players := NewPlayerRepo(w, zap.NewNop())

	created := make(chan *Account, 1)
	accounts.CreateAccount("alice", "pw12", func(_ bool, acc *Account) { created <- acc })
	acc := <-created
	require.NotNil(t, acc)

	pdCh := make(chan *PlayerData, 1)
	players.Create(acc.ID, 1, func(pd *PlayerData) { pdCh <- pd })
	pd := <-pdCh
	require.NotNil(t, pd)
	assert.Equal(t, float32(0), pd.PosX)
	assert.Equal(t, float32(0), pd.PosY)
	assert.Equal(t, int32(500), pd.Food)
	assert.Equal(t, int32(500), pd.Wood)
	assert.Equal(t, int32(200), pd.Stone)
	assert.Equal(t, int32(100), pd.Gold)

	// At most one profile per (account, kingdom).
	dup := make(chan *PlayerData, 1)
	players.Create(acc.ID, 1, func(pd *PlayerData) { dup <- pd })
	assert.Nil(t, <-dup)

	// A different kingdom gets its own profile.
	other := make(chan *PlayerData, 1)
	players.Create(acc.ID, 2, func(pd *PlayerData) { other <- pd })
	assert.NotNil(t, <-other)
}

func TestPlayerUpdateResources(t *testing.T) {
	_, w := newTestWorker(t)
	accounts := NewAccountRepo(w, zap.NewNop())
	players := NewPlayerRepo(w, zap.NewNop())

	created := make(chan *Account, 1)
	accounts.CreateAccount("alice", "pw12", func(_ bool, acc *Account) { created <- acc })
	acc := <-created
	require.NotNil(t, acc)

	pdCh := make(chan *PlayerData, 1)
	players.Create(acc.ID, 1, func(pd *PlayerData) { pdCh <- pd })
	require.NotNil(t, <-pdCh)

	players.UpdateResources(acc.ID, 1, 700, 500, 200, 100)
	players.UpdatePosition(acc.ID, 1, 12.5, -3.25)

	got := make(chan *PlayerData, 1)
	players.GetByAccountAndKingdom(acc.ID, 1, func(pd *PlayerData) { got <- pd })
	pd := <-got
	require.NotNil(t, pd)
	assert.Equal(t, int32(700), pd.Food)
	assert.Equal(t, float32(12.5), pd.PosX)
	assert.Equal(t, float32(-3.25), pd.PosY)

	missing := make(chan *PlayerData, 1)
	players.GetByAccountAndKingdom(acc.ID, 42, func(pd *PlayerData) { missing <- pd })
	assert.Nil(t, <-missing)
}
