package persist

import (
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/kingdomsgo/server/internal/core/queue"
	"go.uber.org/zap"
)

// Job is one unit of database work. It runs on the worker goroutine, which
// is the only place the SQL connection is ever touched.
type Job func(db *sql.DB)

// Worker serialises all database access on a single goroutine consuming a
// FIFO job queue. Jobs enqueued in some order execute in that order.
// Completion callbacks run on the worker goroutine; handlers re-post to the
// main thread before touching game state.
type Worker struct {
	db      *sql.DB
	jobs    *queue.Queue[Job]
	running atomic.Bool
	wg      sync.WaitGroup
	log     *zap.Logger
}

func NewWorker(db *sql.DB, log *zap.Logger) *Worker {
	w := &Worker{
		db:   db,
		jobs: queue.New[Job](),
		log:  log,
	}
	w.running.Store(true)
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue schedules a job. Jobs submitted after shutdown are dropped.
func (w *Worker) Enqueue(job Job) {
	if job == nil || !w.running.Load() {
		return
	}
	w.jobs.Push(job)
}

func (w *Worker) run() {
	defer w.wg.Done()
	w.log.Info("persistence worker started")

	for {
		job := w.jobs.WaitPop()
		if job == nil {
			return // shutdown sentinel
		}
		w.safeRun(job)
	}
}

// safeRun executes a job with panic recovery: a failing job is logged and
// never propagates to the main thread.
func (w *Worker) safeRun(job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error("persistence job panic recovered", zap.Any("panic", rec))
		}
	}()
	job(w.db)
}

// Shutdown wakes the worker with a sentinel job, clears the run flag,
// joins, then closes the database so its file handle is released. The
// sentinel is pushed first so a waiter blocked in WaitPop always sees an
// item before the loop can exit.
func (w *Worker) Shutdown() {
	if !w.running.Load() {
		return
	}
	w.jobs.Push(nil) // sentinel: run loop exits on it
	w.running.Store(false)
	w.wg.Wait()
	if err := w.db.Close(); err != nil {
		w.log.Error("close database", zap.Error(err))
	}
	w.log.Info("persistence worker stopped")
}
