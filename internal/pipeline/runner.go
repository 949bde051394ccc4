package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// ErrBusy is returned when a new run is requested while the user already
// has one in flight.
var ErrBusy = errors.New("pipeline: a generation run is already in flight")

// SnapshotSink receives run snapshots for cross-process status polling.
// Sink failures are ignored; the in-memory snapshot is authoritative.
type SnapshotSink interface {
	SaveRunSnapshot(ctx context.Context, userID string, run Run) error
}

type runState struct {
	busy    bool
	current Run
}

// Runner serializes interactive runs per user: one in flight for each user
// id, guarded by an explicit busy flag rather than by the UI. Run state is
// keyed by user, so one user's run is never visible to another.
type Runner struct {
	engine *Engine
	sink   SnapshotSink
	log    *slog.Logger

	mu   sync.Mutex
	runs map[string]*runState
}

func NewRunner(engine *Engine, sink SnapshotSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, sink: sink, log: logger, runs: make(map[string]*runState)}
}

// Start begins a run in the background. Invalid input is rejected without
// touching the busy flag or the previous run's snapshot.
func (r *Runner) Start(ctx context.Context, userID, topic string) error {
	if err := validate(userID, topic); err != nil {
		return err
	}

	r.mu.Lock()
	st := r.runs[userID]
	if st == nil {
		st = &runState{current: Run{State: StateIdle}}
		r.runs[userID] = st
	}
	if st.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	st.busy = true
	st.current = Run{UserID: userID, Topic: topic, State: StateIdle}
	r.mu.Unlock()

	// The run outlives the HTTP request that started it.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		observe := func(run Run) {
			r.mu.Lock()
			st.current = run
			r.mu.Unlock()
			if r.sink != nil {
				if err := r.sink.SaveRunSnapshot(runCtx, userID, run); err != nil {
					r.log.Warn("run snapshot sink failed", "user_id", userID, "err", err)
				}
			}
		}

		if _, err := r.engine.Execute(runCtx, userID, topic, observe); err != nil {
			r.log.Warn("run rejected after start", "err", err)
		}

		r.mu.Lock()
		st.busy = false
		r.mu.Unlock()
	}()

	return nil
}

// Busy reports whether the user has a run in flight.
func (r *Runner) Busy(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.runs[userID]
	return st != nil && st.busy
}

// Snapshot returns the latest observed state of the user's current (or
// last) run; an idle run when the user never started one.
func (r *Runner) Snapshot(userID string) Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.runs[userID]
	if st == nil {
		return Run{State: StateIdle}
	}
	return st.current
}
