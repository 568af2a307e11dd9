// Package dispatch polls for due scheduled jobs and executes them.
//
// Each cycle claims a batch of due jobs under short leases, runs their
// action handlers concurrently, and finalizes every claimed job exactly
// once: one-shot jobs complete (retrying in-cycle first), recurring
// jobs advance to their next occurrence whether the run succeeded or
// not. A job claimed by one dispatcher is invisible to every other
// until its lease expires, so extra dispatcher processes only add
// throughput.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/recurrence"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/db"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/internal/util"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/sym"
)

// Dispatcher owns the poll loop over due scheduled jobs.
type Dispatcher struct {
	store    *schedule.Store
	runs     *schedule.RunStore
	handlers *HandlerRegistry
	sink     chime.EventSink
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	reload chan struct{}

	logger   *zap.SugaredLogger
	chimeLog *zap.SugaredLogger

	timeNow     func() time.Time
	backoffBase time.Duration

	mu              sync.Mutex
	cfg             config.ChimeConfig
	lastTickAt      time.Time
	ticksSinceStart int64
	lastActiveJobs  int
}

// NewDispatcher creates a dispatcher with a background context. sink
// may be nil for headless daemons; metrics must be initialized.
func NewDispatcher(store *schedule.Store, runs *schedule.RunStore, handlers *HandlerRegistry, sink chime.EventSink, metrics *Metrics, cfg config.ChimeConfig, log *zap.SugaredLogger) *Dispatcher {
	return NewDispatcherWithContext(context.Background(), store, runs, handlers, sink, metrics, cfg, log)
}

// NewDispatcherWithContext creates a dispatcher under a parent context.
func NewDispatcherWithContext(ctx context.Context, store *schedule.Store, runs *schedule.RunStore, handlers *HandlerRegistry, sink chime.EventSink, metrics *Metrics, cfg config.ChimeConfig, log *zap.SugaredLogger) *Dispatcher {
	dctx, cancel := context.WithCancel(ctx)

	return &Dispatcher{
		store:       store,
		runs:        runs,
		handlers:    handlers,
		sink:        sink,
		metrics:     metrics,
		cfg:         cfg,
		ctx:         dctx,
		cancel:      cancel,
		reload:      make(chan struct{}, 1),
		logger:      log,
		chimeLog:    logger.AddChimeSymbol(log),
		timeNow:     time.Now,
		backoffBase: time.Second,
	}
}

// WithClock replaces the dispatcher's time source. Tests drive due
// checks and lease arithmetic through this.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.timeNow = now
	return d
}

// tunables returns a snapshot of the current dispatcher configuration.
func (d *Dispatcher) tunables() config.ChimeConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// ApplyConfig swaps dispatcher tunables at runtime, typically from a
// config-file watcher. A changed poll interval resets the ticker;
// claim, concurrency, and timeout settings take effect from the next
// tick or dispatch that reads them.
func (d *Dispatcher) ApplyConfig(cfg config.ChimeConfig) {
	d.mu.Lock()
	intervalChanged := d.cfg.PollIntervalSeconds != cfg.PollIntervalSeconds
	d.cfg = cfg
	d.mu.Unlock()

	if intervalChanged {
		select {
		case d.reload <- struct{}{}:
		default:
		}
	}

	d.chimeLog.Infow("Chime dispatcher config applied",
		"poll_interval", cfg.PollInterval(),
		"claim_batch", cfg.ClaimBatchSize,
		"max_concurrent", cfg.MaxConcurrentDispatches)
}

// Start begins the poll loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	cfg := d.tunables()
	d.chimeLog.Infow("Chime dispatcher started",
		"poll_interval", cfg.PollInterval(),
		"claim_batch", cfg.ClaimBatchSize,
		"max_concurrent", cfg.MaxConcurrentDispatches)
}

// Stop cancels the loop and waits for in-flight dispatches to finish.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.chimeLog.Infow("Chime dispatcher stopped")
}

// run is the poll loop.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.tunables().PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.reload:
			ticker.Reset(d.tunables().PollInterval())
		case <-ticker.C:
			now := d.timeNow()

			d.mu.Lock()
			d.lastTickAt = now
			d.ticksSinceStart++
			d.mu.Unlock()

			d.logNextDue(now)

			if err := d.tick(now); err != nil {
				// The store can close before ctx cancellation reaches
				// this loop during shutdown. Not worth a warning.
				if db.IsDatabaseClosed(err) {
					d.chimeLog.Debugw("Chime tick raced shutdown", "error", err)
					return
				}
				d.chimeLog.Warnw("Chime tick error", "error", err, "tick", d.ticksSinceStart)
			}
		}
	}
}

// tick claims one batch of due jobs and dispatches it.
func (d *Dispatcher) tick(now time.Time) error {
	if warn := memoryPressure(); warn != "" {
		d.chimeLog.Warnw("Deferring dispatch batch", "reason", warn)
		return nil
	}

	cfg := d.tunables()
	claimed, err := d.store.ClaimDue(d.ctx, now, now.Add(cfg.ClaimLease()), cfg.ClaimBatchSize)
	if err != nil {
		return errors.Wrap(err, "failed to claim due jobs")
	}
	if len(claimed) == 0 {
		return nil
	}

	d.metrics.RecordBatch(len(claimed))
	d.chimeLog.Infow("Chime claimed batch", "jobs", len(claimed))

	g := &errgroup.Group{}
	g.SetLimit(cfg.MaxConcurrentDispatches)
	for _, job := range claimed {
		job := job
		g.Go(func() error {
			d.dispatch(job, now)
			return nil
		})
	}
	g.Wait()
	return nil
}

// dispatch runs one claimed job end to end: run record, handler with
// the retry policy for its kind, finalize, audit update. Failures are
// absorbed per job; the batch never aborts.
func (d *Dispatcher) dispatch(job *schedule.Job, claimedAt time.Time) {
	if job.ClaimedUntil == nil || job.NextRunAt == nil {
		d.chimeLog.Errorw("Claimed job missing lease or due time", "job_id", job.ID)
		return
	}
	lease := *job.ClaimedUntil

	dueLag := claimedAt.Sub(*job.NextRunAt)
	d.metrics.RecordDueLag(dueLag)

	if dueLag > d.tunables().CatchupWindow() {
		d.handleMissed(job, lease, claimedAt, dueLag)
		return
	}

	startedAt := d.timeNow()
	run := &schedule.Run{
		ID:           id.NewRunID(),
		JobID:        job.ID,
		OwnerID:      job.OwnerID,
		Status:       schedule.RunStatusRunning,
		ScheduledFor: ts(*job.NextRunAt),
		StartedAt:    ts(startedAt),
		CreatedAt:    ts(startedAt),
	}
	if err := d.runs.CreateRun(d.ctx, run); err != nil {
		d.chimeLog.Errorw("Failed to create run record", "job_id", job.ID, "error", err)
	}

	chime.Publish(d.sink, chime.JobEvent{
		Type:    chime.EventJobDispatched,
		OwnerID: job.OwnerID,
		JobID:   job.ID,
		RunID:   run.ID,
		Title:   job.Title,
		At:      startedAt.UTC(),
	})

	d.chimeLog.Infow("Chime dispatching",
		"job_id", job.ID,
		"job_short", short(job.ID),
		"kind", job.Kind,
		"action", job.ActionType,
		"due_lag", dueLag.Round(time.Second))

	attempts, execErr := d.execute(job, run.ID)

	finishedAt := d.timeNow()
	duration := finishedAt.Sub(startedAt)

	if job.IsRecurring() {
		d.finalizeRecurring(job, lease, run, startedAt, execErr)
	} else {
		d.finalizeOneShot(job, lease, run, startedAt, attempts, execErr)
	}

	run.Attempts = attempts
	run.FinishedAt = util.Ptr(ts(finishedAt))
	run.DurationMs = util.Ptr(int(duration.Milliseconds()))
	if execErr != nil {
		run.Status = schedule.RunStatusFailed
		run.ErrorMessage = util.Ptr(execErr.Error())
	} else {
		run.Status = schedule.RunStatusSucceeded
	}
	if err := d.runs.UpdateRun(d.ctx, run); err != nil {
		d.chimeLog.Errorw("Failed to update run record", "run_id", run.ID, "error", err)
	}

	d.metrics.RecordDispatch(run.Status, duration)

	if execErr != nil {
		d.chimeLog.Errorw("Chime FAILED",
			"job_id", job.ID,
			"job_short", short(job.ID),
			"run_id", run.ID,
			"attempts", attempts,
			"duration_ms", duration.Milliseconds(),
			"error", execErr)
	} else {
		d.chimeLog.Infow("Chime OK",
			"job_id", job.ID,
			"job_short", short(job.ID),
			"run_id", run.ID,
			"attempts", attempts,
			"duration_ms", duration.Milliseconds())
	}
}

// execute runs the job's handler under the per-kind retry policy and
// reports how many attempts were made. Recurring jobs get exactly one
// attempt; the schedule itself is their retry. One-shot jobs retry
// in-cycle with exponential backoff because this cycle is all they
// have.
func (d *Dispatcher) execute(job *schedule.Job, runID string) (int, error) {
	handler, ok := d.handlers.Get(job.ActionType)
	if !ok {
		return 1, errors.Newf("no handler registered for action %q", job.ActionType)
	}

	if job.IsRecurring() {
		return 1, d.executeOnce(handler, job, runID)
	}

	maxAttempts := d.tunables().OneShotMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.executeOnce(handler, job, runID)
		if lastErr == nil {
			return attempt, nil
		}

		if attempt == maxAttempts {
			break
		}

		backoff := d.backoffBase << (attempt - 1)
		if backoff > 60*time.Second {
			backoff = 60 * time.Second
		}
		d.chimeLog.Warnw("Chime attempt failed, backing off",
			"job_id", job.ID,
			"attempt", attempt,
			"backoff", backoff,
			"error", lastErr)

		select {
		case <-d.ctx.Done():
			return attempt, lastErr
		case <-time.After(backoff):
		}
	}
	return maxAttempts, lastErr
}

// executeOnce invokes the handler under the dispatch timeout, with the
// job's identity stamped on the context for handler and transport logs.
func (d *Dispatcher) executeOnce(handler ActionHandler, job *schedule.Job, runID string) error {
	ctx, cancel := context.WithTimeout(d.ctx, d.tunables().DispatchTimeout())
	defer cancel()

	ctx = logger.WithJobRun(ctx, job.ID, runID)
	ctx = logger.WithOwnerID(ctx, job.OwnerID)
	return handler.Execute(ctx, job)
}

// finalizeRecurring advances a recurring job to its next occurrence,
// anchored at the current time rather than the stale next_run_at so a
// late dispatch never causes a burst of make-up runs. The schedule
// advances on failure too. A schedule that stops producing occurrences
// cancels the job with the reason recorded instead of leaving it
// claimed and stuck.
func (d *Dispatcher) finalizeRecurring(job *schedule.Job, lease time.Time, run *schedule.Run, ranAt time.Time, execErr error) {
	now := d.timeNow()

	next, err := d.nextOccurrence(job, now)
	if err != nil {
		reason := err.Error()
		wrote, cerr := d.store.CancelWithReason(d.ctx, job.ID, lease, reason)
		if cerr != nil {
			d.chimeLog.Errorw("Failed to cancel job with dead schedule", "job_id", job.ID, "error", cerr)
			return
		}
		if wrote {
			d.chimeLog.Errorw("Chime cancelled job, schedule has no future occurrence",
				"job_id", job.ID,
				"cron", job.CronExpression,
				"timezone", job.Timezone)
			chime.Publish(d.sink, chime.JobEvent{
				Type:    chime.EventJobCancelled,
				OwnerID: job.OwnerID,
				JobID:   job.ID,
				RunID:   run.ID,
				Title:   job.Title,
				Detail:  reason,
			})
		}
		return
	}

	runErr := ""
	if execErr != nil {
		runErr = execErr.Error()
	}

	wrote, err := d.store.FinishRecurringRun(d.ctx, job.ID, lease, ranAt, next, runErr)
	if err != nil {
		d.chimeLog.Errorw("Failed to finalize recurring run", "job_id", job.ID, "error", err)
		return
	}
	if !wrote {
		// The lease changed under us: the owner rewrote the schedule
		// or cancelled mid-flight. Their write wins.
		d.chimeLog.Infow("Recurring finalize voided by concurrent change", "job_id", job.ID)
		return
	}

	eventType := chime.EventJobRescheduled
	if execErr != nil {
		eventType = chime.EventJobFailed
	}
	chime.Publish(d.sink, chime.JobEvent{
		Type:      eventType,
		OwnerID:   job.OwnerID,
		JobID:     job.ID,
		RunID:     run.ID,
		Title:     job.Title,
		NextRunAt: util.Ptr(next),
	})
}

// finalizeOneShot completes a one-shot job. A one-shot that exhausted
// its attempts is still completed, with the failure on record; it
// never stays due.
func (d *Dispatcher) finalizeOneShot(job *schedule.Job, lease time.Time, run *schedule.Run, ranAt time.Time, attempts int, execErr error) {
	failures := attempts
	runErr := ""
	if execErr != nil {
		runErr = execErr.Error()
	} else {
		failures = attempts - 1
	}

	wrote, err := d.store.CompleteOneShot(d.ctx, job.ID, lease, ranAt, failures, runErr)
	if err != nil {
		d.chimeLog.Errorw("Failed to complete one-shot job", "job_id", job.ID, "error", err)
		return
	}
	if !wrote {
		d.chimeLog.Infow("One-shot finalize voided by concurrent change", "job_id", job.ID)
		return
	}

	eventType := chime.EventJobCompleted
	if execErr != nil {
		eventType = chime.EventJobFailed
	}
	chime.Publish(d.sink, chime.JobEvent{
		Type:    eventType,
		OwnerID: job.OwnerID,
		JobID:   job.ID,
		RunID:   run.ID,
		Title:   job.Title,
		Detail:  runErr,
	})
}

// handleMissed finalizes a job whose occurrence is older than the
// catch-up window. Nothing executes: one-shots complete with a missed
// run on record, recurring jobs advance silently past the stale
// occurrence.
func (d *Dispatcher) handleMissed(job *schedule.Job, lease, now time.Time, dueLag time.Duration) {
	detail := fmt.Sprintf("missed: due %s ago, beyond the catch-up window", dueLag.Round(time.Minute))

	run := &schedule.Run{
		ID:           id.NewRunID(),
		JobID:        job.ID,
		OwnerID:      job.OwnerID,
		Status:       schedule.RunStatusMissed,
		ScheduledFor: ts(*job.NextRunAt),
		StartedAt:    ts(now),
		FinishedAt:   util.Ptr(ts(now)),
		DurationMs:   util.Ptr(0),
		ErrorMessage: util.Ptr(detail),
		CreatedAt:    ts(now),
	}
	if err := d.runs.CreateRun(d.ctx, run); err != nil {
		d.chimeLog.Errorw("Failed to create missed-run record", "job_id", job.ID, "error", err)
	}

	if job.IsRecurring() {
		next, err := d.nextOccurrence(job, now)
		if err != nil {
			if wrote, cerr := d.store.CancelWithReason(d.ctx, job.ID, lease, err.Error()); cerr != nil {
				d.chimeLog.Errorw("Failed to cancel job with dead schedule", "job_id", job.ID, "error", cerr)
			} else if wrote {
				d.chimeLog.Errorw("Chime cancelled job, schedule has no future occurrence", "job_id", job.ID)
			}
		} else if wrote, aerr := d.store.AdvanceSkipped(d.ctx, job.ID, lease, next); aerr != nil {
			d.chimeLog.Errorw("Failed to advance past missed occurrence", "job_id", job.ID, "error", aerr)
		} else if wrote {
			d.chimeLog.Warnw("Chime skipped stale occurrence",
				"job_id", job.ID,
				"job_short", short(job.ID),
				"was_due", ts(*job.NextRunAt),
				"next_run_at", ts(next))
		}
	} else {
		if wrote, err := d.store.CompleteOneShot(d.ctx, job.ID, lease, now, 0, detail); err != nil {
			d.chimeLog.Errorw("Failed to complete missed one-shot", "job_id", job.ID, "error", err)
		} else if wrote {
			d.chimeLog.Warnw("Chime missed one-shot",
				"job_id", job.ID,
				"job_short", short(job.ID),
				"was_due", ts(*job.NextRunAt))
		}
	}

	chime.Publish(d.sink, chime.JobEvent{
		Type:    chime.EventJobMissed,
		OwnerID: job.OwnerID,
		JobID:   job.ID,
		RunID:   run.ID,
		Title:   job.Title,
		Detail:  detail,
	})
	d.metrics.RecordDispatch(schedule.RunStatusMissed, 0)
}

// nextOccurrence evaluates the job's cron schedule from the given
// anchor.
func (d *Dispatcher) nextOccurrence(job *schedule.Job, after time.Time) (time.Time, error) {
	return recurrence.NextRun(job.CronExpression, job.Timezone, after)
}

// logNextDue prints the idle-tick line: what fires next and how busy
// the engine is. Logged only when the active-job count changes so a
// quiet daemon stays quiet.
func (d *Dispatcher) logNextDue(now time.Time) {
	next, err := d.store.NextScheduled(d.ctx)
	if err != nil {
		d.chimeLog.Warnw("Failed to read next scheduled job", "error", err)
		return
	}

	counts, err := d.store.CountByStatus(d.ctx)
	if err != nil {
		d.chimeLog.Warnw("Failed to count jobs", "error", err)
		counts = map[string]int{}
	}
	active := counts[schedule.StatusActive]
	d.metrics.SetJobsActive(active)

	d.mu.Lock()
	changed := active != d.lastActiveJobs
	d.lastActiveJobs = active
	d.mu.Unlock()

	if !changed {
		return
	}

	indicator := ""
	if active > 0 {
		numSymbols := (active / 5) + 1
		if numSymbols > 60 {
			numSymbols = 60
		}
		indicator = strings.TrimSpace(strings.Repeat(sym.Chime+" ", numSymbols)) + " "
	}

	if next == nil || next.NextRunAt == nil {
		d.chimeLog.Infow(fmt.Sprintf("%sChime - nothing scheduled, %d jobs active", indicator, active))
		return
	}

	until := next.NextRunAt.Sub(now)
	if until < 0 {
		until = 0
	}

	msg := fmt.Sprintf("%sChime - next %s in %s", indicator, jobLabel(next), until.Round(time.Second))
	if active > 0 {
		msg += fmt.Sprintf(", %d jobs active", active)
	}
	if summary := memorySummary(); summary != "" {
		msg += " │ " + summary
	}
	d.chimeLog.Infow(msg)
}

// GetStats returns loop counters for the status endpoint.
func (d *Dispatcher) GetStats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      d.lastTickAt,
		"ticks_since_start": d.ticksSinceStart,
		"poll_interval":     d.cfg.PollInterval().String(),
	}
}

func jobLabel(j *schedule.Job) string {
	if j.Title != "" {
		return fmt.Sprintf("'%s'", j.Title)
	}
	return fmt.Sprintf("%s %s", j.Kind, short(j.ID))
}

// short trims a prefixed ID for log fields.
func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
