package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
	"github.com/reviewnudge/reviewnudge/internal/domain/port/driven"
)

// Stage identifies where the run pipeline currently is. A fatal error carries
// the stage it was raised in so the process boundary can report it.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageEvaluating  Stage = "evaluating"
	StageFiltering   Stage = "filtering"
	StageDispatching Stage = "dispatching"
	StageCommitting  Stage = "committing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

const (
	fetchRetryAttempts    = 4
	dispatchRetryAttempts = 4
	initialRetryDelay     = 2 * time.Second
	maxRetryDelay         = 30 * time.Second
)

// RunnerConfig holds the per-run parameters the Runner needs beyond its ports.
type RunnerConfig struct {
	RepoFullName    string
	Deadline        time.Duration // Turnaround deadline.
	Category        string        // Discussion category name.
	DiscussionTitle string        // Discussion title to post under.
	RetryDelay      time.Duration // Base backoff delay; defaults to 2s when zero.
}

func (c RunnerConfig) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return initialRetryDelay
}

// RunResult summarizes a completed run.
type RunResult struct {
	Requests   int // Open review requests fetched.
	Findings   int // Overdue findings computed.
	Suppressed int // Findings already covered by the ledger.
	Notified   int // Findings delivered and committed this run.

	// LastActivity is the most recent review activity seen among the fetched
	// requests. Drives the adaptive schedule in Watch.
	LastActivity time.Time
}

// Runner drives one notification run: fetch, evaluate, filter, dispatch,
// commit. The ledger is only mutated after a successful dispatch, so a crash
// mid-run can at worst cause a duplicate notification on the next run, never
// a lost one.
type Runner struct {
	source  driven.ReviewSource
	ledger  driven.LedgerStore
	notifer driven.Notifier
	cfg     RunnerConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a Runner with all required ports.
func NewRunner(source driven.ReviewSource, ledger driven.LedgerStore, notifier driven.Notifier, cfg RunnerConfig) *Runner {
	return &Runner{
		source:  source,
		ledger:  ledger,
		notifer: notifier,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithClock overrides the runner's clock. Intended for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one pass of the pipeline. On a ledger version conflict the
// whole pipeline is re-executed once against the refreshed ledger; a second
// conflict is fatal.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	result, err := r.runOnce(ctx)
	if err != nil && errors.Is(err, model.ErrLedgerConflict) {
		r.logger.Warn("ledger conflict, retrying run against refreshed ledger")
		result, err = r.runOnce(ctx)
	}
	return result, err
}

func (r *Runner) runOnce(ctx context.Context) (RunResult, error) {
	start := r.now()
	var result RunResult

	// Fetching. Transient errors retry with backoff; auth errors fail fast.
	stage := StageFetching
	r.logger.Info("run stage", "stage", string(stage), "repo", r.cfg.RepoFullName)

	var requests []model.ReviewRequest
	err := retry.Do(
		func() error {
			var fetchErr error
			requests, fetchErr = r.source.FetchReviewRequests(ctx, r.cfg.RepoFullName)
			return fetchErr
		},
		retry.Context(ctx),
		retry.Attempts(fetchRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(r.cfg.retryDelay()),
		retry.MaxDelay(maxRetryDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, model.ErrTransient) }),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("fetch retry", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return result, r.fail(stage, err)
	}
	result.Requests = len(requests)
	result.LastActivity = freshestActivity(requests)

	snapshot, err := r.ledger.Snapshot(ctx)
	if err != nil {
		return result, r.fail(stage, err)
	}

	// The fetch succeeded, so the open set is authoritative: drop ledger
	// entries for requests that have since closed. Non-fatal.
	openIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		openIDs = append(openIDs, req.ID)
	}
	if err := r.ledger.Prune(ctx, openIDs); err != nil {
		r.logger.Warn("ledger prune failed", "error", err)
	}

	// Evaluating.
	stage = StageEvaluating
	now := r.now()
	findings := EvaluateAll(requests, r.cfg.Deadline, now)
	result.Findings = len(findings)

	// Filtering.
	stage = StageFiltering
	toNotify, suppressed := FilterNotified(findings, snapshot)
	result.Suppressed = len(suppressed)

	if len(toNotify) == 0 {
		r.logger.Info("run complete, nothing to notify",
			"requests", result.Requests,
			"findings", result.Findings,
			"suppressed", result.Suppressed,
			"duration", r.now().Sub(start).Round(time.Millisecond),
		)
		return result, nil
	}

	// Dispatching. Delivery errors retry with backoff, then go fatal.
	stage = StageDispatching
	r.logger.Info("run stage", "stage", string(stage), "to_notify", len(toNotify))

	notification := model.BuildNotification(r.cfg.Category, r.cfg.DiscussionTitle, toNotify, now)
	err = retry.Do(
		func() error { return r.notifer.PostNotification(ctx, notification) },
		retry.Context(ctx),
		retry.Attempts(dispatchRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(r.cfg.retryDelay()),
		retry.MaxDelay(maxRetryDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, model.ErrDelivery) }),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("dispatch retry", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return result, r.fail(stage, err)
	}

	// Committing. Only delivered findings reach the ledger.
	stage = StageCommitting
	entries := LedgerEntriesFor(notification.Findings, r.now())
	if err := r.ledger.Commit(ctx, snapshot.Version, entries); err != nil {
		return result, r.fail(stage, err)
	}
	result.Notified = len(notification.Findings)

	r.logger.Info("run complete",
		"requests", result.Requests,
		"findings", result.Findings,
		"suppressed", result.Suppressed,
		"notified", result.Notified,
		"duration", r.now().Sub(start).Round(time.Millisecond),
	)
	return result, nil
}

// Watch runs the pipeline immediately, then repeatedly until the context is
// canceled. A positive interval gives a fixed schedule; interval <= 0 lets
// the repository's activity tier pick the pace, so busy repositories are
// checked more often than dormant ones. Auth failures end the loop; anything
// else is logged so a transient outage does not kill a scheduled deployment.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) error {
	result, err := r.Run(ctx)
	if err != nil {
		if errors.Is(err, model.ErrAuth) {
			return err
		}
		r.logger.Error("scheduled run failed", "error", err)
	}

	timer := time.NewTimer(r.nextInterval(interval, result))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped")
			return nil
		case <-timer.C:
			result, err = r.Run(ctx)
			if err != nil {
				if errors.Is(err, model.ErrAuth) {
					return err
				}
				r.logger.Error("scheduled run failed", "error", err)
			}
			timer.Reset(r.nextInterval(interval, result))
		}
	}
}

// nextInterval resolves the delay before the next scheduled run.
func (r *Runner) nextInterval(interval time.Duration, result RunResult) time.Duration {
	if interval > 0 {
		return interval
	}
	tier := classifyActivity(result.LastActivity, r.now())
	next := tierInterval(tier)
	r.logger.Info("next run scheduled", "tier", tier.String(), "interval", next)
	return next
}

// fail wraps err with the stage it was raised in and logs the terminal state.
func (r *Runner) fail(stage Stage, err error) error {
	r.logger.Error("run failed", "stage", string(stage), "error", err)
	return fmt.Errorf("%s: %w", stage, err)
}
