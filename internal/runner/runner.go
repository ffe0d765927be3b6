// Package runner drives virtual users through a profile: it spawns them at a
// steady rate, lets each one pick weighted tasks between random waits, and
// stops them all when the run is over.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/profile"
	"github.com/patric-chuzhbe/urlshrtload/internal/shortener"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

// ErrNoWeightedTask is returned by Run for a profile no task can be picked from.
var ErrNoWeightedTask = errors.New("profile has no task with a positive weight")

type shortenerClient interface {
	Create(ctx context.Context, originalURL, userID string) (*shortener.Response, error)
	Access(ctx context.Context, shortURL string) (*shortener.Response, error)
	Fetch(ctx context.Context, path string) (*shortener.Response, error)
}

type collector interface {
	RecordCheck(name string, passed bool)
	RecordTask(name string, outcome stats.Outcome)
	SetUsers(n int)
}

// Options are the run parameters.
type Options struct {
	Users     int
	SpawnRate float64
	// RunTime of 0 runs until the context is cancelled.
	RunTime  time.Duration
	WaitUnit time.Duration
	// Seed, when not 0, makes task picks and waits reproducible.
	Seed int64
}

// Runner runs one profile.
type Runner struct {
	profile   profile.Profile
	client    shortenerClient
	collector collector
	options   Options
}

// New returns a runner of p whose users share client.
func New(p profile.Profile, client shortenerClient, collector collector, options Options) *Runner {
	return &Runner{
		profile:   p,
		client:    client,
		collector: collector,
		options:   options,
	}
}

// Run blocks until the run time elapsed or ctx is cancelled, and all users
// stopped. Task errors never stop the run.
func (r *Runner) Run(ctx context.Context) error {
	if r.options.Users <= 0 {
		return fmt.Errorf("runner: %d users", r.options.Users)
	}
	if r.profile.TotalWeight() <= 0 {
		return fmt.Errorf("runner: profile %q: %w", r.profile.Name, ErrNoWeightedTask)
	}
	if r.options.RunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.options.RunTime)
		defer cancel()
	}

	logger.Log.Infow("starting run",
		"profile", r.profile.Name,
		"users", r.options.Users,
		"spawnRate", r.options.SpawnRate,
		"runTime", r.options.RunTime,
	)

	limiter := rate.NewLimiter(rate.Limit(r.options.SpawnRate), 1)
	group, groupCtx := errgroup.WithContext(ctx)

	spawned := 0
	for spawned < r.options.Users {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		spawned++

		u := user.New(spawned, r.client, r.collector, user.WithRand(r.newRand(spawned)))
		r.collector.SetUsers(spawned)
		logger.Log.Debugw("user spawned", "user", spawned)

		group.Go(func() error {
			r.loop(groupCtx, u)
			return nil
		})
	}
	if spawned == r.options.Users {
		logger.Log.Infow("all users spawned", "users", spawned)
	}

	err := group.Wait()
	logger.Log.Infow("run stopped", "users", spawned)

	return err
}

func (r *Runner) newRand(id int) *rand.Rand {
	seed := r.options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + int64(id)))
}

func (r *Runner) loop(ctx context.Context, u *user.VirtualUser) {
	for ctx.Err() == nil {
		task := r.profile.Pick(u.Rand())
		r.execute(ctx, task, u)

		if !sleep(ctx, r.profile.Wait.Next(u.Rand(), r.options.WaitUnit)) {
			return
		}
	}
}

func (r *Runner) execute(ctx context.Context, task profile.Task, u *user.VirtualUser) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorw("task panicked", "task", task.Name, "user", u.ID(), "panic", p)
			r.collector.RecordTask(task.Name, stats.OutcomeFailure)
		}
	}()

	err := task.Run(ctx, u)
	if err != nil && ctx.Err() != nil {
		// interrupted by the end of the run
		return
	}

	var checkErr *user.CheckError
	var statusErr *user.StatusError
	switch {
	case err == nil:
		r.collector.RecordTask(task.Name, stats.OutcomeSuccess)
	case errors.Is(err, user.ErrNothingToAccess):
		logger.Log.Debugw("task skipped", "task", task.Name, "user", u.ID(), "reason", err)
		r.collector.RecordTask(task.Name, stats.OutcomeSkipped)
	case errors.As(err, &checkErr):
		logger.Log.Warnw("check failed", "task", task.Name, "user", u.ID(), "error", err)
		r.collector.RecordTask(task.Name, stats.OutcomeFailure)
	case errors.As(err, &statusErr):
		logger.Log.Debugw("unexpected status", "task", task.Name, "user", u.ID(), "error", err)
		r.collector.RecordTask(task.Name, stats.OutcomeFailure)
	default:
		logger.Log.Warnw("request failed", "task", task.Name, "user", u.ID(), "error", err)
		r.collector.RecordTask(task.Name, stats.OutcomeFailure)
	}
}

// sleep waits d and reports whether the run goes on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
