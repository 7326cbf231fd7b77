// Package scheduler runs ingestion agents on an interval with bounded parallelism.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/engine/ingest"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// AgentStatus represents the status of an agent.
type AgentStatus string

const (
	// StatusPending indicates the agent has not run yet.
	StatusPending AgentStatus = "Pending"
	// StatusRunning indicates a pass is in progress.
	StatusRunning AgentStatus = "Running"
	// StatusCompleted indicates the last pass succeeded.
	StatusCompleted AgentStatus = "Completed"
	// StatusFailed indicates the last pass failed.
	StatusFailed AgentStatus = "Failed"
)

// Runner is the pass interface of an ingestion agent.
type Runner interface {
	Scope() ports.Scope
	Run(ctx context.Context) (ingest.PassResult, error)
	Refresh(ctx context.Context, name string) (ingest.PassResult, error)
}

// Agent is a runner with the source globs it reads from.
type Agent struct {
	Runner  Runner
	Sources []string
}

// Options tunes the scheduler.
type Options struct {
	Interval    time.Duration
	PassTimeout time.Duration
	// Parallelism bounds concurrent passes; zero uses the CPU count.
	Parallelism int
	ShardIndex  int
	ShardCount  int
}

// Status is the last known state of one agent.
type Status struct {
	Scope     ports.Scope
	Status    AgentStatus
	Last      ingest.PassResult
	Err       error
	UpdatedAt time.Time
}

type slot struct {
	agent Agent
	// pass serializes passes of the same agent.
	pass sync.Mutex
}

// Scheduler manages the passes of the agents owned by this shard.
type Scheduler struct {
	logger  ports.Logger
	metrics ports.Metrics
	options Options

	slots []*slot

	mu     sync.RWMutex
	status map[string]Status
}

// NewScheduler creates a Scheduler for the agents assigned to the configured shard.
func NewScheduler(agents []Agent, logger ports.Logger, metrics ports.Metrics, options Options) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		metrics: metrics,
		options: options,
		status:  make(map[string]Status),
	}
	for _, a := range agents {
		scope := a.Runner.Scope()
		if !Owns(scope, options.ShardIndex, options.ShardCount) {
			continue
		}
		s.slots = append(s.slots, &slot{agent: a})
		s.status[scope.String()] = Status{Scope: scope, Status: StatusPending}
	}
	return s
}

// Owns reports whether the shard index out of count runs the agent of scope.
func Owns(scope ports.Scope, index, count int) bool {
	if count <= 1 {
		return true
	}
	return xxhash.Sum64String(scope.String())%uint64(count) == uint64(index)
}

// Len returns the number of agents owned by this scheduler.
func (s *Scheduler) Len() int {
	return len(s.slots)
}

// Statuses returns the status of every owned agent ordered by scope.
func (s *Scheduler) Statuses() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Scope.String(), b.Scope.String()) })
	return out
}

func (s *Scheduler) updateStatus(scope ports.Scope, status AgentStatus, result ingest.PassResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[scope.String()]
	st.Scope = scope
	st.Status = status
	st.UpdatedAt = time.Now()
	if status != StatusRunning {
		st.Last = result
		st.Err = err
	}
	s.status[scope.String()] = st
}

// RunOnce sweeps every owned agent once. A failing agent never cancels the
// others; the failures are joined in the returned error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.sweep(ctx, s.slots)
}

// Run sweeps immediately and then on every interval tick until ctx is done.
// Failed passes are logged by agent and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.options.Interval
	if interval <= 0 {
		interval = domain.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Resync runs the agents reading any of paths.
func (s *Scheduler) Resync(ctx context.Context, paths []string) error {
	var matched []*slot
	for _, sl := range s.slots {
		if readsAny(sl.agent.Sources, paths) {
			matched = append(matched, sl)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	s.logger.Info(fmt.Sprintf("resyncing %d agent(s) after source changes", len(matched)))
	return s.sweep(ctx, matched)
}

// Refresh runs an on-demand pass for one resource of the agent identified by
// kind, account and region.
func (s *Scheduler) Refresh(ctx context.Context, kind, account, region, name string) (ingest.PassResult, error) {
	for _, sl := range s.slots {
		scope := sl.agent.Runner.Scope()
		if scope.Kind == kind && scope.Account == account && scope.Region == region {
			return s.pass(ctx, sl, func(ctx context.Context) (ingest.PassResult, error) {
				return sl.agent.Runner.Refresh(ctx, name)
			})
		}
	}
	return ingest.PassResult{}, zerr.With(
		zerr.With(zerr.With(zerr.Wrap(domain.ErrUnknownAgent, "cannot refresh"), "kind", kind), "account", account),
		"region", region,
	)
}

func (s *Scheduler) sweep(ctx context.Context, slots []*slot) error {
	parallelism := s.options.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	var (
		mu   sync.Mutex
		errs error
	)
	var g errgroup.Group
	g.SetLimit(parallelism)
	for _, sl := range slots {
		g.Go(func() error {
			_, err := s.pass(ctx, sl, sl.agent.Runner.Run)
			if err != nil {
				mu.Lock()
				errs = errors.Join(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (s *Scheduler) pass(
	ctx context.Context,
	sl *slot,
	run func(context.Context) (ingest.PassResult, error),
) (ingest.PassResult, error) {
	sl.pass.Lock()
	defer sl.pass.Unlock()

	scope := sl.agent.Runner.Scope()
	if err := ctx.Err(); err != nil {
		return ingest.PassResult{Scope: scope}, err
	}
	if s.options.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.PassTimeout)
		defer cancel()
	}

	s.updateStatus(scope, StatusRunning, ingest.PassResult{}, nil)
	result, err := run(ctx)
	if err != nil {
		s.updateStatus(scope, StatusFailed, result, err)
		s.metrics.PassFailed(scope.Kind)
		s.logger.Error(err)
		return result, err
	}

	s.updateStatus(scope, StatusCompleted, result, nil)
	s.metrics.PassSucceeded(scope.Kind, ports.PassStats{
		Committed: result.Committed,
		Evicted:   result.Evicted,
		Rejected:  result.Rejected,
		Duration:  result.Duration,
	})
	s.logger.Info(fmt.Sprintf("%s: committed %d, evicted %d, rejected %d in %s",
		scope, result.Committed, result.Evicted, result.Rejected, result.Duration.Round(time.Millisecond)))
	return result, nil
}

func readsAny(sources, paths []string) bool {
	for _, glob := range sources {
		for _, p := range paths {
			if ok, _ := filepath.Match(glob, p); ok || glob == p {
				return true
			}
		}
	}
	return false
}
