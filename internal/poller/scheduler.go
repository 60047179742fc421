package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
)

const _timeoutDefault = 10 * time.Second

// Apply hands a fetched payload to the store. It runs only if the mount
// that issued the fetch is still current.
type Apply func()

type Job struct {
	Resource model.Resource
	// Interval is the pause after each tick. Zero fetches once per mount.
	Interval time.Duration
	Timeout  time.Duration
	Fetch    func(ctx context.Context) (Apply, error)
	// OnError optionally turns a failed tick into a store mutation. Without
	// it a failure leaves the store untouched.
	OnError func(err error) Apply
}

// Scheduler runs fetch-then-sleep loops grouped into mounts. Every Apply
// goes through one lock, so store mutations never interleave and a mount
// that was torn down can never write again.
type Scheduler struct {
	timeout time.Duration
	logger  logger.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

func NewScheduler(defaultTimeout time.Duration, logger logger.Logger) *Scheduler {
	if defaultTimeout <= 0 {
		defaultTimeout = _timeoutDefault
	}
	return &Scheduler{
		timeout: defaultTimeout,
		logger:  logger,
		gens:    make(map[string]uint64),
	}
}

func (s *Scheduler) nextGeneration(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[name]++
	return s.gens[name]
}

// Generation reports the current generation of a mount name.
func (s *Scheduler) Generation(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[name]
}

func (s *Scheduler) apply(name string, gen uint64, fn Apply) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[name] != gen {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

// Do runs fn under the apply lock, serialized with every poll result.
func (s *Scheduler) Do(fn Apply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Mount starts one loop per job. The first tick of every job runs immediately.
func (s *Scheduler) Mount(parent context.Context, name string, jobs ...Job) *Mount {
	ctx, cancel := context.WithCancel(parent)
	m := &Mount{
		s:       s,
		name:    name,
		gen:     s.nextGeneration(name),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[model.Resource]Job, len(jobs)),
		mounted: true,
		logger:  s.logger.With("mount", name),
	}
	for _, job := range jobs {
		if job.Timeout <= 0 {
			job.Timeout = s.timeout
		}
		m.jobs[job.Resource] = job
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		m.wg.Add(1)
		go m.loop(job)
	}
	return m
}

// RunOnce performs a single tick outside any mount, with no generation guard.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	apply, err := job.Fetch(ctx)
	if err != nil {
		if job.OnError != nil {
			apply = job.OnError(err)
		} else {
			apply = nil
		}
	}
	if apply != nil {
		s.mu.Lock()
		apply()
		s.mu.Unlock()
	}
	return err
}

type Mount struct {
	s    *Scheduler
	name string
	gen  uint64
	jobs map[model.Resource]Job

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	mounted bool
	wg      sync.WaitGroup

	logger logger.Logger
}

func (m *Mount) Name() string {
	return m.name
}

func (m *Mount) Owns(r model.Resource) bool {
	_, ok := m.jobs[r]
	return ok
}

func (m *Mount) loop(job Job) {
	defer m.wg.Done()

	m.tick(job)
	if job.Interval <= 0 {
		return
	}
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(job.Interval):
			m.tick(job)
		}
	}
}

func (m *Mount) tick(job Job) {
	ctx, cancel := context.WithTimeout(m.ctx, job.Timeout)
	defer cancel()

	apply, err := job.Fetch(ctx)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			m.logger.Warnf("%s: fetch timed out after %s", job.Resource, job.Timeout)
		} else {
			m.logger.Warnf("%s: can't fetch %s", err, job.Resource)
		}
		apply = nil
		if job.OnError != nil {
			apply = job.OnError(err)
		}
	}

	if !m.s.apply(m.name, m.gen, apply) {
		m.logger.Debugf("%s: dropped response from stale mount", job.Resource)
	}
}

// Trigger runs one out-of-band tick of r now, without waiting for it.
func (m *Mount) Trigger(r model.Resource) bool {
	return m.TriggerAfter(r, 0)
}

// TriggerAfter runs one out-of-band tick of r after d. The tick is
// abandoned if the mount goes away first.
func (m *Mount) TriggerAfter(r model.Resource, d time.Duration) bool {
	job, ok := m.jobs[r]
	if !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return false
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if d > 0 {
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(d):
			}
		}
		m.tick(job)
	}()
	return true
}

// Unmount stops every loop and pending trigger. Responses still in flight
// are discarded. Safe to call more than once.
func (m *Mount) Unmount() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = false
	m.mu.Unlock()

	m.s.nextGeneration(m.name)
	m.cancel()
	m.wg.Wait()
}
