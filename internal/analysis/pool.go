// Package analysis runs contract reviews in the background on a fixed number
// of workers and records exactly one result per contract.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sentryai/sentry/internal/logging"
)

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("analysis pool is shut down")

// Job carries everything a worker needs; nothing is read from the request
// that submitted it.
type Job struct {
	ContractID string
	Text       string
	EnqueuedAt time.Time
}

// Recorder performs the terminal write for a contract. It must succeed at
// most once per contract id.
type Recorder interface {
	CompleteContract(ctx context.Context, id, status, result string) error
}

// Stats is a snapshot of the pool's load.
type Stats struct {
	Workers int `json:"workers"`
	Active  int `json:"active"`
	Queued  int `json:"queued"`
}

// Pool executes jobs with at most Workers running at once. Submit never
// blocks; extra jobs wait in FIFO order.
type Pool struct {
	analyzer Analyzer
	recorder Recorder
	workers  int
	timeout  time.Duration

	mu      sync.Mutex
	queue   []*Job
	active  map[string]*Job
	closed  bool
	pending sync.WaitGroup

	notify   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	pumpWG   sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	// onFinish, when set, is called after each terminal write attempt.
	onFinish func(id, status string, err error)
}

type PoolOption func(*Pool)

// WithJobTimeout bounds each analysis call.
func WithJobTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.timeout = d }
}

// WithOnFinish registers a callback invoked after each job's terminal write.
func WithOnFinish(fn func(id, status string, err error)) PoolOption {
	return func(p *Pool) { p.onFinish = fn }
}

// NewPool starts a pool with the given number of workers (at least one).
func NewPool(analyzer Analyzer, recorder Recorder, workers int, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		analyzer: analyzer,
		recorder: recorder,
		workers:  workers,
		active:   make(map[string]*Job),
		notify:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pumpWG.Add(1)
	go p.run()
	return p
}

// Submit queues a job and returns immediately.
func (p *Pool) Submit(job Job) error {
	if job.ContractID == "" {
		return errors.New("job has no contract id")
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, &job)
	p.pending.Add(1)
	queued, active := len(p.queue), len(p.active)
	p.mu.Unlock()

	logging.Debugf("[analysis] queued contract=%s active=%d queued=%d", job.ContractID, active, queued)
	p.wake()
	return nil
}

// Tracked reports whether a contract is queued or running in this process.
func (p *Pool) Tracked(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[id]; ok {
		return true
	}
	for _, j := range p.queue {
		if j.ContractID == id {
			return true
		}
	}
	return false
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Workers: p.workers, Active: len(p.active), Queued: len(p.queue)}
}

// Shutdown stops accepting jobs and waits for queued and running ones to
// finish. If ctx ends first, running analyses are canceled and still record
// an error result; jobs that never started stay processing for the sweeper.
// Calling it again is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		p.mu.Lock()
		dropped := len(p.queue)
		for range p.queue {
			p.pending.Done()
		}
		p.queue = nil
		p.mu.Unlock()
		p.cancel()
		logging.Warnf("[analysis] shutdown deadline reached, %d queued jobs left processing", dropped)
		<-drained
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.pumpWG.Wait()
	p.cancel()
	return err
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// run is the pump: it starts queued jobs whenever a worker slot is free.
func (p *Pool) run() {
	defer p.pumpWG.Done()
	for {
		select {
		case <-p.notify:
			p.startAvailable()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) startAvailable() {
	for {
		p.mu.Lock()
		if len(p.active) >= p.workers || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.active[job.ContractID] = job
		p.mu.Unlock()

		logging.Debugf("[analysis] started contract=%s waited=%s", job.ContractID, time.Since(job.EnqueuedAt))
		go p.execute(job)
	}
}

func (p *Pool) execute(job *Job) {
	defer p.pending.Done()
	started := time.Now()

	report := p.analyze(job)
	status := report.Status

	result, err := report.Encode()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = p.recorder.CompleteContract(ctx, job.ContractID, status, result)
		cancel()
	}
	if err != nil {
		logging.Errorf("[analysis] recording contract=%s status=%s failed: %v", job.ContractID, status, err)
	} else {
		logging.Infof("[analysis] contract=%s finished status=%s in %s", job.ContractID, status, time.Since(started).Round(time.Millisecond))
	}

	p.mu.Lock()
	delete(p.active, job.ContractID)
	p.mu.Unlock()

	if p.onFinish != nil {
		p.onFinish(job.ContractID, status, err)
	}
	p.wake()
}

// analyze always returns a report; failures and panics become error reports.
func (p *Pool) analyze(job *Job) (report *Report) {
	ctx := p.baseCtx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx = logging.NewContext(ctx, "contract", job.ContractID)

	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("[analysis] panic analyzing contract=%s: %v\n%s", job.ContractID, r, debug.Stack())
			report = ErrorReport(fmt.Sprintf("internal error during analysis: %v", r))
		}
	}()

	rep, err := p.analyzer.Analyze(ctx, job.Text)
	if err != nil {
		logging.Warnf("[analysis] contract=%s failed: %v", job.ContractID, err)
		return ErrorReport(err.Error())
	}
	if rep == nil {
		return ErrorReport("analysis produced no report")
	}
	rep.Status = StatusDone
	return rep
}
