package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Pool runs jobs in deadline order on a fixed number of goroutines. A job
// returns its next deadline after every run, or the zero time to leave the
// pool. Adding a job, or triggering one, wakes an idle worker right away.
// The workers stop when the pool's context is cancelled.
type Pool struct {
	ctx   context.Context
	mu    sync.Mutex
	queue []*job
	reg   map[string]*job
	wait  chan struct{}
}

// Func runs a job once and returns when it should run next.
type Func func(context.Context) time.Time

type job struct {
	name     string
	fn       Func
	deadline time.Time
	rerun    bool
}

func New(ctx context.Context, workers int) *Pool {
	pool := Pool{ctx: ctx, reg: make(map[string]*job)}

	for range max(workers, 1) {
		go pool.work()
	}

	return &pool
}

// Add schedules fn to run as soon as a worker is free. Names must be unique;
// adding a name that is still registered returns an error.
func (p *Pool) Add(name string, fn Func) error {
	p.mu.Lock()
	_, exists := p.reg[name]
	p.mu.Unlock()
	if exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	p.enqueue(&job{name: name, fn: fn, deadline: time.Now()})
	return nil
}

func (p *Pool) work() {
	for {
		j, ok := p.dequeue()
		if !ok {
			return
		}
		p.enqueue(j.execute(p.ctx))
	}
}

// Trigger runs the named job now, regardless of its deadline. A job that is
// running at the moment runs again as soon as it finishes.
func (p *Pool) Trigger(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.IndexFunc(p.queue, func(j *job) bool { return j.name == name }); i != -1 {
		p.queue[i].deadline = time.Now()
		p.sortAndWake()
		return nil
	}
	// registered but not queued: running
	if j, ok := p.reg[name]; ok {
		j.rerun = true
		return nil
	}

	return fmt.Errorf("no job with name %s", name)
}

// Len returns the number of jobs in the pool, running or waiting.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reg)
}

// sortAndWake must be called with p.mu held.
func (p *Pool) sortAndWake() {
	slices.SortFunc(p.queue, func(a, b *job) int {
		return a.deadline.Compare(b.deadline)
	})

	if p.wait != nil {
		close(p.wait)
		p.wait = nil
	}
}

func (p *Pool) enqueue(j *job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if j.deadline.IsZero() {
		delete(p.reg, j.name)
		return
	}
	if j.rerun {
		j.rerun = false
		j.deadline = time.Now()
	}

	p.reg[j.name] = j
	p.queue = append(p.queue, j)
	p.sortAndWake()
}

// dequeue blocks until the earliest job is due. It returns false once the
// pool's context is done.
func (p *Pool) dequeue() (*job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.ctx.Err() != nil {
			return nil, false
		}

		deadline := time.Now().Add(time.Hour * 24 * 365)
		if len(p.queue) > 0 {
			deadline = p.queue[0].deadline
		}

		if !deadline.After(time.Now()) {
			break
		}

		if p.wait == nil {
			p.wait = make(chan struct{})
		}
		wait := p.wait

		p.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-timer.C:
		case <-wait:
		case <-p.ctx.Done():
		}
		timer.Stop()

		p.mu.Lock()
	}

	var j *job
	j, p.queue = p.queue[0], p.queue[1:]
	return j, true
}

func (j *job) execute(ctx context.Context) *job {
	j.deadline = j.fn(ctx)
	return j
}
