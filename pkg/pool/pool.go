// Package pool implements the bounded-worker, unbounded-queue executor
// every other component submits work to: connectors submit Connections,
// the crawl orchestrator submits ready Hosts, disconnect submits live
// Connections. A single Pool type serves all three; callers distinguish
// pools by constructing one per purpose.
package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkerFunc is the function a Pool's workers invoke for each submitted
// item. A panic inside WorkerFunc is recovered, logged, and the item is
// dropped — workers must never crash the pool.
type WorkerFunc func(item interface{})

// Pool runs a fixed number of worker goroutines pulling from a shared,
// unbounded FIFO. Quiescence is tracked with an in-flight counter
// (incremented on Submit, decremented when a worker finishes an item)
// rather than a "queue empty and workers idle" check, so that a worker
// re-submitting during its own execution (crawl re-injecting a host, a
// connector retrying a credential) is always observed before Block
// declares the pool quiescent.
type Pool struct {
	name string
	fn   WorkerFunc
	log  *logrus.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []interface{}
	inFlight  int
	terminate bool

	wg sync.WaitGroup
}

// New creates a Pool with n workers bound to fn and starts them
// immediately. log may be nil, in which case logrus.StandardLogger() is
// used.
func New(name string, n int, fn WorkerFunc, log *logrus.Logger) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if n < 1 {
		n = 1
	}
	p := &Pool{name: name, fn: fn, log: log}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues item for processing. Submit never blocks: the queue is
// unbounded, matching spec's "queue is unbounded" requirement.
func (p *Pool) Submit(item interface{}) {
	p.mu.Lock()
	p.queue = append(p.queue, item)
	p.inFlight++
	p.cond.Broadcast()
	p.mu.Unlock()
}

// InFlight returns the current number of items either queued or being
// processed by a worker.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.terminate {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.terminate {
			p.mu.Unlock()
			return
		}
		item := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runOne(item)

		p.mu.Lock()
		p.inFlight--
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// runOne invokes fn on item, recovering and logging any panic so the
// worker can return to service.
func (p *Pool) runOne(item interface{}) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{"pool": p.name, "item": item}).Errorf("worker panic recovered: %v", r)
		}
	}()
	p.fn(item)
}

// Block suspends the caller until the pool is quiescent (in_flight == 0),
// or ctx is cancelled first, whichever happens first. When kill is true
// and quiescence is reached, workers are then signalled to terminate and
// joined before Block returns. If ctx is cancelled before quiescence,
// Block returns ctx.Err() immediately; the background quiescence watcher
// is abandoned (it will complete harmlessly once the pool does settle).
func (p *Pool) Block(ctx context.Context, kill bool) error {
	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for p.inFlight != 0 {
			p.cond.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if kill {
		p.CancelAndJoin()
	}
	return nil
}

// CancelAndJoin signals termination to all workers and waits for them to
// exit. Any items still queued are dropped unprocessed.
func (p *Pool) CancelAndJoin() {
	p.mu.Lock()
	p.terminate = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
