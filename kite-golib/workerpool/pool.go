package workerpool

import (
	"sync"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Job is a unit of work run by a Pool
type Job func() error

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	jobs     chan Job
	stop     chan struct{}
	stopOnce sync.Once
	pending  sync.WaitGroup

	m   sync.Mutex
	err error
}

// New starts a pool with the given number of workers (at least one)
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs: make(chan Job),
		stop: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Add queues jobs without blocking
func (p *Pool) Add(jobs []Job) {
	p.pending.Add(len(jobs))
	go func() {
		for i, job := range jobs {
			select {
			case p.jobs <- job:
			case <-p.stop:
				// drop everything not yet handed to a worker
				p.pending.Add(i - len(jobs))
				return
			}
		}
	}()
}

// Wait blocks until every added job has run or been dropped by Stop, and returns the
// errors returned by jobs so far.
func (p *Pool) Wait() error {
	p.pending.Wait()
	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop drops queued jobs and releases the workers once their current job returns
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Pool) work() {
	for {
		select {
		case <-p.stop:
			return
		case job := <-p.jobs:
			select {
			case <-p.stop:
				p.pending.Done()
				return
			default:
			}
			if err := job(); err != nil {
				p.m.Lock()
				p.err = errors.Combine(p.err, err)
				p.m.Unlock()
			}
			p.pending.Done()
		}
	}
}
