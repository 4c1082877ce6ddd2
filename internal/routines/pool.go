// Package routines provides a pool of goroutines that execute functions.
package routines

import "sync"

// Pool runs queued functions concurrently in a fixed number of goroutines.
type Pool struct {
	workCh chan func()
	wg     sync.WaitGroup

	lock   sync.Mutex
	closed bool
}

// NewPool starts a Pool with workers goroutines.
// workers smaller than 1 are treated as 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := Pool{
		workCh: make(chan func(), workers),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return &p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for fn := range p.workCh {
		fn()
	}
}

// Queue schedules fn for execution. It blocks while all workers are busy
// and the queue is full.
// Queue panics when it is called after Wait.
func (p *Pool) Queue(fn func()) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		panic("routines: Queue called after Wait")
	}

	p.workCh <- fn
}

// Wait waits until all queued functions finished and terminates the
// workers.
func (p *Pool) Wait() {
	p.lock.Lock()
	if !p.closed {
		p.closed = true
		close(p.workCh)
	}
	p.lock.Unlock()

	p.wg.Wait()
}
