package vault

import "sync"

// Bounded worker pool used to keep storage I/O off latency-sensitive
// paths. Deletions, cache population and eviction are submitted here so
// the session that requested them never waits for a disk or database
// round trip.

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
)

type pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPool(workers, queue int) *pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queue <= 0 {
		queue = defaultQueueSize
	}
	p := &pool{tasks: make(chan func(), queue)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// submit queues a task, blocking when the queue is full. After close
// the task runs on the caller instead of being dropped: a shutdown must
// not lose queued storage work.
func (p *pool) submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		task()
		return
	}
	p.tasks <- task
	p.mu.Unlock()
}

// close drains the queue and waits for in-flight tasks. Once submitted,
// a task always runs to completion; there is no cancellation.
func (p *pool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
