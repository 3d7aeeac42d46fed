package worker

import (
	"errors"
	"sync"
)

// ErrPoolClosed is returned when a task is submitted after Close
var ErrPoolClosed = errors.New("worker pool closed")

// ErrQueueFull is returned by TryExec when no queue slot is free
var ErrQueueFull = errors.New("worker queue full")

type Task interface {
	Execute()
}

// TaskFunc adapts a plain function to Task
type TaskFunc func()

func (f TaskFunc) Execute() { f() }

// Pool runs queued tasks on a fixed set of goroutines.
type Pool struct {
	mu     sync.RWMutex
	size   int
	closed bool
	tasks  chan Task
	kill   chan struct{}
	wg     sync.WaitGroup
}

func NewPool(speed int, queue int) *Pool {
	if speed < 1 {
		speed = 1
	}
	pool := &Pool{
		tasks: make(chan Task, queue),
		kill:  make(chan struct{}),
	}
	pool.Resize(speed)
	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task.Execute()
		case <-p.kill:
			return
		}
	}
}

// Resize grows or shrinks the number of workers
func (p *Pool) Resize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.size < n {
		p.size++
		p.wg.Add(1)
		go p.worker()
	}
	for p.size > n {
		p.size--
		p.kill <- struct{}{}
	}
}

// Size returns the current number of workers
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// Close stops accepting tasks. Queued tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

// Wait blocks until every worker has exited. Call Close first.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Exec queues task, blocking while the queue is full
func (p *Pool) Exec(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// TryExec queues task without blocking
func (p *Pool) TryExec(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
