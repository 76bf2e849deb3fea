package payouts

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolI is the part of WorkerPool the payout loop depends on.
type WorkerPoolI interface {
	AddTask(ctx context.Context, task Task) error
	Close()
}

// Task is one unit of payout work. A returned error is logged by the worker
// and does not stop the pool; retries are the task's own concern.
type Task func() error

// WorkerPool runs tasks on a fixed number of goroutines. Close waits for
// queued tasks to finish.
type WorkerPool struct {
	pool chan Task
	wg   sync.WaitGroup
	once sync.Once
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	wp := &WorkerPool{pool: make(chan Task, size)}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.pool {
		if err := task(); err != nil {
			zap.L().Error("payout task failed", zap.Error(err))
		}
	}
}

// AddTask queues task for the next free worker. It blocks while the queue is
// full and returns ctx.Err() if ctx is done first, in which case the task is
// never run. AddTask must not be called after Close.
func (wp *WorkerPool) AddTask(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.pool <- task:
		return nil
	}
}

// Close stops accepting tasks and waits for the queued ones. It is safe to
// call more than once.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		close(wp.pool)
		wp.wg.Wait()
	})
}
