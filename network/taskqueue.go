// network/taskqueue.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package network

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mmp/tracknet/log"
)

// Task is a unit of work run by a TaskQueue.
type Task func() error

type queuedTask struct {
	name string
	task Task
}

// TaskQueue runs tasks one at a time in the order they were added. A
// worker goroutine is started when a task is added to an idle queue and
// exits once the queue is empty again.
type TaskQueue struct {
	name      string
	onFailure func(name string, err error)
	lg        *log.Logger

	mu      sync.Mutex
	pending []queuedTask
	running bool
	// idle is closed whenever no worker is running; a new channel is
	// made each time a worker starts.
	idle chan struct{}
}

// NewTaskQueue returns a new queue. onFailure, which may be nil, is called
// from the worker goroutine with the name and error of each task that
// fails or panics.
func NewTaskQueue(name string, onFailure func(name string, err error), lg *log.Logger) *TaskQueue {
	idle := make(chan struct{})
	close(idle)
	return &TaskQueue{
		name:      name,
		onFailure: onFailure,
		lg:        lg.With(slog.String("queue", name)),
		idle:      idle,
	}
}

// Add appends the task to the queue and returns immediately.
func (q *TaskQueue) Add(name string, task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, queuedTask{name: name, task: task})
	if !q.running {
		q.running = true
		q.idle = make(chan struct{})
		go q.work()
	}
}

func (q *TaskQueue) work() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending[0] = queuedTask{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(t)
	}
}

func (q *TaskQueue) run(t queuedTask) {
	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				q.lg.Error("task panicked", slog.String("task", t.name), slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				err = fmt.Errorf("%s: panic: %v", t.name, r)
			}
		}()
		err = t.task()
	}()

	q.lg.Debug("ran task", slog.String("task", t.name), slog.Duration("elapsed", time.Since(start)))

	if err != nil {
		q.lg.Warn("task failed", slog.String("task", t.name), slog.Any("error", err))
		if q.onFailure != nil {
			q.onFailure(t.name, err)
		}
	}
}

// Wait blocks until the queue is empty and no task is running, or until
// ctx is done.
func (q *TaskQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s queue: %w", q.name, ctx.Err())
	}
}

// IsRunning reports whether there are tasks pending or running.
func (q *TaskQueue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Len returns the number of tasks that haven't yet started.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
