// Package executor implements the kernel's single-threaded cooperative task
// runner (spec.md §4.4), grounded on biscuit's readiness-channel model in
// main.go (cons_t's pollmsg_t/ready_t/pollers_t) generalized from "one
// keyboard consumer" to "any pollable task."
package executor

import "container/list"

// PollResult is what a Task.Poll call reports.
type PollResult int

const (
	// Pending means the task made no progress and should be re-enqueued.
	Pending PollResult = iota
	// Ready means the task completed and is dropped from the ready queue.
	Ready
)

// Task is an opaque pollable unit. Implementations close over whatever
// state they need across polls (channels, futures, raw counters).
type Task interface {
	Poll() PollResult
}

// TaskFunc adapts a plain poll function to Task.
type TaskFunc func() PollResult

// Poll implements Task.
func (f TaskFunc) Poll() PollResult { return f() }

// Executor is a FIFO round-robin poller over a ready queue (spec.md §4.4,
// §5 "Ordering: FIFO over the ready queue; no priorities; no fairness
// guarantees beyond FIFO").
type Executor struct {
	ready *list.List
}

// New returns an empty executor.
func New() *Executor {
	return &Executor{ready: list.New()}
}

// Spawn appends task to the back of the ready queue.
func (e *Executor) Spawn(task Task) {
	e.ready.PushBack(task)
}

// RunOnce polls exactly one task from the front of the queue, if any.
// Pending re-enqueues it at the back; Ready drops it. Returns false if the
// queue was empty.
func (e *Executor) RunOnce() bool {
	front := e.ready.Front()
	if front == nil {
		return false
	}
	e.ready.Remove(front)
	task := front.Value.(Task)

	if task.Poll() == Pending {
		e.ready.PushBack(task)
	}
	return true
}

// Run polls tasks until the ready queue is empty. In the kernel this never
// returns in practice — a long-lived task (network manager, xHCI event
// loop) keeps re-enqueuing itself. It exists mainly so tests can drain a
// finite task set.
func (e *Executor) Run() {
	for e.RunOnce() {
	}
}

// Len reports the number of tasks currently queued.
func (e *Executor) Len() int {
	return e.ready.Len()
}

// yieldTask backs YieldExecution: a task built from it returns Pending
// exactly once, then Ready, matching spec.md §4.4's yield_execution.
type yieldTask struct {
	done bool
	cont func()
}

func (y *yieldTask) Poll() PollResult {
	if y.done {
		if y.cont != nil {
			y.cont()
		}
		return Ready
	}
	y.done = true
	return Pending
}

// YieldExecution returns a Task that gives every other queued task one turn
// before resuming, then invokes cont (if non-nil) and completes. Spawn it
// to model an `.await yield_execution()` point.
func YieldExecution(cont func()) Task {
	return &yieldTask{cont: cont}
}
