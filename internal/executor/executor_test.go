package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOOrdering(t *testing.T) {
	e := New()
	var order []int
	mk := func(id int, polls int) Task {
		remaining := polls
		return TaskFunc(func() PollResult {
			remaining--
			order = append(order, id)
			if remaining <= 0 {
				return Ready
			}
			return Pending
		})
	}
	e.Spawn(mk(1, 1))
	e.Spawn(mk(2, 2))
	e.Spawn(mk(3, 1))
	e.Run()

	require.Equal(t, []int{1, 2, 3, 2}, order)
}

func TestYieldExecutionOneTurn(t *testing.T) {
	e := New()
	ran := false
	e.Spawn(YieldExecution(func() { ran = true }))
	e.Spawn(TaskFunc(func() PollResult { return Ready }))

	require.False(t, ran)
	e.RunOnce() // polls yield task -> Pending, re-enqueued
	require.False(t, ran)
	e.Run()
	require.True(t, ran)
}

type fakeClock struct {
	counter uint64
	period  uint64
}

func (f *fakeClock) Counter() uint64           { return f.counter }
func (f *fakeClock) PeriodFemtoseconds() uint64 { return f.period }

func TestTimeoutFutureDeadlineFixedOnFirstPoll(t *testing.T) {
	clock := &fakeClock{counter: 1000, period: 10_000_000} // 10ns/tick
	tf := NewTimeoutMs(clock, 1)                           // 1ms == 100,000 ticks

	require.Equal(t, Pending, tf.Poll())
	// Advance the clock's starting point retroactively shouldn't matter —
	// deadline was fixed at 1000+100000 on the first poll.
	clock.counter = 1000 + 100_000 - 1
	require.Equal(t, Pending, tf.Poll())
	clock.counter = 1000 + 100_000
	require.Equal(t, Ready, tf.Poll())
}
