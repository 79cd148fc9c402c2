package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefresher_SingleFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	var calls int
	r := NewRefresher(func(ctx context.Context) error {
		calls++
		<-gate
		return nil
	}, time.Second, nil)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return r.InFlight() && r.Pending() == n-1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, calls)
	require.Equal(t, 1, r.Calls())
	require.False(t, r.InFlight())
	require.Zero(t, r.Pending())
}

func TestRefresher_FailureReachesEveryWaiterAfterHook(t *testing.T) {
	t.Parallel()

	boom := errors.New("refresh rejected")
	gate := make(chan struct{})

	var mu sync.Mutex
	var hookCalls int
	var hookErr error

	r := NewRefresher(func(ctx context.Context) error {
		<-gate
		return boom
	}, 0, func(ctx context.Context, err error) {
		mu.Lock()
		hookCalls++
		hookErr = err
		mu.Unlock()
	})

	type result struct {
		err      error
		hookSeen bool
	}
	results := make(chan result, 3)
	for i := 0; i < 3; i++ {
		go func() {
			err := r.Refresh(context.Background())
			mu.Lock()
			seen := hookCalls > 0
			mu.Unlock()
			results <- result{err: err, hookSeen: seen}
		}()
	}

	require.Eventually(t, func() bool { return r.Pending() == 2 }, time.Second, time.Millisecond)
	close(gate)

	for i := 0; i < 3; i++ {
		res := <-results
		require.ErrorIs(t, res.err, boom)
		require.True(t, res.hookSeen, "queue must be drained after the failure hook")
	}

	mu.Lock()
	require.Equal(t, 1, hookCalls)
	require.ErrorIs(t, hookErr, boom)
	mu.Unlock()
	require.False(t, r.InFlight())

	// следующий вызов — новое обновление.
	require.ErrorIs(t, r.Refresh(context.Background()), boom)
	require.Equal(t, 2, r.Calls())
}

func TestRefresher_WaiterLeavesOnContext(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	defer close(gate)

	r := NewRefresher(func(ctx context.Context) error {
		<-gate
		return nil
	}, 0, nil)

	go func() { _ = r.Refresh(context.Background()) }()
	require.Eventually(t, r.InFlight, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, r.Refresh(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, r.Calls())
}

func TestRefresher_LeaderCancelDoesNotAbortRefresh(t *testing.T) {
	t.Parallel()

	var sawCancel bool
	r := NewRefresher(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		sawCancel = ctx.Err() != nil
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		return nil
	}, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Refresh(ctx))
	require.False(t, sawCancel)
}

func TestRefresher_PanicClearsFlag(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	r := NewRefresher(func(ctx context.Context) error {
		<-gate
		panic("boom")
	}, 0, nil)

	waiter := make(chan error, 1)
	go func() {
		defer func() { _ = recover() }()
		_ = r.Refresh(context.Background())
	}()
	require.Eventually(t, r.InFlight, time.Second, time.Millisecond)

	go func() { waiter <- r.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return r.Pending() == 1 }, time.Second, time.Millisecond)

	close(gate)
	require.ErrorIs(t, <-waiter, ErrRefreshAborted)
	require.Eventually(t, func() bool { return !r.InFlight() }, time.Second, time.Millisecond)
}
