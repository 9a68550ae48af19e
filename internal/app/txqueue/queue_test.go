package txqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsTasksOneAtATime(t *testing.T) {
	var q Queue
	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, q.Depth())
}

func TestDoPreservesSubmissionOrder(t *testing.T) {
	var q Queue
	release := make(chan struct{})
	started := make(chan struct{})
	var order []int
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	<-started

	for i := 1; i <= 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		require.Eventually(t, func() bool { return q.Depth() == i+1 }, time.Second, time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func TestDoReturnsOwnErrorAndKeepsGoing(t *testing.T) {
	var q Queue
	boom := errors.New("boom")

	err := q.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ran := false
	err = q.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestDoSurvivesPanickingTask(t *testing.T) {
	var q Queue
	assert.Panics(t, func() {
		_ = q.Do(context.Background(), func(context.Context) error { panic("task panic") })
	})

	done := make(chan error, 1)
	go func() { done <- q.Do(context.Background(), func(context.Context) error { return nil }) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("queue stalled after panic")
	}
}

func TestDoCancelledWhileWaitingSkipsTaskButKeepsOrder(t *testing.T) {
	var q Queue
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		cancelled <- q.Do(ctx, func(context.Context) error {
			t.Error("cancelled task must not run")
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Depth() == 2 }, time.Second, time.Millisecond)

	thirdRan := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(context.Context) error {
			close(thirdRan)
			return nil
		})
	}()

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	select {
	case <-thirdRan:
		t.Fatal("third task ran before the first settled")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-thirdRan:
	case <-time.After(time.Second):
		t.Fatal("third task never ran")
	}
}
