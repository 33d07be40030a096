package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingRun 每次执行返回一条带序号的记录
func countingRun(calls *int32) RunFunc {
	return func(context.Context) []collector.Article {
		n := atomic.AddInt32(calls, 1)
		return []collector.Article{{Title: "run", URL: "https://example.com/" + string(rune('a'+n))}}
	}
}

func TestGetCachesWithinDuration(t *testing.T) {
	var calls int32
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(countingRun(&calls), 30*time.Minute, WithClock(clock.Now))

	first, err := s.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(29 * time.Minute)
	second, err := s.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, second, 1)
	assert.Same(t, &first[0], &second[0], "cached slice is returned unchanged")
	assert.Equal(t, clock.Now().Add(-29*time.Minute), s.Snapshot().FetchedAt)
}

func TestGetRerunsAfterExpiry(t *testing.T) {
	var calls int32
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(countingRun(&calls), 30*time.Minute, WithClock(clock.Now))

	_, err := s.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(31 * time.Minute)
	_, err = s.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetRerunsWhenEmpty(t *testing.T) {
	var calls int32
	s := NewStore(func(context.Context) []collector.Article {
		atomic.AddInt32(&calls, 1)
		return nil
	}, time.Hour)

	for i := 0; i < 3; i++ {
		got, err := s.Get(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.False(t, s.Snapshot().FetchedAt.IsZero())
}

func TestForceRefreshAlwaysRuns(t *testing.T) {
	var calls int32
	s := NewStore(countingRun(&calls), time.Hour)

	_, err := s.Get(context.Background())
	require.NoError(t, err)
	got, err := s.ForceRefresh(context.Background())
	require.NoError(t, err)
	_, err = s.ForceRefresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, got, 1)
}

func TestConcurrentStaleReadsShareOneRun(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	s := NewStore(func(context.Context) []collector.Article {
		atomic.AddInt32(&calls, 1)
		<-release
		return []collector.Article{{URL: "https://example.com/shared"}}
	}, time.Hour)

	const readers = 8
	var wg sync.WaitGroup
	results := make([][]collector.Article, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := s.Get(context.Background())
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, "https://example.com/shared", r[0].URL)
	}
}

func TestForceRefreshSupersedesInFlightRun(t *testing.T) {
	var calls int32
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	s := NewStore(func(context.Context) []collector.Article {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-releaseFirst
			return []collector.Article{{URL: "https://example.com/stale"}}
		}
		return []collector.Article{{URL: "https://example.com/fresh"}}
	}, time.Hour)

	done := make(chan []collector.Article)
	go func() {
		got, _ := s.Get(context.Background())
		done <- got
	}()
	<-firstStarted

	fresh, err := s.ForceRefresh(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "https://example.com/fresh", fresh[0].URL)

	close(releaseFirst)
	stale := <-done
	require.Len(t, stale, 1)
	assert.Equal(t, "https://example.com/stale", stale[0].URL)

	snap := s.Snapshot()
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "https://example.com/fresh", snap.Articles[0].URL, "superseded run must not overwrite the cache")
}

func TestGetReturnsContextErrorWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := NewStore(func(context.Context) []collector.Article {
		<-release
		return []collector.Article{{URL: "https://example.com/late"}}
	}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSnapshotDoesNotTriggerRun(t *testing.T) {
	var calls int32
	s := NewStore(countingRun(&calls), time.Hour)

	snap := s.Snapshot()
	assert.Empty(t, snap.Articles)
	assert.True(t, snap.FetchedAt.IsZero())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, time.Hour, s.Duration())
}
