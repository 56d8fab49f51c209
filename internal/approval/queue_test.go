package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	results map[string][]Result
}

func newRecorder() *recorder {
	return &recorder{results: make(map[string][]Result)}
}

func (r *recorder) callback(key string) func(Result) {
	return func(res Result) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.results[key] = append(r.results[key], res)
	}
}

func (r *recorder) get(key string) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[key]
}

func newQueue(opts ...Option) *Queue {
	return NewQueue(time2.NewMockClock(time.Now()), opts...)
}

func TestQueueFIFO(t *testing.T) {
	q := newQueue()
	rec := newRecorder()

	first := q.Push(Request{Kind: KindIdentity, Origin: "a"}, rec.callback("a"))
	second := q.Push(Request{Kind: KindSignature, Origin: "b"}, rec.callback("b"))

	active, ok := q.Active()
	require.True(t, ok)
	assert.Equal(t, first, active.ID)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, second, pending[1].ID)

	// 只能解决活动条目
	err := q.Resolve(second, Result{Accepted: true})
	assert.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, q.Resolve(first, Result{Accepted: true}))
	assert.Equal(t, []Result{{Accepted: true}}, rec.get("a"))
	assert.Empty(t, rec.get("b"))

	active, ok = q.Active()
	require.True(t, ok)
	assert.Equal(t, second, active.ID)

	require.NoError(t, q.Dismiss(second))
	assert.Equal(t, []Result{{Accepted: false}}, rec.get("b"))

	_, ok = q.Active()
	assert.False(t, ok)
}

func TestQueueResolvesExactlyOnce(t *testing.T) {
	q := newQueue()
	rec := newRecorder()

	id := q.Push(Request{Kind: KindIdentity}, rec.callback("a"))
	require.NoError(t, q.Resolve(id, Result{Accepted: true}))

	assert.ErrorIs(t, q.Resolve(id, Result{Accepted: false}), ErrNotFound)
	assert.ErrorIs(t, q.Dismiss(id), ErrNotFound)
	q.Close()

	assert.Len(t, rec.get("a"), 1)
}

func TestQueueClose(t *testing.T) {
	q := newQueue()
	rec := newRecorder()

	q.Push(Request{Kind: KindIdentity}, rec.callback("a"))
	q.Push(Request{Kind: KindSignature}, rec.callback("b"))
	q.Close()

	assert.Equal(t, []Result{Rejected()}, rec.get("a"))
	assert.Equal(t, []Result{Rejected()}, rec.get("b"))
	assert.Empty(t, q.Pending())

	// 关闭后入队立即拒绝
	q.Push(Request{Kind: KindNetwork}, rec.callback("c"))
	assert.Equal(t, []Result{Rejected()}, rec.get("c"))
	assert.Empty(t, q.Pending())

	q.Close()
	assert.Len(t, rec.get("a"), 1)
}

func TestQueueAwait(t *testing.T) {
	presented := make(chan Request, 1)
	q := newQueue(WithPresenter(PresenterFunc(func(req Request) {
		presented <- req
	})))

	done := make(chan Result, 1)
	go func() {
		res, err := q.Await(context.Background(), Request{Kind: KindSignature, Origin: "a"})
		assert.NoError(t, err)
		done <- res
	}()

	var req Request
	select {
	case req = <-presented:
	case <-time.After(time.Second):
		t.Fatal("approval was not presented")
	}
	assert.Equal(t, "a", req.Origin)

	require.NoError(t, q.Resolve(req.ID, Result{Accepted: true, LocationID: "home"}))

	select {
	case res := <-done:
		assert.True(t, res.Accepted)
		assert.Equal(t, "home", res.LocationID)
	case <-time.After(time.Second):
		t.Fatal("await did not return")
	}
}

func TestQueueAwaitTimeoutKeepsEntry(t *testing.T) {
	q := newQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res, err := q.Await(ctx, Request{Kind: KindSignature})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Accepted)

	pending := q.Pending()
	require.Len(t, pending, 1)

	// 之后仍可解决，不会阻塞
	require.NoError(t, q.Resolve(pending[0].ID, Result{Accepted: true}))
	assert.Empty(t, q.Pending())
}

func TestQueuePushNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	q := newQueue(WithPresenter(PresenterFunc(func(req Request) {
		<-block
	})))
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Push(Request{Kind: KindIdentity}, func(Result) {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked")
	}
	assert.Len(t, q.Pending(), 100)
}

func TestQueuePendingGauge(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_pending"})
	q := newQueue(WithPendingGauge(gauge))

	id := q.Push(Request{Kind: KindIdentity}, func(Result) {})
	q.Push(Request{Kind: KindIdentity}, func(Result) {})
	assert.Equal(t, float64(2), gaugeValue(t, gauge))

	require.NoError(t, q.Resolve(id, Result{}))
	assert.Equal(t, float64(1), gaugeValue(t, gauge))

	q.Close()
	assert.Equal(t, float64(0), gaugeValue(t, gauge))
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
