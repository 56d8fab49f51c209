package approval

import (
	"context"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrNotFound  = errors.New("approval not found")
	ErrNotActive = errors.New("approval is not active")
)

type entry struct {
	req        Request
	onResolved func(Result)
}

// Queue 审批队列：同一时间只有队首一个条目展示给持有者，其余按到达顺序排队
// 每个条目恰好被解决一次
type Queue struct {
	mu        deadlock.Mutex
	entries   []*entry
	closed    bool
	clock     time2.Clock
	presenter Presenter
	pending   prometheus.Gauge
}

type Option func(q *Queue)

func WithPresenter(p Presenter) Option {
	return func(q *Queue) {
		q.presenter = p
	}
}

func WithPendingGauge(g prometheus.Gauge) Option {
	return func(q *Queue) {
		q.pending = g
	}
}

func NewQueue(clock time2.Clock, opts ...Option) *Queue {
	q := &Queue{clock: clock}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push 入队并立即返回审批ID，onResolved 之后恰好被调用一次
// 队列关闭后入队的请求立即被拒绝
func (q *Queue) Push(req Request, onResolved func(Result)) string {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = q.clock.Now().UTC()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Debug().Str("approval_id", req.ID).Msg("Approval queue closed, rejecting")
		onResolved(Rejected())
		return req.ID
	}
	q.entries = append(q.entries, &entry{req: req, onResolved: onResolved})
	becameActive := len(q.entries) == 1
	q.updateGauge()
	q.mu.Unlock()

	log.Debug().
		Str("approval_id", req.ID).
		Str("kind", string(req.Kind)).
		Str("origin", req.Origin).
		Bool("active", becameActive).
		Msg("Approval queued")

	if becameActive {
		q.present(req)
	}
	return req.ID
}

// Await 入队并等待结果，ctx 结束时返回错误，条目保留在队列中
func (q *Queue) Await(ctx context.Context, req Request) (Result, error) {
	ch := make(chan Result, 1)
	id := q.Push(req, func(r Result) {
		ch <- r
	})

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		log.Warn().Str("approval_id", id).Msg("Stopped waiting for approval")
		return Rejected(), ctx.Err()
	}
}

// Active 当前展示给持有者的条目
func (q *Queue) Active() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Request{}, false
	}
	return q.entries[0].req, true
}

// Pending 所有未解决条目，按到达顺序
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Request, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.req)
	}
	return out
}

// Resolve 解决当前活动条目
func (q *Queue) Resolve(id string, result Result) error {
	q.mu.Lock()
	if len(q.entries) == 0 || q.entries[0].req.ID != id {
		for _, e := range q.entries {
			if e.req.ID == id {
				q.mu.Unlock()
				return errors.Wrapf(ErrNotActive, "approval %s", id)
			}
		}
		q.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "approval %s", id)
	}

	resolved := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	var next *Request
	if len(q.entries) > 0 {
		next = &q.entries[0].req
	}
	q.updateGauge()
	q.mu.Unlock()

	log.Info().
		Str("approval_id", id).
		Str("kind", string(resolved.req.Kind)).
		Bool("accepted", result.Accepted).
		Msg("Approval resolved")

	resolved.onResolved(result)

	if next != nil {
		q.present(*next)
	}
	return nil
}

// Dismiss 持有者未做明确决定即关闭，视为拒绝
func (q *Queue) Dismiss(id string) error {
	return q.Resolve(id, Rejected())
}

// Close 会话结束：拒绝所有未解决条目，之后的入队立即被拒绝
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	entries := q.entries
	q.entries = nil
	q.updateGauge()
	q.mu.Unlock()

	for _, e := range entries {
		e.onResolved(Rejected())
	}

	log.Info().Int("rejected", len(entries)).Msg("Approval queue closed")
}

func (q *Queue) present(req Request) {
	if q.presenter == nil {
		return
	}
	go q.presenter.Present(req)
}

// 调用方持有锁
func (q *Queue) updateGauge() {
	if q.pending != nil {
		q.pending.Set(float64(len(q.entries)))
	}
}
