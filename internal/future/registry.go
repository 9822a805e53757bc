package future

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/tinode-client-go/pkg/log"
	"github.com/lk2023060901/tinode-client-go/pkg/metrics"
	"github.com/lk2023060901/tinode-client-go/pkg/util/conc"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

const (
	// defaultSweepInterval 为后台清理协程的运行间隔。
	defaultSweepInterval = 3 * time.Second
	// defaultExpireAfter 为在途请求等待应答的最长时间，
	// 超过后以 ctrl{code: 504, text: "timeout"} 语义拒绝。
	defaultExpireAfter = 5 * time.Second
)

// Registry 维护消息 id 到 PendingReply 的映射。
//
// 锁只保护 map 本身；结算回调一律在临界区之外执行，
// 避免与入站分发线程互相死锁。
type Registry struct {
	mu      sync.Mutex
	pending map[string]*PendingReply

	sweepInterval time.Duration
	expireAfter   time.Duration

	closeOnce sync.Once
	closeCh   chan struct{}
}

// Option 用于调整 Registry 行为，主要供测试缩短时间参数。
type Option func(*Registry)

func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.sweepInterval = d
	}
}

func WithExpireAfter(d time.Duration) Option {
	return func(r *Registry) {
		r.expireAfter = d
	}
}

// NewRegistry 创建一个 Registry 并启动后台清理协程。
// 不再使用时必须调用 Close，否则清理协程不会退出。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		pending:       make(map[string]*PendingReply),
		sweepInterval: defaultSweepInterval,
		expireAfter:   defaultExpireAfter,
		closeCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	conc.Go(func() (any, error) {
		r.sweepLoop()
		return nil, nil
	})

	return r
}

// Add 注册一条 id 对应的在途请求。
// 同一 id 已存在时返回 ErrInvalidState。
func (r *Registry) Add(id string) (*PendingReply, error) {
	if id == "" {
		return nil, merr.WrapErrInvalidArgument("id", id, "empty message id")
	}

	r.mu.Lock()
	if _, exists := r.pending[id]; exists {
		r.mu.Unlock()
		return nil, merr.WrapErrInvalidState("duplicate", "message id already pending: "+id)
	}
	p := newPendingReply(id)
	r.pending[id] = p
	r.mu.Unlock()

	metrics.PendingRequests.Inc()
	return p, nil
}

// Take 取出并移除 id 对应的在途请求。
func (r *Registry) Take(id string) (*PendingReply, bool) {
	r.mu.Lock()
	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if ok {
		metrics.PendingRequests.Dec()
	}
	return p, ok
}

// Len 返回当前在途请求数量。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// PurgeAll 取出全部在途请求并以给定错误拒绝。
// 用于连接断开或会话关闭时批量失败。
func (r *Registry) PurgeAll(err error) {
	r.mu.Lock()
	victims := make([]*PendingReply, 0, len(r.pending))
	for id, p := range r.pending {
		victims = append(victims, p)
		delete(r.pending, id)
	}
	r.mu.Unlock()

	metrics.PendingRequests.Sub(float64(len(victims)))
	for _, p := range victims {
		p.Reject(err)
	}
}

// Close 停止后台清理协程，并以 ErrNotConnected 拒绝所有在途请求。
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.closeCh)
		r.PurgeAll(merr.WrapErrNotConnected("shutdown"))
	})
}

// sweepLoop 周期性清理等待超时的请求。
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.closeCh:
			return
		case <-ticker.C:
			r.sweepExpired()
		}
	}
}

func (r *Registry) sweepExpired() {
	deadline := time.Now().Add(-r.expireAfter)

	r.mu.Lock()
	var victims []*PendingReply
	for id, p := range r.pending {
		if p.createdAt.Before(deadline) {
			victims = append(victims, p)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	if len(victims) == 0 {
		return
	}

	metrics.PendingRequests.Sub(float64(len(victims)))
	metrics.RequestTimeouts.Add(float64(len(victims)))
	for _, p := range victims {
		log.Warn("request timed out waiting for server reply", log.FieldMsgID(p.id), zap.Time("createdAt", p.createdAt))
		p.Reject(merr.NewErrReplyTimeout())
	}
}
