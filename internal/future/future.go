package future

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/tinode-client-go/internal/wire"
)

// PendingReply 表示一条在途请求的应答占位。
//
// 约定：
//   - 结算（Resolve/Reject）是幂等的，只有第一次生效；
//   - 结算之后 Await 立即返回，重复 Await 返回相同结果。
type PendingReply struct {
	id        string
	createdAt time.Time

	once sync.Once
	done chan struct{}

	msg *wire.ServerMessage
	err error
}

func newPendingReply(id string) *PendingReply {
	return &PendingReply{
		id:        id,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// New 构造一个未结算、不属于任何注册表的 PendingReply。
// 用于在另一个请求的结果之上派生新的应答占位。
func New() *PendingReply {
	return newPendingReply("")
}

// Resolved 构造一个已经成功结算的 PendingReply。
// 用于不需要真正发起请求时返回合成应答（例如重复登录）。
func Resolved(msg *wire.ServerMessage) *PendingReply {
	p := newPendingReply("")
	p.Resolve(msg)
	return p
}

// Rejected 构造一个已经失败结算的 PendingReply。
func Rejected(err error) *PendingReply {
	p := newPendingReply("")
	p.Reject(err)
	return p
}

// ID 返回请求的消息 id。
func (p *PendingReply) ID() string {
	return p.id
}

// CreatedAt 返回请求注册的时间。
func (p *PendingReply) CreatedAt() time.Time {
	return p.createdAt
}

// Resolve 以服务器应答结算；返回本次调用是否生效。
func (p *PendingReply) Resolve(msg *wire.ServerMessage) bool {
	settled := false
	p.once.Do(func() {
		p.msg = msg
		close(p.done)
		settled = true
	})
	return settled
}

// Reject 以错误结算；返回本次调用是否生效。
func (p *PendingReply) Reject(err error) bool {
	settled := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done 返回在结算时关闭的 channel。
func (p *PendingReply) Done() <-chan struct{} {
	return p.done
}

// Await 阻塞等待结算或 ctx 取消。
// 调用方提前放弃等待不影响注册表的后续清理。
func (p *PendingReply) Await(ctx context.Context) (*wire.ServerMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.msg, p.err
	}
}
