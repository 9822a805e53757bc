package session

import (
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/atomic"
)

// uniqueIDEpoch 是生成唯一字符串用的本地纪元（毫秒）。
const uniqueIDEpoch = 1414213562373

// idGenerator 负责生成消息 id 与进程内唯一的字符串。
// 所有方法并发安全。
type idGenerator struct {
	msgID   atomic.Int64
	counter atomic.Int64
}

// seed 重置消息 id 序列的起点。每次连接建立时调用一次，
// 避免重连后与上一条连接的在途 id 冲突。
func (g *idGenerator) seed() {
	g.msgID.Store(0xffff + rand.Int63n(0x10000))
}

// nextID 返回下一个消息 id（十进制字符串，单调递增）。
func (g *idGenerator) nextID() string {
	return strconv.FormatInt(g.msgID.Inc(), 10)
}

// nextUniqueString 返回一个进程内唯一的短字符串，
// 由毫秒时间戳与环回计数器拼接后按 base32 编码。
func (g *idGenerator) nextUniqueString() string {
	v := (time.Now().UnixMilli()-uniqueIDEpoch)<<16 | (g.counter.Inc() & 0xffff)
	return strconv.FormatInt(v, 32)
}
