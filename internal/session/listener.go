package session

import (
	"sync"

	"github.com/lk2023060901/tinode-client-go/internal/wire"
)

// Listener 接收会话级事件。
//
// 回调在会话的接收协程上顺序执行，实现不应在回调里做阻塞操作；
// 需要长时间处理时自行切换协程。
type Listener interface {
	// OnConnect 在与服务器完成握手后调用。
	OnConnect(code int, text string, params map[string]any)

	// OnDisconnect 在连接断开后调用。byServer 表示断开是否由服务器发起。
	OnDisconnect(byServer bool, code int, reason string)

	// OnLogin 在每次登录尝试有结果后调用，无论成功失败。
	OnLogin(code int, text string)

	// OnMessage 在每条入站消息解码成功后调用。
	OnMessage(msg *wire.ServerMessage)

	// OnRawMessage 在每条入站帧解码之前调用，参数为帧原文。
	OnRawMessage(text string)

	// OnCtrlMessage 在收到 ctrl 消息时调用。
	OnCtrlMessage(ctrl *wire.MsgServerCtrl)

	// OnDataMessage 在收到 data 消息时调用。
	OnDataMessage(data *wire.MsgServerData)

	// OnInfoMessage 在收到 info 消息时调用。
	OnInfoMessage(info *wire.MsgServerInfo)

	// OnMetaMessage 在收到 meta 消息时调用。
	OnMetaMessage(meta *wire.MsgServerMeta)

	// OnPresMessage 在收到 pres 消息时调用。
	OnPresMessage(pres *wire.MsgServerPres)
}

// ListenerBase 提供 Listener 的全空实现，方便只关心部分事件的调用方内嵌。
type ListenerBase struct{}

func (ListenerBase) OnConnect(code int, text string, params map[string]any) {}
func (ListenerBase) OnDisconnect(byServer bool, code int, reason string)    {}
func (ListenerBase) OnLogin(code int, text string)                          {}
func (ListenerBase) OnMessage(msg *wire.ServerMessage)                      {}
func (ListenerBase) OnRawMessage(text string)                               {}
func (ListenerBase) OnCtrlMessage(ctrl *wire.MsgServerCtrl)                 {}
func (ListenerBase) OnDataMessage(data *wire.MsgServerData)                 {}
func (ListenerBase) OnInfoMessage(info *wire.MsgServerInfo)                 {}
func (ListenerBase) OnMetaMessage(meta *wire.MsgServerMeta)                 {}
func (ListenerBase) OnPresMessage(pres *wire.MsgServerPres)                 {}

// listenerSet 维护一组监听器，按注册顺序广播事件。
// 同一个监听器重复注册只保留一份，按实例身份去重。
type listenerSet struct {
	mu        sync.Mutex
	listeners []Listener
}

// Add 注册一个监听器；已注册过的实例不重复加入，返回是否加入。
func (ls *listenerSet) Add(l Listener) bool {
	if l == nil {
		return false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for _, existing := range ls.listeners {
		if existing == l {
			return false
		}
	}
	ls.listeners = append(ls.listeners, l)
	return true
}

// Remove 注销一个监听器，按实例身份匹配；返回是否确实移除了。
func (ls *listenerSet) Remove(l Listener) bool {
	if l == nil {
		return false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, existing := range ls.listeners {
		if existing == l {
			ls.listeners = append(ls.listeners[:i], ls.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot 返回当前监听器列表的拷贝，广播时不持有锁。
func (ls *listenerSet) snapshot() []Listener {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make([]Listener, len(ls.listeners))
	copy(out, ls.listeners)
	return out
}

func (ls *listenerSet) OnConnect(code int, text string, params map[string]any) {
	for _, l := range ls.snapshot() {
		l.OnConnect(code, text, params)
	}
}

func (ls *listenerSet) OnDisconnect(byServer bool, code int, reason string) {
	for _, l := range ls.snapshot() {
		l.OnDisconnect(byServer, code, reason)
	}
}

func (ls *listenerSet) OnLogin(code int, text string) {
	for _, l := range ls.snapshot() {
		l.OnLogin(code, text)
	}
}

func (ls *listenerSet) OnMessage(msg *wire.ServerMessage) {
	for _, l := range ls.snapshot() {
		l.OnMessage(msg)
	}
}

func (ls *listenerSet) OnRawMessage(text string) {
	for _, l := range ls.snapshot() {
		l.OnRawMessage(text)
	}
}

func (ls *listenerSet) OnCtrlMessage(ctrl *wire.MsgServerCtrl) {
	for _, l := range ls.snapshot() {
		l.OnCtrlMessage(ctrl)
	}
}

func (ls *listenerSet) OnDataMessage(data *wire.MsgServerData) {
	for _, l := range ls.snapshot() {
		l.OnDataMessage(data)
	}
}

func (ls *listenerSet) OnInfoMessage(info *wire.MsgServerInfo) {
	for _, l := range ls.snapshot() {
		l.OnInfoMessage(info)
	}
}

func (ls *listenerSet) OnMetaMessage(meta *wire.MsgServerMeta) {
	for _, l := range ls.snapshot() {
		l.OnMetaMessage(meta)
	}
}

func (ls *listenerSet) OnPresMessage(pres *wire.MsgServerPres) {
	for _, l := range ls.snapshot() {
		l.OnPresMessage(pres)
	}
}
