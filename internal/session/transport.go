package session

import (
	"context"
)

// Transport 抽象了会话所依赖的底层连接。
//
// 约定：
//   - 一个 Transport 实例对应一个服务器端点，可多次连接/断开；
//   - Send 只接受完整的一帧，帧与帧之间的先后顺序必须保持；
//   - 重连节奏（退避形状）由 Transport 自行决定，会话层只通过
//     TriggerReconnect 请求立即尝试。
type Transport interface {
	// Connect 建立到服务器的连接。
	// autoReconnect 为 true 时，连接意外断开后由 Transport 自动重连。
	Connect(ctx context.Context, autoReconnect bool) error

	// Disconnect 主动断开连接并停止自动重连。幂等。
	Disconnect()

	// Send 发送一帧数据。未连接时返回错误。
	Send(data []byte) error

	// IsConnected 返回当前是否已连接。
	IsConnected() bool

	// IsWaitingToReconnect 返回当前是否处于等待自动重连的状态。
	IsWaitingToReconnect() bool

	// TriggerReconnect 在等待自动重连时立即发起一次尝试；
	// 其它状态下为空操作。
	TriggerReconnect()

	// SetHandler 注册连接事件的接收方，必须在 Connect 之前调用。
	SetHandler(h TransportHandler)
}

// TransportHandler 描述 Transport 向会话层回调的事件集合。
type TransportHandler interface {
	// OnTransportConnected 在连接建立后调用；reconnecting 表示本次
	// 是否为自动重连。
	OnTransportConnected(reconnecting bool)

	// OnTransportMessage 在收到一帧完整数据时调用。
	// 回调在单一接收协程上按到达顺序执行。
	OnTransportMessage(data []byte)

	// OnTransportDisconnected 在连接断开时调用。
	// byServer 表示断开是否由服务器发起。
	OnTransportDisconnected(byServer bool, code int, reason string)

	// OnTransportError 在收发链路出错时调用，仅用于观测。
	OnTransportError(err error)
}
