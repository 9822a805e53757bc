package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/tinode-client-go/internal/future"
	"github.com/lk2023060901/tinode-client-go/internal/wire"
	"github.com/lk2023060901/tinode-client-go/pkg/log"
	"github.com/lk2023060901/tinode-client-go/pkg/metrics"
	"github.com/lk2023060901/tinode-client-go/pkg/util/conc"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

const (
	// ProtocolVersion 为 hi 消息上报的协议版本。
	ProtocolVersion = "0.16"
	// LibraryVersion 为客户端库自身的版本。
	LibraryVersion = "1.0.0"

	libraryName   = "tinode-golang"
	channelsPath  = "/v0/channels"
	defaultLocale = "en-US"
)

// ConnState 表示会话的连接状态。
type ConnState int32

const (
	// StateDisconnected 表示未连接。
	StateDisconnected ConnState = iota
	// StateConnecting 表示正在建立连接。
	StateConnecting
	// StateConnectedUnauth 表示已连接但尚未通过认证。
	StateConnectedUnauth
	// StateConnectedAuth 表示已连接且已通过认证。
	StateConnectedAuth
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnectedUnauth:
		return "connected"
	case StateConnectedAuth:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Config 为创建会话所需的全部依赖与参数。
type Config struct {
	// AppName 为上报给服务器的应用名，出现在 user-agent 中。
	AppName string
	// Locale 为 BCP 47 语言标签，随 hi 消息上报。
	Locale string
	// Platform 为平台标识（web/ios/android），可为空。
	Platform string
	// OSVersion 为操作系统版本描述，出现在 user-agent 中。
	OSVersion string

	// Transport 为底层连接，必填。
	Transport Transport
	// Store 为本地持久化存储，可为 nil（纯内存会话）。
	Store Store
	// TopicFactory 在收到未知主题的 meta 消息时创建句柄，可为 nil。
	TopicFactory TopicFactory

	// RegistryOptions 透传给在途请求注册表，主要供测试缩短超时。
	RegistryOptions []future.Option
}

// Session 是与服务器的一条逻辑会话。
//
// 一个 Session 绑定一个 Transport，可跨多次物理连接存活；
// 入站消息在单一接收协程上分发，出站请求通过应答占位异步等待。
type Session struct {
	appName   string
	locale    string
	platform  string
	osVersion string

	transport    Transport
	store        Store
	topicFactory TopicFactory

	futures   *future.Registry
	listeners listenerSet
	ids       idGenerator

	state atomic.Int32

	myUID         atomic.String
	authToken     atomic.String
	deviceToken   atomic.String
	serverVersion atomic.String
	serverBuild   atomic.String

	timeAdjustment atomic.Duration

	connAuth        atomic.Bool
	loginInProgress atomic.Bool
	autoLogin       atomic.Bool
	topicsLoaded    atomic.Bool

	// credMu 保护自动登录凭据。
	credMu      sync.Mutex
	loginScheme string
	loginSecret string

	// opMu 串行化连接生命周期操作（Connect/Disconnect/ReconnectNow）。
	opMu sync.Mutex

	topicsMu      sync.Mutex
	topics        map[string]Topic
	topicsUpdated time.Time

	usersMu sync.Mutex
	users   map[string]*User
	userSF  singleflight.Group
}

// New 创建一个会话并把自己注册为 Transport 的事件接收方。
// 不再使用时必须调用 Close。
func New(cfg Config) (*Session, error) {
	if cfg.Transport == nil {
		return nil, merr.WrapErrInvalidArgument("transport", nil, "transport is required")
	}

	s := &Session{
		appName:      cfg.AppName,
		locale:       cfg.Locale,
		platform:     cfg.Platform,
		osVersion:    cfg.OSVersion,
		transport:    cfg.Transport,
		store:        cfg.Store,
		topicFactory: cfg.TopicFactory,
		futures:      future.NewRegistry(cfg.RegistryOptions...),
		topics:       make(map[string]Topic),
		users:        make(map[string]*User),
	}
	if s.locale == "" {
		s.locale = defaultLocale
	}
	if s.store != nil && s.store.IsReady() {
		s.myUID.Store(s.store.MyUID())
		s.deviceToken.Store(s.store.DeviceToken())
	}

	s.transport.SetHandler(s)
	return s, nil
}

// BuildEndpointURL 根据主机名拼出协议端点。
// websock 为 true 时返回 ws/wss 端点，否则返回 http/https 端点。
func BuildEndpointURL(host string, tls bool, websock bool) string {
	scheme := "http"
	if websock {
		scheme = "ws"
	}
	if tls {
		scheme += "s"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, channelsPath)
}

// Connect 建立到服务器的连接。已连接时直接返回 nil。
// 连接建立后会话自动发送握手消息；结果通过 OnConnect 监听事件通知。
func (s *Session) Connect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.transport.IsConnected() {
		return nil
	}
	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx, true); err != nil {
		s.setState(StateDisconnected)
		return merr.WrapErrConnection(err, "connect")
	}
	return nil
}

// Disconnect 主动断开连接。
// 返回前所有在途请求已经以"未连接"错误结算，不存在悬挂的等待方。
func (s *Session) Disconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.transport.Disconnect()
	s.handleDisconnected(false, 0, "client disconnect")
}

// ReconnectNow 请求立即恢复连接。
//   - 未连接且不在自动重连等待中：立即发起新连接；
//   - 已连接且 reset 为 true：断开后重建；
//   - 正在等待自动重连且 interactively 为 true：跳过剩余退避立即尝试。
func (s *Session) ReconnectNow(interactively bool, reset bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.transport.IsConnected() && !s.transport.IsWaitingToReconnect() {
		return s.connectLocked(context.Background())
	}
	if s.transport.IsConnected() {
		if !reset {
			return nil
		}
		s.transport.Disconnect()
		s.handleDisconnected(false, 0, "client reset")
		return s.connectLocked(context.Background())
	}
	if interactively {
		s.transport.TriggerReconnect()
	}
	return nil
}

// Close 断开连接并释放会话资源。
func (s *Session) Close() {
	s.Disconnect()
	s.futures.Close()
}

// AddListener 注册一个会话事件监听器。
func (s *Session) AddListener(l Listener) bool {
	return s.listeners.Add(l)
}

// RemoveListener 注销一个会话事件监听器。
func (s *Session) RemoveListener(l Listener) bool {
	return s.listeners.Remove(l)
}

// State 返回当前连接状态。
func (s *Session) State() ConnState {
	return ConnState(s.state.Load())
}

// IsConnected 返回底层连接是否已建立。
func (s *Session) IsConnected() bool {
	return s.transport.IsConnected()
}

// IsAuthenticated 返回当前连接是否已通过认证。
func (s *Session) IsAuthenticated() bool {
	return s.connAuth.Load()
}

// MyUID 返回当前登录用户的 uid；未登录时为空字符串。
func (s *Session) MyUID() string {
	return s.myUID.Load()
}

// IsMe 判断给定 uid 是否为当前登录用户。
func (s *Session) IsMe(uid string) bool {
	return uid != "" && uid == s.myUID.Load()
}

// AuthToken 返回最近一次登录获得的令牌。
func (s *Session) AuthToken() string {
	return s.authToken.Load()
}

// ServerVersion 返回握手时服务器上报的协议版本。
func (s *Session) ServerVersion() string {
	return s.serverVersion.Load()
}

// ServerBuild 返回握手时服务器上报的构建标识。
func (s *Session) ServerBuild() string {
	return s.serverBuild.Load()
}

// TimeAdjustment 返回服务器时钟相对本地时钟的偏移。
func (s *Session) TimeAdjustment() time.Duration {
	return s.timeAdjustment.Load()
}

// NextUniqueString 返回一个进程内唯一的短字符串。
func (s *Session) NextUniqueString() string {
	return s.ids.nextUniqueString()
}

// NewGroupTopicName 生成一个用于创建群组主题的临时名字。
// 服务器确认创建后通过 ChangeTopicName 换成正式名字。
func (s *Session) NewGroupTopicName() string {
	return "new" + s.ids.nextUniqueString()
}

// userAgent 拼出 hi 消息上报的 user-agent 字符串。
func (s *Session) userAgent() string {
	return fmt.Sprintf("%s (%s; %s); %s/%s",
		s.appName, s.osVersion, s.locale, libraryName, LibraryVersion)
}

func (s *Session) setState(next ConnState) {
	prev := ConnState(s.state.Swap(int32(next)))
	if prev != next {
		log.Debug("connection state changed",
			zap.Stringer("from", prev), zap.Stringer("to", next))
	}
}

// updateTimeAdjustment 用服务器应答携带的时间戳刷新时钟偏移。
func (s *Session) updateTimeAdjustment(ts *wire.Time) {
	if ts == nil || ts.IsZero() {
		return
	}
	adj := time.Until(ts.Time)
	s.timeAdjustment.Store(adj)
	if s.store != nil && s.store.IsReady() {
		s.store.SetTimeAdjustment(adj)
	}
}

// OnTransportConnected 实现 TransportHandler。
// 每次物理连接建立后重新播种消息 id 并立即发起握手；
// 开启了自动登录时在握手成功后补发登录。
func (s *Session) OnTransportConnected(reconnecting bool) {
	s.ids.seed()
	s.setState(StateConnectedUnauth)
	log.Info("transport connected", zap.Bool("reconnecting", reconnecting))

	hello := s.Hello()
	conc.Go(func() (any, error) {
		if _, err := hello.Await(context.Background()); err != nil {
			log.Warn("handshake failed", zap.Error(err))
			return nil, nil
		}
		if s.autoLogin.Load() && !s.loginInProgress.Load() {
			if scheme, secret, ok := s.autoLoginCredentials(); ok {
				s.Login(scheme, secret)
			}
		}
		return nil, nil
	})
}

// OnTransportMessage 实现 TransportHandler。
func (s *Session) OnTransportMessage(data []byte) {
	metrics.TransportBytes.WithLabelValues("in").Add(float64(len(data)))
	s.dispatch(data)
}

// OnTransportDisconnected 实现 TransportHandler。
func (s *Session) OnTransportDisconnected(byServer bool, code int, reason string) {
	s.handleDisconnected(byServer, code, reason)
}

// OnTransportError 实现 TransportHandler。
func (s *Session) OnTransportError(err error) {
	log.Warn("transport error", zap.Error(err))
}

// handleDisconnected 把会话切到断开状态。幂等。
// 全部在途请求在本函数返回前结算完毕。
func (s *Session) handleDisconnected(byServer bool, code int, reason string) {
	if ConnState(s.state.Swap(int32(StateDisconnected))) == StateDisconnected {
		return
	}

	s.connAuth.Store(false)
	s.loginInProgress.Store(false)
	s.serverVersion.Store("")
	s.serverBuild.Store("")

	s.futures.PurgeAll(merr.WrapErrNotConnected("disconnected"))

	for _, t := range s.GetTopics() {
		t.TopicLeft(false, 503, "disconnected")
	}

	log.Info("session disconnected",
		zap.Bool("byServer", byServer), zap.Int("code", code), zap.String("reason", reason))
	s.listeners.OnDisconnect(byServer, code, reason)
}

// sendMessage 编码并发送一帧，不登记应答占位。
func (s *Session) sendMessage(msg *wire.ClientMessage) error {
	if !s.transport.IsConnected() {
		return merr.WrapErrNotConnected(msg.TypeLabel())
	}
	data, err := wire.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.transport.Send(data); err != nil {
		return merr.WrapErrConnection(err, "send "+msg.TypeLabel())
	}
	metrics.FramesSent.WithLabelValues(msg.TypeLabel()).Inc()
	metrics.TransportBytes.WithLabelValues("out").Add(float64(len(data)))
	return nil
}

// sendWithReply 发送一帧并登记应答占位。
// 发送失败时占位立即以错误结算，调用方总能安全地 Await。
func (s *Session) sendWithReply(msg *wire.ClientMessage) *future.PendingReply {
	p, err := s.futures.Add(msg.Id())
	if err != nil {
		return future.Rejected(err)
	}
	if err := s.sendMessage(msg); err != nil {
		s.futures.Take(p.ID())
		p.Reject(err)
		return p
	}
	return p
}

// chain 在 inner 的结果之上派生一个新的应答占位。
// onSuccess/onFailure 在独立协程上执行，可以为 nil。
func (s *Session) chain(
	inner *future.PendingReply,
	onSuccess func(msg *wire.ServerMessage) error,
	onFailure func(err error) error,
) *future.PendingReply {
	outer := future.New()
	conc.Go(func() (any, error) {
		msg, err := inner.Await(context.Background())
		if err != nil {
			if onFailure != nil {
				err = onFailure(err)
			}
			outer.Reject(err)
			return nil, nil
		}
		if onSuccess != nil {
			if err := onSuccess(msg); err != nil {
				outer.Reject(err)
				return nil, nil
			}
		}
		outer.Resolve(msg)
		return nil, nil
	})
	return outer
}
