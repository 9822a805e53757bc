package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/tinode-client-go/internal/session"
	"github.com/lk2023060901/tinode-client-go/pkg/log"
	"github.com/lk2023060901/tinode-client-go/pkg/metrics"
	"github.com/lk2023060901/tinode-client-go/pkg/util/conc"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultInitialBackoff   = 500 * time.Millisecond
	defaultMaxBackoff       = 2 * time.Minute
)

// Config 为 websocket 传输的连接参数。
type Config struct {
	// URL 为 ws:// 或 wss:// 端点。
	URL string
	// RequestHeader 为握手时附带的 HTTP 头，API key 等放在这里。
	RequestHeader http.Header

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// InitialBackoff/MaxBackoff 控制自动重连的指数退避。
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxReconnectAttempts 为 0 时不限次数。
	MaxReconnectAttempts int
}

func (cfg *Config) withDefaults() {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
}

// Conn 是基于 gorilla/websocket 的 session.Transport 实现。
//
// 协议帧走文本消息，一帧一条。连接意外断开后按指数退避自动重连，
// 重连期间 TriggerReconnect 可跳过剩余等待。
type Conn struct {
	cfg     Config
	handler session.TransportHandler

	// mu 保护 conn、stopCh 以及写操作；gorilla 连接同一时刻只允许一个写方。
	mu     sync.Mutex
	conn   *websocket.Conn
	stopCh chan struct{}

	connected atomic.Bool
	waiting   atomic.Bool
	stopped   atomic.Bool

	autoReconnect bool
	retryNow      chan struct{}
}

var _ session.Transport = (*Conn)(nil)

// New 创建一个未连接的 websocket 传输。
func New(cfg Config) *Conn {
	cfg.withDefaults()
	return &Conn{
		cfg:      cfg,
		retryNow: make(chan struct{}, 1),
	}
}

// SetHandler 实现 session.Transport。
func (c *Conn) SetHandler(h session.TransportHandler) {
	c.handler = h
}

// Connect 实现 session.Transport。
func (c *Conn) Connect(ctx context.Context, autoReconnect bool) error {
	if c.handler == nil {
		return merr.WrapErrInvalidState("no handler", "SetHandler must be called before Connect")
	}
	if c.connected.Load() {
		return nil
	}

	c.autoReconnect = autoReconnect
	c.stopped.Store(false)
	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		return err
	}
	c.handler.OnTransportConnected(false)
	return nil
}

func (c *Conn) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.RequestHeader)
	if err != nil {
		if resp != nil {
			return merr.WrapErrConnection(err, "dial "+c.cfg.URL+": "+resp.Status)
		}
		return merr.WrapErrConnection(err, "dial "+c.cfg.URL)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)

	conc.Go(func() (any, error) {
		c.readLoop(conn)
		return nil, nil
	})
	return nil
}

// Disconnect 实现 session.Transport。
func (c *Conn) Disconnect() {
	c.stopped.Store(true)

	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.connected.Store(false)
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

// Send 实现 session.Transport。一次调用写一帧文本消息。
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return merr.WrapErrNotConnected("send")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	err := conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		return merr.WrapErrConnection(err, "write")
	}
	return nil
}

// IsConnected 实现 session.Transport。
func (c *Conn) IsConnected() bool {
	return c.connected.Load()
}

// IsWaitingToReconnect 实现 session.Transport。
func (c *Conn) IsWaitingToReconnect() bool {
	return c.waiting.Load()
}

// TriggerReconnect 实现 session.Transport。
func (c *Conn) TriggerReconnect() {
	if !c.waiting.Load() {
		return
	}
	select {
	case c.retryNow <- struct{}{}:
	default:
	}
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(conn, err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handler.OnTransportMessage(data)
	}
}

// handleReadError 处理接收协程退出。
// 只有当前连接的错误才算断开；主动 Disconnect 引发的错误不再上报。
func (c *Conn) handleReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()
	if !current {
		return
	}

	c.connected.Store(false)
	_ = conn.Close()

	if c.stopped.Load() {
		return
	}

	byServer := false
	code := 0
	reason := err.Error()
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		byServer = true
		code = closeErr.Code
		reason = closeErr.Text
	}

	log.Warn("connection lost", zap.Error(err), zap.Bool("byServer", byServer))
	c.handler.OnTransportError(err)
	c.handler.OnTransportDisconnected(byServer, code, reason)

	if c.autoReconnect {
		conc.Go(func() (any, error) {
			c.reconnectLoop()
			return nil, nil
		})
	}
}

// reconnectLoop 按指数退避重建连接，直到成功、被 Disconnect 终止
// 或达到尝试次数上限。
func (c *Conn) reconnectLoop() {
	c.waiting.Store(true)
	defer c.waiting.Store(false)

	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()
	if stopCh == nil {
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0

	for attempt := 1; ; attempt++ {
		wait := bo.NextBackOff()
		log.Info("reconnect scheduled",
			zap.Duration("wait", wait), zap.Int("attempt", attempt))

		select {
		case <-stopCh:
			return
		case <-c.retryNow:
		case <-time.After(wait):
		}
		if c.stopped.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			metrics.Reconnects.Inc()
			c.waiting.Store(false)
			c.handler.OnTransportConnected(true)
			return
		}

		log.Warn("reconnect attempt failed", zap.Error(err), zap.Int("attempt", attempt))
		c.handler.OnTransportError(err)
		if c.cfg.MaxReconnectAttempts > 0 && attempt >= c.cfg.MaxReconnectAttempts {
			log.Warn("giving up on reconnecting",
				zap.Int("attempts", attempt), zap.String("url", c.cfg.URL))
			return
		}
	}
}
