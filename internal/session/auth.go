package session

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/lk2023060901/tinode-client-go/internal/future"
	"github.com/lk2023060901/tinode-client-go/internal/wire"
)

// 认证相关的登录方案名。
const (
	AuthSchemeBasic = "basic"
	AuthSchemeToken = "token"
)

// BasicCredentials 把用户名和密码编码为 basic 方案的 secret。
func BasicCredentials(uname, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(uname + ":" + password))
}

// LoginBasic 用用户名和密码登录。
func (s *Session) LoginBasic(uname, password string) *future.PendingReply {
	return s.Login(AuthSchemeBasic, BasicCredentials(uname, password))
}

// LoginToken 用令牌登录。
func (s *Session) LoginToken(token string) *future.PendingReply {
	return s.Login(AuthSchemeToken, token)
}

// SetAutoLogin 缓存凭据并开启自动登录：
// 此后每次连接建立并完成握手，会话自动用该凭据补发登录。
// scheme 为空时关闭自动登录并清掉缓存。
func (s *Session) SetAutoLogin(scheme, secret string) {
	if scheme == "" {
		s.autoLogin.Store(false)
		s.clearAutoLoginCredentials()
		return
	}
	s.setAutoLoginCredentials(scheme, secret)
	s.autoLogin.Store(true)
}

// SetAutoLoginToken 用令牌开启自动登录。
func (s *Session) SetAutoLoginToken(token string) {
	s.SetAutoLogin(AuthSchemeToken, token)
}

// Logout 注销当前用户：
// 请求服务器解绑设备令牌，断开连接，并清空该用户的本地状态。
func (s *Session) Logout() {
	if s.deviceToken.Load() != "" && s.transport.IsConnected() {
		done := s.SetDeviceToken(wire.NullValue)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_, _ = done.Await(ctx)
		cancel()
	}
	s.Disconnect()
	s.logoutLocal()
}

// logoutLocal 清空与当前登录用户绑定的全部内存与存储状态。
func (s *Session) logoutLocal() {
	s.myUID.Store("")
	s.authToken.Store("")
	s.connAuth.Store(false)
	s.autoLogin.Store(false)
	s.clearAutoLoginCredentials()

	s.topicsMu.Lock()
	s.topics = make(map[string]Topic)
	s.topicsUpdated = time.Time{}
	s.topicsMu.Unlock()
	s.topicsLoaded.Store(false)

	s.usersMu.Lock()
	s.users = make(map[string]*User)
	s.usersMu.Unlock()

	if s.store != nil {
		s.store.Logout()
	}
}

func (s *Session) setAutoLoginCredentials(scheme, secret string) {
	s.credMu.Lock()
	s.loginScheme = scheme
	s.loginSecret = secret
	s.credMu.Unlock()
}

func (s *Session) clearAutoLoginCredentials() {
	s.credMu.Lock()
	s.loginScheme = ""
	s.loginSecret = ""
	s.credMu.Unlock()
}

func (s *Session) autoLoginCredentials() (scheme, secret string, ok bool) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	return s.loginScheme, s.loginSecret, s.loginScheme != ""
}
