package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/tinode-client-go/internal/future"
	"github.com/lk2023060901/tinode-client-go/internal/json"
	"github.com/lk2023060901/tinode-client-go/internal/wire"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// fakeTransport 在内存中模拟底层连接，记录全部出站帧。
type fakeTransport struct {
	mu        sync.Mutex
	handler   TransportHandler
	connected bool
	waiting   bool
	sent      [][]byte
	triggered int
}

func (f *fakeTransport) SetHandler(h TransportHandler) {
	f.handler = h
}

func (f *fakeTransport) Connect(ctx context.Context, autoReconnect bool) error {
	f.mu.Lock()
	f.connected = true
	f.waiting = false
	f.mu.Unlock()
	f.handler.OnTransportConnected(false)
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.connected = false
	f.waiting = false
	f.mu.Unlock()
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return merr.WrapErrNotConnected("send")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) IsWaitingToReconnect() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiting
}

func (f *fakeTransport) TriggerReconnect() {
	f.mu.Lock()
	f.triggered++
	f.mu.Unlock()
}

// deliver 模拟服务器推送一帧。
func (f *fakeTransport) deliver(raw string) {
	f.handler.OnTransportMessage([]byte(raw))
}

// dropByServer 模拟服务器断开连接，传输进入等待重连状态。
func (f *fakeTransport) dropByServer(code int, reason string) {
	f.mu.Lock()
	f.connected = false
	f.waiting = true
	f.mu.Unlock()
	f.handler.OnTransportDisconnected(true, code, reason)
}

// reconnect 模拟自动重连成功。
func (f *fakeTransport) reconnect() {
	f.mu.Lock()
	f.connected = true
	f.waiting = false
	f.mu.Unlock()
	f.handler.OnTransportConnected(true)
}

func (f *fakeTransport) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// frame 解码第 idx 条出站帧。
func (f *fakeTransport) frame(idx int) *wire.ClientMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msg wire.ClientMessage
	if err := json.Unmarshal(f.sent[idx], &msg); err != nil {
		panic(err)
	}
	return &msg
}

// replyCtrl 针对第 idx 条出站帧回一条 ctrl 应答。
func (f *fakeTransport) replyCtrl(idx, code int, text, params string) {
	id := f.frame(idx).Id()
	if params == "" {
		params = "{}"
	}
	f.deliver(fmt.Sprintf(`{"ctrl":{"id":%q,"code":%d,"text":%q,"params":%s}}`, id, code, text, params))
}

// fakeStore 为纯内存的 Store 实现。
type fakeStore struct {
	mu          sync.Mutex
	ready       bool
	uid         string
	credMethods []string
	deviceToken string
	adjustment  time.Duration
	topics      []Topic
	users       map[string]*User
	loggedOut   bool
	deleted     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{ready: true, users: make(map[string]*User)}
}

func (f *fakeStore) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeStore) MyUID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uid
}

func (f *fakeStore) SetMyUID(uid string, credMethods []string) {
	f.mu.Lock()
	f.uid = uid
	f.credMethods = credMethods
	f.mu.Unlock()
}

func (f *fakeStore) DeviceToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceToken
}

func (f *fakeStore) SetDeviceToken(token string) {
	f.mu.Lock()
	f.deviceToken = token
	f.mu.Unlock()
}

func (f *fakeStore) SetTimeAdjustment(adjustment time.Duration) {
	f.mu.Lock()
	f.adjustment = adjustment
	f.mu.Unlock()
}

func (f *fakeStore) TopicGetAll(sess *Session) []Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topics
}

func (f *fakeStore) TopicUpdate(t Topic) {}

func (f *fakeStore) UserGet(uid string) (*User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	return u, ok
}

func (f *fakeStore) UserUpdate(user *User) {
	f.mu.Lock()
	f.users[user.UID] = user
	f.mu.Unlock()
}

func (f *fakeStore) Logout() {
	f.mu.Lock()
	f.loggedOut = true
	f.uid = ""
	f.mu.Unlock()
}

func (f *fakeStore) DeleteAccount(uid string) {
	f.mu.Lock()
	f.deleted = append(f.deleted, uid)
	f.mu.Unlock()
}

type topicLeftEvent struct {
	unsub  bool
	code   int
	reason string
}

// fakeTopic 记录路由到自己的全部事件。
type fakeTopic struct {
	name    string
	updated time.Time
	touched time.Time

	mu       sync.Mutex
	data     []*wire.MsgServerData
	metas    []*wire.MsgServerMeta
	pres     []*wire.MsgServerPres
	infos    []*wire.MsgServerInfo
	left     []topicLeftEvent
	dataDone []int
	subsDone int
}

func (t *fakeTopic) Name() string       { return t.name }
func (t *fakeTopic) Updated() time.Time { return t.updated }
func (t *fakeTopic) Touched() time.Time { return t.touched }
func (t *fakeTopic) Type() TopicType    { return GetTopicTypeByName(t.name) }

func (t *fakeTopic) RouteData(data *wire.MsgServerData) {
	t.mu.Lock()
	t.data = append(t.data, data)
	t.mu.Unlock()
}

func (t *fakeTopic) RouteMeta(meta *wire.MsgServerMeta) {
	t.mu.Lock()
	t.metas = append(t.metas, meta)
	t.mu.Unlock()
}

func (t *fakeTopic) RoutePres(pres *wire.MsgServerPres) {
	t.mu.Lock()
	t.pres = append(t.pres, pres)
	t.mu.Unlock()
}

func (t *fakeTopic) RouteInfo(info *wire.MsgServerInfo) {
	t.mu.Lock()
	t.infos = append(t.infos, info)
	t.mu.Unlock()
}

func (t *fakeTopic) TopicLeft(unsub bool, code int, reason string) {
	t.mu.Lock()
	t.left = append(t.left, topicLeftEvent{unsub: unsub, code: code, reason: reason})
	t.mu.Unlock()
}

func (t *fakeTopic) AllMessagesReceived(count int) {
	t.mu.Lock()
	t.dataDone = append(t.dataDone, count)
	t.mu.Unlock()
}

func (t *fakeTopic) AllSubsReceived() {
	t.mu.Lock()
	t.subsDone++
	t.mu.Unlock()
}

func (t *fakeTopic) leftEvents() []topicLeftEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]topicLeftEvent(nil), t.left...)
}

func (t *fakeTopic) dataSeqs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seqs := make([]int, 0, len(t.data))
	for _, d := range t.data {
		seqs = append(seqs, d.SeqId)
	}
	return seqs
}

type loginEvent struct {
	code int
	text string
}

// recordingListener 记录广播到自己的会话事件。
type recordingListener struct {
	ListenerBase

	mu          sync.Mutex
	connects    []loginEvent
	logins      []loginEvent
	disconnects []loginEvent
}

func (l *recordingListener) OnConnect(code int, text string, params map[string]any) {
	l.mu.Lock()
	l.connects = append(l.connects, loginEvent{code: code, text: text})
	l.mu.Unlock()
}

func (l *recordingListener) OnLogin(code int, text string) {
	l.mu.Lock()
	l.logins = append(l.logins, loginEvent{code: code, text: text})
	l.mu.Unlock()
}

func (l *recordingListener) OnDisconnect(byServer bool, code int, reason string) {
	l.mu.Lock()
	l.disconnects = append(l.disconnects, loginEvent{code: code, text: reason})
	l.mu.Unlock()
}

func (l *recordingListener) lastLogin() (loginEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.logins) == 0 {
		return loginEvent{}, false
	}
	return l.logins[len(l.logins)-1], true
}

func (l *recordingListener) lastConnect() (loginEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.connects) == 0 {
		return loginEvent{}, false
	}
	return l.connects[len(l.connects)-1], true
}

func (l *recordingListener) disconnectCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.disconnects)
}

type SessionSuite struct {
	suite.Suite

	tr       *fakeTransport
	store    *fakeStore
	listener *recordingListener
	sess     *Session
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.tr = &fakeTransport{}
	s.store = newFakeStore()
	s.listener = &recordingListener{}

	sess, err := New(Config{
		AppName:   "testapp",
		Locale:    "en",
		OSVersion: "linux",
		Transport: s.tr,
		Store:     s.store,
	})
	s.Require().NoError(err)
	s.sess = sess
	s.sess.AddListener(s.listener)
}

func (s *SessionSuite) TearDownTest() {
	s.sess.Close()
}

// connectAndShake 建立连接并完成握手。
func (s *SessionSuite) connectAndShake() {
	s.Require().NoError(s.sess.Connect(context.Background()))
	s.Require().Equal(1, s.tr.frameCount())
	s.tr.replyCtrl(0, 201, "Created", `{"ver":"0.20","build":"abc"}`)
	s.Eventually(func() bool {
		return s.sess.ServerVersion() == "0.20"
	}, time.Second, 5*time.Millisecond)
}

func (s *SessionSuite) await(p *future.PendingReply) (*wire.ServerMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Await(ctx)
}

func (s *SessionSuite) TestNewRequiresTransport() {
	_, err := New(Config{})
	s.ErrorIs(err, merr.ErrInvalidArgument)
}

func (s *SessionSuite) TestHandshake() {
	s.Require().NoError(s.sess.Connect(context.Background()))

	s.Require().Equal(1, s.tr.frameCount())
	hi := s.tr.frame(0).Hi
	s.Require().NotNil(hi)
	s.Equal(ProtocolVersion, hi.Version)
	s.Equal("en", hi.Lang)
	s.Contains(hi.UserAgent, "testapp (linux; en)")
	s.Contains(hi.UserAgent, "tinode-golang/")

	s.tr.replyCtrl(0, 201, "Created", `{"ver":"0.20","build":"abc"}`)

	s.Eventually(func() bool {
		ev, ok := s.listener.lastConnect()
		return ok && ev.code == 201 && ev.text == "Created"
	}, time.Second, 5*time.Millisecond)
	s.Equal("0.20", s.sess.ServerVersion())
	s.Equal("abc", s.sess.ServerBuild())
	s.Equal(StateConnectedUnauth, s.sess.State())
}

func (s *SessionSuite) TestHandshakeRejectsOldServer() {
	s.connectAndShake()

	p := s.sess.Hello()
	s.tr.replyCtrl(1, 201, "Created", `{"ver":"0.10"}`)
	_, err := s.await(p)
	s.ErrorIs(err, merr.ErrInvalidReply)
}

func (s *SessionSuite) TestLoginSuccess() {
	s.connectAndShake()

	p := s.sess.Login("basic", "dXNlcjpwYXNz")
	login := s.tr.frame(1).Login
	s.Require().NotNil(login)
	s.Equal("basic", login.Scheme)
	s.Equal("dXNlcjpwYXNz", login.Secret)

	s.tr.replyCtrl(1, 200, "ok", `{"user":"usrABC","token":"T"}`)
	_, err := s.await(p)
	s.Require().NoError(err)

	s.Equal("usrABC", s.sess.MyUID())
	s.Equal("T", s.sess.AuthToken())
	s.True(s.sess.IsAuthenticated())
	s.Equal(StateConnectedAuth, s.sess.State())
	s.Equal("usrABC", s.store.MyUID())

	ev, ok := s.listener.lastLogin()
	s.Require().True(ok)
	s.Equal(200, ev.code)
	s.Equal("ok", ev.text)
}

func (s *SessionSuite) TestLoginFailure401() {
	s.connectAndShake()

	p := s.sess.Login("basic", "d3Jvbmc6d3Jvbmc=")
	s.tr.replyCtrl(1, 401, "authentication failed", "")

	_, err := s.await(p)
	s.Require().Error(err)
	s.Equal(401, merr.ServerCode(err))

	s.False(s.sess.IsAuthenticated())
	s.Equal("", s.sess.AuthToken())
	_, _, hasCreds := s.sess.autoLoginCredentials()
	s.False(hasCreds)

	ev, ok := s.listener.lastLogin()
	s.Require().True(ok)
	s.Equal(401, ev.code)
}

func (s *SessionSuite) TestLoginWhileAuthenticated() {
	s.connectAndShake()
	p := s.sess.Login("basic", "dXNlcjpwYXNz")
	s.tr.replyCtrl(1, 200, "ok", `{"user":"usrABC","token":"T"}`)
	_, err := s.await(p)
	s.Require().NoError(err)

	before := s.tr.frameCount()
	again := s.sess.Login("basic", "dXNlcjpwYXNz")
	msg, err := s.await(again)
	s.Require().NoError(err)
	s.Equal(200, msg.Ctrl.Code)
	s.Equal(before, s.tr.frameCount())
}

func (s *SessionSuite) TestLoginWhileInProgress() {
	s.connectAndShake()

	first := s.sess.Login("basic", "dXNlcjpwYXNz")
	second := s.sess.Login("basic", "dXNlcjpwYXNz")
	_, err := s.await(second)
	s.ErrorIs(err, merr.ErrInvalidState)

	s.tr.replyCtrl(1, 200, "ok", `{"user":"usrABC"}`)
	_, err = s.await(first)
	s.NoError(err)
}

func (s *SessionSuite) TestLoginUIDMismatch() {
	s.sess.myUID.Store("usrOLD")

	err := s.sess.loginSuccessful(&wire.ServerMessage{Ctrl: &wire.MsgServerCtrl{
		Code:   200,
		Text:   "ok",
		Params: map[string]any{"user": "usrNEW"},
	}})
	s.ErrorIs(err, merr.ErrInvalidReply)

	s.Equal("", s.sess.MyUID())
	s.False(s.sess.IsAuthenticated())
	s.True(s.store.loggedOut)

	ev, ok := s.listener.lastLogin()
	s.Require().True(ok)
	s.Equal(400, ev.code)
}

func (s *SessionSuite) TestLoginPendingCredValidation() {
	s.connectAndShake()

	p := s.sess.Login("basic", "dXNlcjpwYXNz")
	s.tr.replyCtrl(1, 300, "validate credentials", `{"user":"usrABC","cred":[{"meth":"email"}]}`)
	_, err := s.await(p)
	s.Require().NoError(err)

	s.False(s.sess.IsAuthenticated())
	s.Equal("usrABC", s.sess.MyUID())
	s.Equal([]string{"email"}, s.store.credMethods)
}

func (s *SessionSuite) TestDisconnectPurgesPending() {
	s.connectAndShake()

	topic := &fakeTopic{name: "grpX"}
	s.sess.StartTracking(topic)

	p := s.sess.Subscribe("grpX", nil, nil)
	s.sess.Disconnect()

	// Disconnect 返回时全部在途请求必须已经结算
	select {
	case <-p.Done():
	default:
		s.Fail("pending request not settled by Disconnect")
	}
	_, err := s.await(p)
	s.ErrorIs(err, merr.ErrNotConnected)
	s.Equal(0, s.sess.futures.Len())

	left := topic.leftEvents()
	s.Require().Len(left, 1)
	s.Equal(topicLeftEvent{unsub: false, code: 503, reason: "disconnected"}, left[0])
	s.Equal(1, s.listener.disconnectCount())
	s.Equal(StateDisconnected, s.sess.State())
}

func (s *SessionSuite) TestRequestTimeout() {
	tr := &fakeTransport{}
	sess, err := New(Config{
		Transport: tr,
		RegistryOptions: []future.Option{
			future.WithSweepInterval(30 * time.Millisecond),
			future.WithExpireAfter(50 * time.Millisecond),
		},
	})
	s.Require().NoError(err)
	defer sess.Close()

	s.Require().NoError(sess.Connect(context.Background()))
	p := sess.Subscribe("grpX", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = p.Await(ctx)
	s.Require().Error(err)
	s.Equal(504, merr.ServerCode(err))
	s.Equal("timeout", merr.ServerText(err))
}

func (s *SessionSuite) TestReconnectAutoLogin() {
	s.sess.SetAutoLoginToken("T")
	s.connectAndShake()

	s.Eventually(func() bool { return s.tr.frameCount() >= 2 }, time.Second, 5*time.Millisecond)
	login := s.tr.frame(1).Login
	s.Require().NotNil(login)
	s.Equal(AuthSchemeToken, login.Scheme)
	s.tr.replyCtrl(1, 200, "ok", `{"user":"usrABC","token":"T2"}`)
	s.Eventually(func() bool { return s.sess.IsAuthenticated() }, time.Second, 5*time.Millisecond)

	// 服务器断开后自动重连：hi 与 login 必须按序补发
	s.tr.dropByServer(1006, "abnormal closure")
	s.False(s.sess.IsAuthenticated())
	base := s.tr.frameCount()

	s.tr.reconnect()
	s.Require().Equal(base+1, s.tr.frameCount())
	s.Require().NotNil(s.tr.frame(base).Hi)

	s.tr.replyCtrl(base, 201, "Created", `{"ver":"0.20"}`)
	s.Eventually(func() bool { return s.tr.frameCount() >= base+2 }, time.Second, 5*time.Millisecond)
	relogin := s.tr.frame(base + 1).Login
	s.Require().NotNil(relogin)
	s.Equal("T", relogin.Secret)

	s.tr.replyCtrl(base+1, 200, "ok", `{"user":"usrABC"}`)
	s.Eventually(func() bool { return s.sess.IsAuthenticated() }, time.Second, 5*time.Millisecond)
}

func (s *SessionSuite) TestReconnectNowTriggersWaitingTransport() {
	s.connectAndShake()
	s.tr.dropByServer(1006, "abnormal closure")

	s.Require().NoError(s.sess.ReconnectNow(true, false))
	s.Equal(1, s.tr.triggered)

	// 非交互调用不打断退避等待
	s.Require().NoError(s.sess.ReconnectNow(false, false))
	s.Equal(1, s.tr.triggered)
}

func (s *SessionSuite) TestEvicted() {
	s.connectAndShake()
	topic := &fakeTopic{name: "grpX"}
	s.sess.StartTracking(topic)

	s.tr.deliver(`{"ctrl":{"code":205,"text":"evicted","topic":"grpX","params":{"unsub":true}}}`)

	left := topic.leftEvents()
	s.Require().Len(left, 1)
	s.Equal(topicLeftEvent{unsub: true, code: 205, reason: "evicted"}, left[0])
}

func (s *SessionSuite) TestCtrlWhatRouting() {
	s.connectAndShake()
	topic := &fakeTopic{name: "grpX"}
	s.sess.StartTracking(topic)

	s.tr.deliver(`{"ctrl":{"code":208,"text":"delivered","topic":"grpX","params":{"what":"data","count":10}}}`)
	s.tr.deliver(`{"ctrl":{"code":208,"text":"delivered","topic":"grpX","params":{"what":"sub"}}}`)

	s.Equal([]int{10}, topic.dataDone)
	s.Equal(1, topic.subsDone)
}

func (s *SessionSuite) TestDataRoutedInOrder() {
	s.connectAndShake()
	topic := &fakeTopic{name: "grpX"}
	s.sess.StartTracking(topic)

	for seq := 1; seq <= 5; seq++ {
		s.tr.deliver(fmt.Sprintf(`{"data":{"topic":"grpX","seq":%d,"content":"m%d"}}`, seq, seq))
	}
	s.Equal([]int{1, 2, 3, 4, 5}, topic.dataSeqs())
}

func (s *SessionSuite) TestDataResolvesPendingRequest() {
	s.connectAndShake()
	topic := &fakeTopic{name: "grpX"}
	s.sess.StartTracking(topic)

	p := s.sess.GetMeta("grpX", &wire.MsgGetQuery{What: "data"})
	id := s.tr.frame(1).Id()
	s.Require().NotEmpty(id)

	// 服务器用回显 id 的 data 帧应答：既路由到主题，也结算在途请求
	s.tr.deliver(fmt.Sprintf(`{"data":{"id":%q,"topic":"grpX","seq":7,"content":"m7"}}`, id))

	msg, err := s.await(p)
	s.Require().NoError(err)
	s.Require().NotNil(msg.Data)
	s.Equal(7, msg.Data.SeqId)
	s.Equal([]int{7}, topic.dataSeqs())
	s.Equal(0, s.sess.futures.Len())
}

func (s *SessionSuite) TestPresMirroredToP2PTopic() {
	s.connectAndShake()
	me := &fakeTopic{name: "me"}
	peer := &fakeTopic{name: "usrPEER"}
	s.sess.StartTracking(me)
	s.sess.StartTracking(peer)

	s.tr.deliver(`{"pres":{"topic":"me","src":"usrPEER","what":"on"}}`)

	s.Len(me.pres, 1)
	s.Len(peer.pres, 1)

	s.tr.deliver(`{"pres":{"topic":"me","src":"grpX","what":"on"}}`)
	s.Len(me.pres, 2)
	s.Len(peer.pres, 1)
}

func (s *SessionSuite) TestMetaCreatesUnknownTopic() {
	tr := &fakeTransport{}
	var created []string
	sess, err := New(Config{
		Transport: tr,
		TopicFactory: func(sess *Session, name string, desc *wire.MsgTopicDesc) Topic {
			created = append(created, name)
			return &fakeTopic{name: name}
		},
	})
	s.Require().NoError(err)
	defer sess.Close()
	s.Require().NoError(tr.Connect(context.Background(), false))

	tr.deliver(`{"meta":{"topic":"grpNEW","desc":{"public":"hello"}}}`)
	s.Equal([]string{"grpNEW"}, created)
	s.True(sess.IsTracked("grpNEW"))

	// 不带 desc 的 meta 不触发创建
	tr.deliver(`{"meta":{"topic":"grpOTHER","sub":[{"user":"usrA"}]}}`)
	s.False(sess.IsTracked("grpOTHER"))
}

func (s *SessionSuite) TestClockAdjustmentFromCtrl() {
	s.connectAndShake()

	ahead := time.Now().Add(42 * time.Second).UTC().Format("2006-01-02T15:04:05.999Z07:00")
	s.tr.deliver(fmt.Sprintf(`{"ctrl":{"code":200,"text":"ok","ts":%q}}`, ahead))

	adj := s.sess.TimeAdjustment()
	s.InDelta((42 * time.Second).Seconds(), adj.Seconds(), 2.0)
	s.InDelta((42 * time.Second).Seconds(), s.store.adjustment.Seconds(), 2.0)
}

func (s *SessionSuite) TestSetDeviceToken() {
	s.connectAndShake()

	p := s.sess.SetDeviceToken("push-token-1")
	frame := s.tr.frame(1).Hi
	s.Require().NotNil(frame)
	s.Equal("push-token-1", frame.DeviceID)

	s.tr.replyCtrl(1, 200, "ok", "")
	_, err := s.await(p)
	s.Require().NoError(err)
	s.Equal("push-token-1", s.store.DeviceToken())

	// 相同令牌不再发请求
	before := s.tr.frameCount()
	_, err = s.await(s.sess.SetDeviceToken("push-token-1"))
	s.NoError(err)
	s.Equal(before, s.tr.frameCount())
}

func (s *SessionSuite) TestNoteIsFireAndForget() {
	s.connectAndShake()

	s.Require().NoError(s.sess.NoteRead("grpX", 15))
	note := s.tr.frame(1).Note
	s.Require().NotNil(note)
	s.Equal("read", note.What)
	s.Equal(15, note.SeqId)
	s.Equal("", s.tr.frame(1).Id())
	s.Equal(0, s.sess.futures.Len())
}

func (s *SessionSuite) TestOperationsValidateTopic() {
	s.connectAndShake()

	for _, p := range []*future.PendingReply{
		s.sess.Subscribe("", nil, nil),
		s.sess.Leave("", false),
		s.sess.Publish("", nil, "hello"),
		s.sess.GetMeta("", nil),
		s.sess.SetMeta("", nil),
		s.sess.DelTopic("", false),
	} {
		_, err := s.await(p)
		s.ErrorIs(err, merr.ErrInvalidArgument)
	}
	s.Equal(1, s.tr.frameCount())
}

func (s *SessionSuite) TestOperationsFailWhenDisconnected() {
	p := s.sess.Subscribe("grpX", nil, nil)
	_, err := s.await(p)
	s.ErrorIs(err, merr.ErrNotConnected)
	s.Equal(0, s.sess.futures.Len())
}

func (s *SessionSuite) TestDelCurrentUser() {
	s.connectAndShake()
	p := s.sess.Login("basic", "dXNlcjpwYXNz")
	s.tr.replyCtrl(1, 200, "ok", `{"user":"usrABC"}`)
	_, err := s.await(p)
	s.Require().NoError(err)

	del := s.sess.DelCurrentUser(true)
	frame := s.tr.frame(2).Del
	s.Require().NotNil(frame)
	s.Equal("user", frame.What)
	s.True(frame.Hard)

	s.tr.replyCtrl(2, 200, "ok", "")
	_, err = s.await(del)
	s.Require().NoError(err)

	s.Equal([]string{"usrABC"}, s.store.deleted)
	s.Equal("", s.sess.MyUID())
	s.False(s.tr.IsConnected())
}

func (s *SessionSuite) TestBuildEndpointURL() {
	s.Equal("ws://example.com/v0/channels", BuildEndpointURL("example.com", false, true))
	s.Equal("wss://example.com/v0/channels", BuildEndpointURL("example.com", true, true))
	s.Equal("http://example.com/v0/channels", BuildEndpointURL("example.com", false, false))
	s.Equal("https://example.com/v0/channels", BuildEndpointURL("example.com", true, false))
}

func (s *SessionSuite) TestDelMessageListRanges() {
	s.Nil(listToRanges(nil))
	s.Equal([]wire.MsgDelRange{{LowId: 5}}, listToRanges([]int{5}))
	s.Equal([]wire.MsgDelRange{{LowId: 1, HiId: 4}}, listToRanges([]int{3, 1, 2}))
	s.Equal(
		[]wire.MsgDelRange{{LowId: 1, HiId: 3}, {LowId: 5}, {LowId: 8, HiId: 10}},
		listToRanges([]int{1, 2, 5, 8, 9}),
	)
}
