package session

import (
	"sort"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/tinode-client-go/internal/future"
	"github.com/lk2023060901/tinode-client-go/internal/wire"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// minServerVersion 为可以配合工作的最低服务器协议版本。
var minServerVersion = semver.MustParse("0.15.0")

func checkServerVersion(ver string) error {
	parsed, err := semver.ParseTolerant(ver)
	if err != nil {
		return merr.WrapErrInvalidReply("unparsable server version: " + ver)
	}
	if parsed.LT(minServerVersion) {
		return merr.WrapErrInvalidReply("server version too old: " + ver)
	}
	return nil
}

// Hello 发送握手消息。
// 成功后记录服务器版本信息并广播 OnConnect 事件；
// 服务器版本过低时以 ErrInvalidReply 失败。
func (s *Session) Hello() *future.PendingReply {
	hi := &wire.MsgClientHi{
		Id:        s.ids.nextID(),
		Version:   ProtocolVersion,
		UserAgent: s.userAgent(),
		DeviceID:  s.deviceToken.Load(),
		Lang:      s.locale,
		Platform:  s.platform,
	}
	inner := s.sendWithReply(&wire.ClientMessage{Hi: hi})
	return s.chain(inner, func(msg *wire.ServerMessage) error {
		ctrl := msg.Ctrl
		if ctrl == nil {
			return merr.WrapErrInvalidReply("hi reply carries no ctrl")
		}
		ver := ctrl.ParamString("ver")
		if err := checkServerVersion(ver); err != nil {
			return err
		}
		s.serverVersion.Store(ver)
		s.serverBuild.Store(ctrl.ParamString("build"))
		s.listeners.OnConnect(ctrl.Code, ctrl.Text, ctrl.Params)
		return nil
	}, nil)
}

// SetDeviceToken 向服务器上报推送设备令牌并持久化。
// 传 wire.NullValue 请求服务器清除绑定。令牌未变化时不发请求。
func (s *Session) SetDeviceToken(token string) *future.PendingReply {
	if token == "" || token == s.deviceToken.Load() {
		return future.Resolved(syntheticOK(""))
	}
	hi := &wire.MsgClientHi{Id: s.ids.nextID(), DeviceID: token}
	inner := s.sendWithReply(&wire.ClientMessage{Hi: hi})
	return s.chain(inner, func(*wire.ServerMessage) error {
		persisted := token
		if wire.IsNull(token) {
			persisted = ""
		}
		s.deviceToken.Store(persisted)
		if s.store != nil && s.store.IsReady() {
			s.store.SetDeviceToken(persisted)
		}
		return nil
	}, nil)
}

// AccountParams 描述一次账号创建或修改请求。
type AccountParams struct {
	// User 为 "new" 时创建账号；为空时修改当前账号。
	User   string
	Scheme string
	Secret string
	// LoginNow 要求服务器在创建成功后立即把本连接登录到新账号。
	LoginNow bool
	Tags     []string
	Desc     *wire.MsgSetDesc
	Cred     []wire.MsgCredClient
}

// Account 创建或修改账号。
// LoginNow 为 true 时，成功应答按登录应答处理。
func (s *Session) Account(p AccountParams) *future.PendingReply {
	acc := &wire.MsgClientAcc{
		Id:     s.ids.nextID(),
		User:   p.User,
		Scheme: p.Scheme,
		Secret: p.Secret,
		Login:  p.LoginNow,
		Tags:   p.Tags,
		Desc:   p.Desc,
		Cred:   p.Cred,
	}
	if !p.LoginNow {
		return s.sendWithReply(&wire.ClientMessage{Acc: acc})
	}

	if !s.loginInProgress.CompareAndSwap(false, true) {
		return future.Rejected(merr.WrapErrInvalidState("login", "login already in progress"))
	}
	s.setAutoLoginCredentials(p.Scheme, p.Secret)

	inner := s.sendWithReply(&wire.ClientMessage{Acc: acc})
	return s.chain(inner,
		func(msg *wire.ServerMessage) error {
			s.loginInProgress.Store(false)
			return s.loginSuccessful(msg)
		},
		func(err error) error {
			s.loginInProgress.Store(false)
			return s.loginFailed(err)
		})
}

// Login 用给定凭据登录。
//   - 连接已认证：立即返回合成的成功应答；
//   - 已有登录在途：以 ErrInvalidState 失败；
//   - 其余情况发送 login 消息，应答经 loginSuccessful/loginFailed 处理。
//
// 无论结果如何都会广播一次 OnLogin 事件。
func (s *Session) Login(scheme, secret string) *future.PendingReply {
	if s.connAuth.Load() {
		return future.Resolved(syntheticOK(s.myUID.Load()))
	}
	if !s.loginInProgress.CompareAndSwap(false, true) {
		return future.Rejected(merr.WrapErrInvalidState("login", "login already in progress"))
	}
	s.setAutoLoginCredentials(scheme, secret)

	msg := &wire.ClientMessage{Login: &wire.MsgClientLogin{
		Id:     s.ids.nextID(),
		Scheme: scheme,
		Secret: secret,
	}}
	inner := s.sendWithReply(msg)
	return s.chain(inner,
		func(msg *wire.ServerMessage) error {
			s.loginInProgress.Store(false)
			return s.loginSuccessful(msg)
		},
		func(err error) error {
			s.loginInProgress.Store(false)
			return s.loginFailed(err)
		})
}

// syntheticOK 构造一个不经过网络的成功 ctrl 应答。
func syntheticOK(uid string) *wire.ServerMessage {
	params := map[string]any{}
	if uid != "" {
		params["user"] = uid
	}
	return &wire.ServerMessage{Ctrl: &wire.MsgServerCtrl{
		Code:   200,
		Text:   "ok",
		Params: params,
	}}
}

// loginSuccessful 处理服务器的登录成功应答（2xx 或 3xx）。
func (s *Session) loginSuccessful(msg *wire.ServerMessage) error {
	ctrl := msg.Ctrl
	if ctrl == nil {
		return merr.WrapErrInvalidReply("login reply carries no ctrl")
	}

	newUID := ctrl.ParamString("user")
	if prev := s.myUID.Load(); prev != "" && newUID != "" && prev != newUID {
		// 服务器返回了另一个用户：本地状态已不可信，全部清掉
		s.logoutLocal()
		s.listeners.OnLogin(400, "UID mismatch")
		return merr.WrapErrInvalidReply("uid mismatch")
	}
	if newUID != "" {
		s.myUID.Store(newUID)
	}
	if token := ctrl.ParamString("token"); token != "" {
		s.authToken.Store(token)
	}

	authenticated := ctrl.Code >= 200 && ctrl.Code < 300
	s.connAuth.Store(authenticated)

	if authenticated {
		s.setState(StateConnectedAuth)
		if s.store != nil && s.store.IsReady() {
			s.store.SetMyUID(newUID, nil)
		}
		s.maybeLoadTopics()
	} else if s.store != nil && s.store.IsReady() {
		// 3xx：账号存在但凭据待验证，记下需要确认的方法
		s.store.SetMyUID(newUID, credMethods(ctrl.Params["cred"]))
	}

	s.listeners.OnLogin(ctrl.Code, ctrl.Text)
	return nil
}

// loginFailed 处理登录失败。
// 服务器以 4xx 拒绝时说明凭据已失效，清空令牌与自动登录凭据。
func (s *Session) loginFailed(err error) error {
	s.connAuth.Store(false)
	if code := merr.ServerCode(err); code >= 400 && code < 500 {
		s.authToken.Store("")
		s.clearAutoLoginCredentials()
		s.listeners.OnLogin(code, merr.ServerText(err))
	}
	return err
}

// credMethods 从 ctrl.params["cred"] 中提取待验证的凭据方法列表。
// 兼容字符串数组与 {"meth": ...} 对象数组两种形式。
func credMethods(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if meth, ok := v["meth"].(string); ok {
				out = append(out, meth)
			}
		}
	}
	return out
}

// Subscribe 订阅主题，可附带初始 set/get 查询。
func (s *Session) Subscribe(topic string, set *wire.MsgSetQuery, get *wire.MsgGetQuery) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	msg := &wire.ClientMessage{Sub: &wire.MsgClientSub{
		Id:    s.ids.nextID(),
		Topic: topic,
		Set:   set,
		Get:   get,
	}}
	return s.sendWithReply(msg)
}

// Leave 离开主题；unsub 为 true 时同时退订。
func (s *Session) Leave(topic string, unsub bool) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	msg := &wire.ClientMessage{Leave: &wire.MsgClientLeave{
		Id:    s.ids.nextID(),
		Topic: topic,
		Unsub: unsub,
	}}
	return s.sendWithReply(msg)
}

// Publish 向主题发布一条内容。
// 自己发布的内容不需要服务器回显，noecho 恒为 true。
func (s *Session) Publish(topic string, head map[string]any, content any) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	msg := &wire.ClientMessage{Pub: &wire.MsgClientPub{
		Id:      s.ids.nextID(),
		Topic:   topic,
		NoEcho:  true,
		Head:    head,
		Content: content,
	}}
	return s.sendWithReply(msg)
}

// GetMeta 查询主题元数据。
func (s *Session) GetMeta(topic string, query *wire.MsgGetQuery) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	get := &wire.MsgClientGet{Id: s.ids.nextID(), Topic: topic}
	if query != nil {
		get.MsgGetQuery = *query
	}
	return s.sendWithReply(&wire.ClientMessage{Get: get})
}

// SetMeta 更新主题元数据。
func (s *Session) SetMeta(topic string, query *wire.MsgSetQuery) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	set := &wire.MsgClientSet{Id: s.ids.nextID(), Topic: topic}
	if query != nil {
		set.MsgSetQuery = *query
	}
	return s.sendWithReply(&wire.ClientMessage{Set: set})
}

// DelMessage 删除主题内的单条消息。
func (s *Session) DelMessage(topic string, seq int, hard bool) *future.PendingReply {
	return s.delMessages(topic, []wire.MsgDelRange{{LowId: seq}}, hard)
}

// DelMessageRange 删除主题内 [fromID, toID) 区间的消息。
func (s *Session) DelMessageRange(topic string, fromID, toID int, hard bool) *future.PendingReply {
	return s.delMessages(topic, []wire.MsgDelRange{{LowId: fromID, HiId: toID}}, hard)
}

// DelMessageList 删除主题内给定 seq 列表的消息，相邻 seq 自动合并为区间。
func (s *Session) DelMessageList(topic string, list []int, hard bool) *future.PendingReply {
	return s.delMessages(topic, listToRanges(list), hard)
}

func (s *Session) delMessages(topic string, ranges []wire.MsgDelRange, hard bool) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	if len(ranges) == 0 {
		return future.Rejected(merr.WrapErrInvalidArgument("delseq", ranges, "nothing to delete"))
	}
	msg := &wire.ClientMessage{Del: &wire.MsgClientDel{
		Id:     s.ids.nextID(),
		Topic:  topic,
		What:   "msg",
		DelSeq: ranges,
		Hard:   hard,
	}}
	return s.sendWithReply(msg)
}

// listToRanges 把 seq 列表压缩为连续区间；单元素区间不带 hi。
func listToRanges(list []int) []wire.MsgDelRange {
	if len(list) == 0 {
		return nil
	}
	sorted := make([]int, len(list))
	copy(sorted, list)
	sort.Ints(sorted)

	var out []wire.MsgDelRange
	cur := wire.MsgDelRange{LowId: sorted[0]}
	prev := sorted[0]
	for _, seq := range sorted[1:] {
		if seq == prev || seq == prev+1 {
			prev = seq
			continue
		}
		if prev > cur.LowId {
			cur.HiId = prev + 1
		}
		out = append(out, cur)
		cur = wire.MsgDelRange{LowId: seq}
		prev = seq
	}
	if prev > cur.LowId {
		cur.HiId = prev + 1
	}
	return append(out, cur)
}

// DelTopic 删除主题；成功后停止本地跟踪。
func (s *Session) DelTopic(topic string, hard bool) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	msg := &wire.ClientMessage{Del: &wire.MsgClientDel{
		Id:    s.ids.nextID(),
		Topic: topic,
		What:  "topic",
		Hard:  hard,
	}}
	inner := s.sendWithReply(msg)
	return s.chain(inner, func(*wire.ServerMessage) error {
		s.StopTracking(topic)
		return nil
	}, nil)
}

// DelSubscription 把一个用户从主题中除名。
func (s *Session) DelSubscription(topic, user string) *future.PendingReply {
	if topic == "" {
		return future.Rejected(merr.WrapErrInvalidArgument("topic", topic, "empty topic name"))
	}
	msg := &wire.ClientMessage{Del: &wire.MsgClientDel{
		Id:    s.ids.nextID(),
		Topic: topic,
		What:  "sub",
		User:  user,
	}}
	return s.sendWithReply(msg)
}

// DelCredential 删除当前账号的一条凭据。
func (s *Session) DelCredential(method, val string) *future.PendingReply {
	msg := &wire.ClientMessage{Del: &wire.MsgClientDel{
		Id:   s.ids.nextID(),
		What: "cred",
		Cred: &wire.MsgCredClient{Method: method, Value: val},
	}}
	return s.sendWithReply(msg)
}

// DelCurrentUser 删除当前登录的账号。
// 成功后断开连接并抹掉该用户的全部本地数据。
func (s *Session) DelCurrentUser(hard bool) *future.PendingReply {
	uid := s.myUID.Load()
	if uid == "" {
		return future.Rejected(merr.WrapErrInvalidState("anonymous", "no user logged in"))
	}
	msg := &wire.ClientMessage{Del: &wire.MsgClientDel{
		Id:   s.ids.nextID(),
		What: "user",
		Hard: hard,
	}}
	inner := s.sendWithReply(msg)
	return s.chain(inner, func(*wire.ServerMessage) error {
		s.Disconnect()
		if s.store != nil {
			s.store.DeleteAccount(uid)
		}
		s.logoutLocal()
		return nil
	}, nil)
}

// Note 发送阅读回执/键入提示。服务器不会应答，发送即完成。
func (s *Session) Note(topic, what string, seq int) error {
	if topic == "" {
		return merr.WrapErrInvalidArgument("topic", topic, "empty topic name")
	}
	return s.sendMessage(&wire.ClientMessage{Note: &wire.MsgClientNote{
		Topic: topic,
		What:  what,
		SeqId: seq,
	}})
}

// NoteRead 上报已读水位。
func (s *Session) NoteRead(topic string, seq int) error {
	return s.Note(topic, "read", seq)
}

// NoteRecv 上报已收到水位。
func (s *Session) NoteRecv(topic string, seq int) error {
	return s.Note(topic, "recv", seq)
}

// NoteKeyPress 上报正在输入。
func (s *Session) NoteKeyPress(topic string) error {
	return s.Note(topic, "kp", 0)
}
