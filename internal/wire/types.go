package wire

// 本文件定义客户端到服务器方向的消息结构。
//
// 约定：
//   - 每个字段名与服务器 JSON 协议的 key 严格一致；
//   - 可选字段一律使用 omitempty，未赋值的字段不得出现在出站帧中；
//   - "擦除" 语义通过 NullValue 哨兵字符串表达，而不是 JSON null。

// MsgClientHi 为会话握手消息。
type MsgClientHi struct {
	Id        string `json:"id,omitempty"`
	Version   string `json:"ver,omitempty"`
	UserAgent string `json:"ua,omitempty"`
	// DeviceID 为推送通知的设备令牌；置为 NullValue 表示请求服务器清除。
	DeviceID   string `json:"dev,omitempty"`
	Lang       string `json:"lang,omitempty"`
	Platform   string `json:"platf,omitempty"`
	Background bool   `json:"bkg,omitempty"`
}

// MsgClientAcc 为创建或修改账号的消息。
type MsgClientAcc struct {
	Id string `json:"id,omitempty"`
	// User 为 "new" 时表示创建账号，为空表示修改当前账号。
	User     string          `json:"user,omitempty"`
	Scheme   string          `json:"scheme,omitempty"`
	Secret   string          `json:"secret,omitempty"`
	Login    bool            `json:"login,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Desc     *MsgSetDesc     `json:"desc,omitempty"`
	Cred     []MsgCredClient `json:"cred,omitempty"`
	TmpScheme string         `json:"tmpscheme,omitempty"`
	TmpSecret string         `json:"tmpsecret,omitempty"`
}

// MsgClientLogin 为登录消息。
type MsgClientLogin struct {
	Id     string          `json:"id,omitempty"`
	Scheme string          `json:"scheme,omitempty"`
	Secret string          `json:"secret,omitempty"`
	Cred   []MsgCredClient `json:"cred,omitempty"`
}

// MsgClientSub 为订阅主题的消息。
type MsgClientSub struct {
	Id    string       `json:"id,omitempty"`
	Topic string       `json:"topic,omitempty"`
	Set   *MsgSetQuery `json:"set,omitempty"`
	Get   *MsgGetQuery `json:"get,omitempty"`
}

// MsgClientLeave 为离开主题的消息；Unsub 为 true 时同时退订。
type MsgClientLeave struct {
	Id    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	Unsub bool   `json:"unsub,omitempty"`
}

// MsgClientPub 为向主题发布内容的消息。
type MsgClientPub struct {
	Id      string         `json:"id,omitempty"`
	Topic   string         `json:"topic,omitempty"`
	NoEcho  bool           `json:"noecho,omitempty"`
	Head    map[string]any `json:"head,omitempty"`
	Content any            `json:"content,omitempty"`
}

// MsgClientGet 为查询主题元数据的消息。
type MsgClientGet struct {
	Id    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	MsgGetQuery
}

// MsgClientSet 为更新主题元数据的消息。
type MsgClientSet struct {
	Id    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	MsgSetQuery
}

// MsgClientDel 为删除消息/订阅/主题/凭据/账号的消息。
type MsgClientDel struct {
	Id    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	// What 取值：msg、sub、topic、user、cred。
	What   string         `json:"what,omitempty"`
	DelSeq []MsgDelRange  `json:"delseq,omitempty"`
	User   string         `json:"user,omitempty"`
	Cred   *MsgCredClient `json:"cred,omitempty"`
	Hard   bool           `json:"hard,omitempty"`
}

// MsgClientNote 为阅读回执/键入提示消息，不携带 id，服务器不会应答。
type MsgClientNote struct {
	Topic string `json:"topic,omitempty"`
	// What 取值：kp（正在输入）、read（已读）、recv（已收到）。
	What  string `json:"what,omitempty"`
	SeqId int    `json:"seq,omitempty"`
}

// MsgGetOpts 为元数据查询的分页参数。
type MsgGetOpts struct {
	IfModifiedSince *Time `json:"ims,omitempty"`
	Limit           int   `json:"limit,omitempty"`
	SinceId         int   `json:"since,omitempty"`
	BeforeId        int   `json:"before,omitempty"`
}

// MsgGetQuery 描述一次 get 请求要取回的元数据集合。
type MsgGetQuery struct {
	// What 为空格分隔的查询项：desc、sub、data、tags、cred、del。
	What string      `json:"what,omitempty"`
	Desc *MsgGetOpts `json:"desc,omitempty"`
	Sub  *MsgGetOpts `json:"sub,omitempty"`
	Data *MsgGetOpts `json:"data,omitempty"`
	Del  *MsgGetOpts `json:"del,omitempty"`
}

// MsgSetQuery 描述一次 set 请求要更新的元数据集合。
type MsgSetQuery struct {
	Desc *MsgSetDesc    `json:"desc,omitempty"`
	Sub  *MsgSetSub     `json:"sub,omitempty"`
	Tags []string       `json:"tags,omitempty"`
	Cred *MsgCredClient `json:"cred,omitempty"`
}

// MsgSetDesc 为主题/账号描述的可更新部分。
type MsgSetDesc struct {
	DefaultAcs *MsgDefaultAcsMode `json:"defacs,omitempty"`
	Public     any                `json:"public,omitempty"`
	Private    any                `json:"private,omitempty"`
	Trusted    any                `json:"trusted,omitempty"`
}

// MsgSetSub 为订阅关系的可更新部分。
type MsgSetSub struct {
	User string `json:"user,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// MsgDefaultAcsMode 为主题的默认访问模式。
type MsgDefaultAcsMode struct {
	Auth string `json:"auth,omitempty"`
	Anon string `json:"anon,omitempty"`
}

// MsgCredClient 为客户端上报的账号凭据（邮箱、手机号等）。
type MsgCredClient struct {
	Method   string         `json:"meth,omitempty"`
	Value    string         `json:"val,omitempty"`
	Response string         `json:"resp,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// MsgDelRange 为待删除消息的连续 seq 区间；单条消息时只填 LowId。
type MsgDelRange struct {
	LowId int `json:"low,omitempty"`
	HiId  int `json:"hi,omitempty"`
}

// ClientMessage 为客户端到服务器方向的外层信封。
// 编码时必须且只能有一个字段非空。
type ClientMessage struct {
	Hi    *MsgClientHi    `json:"hi,omitempty"`
	Acc   *MsgClientAcc   `json:"acc,omitempty"`
	Login *MsgClientLogin `json:"login,omitempty"`
	Sub   *MsgClientSub   `json:"sub,omitempty"`
	Leave *MsgClientLeave `json:"leave,omitempty"`
	Pub   *MsgClientPub   `json:"pub,omitempty"`
	Get   *MsgClientGet   `json:"get,omitempty"`
	Set   *MsgClientSet   `json:"set,omitempty"`
	Del   *MsgClientDel   `json:"del,omitempty"`
	Note  *MsgClientNote  `json:"note,omitempty"`
}

// tagCount 返回信封中已填充的消息个数。
func (m *ClientMessage) tagCount() int {
	count := 0
	for _, set := range []bool{
		m.Hi != nil, m.Acc != nil, m.Login != nil, m.Sub != nil, m.Leave != nil,
		m.Pub != nil, m.Get != nil, m.Set != nil, m.Del != nil, m.Note != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// TypeLabel 返回信封内消息的类型名，用作指标标签。
func (m *ClientMessage) TypeLabel() string {
	switch {
	case m.Hi != nil:
		return "hi"
	case m.Acc != nil:
		return "acc"
	case m.Login != nil:
		return "login"
	case m.Sub != nil:
		return "sub"
	case m.Leave != nil:
		return "leave"
	case m.Pub != nil:
		return "pub"
	case m.Get != nil:
		return "get"
	case m.Set != nil:
		return "set"
	case m.Del != nil:
		return "del"
	case m.Note != nil:
		return "note"
	default:
		return "unknown"
	}
}

// Id 返回信封内消息携带的 id；note 等无 id 消息返回空字符串。
func (m *ClientMessage) Id() string {
	switch {
	case m.Hi != nil:
		return m.Hi.Id
	case m.Acc != nil:
		return m.Acc.Id
	case m.Login != nil:
		return m.Login.Id
	case m.Sub != nil:
		return m.Sub.Id
	case m.Leave != nil:
		return m.Leave.Id
	case m.Pub != nil:
		return m.Pub.Id
	case m.Get != nil:
		return m.Get.Id
	case m.Set != nil:
		return m.Set.Id
	case m.Del != nil:
		return m.Del.Id
	default:
		return ""
	}
}
