package wire

// 本文件定义服务器到客户端方向的消息结构。
// 字段 key 与服务器 JSON 协议保持一致，入站帧中的未知字段直接忽略。

// MsgServerCtrl 为控制应答。code 语义：2xx 成功，3xx 辅助信息，
// 4xx 客户端错误，5xx 服务器错误。
type MsgServerCtrl struct {
	Id        string         `json:"id,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Code      int            `json:"code,omitempty"`
	Text      string         `json:"text,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp *Time          `json:"ts,omitempty"`
}

// MsgServerData 为主题内容消息。
type MsgServerData struct {
	Id        string         `json:"id,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Head      map[string]any `json:"head,omitempty"`
	From      string         `json:"from,omitempty"`
	Timestamp *Time          `json:"ts,omitempty"`
	SeqId     int            `json:"seq,omitempty"`
	Content   any            `json:"content,omitempty"`
}

// MsgServerMeta 为主题元数据快照。
type MsgServerMeta struct {
	Id        string          `json:"id,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Timestamp *Time           `json:"ts,omitempty"`
	Desc      *MsgTopicDesc   `json:"desc,omitempty"`
	Sub       []MsgTopicSub   `json:"sub,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Cred      []MsgCredServer `json:"cred,omitempty"`
}

// MsgServerPres 为在线状态/主题状态变化通知。
type MsgServerPres struct {
	Topic     string        `json:"topic,omitempty"`
	Src       string        `json:"src,omitempty"`
	What      string        `json:"what,omitempty"`
	UserAgent string        `json:"ua,omitempty"`
	SeqId     int           `json:"seq,omitempty"`
	DelId     int           `json:"clear,omitempty"`
	DelSeq    []MsgDelRange `json:"delseq,omitempty"`
	Target    string        `json:"tgt,omitempty"`
	Actor     string        `json:"act,omitempty"`
	DWant     string        `json:"dwant,omitempty"`
	DGiven    string        `json:"dacs,omitempty"`
}

// MsgServerInfo 为送达/已读/键入回执。
type MsgServerInfo struct {
	Topic string `json:"topic,omitempty"`
	From  string `json:"from,omitempty"`
	What  string `json:"what,omitempty"`
	SeqId int    `json:"seq,omitempty"`
}

// MsgAccessMode 为一条订阅的访问模式。
type MsgAccessMode struct {
	Want  string `json:"want,omitempty"`
	Given string `json:"given,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// MsgLastSeenInfo 为用户最近一次在线的信息。
type MsgLastSeenInfo struct {
	When      *Time  `json:"when,omitempty"`
	UserAgent string `json:"ua,omitempty"`
}

// MsgTopicDesc 为主题描述。
type MsgTopicDesc struct {
	CreatedAt  *Time              `json:"created,omitempty"`
	UpdatedAt  *Time              `json:"updated,omitempty"`
	TouchedAt  *Time              `json:"touched,omitempty"`
	DefaultAcs *MsgDefaultAcsMode `json:"defacs,omitempty"`
	Acs        *MsgAccessMode     `json:"acs,omitempty"`
	SeqId      int                `json:"seq,omitempty"`
	ReadSeqId  int                `json:"read,omitempty"`
	RecvSeqId  int                `json:"recv,omitempty"`
	DelId      int                `json:"clear,omitempty"`
	Public     any                `json:"public,omitempty"`
	Trusted    any                `json:"trusted,omitempty"`
	Private    any                `json:"private,omitempty"`
	Online     bool               `json:"online,omitempty"`
	IsChan     bool               `json:"chan,omitempty"`
}

// MsgTopicSub 为一条订阅关系。
type MsgTopicSub struct {
	User      string           `json:"user,omitempty"`
	Topic     string           `json:"topic,omitempty"`
	UpdatedAt *Time            `json:"updated,omitempty"`
	DeletedAt *Time            `json:"deleted,omitempty"`
	TouchedAt *Time            `json:"touched,omitempty"`
	Acs       *MsgAccessMode   `json:"acs,omitempty"`
	ReadSeqId int              `json:"read,omitempty"`
	RecvSeqId int              `json:"recv,omitempty"`
	SeqId     int              `json:"seq,omitempty"`
	DelId     int              `json:"clear,omitempty"`
	Public    any              `json:"public,omitempty"`
	Trusted   any              `json:"trusted,omitempty"`
	Private   any              `json:"private,omitempty"`
	Online    bool             `json:"online,omitempty"`
	LastSeen  *MsgLastSeenInfo `json:"seen,omitempty"`
}

// MsgCredServer 为服务器记录的账号凭据状态。
type MsgCredServer struct {
	Method string `json:"meth,omitempty"`
	Value  string `json:"val,omitempty"`
	Done   bool   `json:"done,omitempty"`
}

// ServerMessage 为服务器到客户端方向的外层信封。
// 解码后恰好有一个字段非空。
type ServerMessage struct {
	Ctrl *MsgServerCtrl `json:"ctrl,omitempty"`
	Data *MsgServerData `json:"data,omitempty"`
	Meta *MsgServerMeta `json:"meta,omitempty"`
	Pres *MsgServerPres `json:"pres,omitempty"`
	Info *MsgServerInfo `json:"info,omitempty"`
}

func (m *ServerMessage) tagCount() int {
	count := 0
	for _, set := range []bool{
		m.Ctrl != nil, m.Data != nil, m.Meta != nil, m.Pres != nil, m.Info != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// TypeLabel 返回信封内消息的类型名，用作指标标签。
func (m *ServerMessage) TypeLabel() string {
	switch {
	case m.Ctrl != nil:
		return "ctrl"
	case m.Data != nil:
		return "data"
	case m.Meta != nil:
		return "meta"
	case m.Pres != nil:
		return "pres"
	case m.Info != nil:
		return "info"
	default:
		return "unknown"
	}
}

// ParamString 读取 ctrl 参数中的字符串值；缺失或类型不符时返回空字符串。
func (c *MsgServerCtrl) ParamString(key string) string {
	if c == nil || c.Params == nil {
		return ""
	}
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return ""
}

// ParamBool 读取 ctrl 参数中的布尔值；缺失或类型不符时返回 false。
func (c *MsgServerCtrl) ParamBool(key string) bool {
	if c == nil || c.Params == nil {
		return false
	}
	if v, ok := c.Params[key].(bool); ok {
		return v
	}
	return false
}

// ParamInt 读取 ctrl 参数中的整数值。
// JSON 数字默认解码为 float64，这里统一截断为 int。
func (c *MsgServerCtrl) ParamInt(key string) int {
	if c == nil || c.Params == nil {
		return 0
	}
	switch v := c.Params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// ParamStringSlice 读取 ctrl 参数中的字符串数组；忽略其中的非字符串元素。
func (c *MsgServerCtrl) ParamStringSlice(key string) []string {
	if c == nil || c.Params == nil {
		return nil
	}
	raw, ok := c.Params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
