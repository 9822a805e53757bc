package wire

import (
	"github.com/lk2023060901/tinode-client-go/internal/json"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// NullValue 为协议中的"显式清除"哨兵：单字符字符串 ␡（U+2421）。
// 将字段置为该值表示请求服务器删除对应数据，而不是忽略该字段。
const NullValue = "␡"

// IsNull 判断给定字符串是否为清除哨兵。
func IsNull(s string) bool {
	return s == NullValue
}

// Marshal 将客户端信封编码为一帧 JSON。
// 信封中必须恰好填充一个消息，否则返回 ErrJSONEncode。
func Marshal(msg *ClientMessage) ([]byte, error) {
	if msg == nil {
		return nil, merr.WrapErrJSONEncode(nil, "nil client message")
	}
	if n := msg.tagCount(); n != 1 {
		return nil, merr.WrapErrJSONEncode(nil, "client message must carry exactly one tag")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, merr.WrapErrJSONEncode(err)
	}
	return data, nil
}

// Unmarshal 将一帧 JSON 解码为服务器信封。
// 解码后必须恰好有一个已识别的 tag，否则返回 ErrJSONDecode；
// 信封内的未知字段被忽略。
func Unmarshal(data []byte) (*ServerMessage, error) {
	if len(data) == 0 {
		return nil, merr.WrapErrJSONDecode(nil, "empty frame")
	}

	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, merr.WrapErrJSONDecode(err)
	}

	switch n := msg.tagCount(); {
	case n == 0:
		return nil, merr.WrapErrJSONDecode(nil, "frame carries no recognized tag")
	case n > 1:
		return nil, merr.WrapErrJSONDecode(nil, "frame carries more than one tag")
	}

	return &msg, nil
}
