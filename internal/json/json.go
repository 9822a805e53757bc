package json

import (
	"io"

	"github.com/bytedance/sonic"
)

// 本包为项目内部统一的 JSON 编解码入口，基于 bytedance/sonic 实现。
//
// 约定：
//   - 统一使用 sonic.ConfigStd，保证与标准库 encoding/json 行为兼容
//     （包括 time.Time、[]byte base64 等默认编码约定）；
//   - 项目内任何位置都不应直接 import encoding/json 或 sonic，
//     便于后续整体替换序列化实现。
var api = sonic.ConfigStd

// Marshal 将对象编码为 JSON 字节序列。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal 将 JSON 字节序列解码到目标对象。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// NewDecoder 创建一个从 r 读取的流式解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

// NewEncoder 创建一个写入 w 的流式编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}
