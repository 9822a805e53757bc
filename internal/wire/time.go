package wire

import (
	"time"

	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// timeLayout 为协议使用的时间格式：RFC3339，毫秒精度，UTC。
const timeLayout = "2006-01-02T15:04:05.999Z07:00"

// Time 包装 time.Time，按协议约定做 JSON 编解码。
// 出站统一转为 UTC 并截断到毫秒。
type Time struct {
	time.Time
}

// NewTime 按协议精度构造一个 Time。
func NewTime(t time.Time) *Time {
	return &Time{Time: t.UTC().Truncate(time.Millisecond)}
}

// Now 返回毫秒精度的当前 UTC 时间。
func Now() *Time {
	return NewTime(time.Now())
}

func (t Time) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(timeLayout)+2)
	buf = append(buf, '"')
	buf = t.UTC().Truncate(time.Millisecond).AppendFormat(buf, timeLayout)
	buf = append(buf, '"')
	return buf, nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return merr.WrapErrJSONDecode(nil, "timestamp is not a JSON string")
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return merr.WrapErrJSONDecode(err, "malformed timestamp")
	}
	t.Time = parsed.UTC()
	return nil
}
