package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldTopic 返回一个包含主题名的 zap 字段。
func FieldTopic(topic string) zap.Field {
	return zap.String("topic", topic)
}

// FieldMsgID 返回一个包含消息 id 的 zap 字段。
func FieldMsgID(id string) zap.Field {
	return zap.String("msg_id", id)
}

// FieldUser 返回一个包含用户 id 的 zap 字段。
func FieldUser(uid string) zap.Field {
	return zap.String("user", uid)
}

// FieldCount 返回一个包含数量的 zap 字段。
func FieldCount(n int) zap.Field {
	return zap.Int("count", n)
}
