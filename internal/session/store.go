package session

import (
	"time"
)

// Store 抽象了会话所依赖的本地持久化存储。
//
// 实现由上层应用提供（SQLite、bbolt 或纯内存均可）；会话层只负责
// 在合适的时机读写，不关心存储介质。
type Store interface {
	// IsReady 返回存储是否已完成初始化，可以开始读写。
	IsReady() bool

	// MyUID 返回最近一次成功登录的用户 id；没有则返回空字符串。
	MyUID() string

	// SetMyUID 记录当前登录用户的 uid 以及待验证的凭据方法列表。
	SetMyUID(uid string, credMethods []string)

	// DeviceToken 返回已持久化的推送设备令牌。
	DeviceToken() string

	// SetDeviceToken 持久化推送设备令牌。
	SetDeviceToken(token string)

	// SetTimeAdjustment 记录本地时钟相对服务器时钟的偏移。
	SetTimeAdjustment(adjustment time.Duration)

	// TopicGetAll 返回存储中全部主题的句柄，并将它们绑定到给定会话。
	TopicGetAll(sess *Session) []Topic

	// TopicUpdate 持久化一个主题的当前状态。
	TopicUpdate(t Topic)

	// UserGet 返回存储中缓存的用户记录。
	UserGet(uid string) (*User, bool)

	// UserUpdate 持久化一条用户记录。
	UserUpdate(user *User)

	// Logout 清除与当前登录用户绑定的本地状态。
	Logout()

	// DeleteAccount 删除给定用户的全部本地数据。
	DeleteAccount(uid string)
}
