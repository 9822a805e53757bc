package session

import (
	"time"

	"github.com/lk2023060901/tinode-client-go/internal/wire"
)

// User 是用户注册表中的一条记录。
// Public/Private 是服务器下发的描述负载，结构由应用自定。
type User struct {
	UID     string
	Public  any
	Private any
	Updated time.Time
}

// GetUser 返回 uid 对应的用户记录。
// 内存缓存未命中时回源到存储；并发的同名回源通过 singleflight 合并。
func (s *Session) GetUser(uid string) (*User, bool) {
	if uid == "" {
		return nil, false
	}

	s.usersMu.Lock()
	if u, ok := s.users[uid]; ok {
		s.usersMu.Unlock()
		return u, true
	}
	s.usersMu.Unlock()

	if s.store == nil || !s.store.IsReady() {
		return nil, false
	}

	v, err, _ := s.userSF.Do(uid, func() (any, error) {
		u, ok := s.store.UserGet(uid)
		if !ok {
			return nil, nil
		}
		s.usersMu.Lock()
		s.users[uid] = u
		s.usersMu.Unlock()
		return u, nil
	})
	if err != nil || v == nil {
		return nil, false
	}
	return v.(*User), true
}

// UpdateUser 把一份新的主题描述合并进用户记录并写回存储。
// 记录不存在时创建。返回合并后的记录。
func (s *Session) UpdateUser(uid string, desc *wire.MsgTopicDesc) *User {
	if uid == "" || desc == nil {
		return nil
	}

	s.usersMu.Lock()
	u, ok := s.users[uid]
	if !ok {
		u = &User{UID: uid}
		s.users[uid] = u
	}
	mergeUserDesc(u, desc)
	s.usersMu.Unlock()

	if s.store != nil && s.store.IsReady() {
		s.store.UserUpdate(u)
	}
	return u
}

// UpdateUserFromSub 把一条订阅记录里携带的用户信息合并进注册表。
func (s *Session) UpdateUserFromSub(sub *wire.MsgTopicSub) *User {
	if sub == nil || sub.User == "" {
		return nil
	}
	desc := &wire.MsgTopicDesc{
		Public:    sub.Public,
		Private:   sub.Private,
		UpdatedAt: sub.UpdatedAt,
	}
	return s.UpdateUser(sub.User, desc)
}

// mergeUserDesc 用描述中出现的字段覆盖记录；缺失的字段保持原值。
func mergeUserDesc(u *User, desc *wire.MsgTopicDesc) {
	if desc.Public != nil {
		u.Public = desc.Public
	}
	if desc.Private != nil {
		u.Private = desc.Private
	}
	if desc.UpdatedAt != nil && desc.UpdatedAt.Time.After(u.Updated) {
		u.Updated = desc.UpdatedAt.Time
	}
}
