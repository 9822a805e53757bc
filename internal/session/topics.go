package session

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lk2023060901/tinode-client-go/internal/wire"
	"github.com/lk2023060901/tinode-client-go/pkg/log"
)

// TopicType 表示主题的类别，由主题名前缀决定。
type TopicType int

const (
	TopicTypeUnknown TopicType = iota
	// TopicTypeMe 是当前用户自己的状态主题。
	TopicTypeMe
	// TopicTypeFnd 是搜索主题。
	TopicTypeFnd
	// TopicTypeGroup 是群组主题，包含尚未创建的 "new" 前缀主题。
	TopicTypeGroup
	// TopicTypeP2P 是两人主题。
	TopicTypeP2P
)

func (t TopicType) String() string {
	switch t {
	case TopicTypeMe:
		return "me"
	case TopicTypeFnd:
		return "fnd"
	case TopicTypeGroup:
		return "grp"
	case TopicTypeP2P:
		return "p2p"
	default:
		return "unknown"
	}
}

// GetTopicTypeByName 根据主题名前缀判定主题类别。
func GetTopicTypeByName(name string) TopicType {
	switch {
	case name == "me":
		return TopicTypeMe
	case name == "fnd":
		return TopicTypeFnd
	case strings.HasPrefix(name, "grp") || strings.HasPrefix(name, "new"):
		return TopicTypeGroup
	case strings.HasPrefix(name, "usr"):
		return TopicTypeP2P
	default:
		return TopicTypeUnknown
	}
}

// Topic 是注册表管理的主题句柄。
//
// 实现由上层提供；会话层只负责把入站事件路由到正确的句柄上，
// 路由回调在单一接收协程上顺序执行。
type Topic interface {
	// Name 返回当前主题名。
	Name() string

	// Updated 返回主题描述最近一次更新的时间。
	Updated() time.Time

	// Touched 返回主题最近一次活动的时间，用于列表排序。
	Touched() time.Time

	// Type 返回主题类别。
	Type() TopicType

	// RouteData 处理发往本主题的 data 消息。
	RouteData(data *wire.MsgServerData)

	// RouteMeta 处理发往本主题的 meta 消息。
	RouteMeta(meta *wire.MsgServerMeta)

	// RoutePres 处理发往本主题的 pres 消息。
	RoutePres(pres *wire.MsgServerPres)

	// RouteInfo 处理发往本主题的 info 消息。
	RouteInfo(info *wire.MsgServerInfo)

	// TopicLeft 在被服务器踢出或连接断开时调用。
	TopicLeft(unsub bool, code int, reason string)

	// AllMessagesReceived 在服务器确认一批消息投递完毕时调用。
	AllMessagesReceived(count int)

	// AllSubsReceived 在服务器确认订阅列表投递完毕时调用。
	AllSubsReceived()
}

// TopicFactory 在收到未知主题的 meta 消息时创建对应的句柄。
type TopicFactory func(sess *Session, name string, desc *wire.MsgTopicDesc) Topic

// maybeLoadTopics 在首次访问注册表时从存储冷加载全部主题。
// 只会成功执行一次。
func (s *Session) maybeLoadTopics() {
	if s.topicsLoaded.Load() {
		return
	}
	if s.store == nil || !s.store.IsReady() {
		return
	}
	if !s.topicsLoaded.CompareAndSwap(false, true) {
		return
	}

	loaded := s.store.TopicGetAll(s)

	s.topicsMu.Lock()
	for _, t := range loaded {
		if t == nil || t.Name() == "" {
			continue
		}
		s.topics[t.Name()] = t
		s.noteTopicsUpdatedLocked(t)
	}
	s.topicsMu.Unlock()

	log.Info("topics loaded from store", log.FieldComponent("session"), log.FieldCount(len(loaded)))
}

// noteTopicsUpdatedLocked 用一个主题刷新 topicsUpdated 水位。
// me 和 fnd 的更新不计入，它们的变化不代表主题列表变化。
func (s *Session) noteTopicsUpdatedLocked(t Topic) {
	switch t.Type() {
	case TopicTypeMe, TopicTypeFnd:
		return
	}
	if u := t.Updated(); u.After(s.topicsUpdated) {
		s.topicsUpdated = u
	}
}

// TopicsUpdated 返回已知主题（不含 me/fnd）最近一次更新的时间。
// 该水位只会单调前进。
func (s *Session) TopicsUpdated() time.Time {
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()
	return s.topicsUpdated
}

// StartTracking 把主题句柄加入注册表。
// 同名主题已存在时覆盖旧句柄。
func (s *Session) StartTracking(t Topic) {
	if t == nil || t.Name() == "" {
		return
	}
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	s.topics[t.Name()] = t
	s.noteTopicsUpdatedLocked(t)
	s.topicsMu.Unlock()
}

// StopTracking 从注册表移除主题；返回是否确实移除了。
func (s *Session) StopTracking(name string) bool {
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()
	if _, ok := s.topics[name]; !ok {
		return false
	}
	delete(s.topics, name)
	return true
}

// IsTracked 返回给定主题名当前是否在注册表中。
func (s *Session) IsTracked(name string) bool {
	return s.GetTopic(name) != nil
}

// GetTopic 返回主题名对应的句柄，不存在时返回 nil。
func (s *Session) GetTopic(name string) Topic {
	if name == "" {
		return nil
	}
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()
	return s.topics[name]
}

// GetTopics 返回全部主题句柄，按最近活动时间降序排列。
func (s *Session) GetTopics() []Topic {
	return s.GetFilteredTopics(nil)
}

// GetFilteredTopics 返回通过过滤器的主题句柄，按最近活动时间降序排列。
// filter 为 nil 时不过滤。
func (s *Session) GetFilteredTopics(filter func(t Topic) bool) []Topic {
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	all := lo.Values(s.topics)
	s.topicsMu.Unlock()

	if filter != nil {
		all = lo.Filter(all, func(t Topic, _ int) bool {
			return filter(t)
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Touched().After(all[j].Touched())
	})
	return all
}

// ChangeTopicName 在主题更名后调整注册表的键，并把新状态写回存储。
// 典型场景是 "new..." 主题在服务器确认创建后拿到正式名字。
func (s *Session) ChangeTopicName(t Topic, oldName string) bool {
	if t == nil {
		return false
	}
	s.maybeLoadTopics()

	s.topicsMu.Lock()
	_, tracked := s.topics[oldName]
	if tracked {
		delete(s.topics, oldName)
		s.topics[t.Name()] = t
	}
	s.topicsMu.Unlock()

	if tracked && s.store != nil {
		s.store.TopicUpdate(t)
	}
	return tracked
}

// maybeCreateTopic 在收到未知主题的 meta 消息时通过工厂创建句柄。
// 没有配置工厂、或消息不带描述时放弃创建。
func (s *Session) maybeCreateTopic(meta *wire.MsgServerMeta) Topic {
	if s.topicFactory == nil || meta == nil || meta.Desc == nil {
		return nil
	}

	t := s.topicFactory(s, meta.Topic, meta.Desc)
	if t == nil {
		return nil
	}
	s.StartTracking(t)

	log.Debug("topic created from incoming meta", log.FieldTopic(meta.Topic))
	return t
}
