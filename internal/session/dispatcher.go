package session

import (
	"go.uber.org/zap"

	"github.com/lk2023060901/tinode-client-go/internal/wire"
	"github.com/lk2023060901/tinode-client-go/pkg/log"
	"github.com/lk2023060901/tinode-client-go/pkg/metrics"
	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// dispatch 处理一帧入站数据。
// 在单一接收协程上按到达顺序执行，所有路由回调继承该顺序。
func (s *Session) dispatch(raw []byte) {
	if len(raw) == 0 {
		return
	}
	s.listeners.OnRawMessage(string(raw))

	msg, err := wire.Unmarshal(raw)
	if err != nil {
		// 坏帧只影响自己，不影响连接
		log.Warn("dropping undecodable frame", zap.Error(err), zap.ByteString("frame", raw))
		return
	}
	metrics.FramesReceived.WithLabelValues(msg.TypeLabel()).Inc()
	s.listeners.OnMessage(msg)

	switch {
	case msg.Ctrl != nil:
		s.dispatchCtrl(msg)
	case msg.Data != nil:
		s.dispatchData(msg)
	case msg.Meta != nil:
		s.dispatchMeta(msg)
	case msg.Pres != nil:
		s.dispatchPres(msg)
	case msg.Info != nil:
		s.dispatchInfo(msg)
	}
}

// dispatchCtrl 处理控制应答。
// id 匹配的在途请求按 code 结算；携带 topic 的 ctrl 另行路由到主题：
// 205/evicted 通知被踢出，params.what 通知一批投递完毕。
// 两类信号互相独立，同一条 ctrl 可能都要处理。
func (s *Session) dispatchCtrl(msg *wire.ServerMessage) {
	ctrl := msg.Ctrl
	s.updateTimeAdjustment(ctrl.Timestamp)
	s.listeners.OnCtrlMessage(ctrl)

	if ctrl.Id != "" {
		if p, ok := s.futures.Take(ctrl.Id); ok {
			if ctrl.Code >= 200 && ctrl.Code < 400 {
				p.Resolve(msg)
			} else {
				p.Reject(merr.WrapErrServerResponse(ctrl.Code, ctrl.Text, ctrl.ParamString("what")))
			}
		}
	}

	if ctrl.Topic == "" {
		return
	}
	t := s.GetTopic(ctrl.Topic)
	if t == nil {
		return
	}

	if ctrl.Code == 205 && ctrl.Text == "evicted" {
		t.TopicLeft(ctrl.ParamBool("unsub"), ctrl.Code, ctrl.Text)
	}
	switch ctrl.ParamString("what") {
	case "data":
		t.AllMessagesReceived(ctrl.ParamInt("count"))
	case "sub":
		t.AllSubsReceived()
	}
}

// dispatchData 处理主题内容消息。
// 服务器以 data 帧应答请求时会回显请求 id，对应的在途请求按成功结算。
func (s *Session) dispatchData(msg *wire.ServerMessage) {
	data := msg.Data
	if t := s.GetTopic(data.Topic); t != nil {
		t.RouteData(data)
	} else {
		log.Debug("data for unknown topic", log.FieldTopic(data.Topic))
	}
	s.listeners.OnDataMessage(data)

	if data.Id != "" {
		if p, ok := s.futures.Take(data.Id); ok {
			p.Resolve(msg)
		}
	}
}

// dispatchMeta 处理元数据快照。
// 未知主题在配置了工厂时就地创建；me/fnd 之外的主题刷新列表更新水位。
func (s *Session) dispatchMeta(msg *wire.ServerMessage) {
	meta := msg.Meta
	t := s.GetTopic(meta.Topic)
	if t == nil {
		t = s.maybeCreateTopic(meta)
	}
	if t != nil {
		t.RouteMeta(meta)
		s.topicsMu.Lock()
		s.noteTopicsUpdatedLocked(t)
		s.topicsMu.Unlock()
	}
	s.listeners.OnMetaMessage(meta)

	if meta.Id != "" {
		if p, ok := s.futures.Take(meta.Id); ok {
			p.Resolve(msg)
		}
	}
}

// dispatchPres 处理状态通知。
// 发到 me 主题、src 指向 p2p 主题的通知镜像一份给对应的 p2p 主题，
// 这样会话列表和单个会话都能看到状态变化。
func (s *Session) dispatchPres(msg *wire.ServerMessage) {
	pres := msg.Pres
	if t := s.GetTopic(pres.Topic); t != nil {
		t.RoutePres(pres)
		if pres.Topic == "me" && GetTopicTypeByName(pres.Src) == TopicTypeP2P {
			if forwardTo := s.GetTopic(pres.Src); forwardTo != nil {
				forwardTo.RoutePres(pres)
			}
		}
	}
	s.listeners.OnPresMessage(pres)
}

func (s *Session) dispatchInfo(msg *wire.ServerMessage) {
	info := msg.Info
	if t := s.GetTopic(info.Topic); t != nil {
		t.RouteInfo(info)
	}
	s.listeners.OnInfoMessage(info)
}
