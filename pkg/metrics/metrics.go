// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// tinodeNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	tinodeNamespace = "tinode"

	sessionSubsystem   = "session"
	transportSubsystem = "transport"

	// 以下为当前使用的通用标签名。
	msgTypeLabelName   = "msg_type"
	directionLabelName = "direction"
)

var (
	// FramesSent 统计按消息类型划分的出站帧数量。
	FramesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: tinodeNamespace,
			Subsystem: sessionSubsystem,
			Name:      "frames_sent_total",
			Help:      "已发送的协议帧数量",
		}, []string{msgTypeLabelName})

	// FramesReceived 统计按消息类型划分的入站帧数量。
	FramesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: tinodeNamespace,
			Subsystem: sessionSubsystem,
			Name:      "frames_received_total",
			Help:      "已接收的协议帧数量",
		}, []string{msgTypeLabelName})

	// PendingRequests 为当前等待服务器应答的请求数量。
	PendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: tinodeNamespace,
			Subsystem: sessionSubsystem,
			Name:      "pending_requests",
			Help:      "当前在途的请求数量",
		})

	// RequestTimeouts 统计等待应答超时被清理的请求数量。
	RequestTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: tinodeNamespace,
			Subsystem: sessionSubsystem,
			Name:      "request_timeouts_total",
			Help:      "等待服务器应答超时的请求数量",
		})

	// Reconnects 统计底层连接自动重连的次数。
	Reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: tinodeNamespace,
			Subsystem: transportSubsystem,
			Name:      "reconnects_total",
			Help:      "底层连接自动重连次数",
		})

	// TransportBytes 统计按方向划分的传输字节数。
	TransportBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: tinodeNamespace,
			Subsystem: transportSubsystem,
			Name:      "bytes_total",
			Help:      "按方向统计的传输字节数",
		}, []string{directionLabelName})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在进程初始化时调用一次。
func Register(r prometheus.Registerer) {
	r.MustRegister(FramesSent)
	r.MustRegister(FramesReceived)
	r.MustRegister(PendingRequests)
	r.MustRegister(RequestTimeouts)
	r.MustRegister(Reconnects)
	r.MustRegister(TransportBytes)
	metricRegisterer = r
}
