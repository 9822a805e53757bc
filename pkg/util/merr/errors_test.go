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

package merr

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrInvalidState("connecting")
	errors.Wrap(err, "failed to login")
	s.ErrorIs(err, ErrInvalidState)
	s.Equal(Code(ErrInvalidState), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newClientError("new error", ErrInvalidState.errCode, false)
	s.True(sameCodeErr.Is(ErrInvalidState))
}

func (s *ErrSuite) TestWrap() {
	// 状态相关错误。
	s.ErrorIs(WrapErrInvalidState("disconnected", "login in progress"), ErrInvalidState)
	s.ErrorIs(WrapErrInvalidArgument("topic", "", "empty topic name"), ErrInvalidArgument)
	s.ErrorIs(WrapErrInvalidReply("missing id"), ErrInvalidReply)

	// 连接相关错误。
	s.ErrorIs(WrapErrNotConnected("pub"), ErrNotConnected)
	s.ErrorIs(WrapErrNotSubscribed("grpTest", "publish refused"), ErrNotSubscribed)
	s.ErrorIs(WrapErrConnection(os.ErrClosed, "dial failed"), ErrConnection)

	// 编解码相关错误。
	s.ErrorIs(WrapErrJSONEncode(errors.New("mock encode err")), ErrJSONEncode)
	s.ErrorIs(WrapErrJSONDecode(errors.New("mock decode err"), "bad frame"), ErrJSONDecode)
}

func (s *ErrSuite) TestServerResponse() {
	err := WrapErrServerResponse(401, "authentication failed", "auth")
	s.ErrorIs(err, ErrServerResponse)
	s.Equal(401, ServerCode(err))
	s.Equal("authentication failed", ServerText(err))
	s.Equal("auth", ServerWhat(err))

	// 包装之后三元组仍然可读。
	wrapped := errors.Wrap(err, "login")
	s.ErrorIs(wrapped, ErrServerResponse)
	s.Equal(401, ServerCode(wrapped))

	// 非服务器应答错误读取不到三元组。
	s.Equal(0, ServerCode(ErrNotConnected))
	s.Equal("", ServerText(ErrNotConnected))
}

func (s *ErrSuite) TestReplyTimeout() {
	err := NewErrReplyTimeout()
	s.ErrorIs(err, ErrServerResponse)
	s.Equal(504, ServerCode(err))
	s.Equal("timeout", ServerText(err))
	s.Equal("", ServerWhat(err))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)

	err = Combine(err, nil)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
