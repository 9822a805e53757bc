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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case clientError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(clientError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// serverResponse 在错误链上携带服务器 ctrl 应答的 (code, text, what) 三元组。
type serverResponse struct {
	cause error

	code int
	text string
	what string
}

func (e *serverResponse) Error() string {
	if e.what != "" {
		return fmt.Sprintf("%s: %d %s (%s)", e.cause.Error(), e.code, e.text, e.what)
	}
	return fmt.Sprintf("%s: %d %s", e.cause.Error(), e.code, e.text)
}

func (e *serverResponse) Unwrap() error {
	return e.cause
}

// WrapErrServerResponse 根据服务器 ctrl 应答构造错误。
// what 对应 ctrl.params["what"]，没有时传空字符串。
func WrapErrServerResponse(code int, text string, what string, msg ...string) error {
	err := error(&serverResponse{
		cause: ErrServerResponse,
		code:  code,
		text:  text,
		what:  what,
	})
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// NewErrReplyTimeout 构造一个表示请求等待应答超时的错误。
// 语义上等价于服务器返回 ctrl{code: 504, text: "timeout"}。
func NewErrReplyTimeout() error {
	return WrapErrServerResponse(504, "timeout", "")
}

// ServerCode 返回错误链上携带的服务器应答码；若错误不是服务器应答错误则返回 0。
func ServerCode(err error) int {
	var sr *serverResponse
	if errors.As(err, &sr) {
		return sr.code
	}
	return 0
}

// ServerText 返回错误链上携带的服务器应答文本。
func ServerText(err error) string {
	var sr *serverResponse
	if errors.As(err, &sr) {
		return sr.text
	}
	return ""
}

// ServerWhat 返回错误链上携带的 "what" 参数。
func ServerWhat(err error) string {
	var sr *serverResponse
	if errors.As(err, &sr) {
		return sr.what
	}
	return ""
}

// wrapFields 为叶子错误附加若干 key=value 说明。
func wrapFields(err clientError, fields ...errorField) error {
	kvs := make([]string, 0, len(fields))
	for _, field := range fields {
		kvs = append(kvs, field.String())
	}
	return errors.Wrap(err, strings.Join(kvs, ", "))
}

type errorField struct {
	key   string
	value any
}

func (f errorField) String() string {
	return fmt.Sprintf("%s=%v", f.key, f.value)
}

func value(key string, value any) errorField {
	return errorField{key: key, value: value}
}

func WrapErrInvalidState(state string, msg ...string) error {
	err := wrapFields(ErrInvalidState, value("state", state))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidArgument(name string, v any, msg ...string) error {
	err := wrapFields(ErrInvalidArgument, value(name, v))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidReply(reason string, msg ...string) error {
	err := wrapFields(ErrInvalidReply, value("reason", reason))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNotConnected(op string, msg ...string) error {
	err := wrapFields(ErrNotConnected, value("op", op))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNotSubscribed(topic string, msg ...string) error {
	err := wrapFields(ErrNotSubscribed, value("topic", topic))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConnection(err error, msg ...string) error {
	wrapped := Combine(ErrConnection, err)
	if len(msg) > 0 {
		wrapped = errors.Wrap(wrapped, strings.Join(msg, "->"))
	}
	return wrapped
}

func WrapErrJSONEncode(err error, msg ...string) error {
	wrapped := Combine(ErrJSONEncode, err)
	if len(msg) > 0 {
		wrapped = errors.Wrap(wrapped, strings.Join(msg, "->"))
	}
	return wrapped
}

func WrapErrJSONDecode(err error, msg ...string) error {
	wrapped := Combine(ErrJSONDecode, err)
	if len(msg) > 0 {
		wrapped = errors.Wrap(wrapped, strings.Join(msg, "->"))
	}
	return wrapped
}
