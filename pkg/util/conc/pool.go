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

package conc

import (
	"runtime"
	"sync"

	ants "github.com/panjf2000/ants/v2"
)

// Future 表示一个异步任务的结果占位。
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Await 阻塞等待任务完成，返回任务的结果和错误。
func (f *Future[T]) Await() (T, error) {
	<-f.ch
	return f.value, f.err
}

// Done 返回一个在任务完成时关闭的 channel，便于 select。
func (f *Future[T]) Done() <-chan struct{} {
	return f.ch
}

// Err 阻塞等待任务完成，仅返回错误。
func (f *Future[T]) Err() error {
	<-f.ch
	return f.err
}

// Pool 为基于 ants 的泛型协程池。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建一个容量为 cap 的协程池。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		// 仅在参数非法时可能发生。
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// Submit 向池中提交一个任务，返回对应的 Future。
// 当池已满且配置为非阻塞时，Future 以 ants.ErrPoolOverload 失败。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()

	err := pool.inner.Submit(func() {
		defer close(future.ch)
		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		future.value, future.err = method()
	})
	if err != nil {
		future.err = err
		close(future.ch)
	}

	return future
}

// Cap 返回池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running 返回当前正在执行任务的 worker 数量。
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Release 释放池资源；已提交任务会执行完毕。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

var (
	globalPool     *Pool[any]
	globalPoolOnce sync.Once
)

func getGlobalPool() *Pool[any] {
	globalPoolOnce.Do(func() {
		globalPool = NewPool[any](runtime.GOMAXPROCS(0)*16, WithConcealPanic(true))
	})
	return globalPool
}

// Go 将任务提交到全局协程池执行，用于替代裸 go 关键字，
// 统一 panic 处理并便于观测在途任务数量。
func Go(method func() (any, error)) *Future[any] {
	return getGlobalPool().Submit(method)
}
