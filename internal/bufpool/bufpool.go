// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bufpool hands out pooled byte buffers so that short-lived
// decoders (one per connection, one per replay session) don't each pay
// for a fresh allocation of their receive buffer.
package bufpool

import "github.com/valyala/bytebufferpool"

var pool bytebufferpool.Pool

// Acquire returns a pooled buffer. Its B field may carry leftover
// capacity from a previous tenant; callers that need a specific size
// should reslice or replace B directly.
func Acquire() *bytebufferpool.ByteBuffer {
	return pool.Get()
}

// Release returns b to the pool. Callers must not touch b afterwards.
func Release(b *bytebufferpool.ByteBuffer) {
	if b == nil {
		return
	}
	pool.Put(b)
}
