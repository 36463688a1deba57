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

package common

const (
	// App is the program name, used as the metrics namespace and in the
	// version output.
	App = "secscodec"

	// Version is the fallback build version when no linker-injected
	// value is available.
	Version = "v0.0.1"

	// ReadWriteBlockSize is the default receive buffer size for a new
	// Decoder.
	//
	// A TCP segment tops out at 64K (65535 bytes), but allocating that
	// much per connection up front is wasteful for the common case of
	// small SECS-II messages; the decoder grows past this when a frame
	// needs more.
	ReadWriteBlockSize = 4096
)
