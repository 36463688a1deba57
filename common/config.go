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

// DecoderConfig holds the tunables a caller wires into psecs.NewDecoder
// via psecs.Option. It is kept here, rather than in package psecs, so
// that cmd can decode a "decoder" config section (via confengine) without
// psecs importing the CLI's config layer.
type DecoderConfig struct {
	InitialBufferBytes int `config:"initialBufferBytes"`
}

// DefaultDecoderConfig returns the value psecs.NewDecoder falls back to
// when no "decoder" section is present in the loaded config.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{InitialBufferBytes: ReadWriteBlockSize}
}
