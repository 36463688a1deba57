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

// Package metrics exposes the prometheus counters/gauges the decoder and
// the CLI commands update, served by `cmd serve` at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/secscodec/common"
)

var (
	// FramesDecoded counts completed messages, by kind ("data" or
	// "control").
	FramesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "frames_decoded_total",
			Help:      "Frames fully decoded, by message kind",
		},
		[]string{"kind"},
	)

	// DecodeErrors counts Decode calls that returned a protocol error, by
	// sentinel name.
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "decode_errors_total",
			Help:      "Decode calls that failed, by error kind",
		},
		[]string{"kind"},
	)

	// BufferResizes counts receive-buffer growth events.
	BufferResizes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "buffer_resizes_total",
			Help:      "Receive buffer reallocations across all decoders",
		},
	)

	// BufferBytesInUse reports the current receive buffer capacity for
	// the decoder driving `cmd serve`'s /decode endpoint.
	BufferBytesInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "buffer_bytes_in_use",
			Help:      "Current receive buffer capacity",
		},
	)

	// BuildInfo carries version/git-hash/build-time as label values with
	// a constant value of 1, the standard Prometheus build-info idiom.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)
)

// ErrorKind turns a short error name (e.g. "frame_corrupt") into the label
// value DecodeErrors expects; an empty name falls back to "other".
func ErrorKind(name string) string {
	if name == "" {
		return "other"
	}
	return name
}
