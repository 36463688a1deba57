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

package psecs

import (
	"fmt"
	"net"
)

// SecsMessage is a fully decoded (or about-to-be-encoded) SECS-II/HSMS
// frame: a header plus an optional item tree. Root is nil for HSMS
// control messages and for header-only SECS-II data messages.
type SecsMessage struct {
	Header MessageHeader
	Name   string // optional, display only; never sent on the wire
	Root   *Item
}

// S returns the stream code.
func (m SecsMessage) S() int { return int(m.Header.Stream) }

// F returns the function code.
func (m SecsMessage) F() int { return int(m.Header.Function) }

// HeaderSummary renders a display-only summary such as "S6F11 W", grounded on
// the pack's lib-secs2-hsms-go DataMessage.Header(). Not part of the wire
// contract; used by logs and by the `cmd dump` text view.
func (m SecsMessage) HeaderSummary() string {
	s := fmt.Sprintf("S%dF%d", m.S(), m.F())
	if m.Header.ReplyExpected {
		s += " W"
	}
	if m.Header.IsControl() {
		s += " " + m.Header.SType.String()
	}
	if m.Name != "" {
		s += " " + m.Name
	}
	return s
}

func (m SecsMessage) String() string {
	if m.Root == nil {
		return m.HeaderSummary() + "\n."
	}
	return fmt.Sprintf("%s\n%s\n.", m.HeaderSummary(), m.Root)
}

// Fragments builds the scatter/gather byte sequence for the whole frame:
// a 4-byte big-endian length prefix, the 10-byte header, and (depth-first)
// every item's header/payload fragment. The result can be written directly
// with net.Buffers.WriteTo.
func (m SecsMessage) Fragments() (net.Buffers, error) {
	headerBytes := m.Header.Bytes()

	var itemBufs net.Buffers
	if m.Root != nil {
		if err := m.Root.appendFragments(&itemBufs); err != nil {
			return nil, err
		}
	}

	total := len(headerBytes)
	for _, b := range itemBufs {
		total += len(b)
	}

	lengthPrefix := make([]byte, 4)
	putBigEndian(lengthPrefix, total, 4)

	bufs := make(net.Buffers, 0, 2+len(itemBufs))
	bufs = append(bufs, lengthPrefix, headerBytes)
	bufs = append(bufs, itemBufs...)
	return bufs, nil
}

// Encode flattens Fragments into a single contiguous byte slice. Prefer
// Fragments when writing to a net.Conn: it avoids the copy.
func (m SecsMessage) Encode() ([]byte, error) {
	bufs, err := m.Fragments()
	if err != nil {
		return nil, err
	}
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out, nil
}
