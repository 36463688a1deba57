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

import "encoding/binary"

// SType is the HSMS session-control type carried in header byte 5. Zero
// means the frame is a data message; non-zero values identify one of the
// fixed control exchanges.
type SType uint8

const (
	STypeDataMessage SType = 0
	STypeSelectReq   SType = 1
	STypeSelectRsp   SType = 2
	STypeDeselectReq SType = 3
	STypeDeselectRsp SType = 4
	STypeLinktestReq SType = 5
	STypeLinktestRsp SType = 6
	STypeRejectReq   SType = 7
	STypeSeparateReq SType = 9
)

func (s SType) String() string {
	switch s {
	case STypeDataMessage:
		return "data"
	case STypeSelectReq:
		return "select.req"
	case STypeSelectRsp:
		return "select.rsp"
	case STypeDeselectReq:
		return "deselect.req"
	case STypeDeselectRsp:
		return "deselect.rsp"
	case STypeLinktestReq:
		return "linktest.req"
	case STypeLinktestRsp:
		return "linktest.rsp"
	case STypeRejectReq:
		return "reject.req"
	case STypeSeparateReq:
		return "separate.req"
	default:
		return "unknown"
	}
}

// headerLength is the fixed HSMS message header size in bytes.
const headerLength = 10

// MessageHeader is the fixed 10-byte HSMS header that precedes every
// frame's item tree (if any).
type MessageHeader struct {
	DeviceID      uint16
	Stream        uint8 // S, 0..127, reply bit excluded
	ReplyExpected bool  // the W bit folded into byte 2 on the wire
	Function      uint8 // F
	PType         uint8
	SType         SType
	SystemBytes   uint32
}

// IsControl reports whether the header belongs to an HSMS control
// message (SType != 0) rather than a SECS-II data message.
func (h MessageHeader) IsControl() bool {
	return h.SType != STypeDataMessage
}

// ParseHeader decodes the fixed 10-byte HSMS header. b must have length
// headerLength; every bit pattern is a structurally valid header, so this
// never fails.
func ParseHeader(b []byte) MessageHeader {
	_ = b[headerLength-1]
	byte2 := b[2]
	return MessageHeader{
		DeviceID:      binary.BigEndian.Uint16(b[0:2]),
		Stream:        byte2 &^ 0x80,
		ReplyExpected: byte2&0x80 != 0,
		Function:      b[3],
		PType:         b[4],
		SType:         SType(b[5]),
		SystemBytes:   binary.BigEndian.Uint32(b[6:10]),
	}
}

// Bytes encodes the header back to its 10-byte wire form.
func (h MessageHeader) Bytes() []byte {
	b := make([]byte, headerLength)
	binary.BigEndian.PutUint16(b[0:2], h.DeviceID)
	byte2 := h.Stream &^ 0x80
	if h.ReplyExpected {
		byte2 |= 0x80
	}
	b[2] = byte2
	b[3] = h.Function
	b[4] = h.PType
	b[5] = byte(h.SType)
	binary.BigEndian.PutUint32(b[6:10], h.SystemBytes)
	return b
}
