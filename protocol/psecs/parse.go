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
	"encoding/binary"
	"math"
)

// decodeScalarPayload builds the typed Item for a non-List format from its
// already-delimited payload bytes. Shared by the fast (whole-tree-present)
// parser and the incremental stage-4 decoder so the two paths can never
// disagree on how a format's bytes are turned into Go values.
func decodeScalarPayload(format SecsFormat, b []byte) (*Item, error) {
	switch format {
	case FormatASCII:
		return A(string(b)), nil
	case FormatJIS8:
		return J(decodeJIS8(b)), nil
	case FormatBinary:
		return B(b), nil
	case FormatU1:
		return U1(b), nil
	case FormatBoolean:
		v := make([]bool, len(b))
		for i, c := range b {
			v[i] = c != 0
		}
		return Boolean(v), nil
	case FormatI1:
		v := make([]int8, len(b))
		for i, c := range b {
			v[i] = int8(c)
		}
		return I1(v), nil
	case FormatI2:
		if len(b)%2 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]int16, len(b)/2)
		for i := range v {
			v[i] = int16(binary.BigEndian.Uint16(b[i*2:]))
		}
		return I2(v), nil
	case FormatI4:
		if len(b)%4 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]int32, len(b)/4)
		for i := range v {
			v[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
		}
		return I4(v), nil
	case FormatI8:
		if len(b)%8 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]int64, len(b)/8)
		for i := range v {
			v[i] = int64(binary.BigEndian.Uint64(b[i*8:]))
		}
		return I8(v), nil
	case FormatU2:
		if len(b)%2 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]uint16, len(b)/2)
		for i := range v {
			v[i] = binary.BigEndian.Uint16(b[i*2:])
		}
		return U2(v), nil
	case FormatU4:
		if len(b)%4 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]uint32, len(b)/4)
		for i := range v {
			v[i] = binary.BigEndian.Uint32(b[i*4:])
		}
		return U4(v), nil
	case FormatU8:
		if len(b)%8 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]uint64, len(b)/8)
		for i := range v {
			v[i] = binary.BigEndian.Uint64(b[i*8:])
		}
		return U8(v), nil
	case FormatF4:
		if len(b)%4 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]float32, len(b)/4)
		for i := range v {
			v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
		}
		return F4(v), nil
	case FormatF8:
		if len(b)%8 != 0 {
			return nil, ErrItemOversize
		}
		v := make([]float64, len(b)/8)
		for i := range v {
			v[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
		}
		return F8(v), nil
	}
	return nil, ErrBadFormatCode
}

// parseItemHeader reads the format byte and length field starting at b[0],
// returning the format, the declared element/byte count, and how many
// header bytes were consumed. Requires len(b) >= 1.
func parseItemHeader(b []byte) (format SecsFormat, n int, headerBytes int, err error) {
	fb := b[0]
	format = SecsFormat(fb &^ 0x03)
	lengthBits := int(fb & 0x03)
	if _, ok := formatTable[format]; !ok || lengthBits == 0 {
		return 0, 0, 0, ErrBadFormatCode
	}
	if len(b) < 1+lengthBits {
		return 0, 0, 0, ErrFrameCorrupt
	}
	n = 0
	for _, c := range b[1 : 1+lengthBits] {
		n = n<<8 | int(c)
	}
	return format, n, 1 + lengthBits, nil
}

// parseItemTree recursively decodes one complete item (and, for a List,
// all of its descendants) from b, which must hold the item's entire wire
// representation. Used when the stream decoder finds the whole item tree
// already buffered, avoiding the overhead of the incremental stack-based
// state machine for the common case of a message that arrives in one read.
func parseItemTree(b []byte) (*Item, int, error) {
	if len(b) < 1 {
		return nil, 0, ErrFrameCorrupt
	}
	format, n, pos, err := parseItemHeader(b)
	if err != nil {
		return nil, 0, err
	}

	if format == FormatList {
		if n > 255 {
			return nil, 0, ErrFrameCorrupt
		}
		if n == 0 {
			return emptyList, pos, nil
		}
		children := make([]*Item, 0, n)
		for i := 0; i < n; i++ {
			if pos > len(b) {
				return nil, 0, ErrFrameCorrupt
			}
			child, consumed, err := parseItemTree(b[pos:])
			if err != nil {
				return nil, 0, err
			}
			children = append(children, child)
			pos += consumed
		}
		return L(children), pos, nil
	}

	if len(b) < pos+n {
		return nil, 0, ErrFrameCorrupt
	}
	item, err := decodeScalarPayload(format, b[pos:pos+n])
	if err != nil {
		return nil, 0, err
	}
	return item, pos + n, nil
}
