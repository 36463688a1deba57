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

// Package psecs implements the SECS-II item model and the HSMS stream
// decoder/encoder built on top of it.
package psecs

// SecsFormat identifies the wire format of an Item. The value is the format
// code already shifted into item-header position (the top six bits of the
// header byte) so that `byte(format) | lengthBits` reproduces the header
// byte directly.
type SecsFormat uint8

const (
	FormatList    SecsFormat = 0x00
	FormatBinary  SecsFormat = 0x20
	FormatBoolean SecsFormat = 0x24
	FormatASCII   SecsFormat = 0x40
	FormatJIS8    SecsFormat = 0x44
	FormatI8      SecsFormat = 0x60
	FormatI1      SecsFormat = 0x64
	FormatI2      SecsFormat = 0x68
	FormatI4      SecsFormat = 0x70
	FormatF8      SecsFormat = 0x80
	FormatF4      SecsFormat = 0x90
	FormatU8      SecsFormat = 0xA0
	FormatU1      SecsFormat = 0xA4
	FormatU2      SecsFormat = 0xA8
	FormatU4      SecsFormat = 0xAC
)

// kind groups formats that share the same payload shape.
type kind uint8

const (
	kindList kind = iota
	kindText
	kindBinary
	kindBoolean
	kindNumeric
)

type formatInfo struct {
	name     string
	kind     kind
	elemSize int // bytes per element; meaningless for kindList
}

// formatTable lists every known format with its mnemonic, payload shape
// and element size. The decoders use it to reject unknown format codes and
// String uses it for the mnemonic; encodePayload and decodeScalarPayload do
// not read element sizes from it but spell out each format's width in their
// own switch statements.
var formatTable = map[SecsFormat]formatInfo{
	FormatList:    {name: "L", kind: kindList},
	FormatBinary:  {name: "B", kind: kindBinary, elemSize: 1},
	FormatBoolean: {name: "BOOLEAN", kind: kindBoolean, elemSize: 1},
	FormatASCII:   {name: "A", kind: kindText},
	FormatJIS8:    {name: "J", kind: kindText},
	FormatI8:      {name: "I8", kind: kindNumeric, elemSize: 8},
	FormatI1:      {name: "I1", kind: kindNumeric, elemSize: 1},
	FormatI2:      {name: "I2", kind: kindNumeric, elemSize: 2},
	FormatI4:      {name: "I4", kind: kindNumeric, elemSize: 4},
	FormatF8:      {name: "F8", kind: kindNumeric, elemSize: 8},
	FormatF4:      {name: "F4", kind: kindNumeric, elemSize: 4},
	FormatU8:      {name: "U8", kind: kindNumeric, elemSize: 8},
	FormatU1:      {name: "U1", kind: kindNumeric, elemSize: 1},
	FormatU2:      {name: "U2", kind: kindNumeric, elemSize: 2},
	FormatU4:      {name: "U4", kind: kindNumeric, elemSize: 4},
}

// String renders the SECS-II mnemonic for the format, e.g. "U2", "L", "A".
func (f SecsFormat) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// lengthBitsFor returns the minimal number of length-field bytes (1..3)
// needed to represent n, or 0 if n overflows the 3-byte length field.
func lengthBitsFor(n int) int {
	switch {
	case n <= 0xFF:
		return 1
	case n <= 0xFFFF:
		return 2
	case n <= 0xFFFFFF:
		return 3
	default:
		return 0
	}
}
