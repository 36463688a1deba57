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
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Item is an immutable node of a SECS-II item tree: a List of children, or
// a homogeneous array of one scalar format. Construct one with the package
// level factories (L, B, A, J, U1..U8, I1..I8, F4, F8, Boolean), never with
// a struct literal.
type Item struct {
	format SecsFormat

	children []*Item
	text     string
	raw      []byte // Binary / U1
	bools    []bool
	i1       []int8
	i2       []int16
	i4       []int32
	i8       []int64
	f4       []float32
	f8       []float64
	u2       []uint16
	u4       []uint32
	u8       []uint64

	rawOnce sync.Once
	rawVal  []byte
	rawErr  error
}

// Interned empty instances, one per format, returned by the factories
// whenever the caller passes a zero-length value. They also double as the
// zero-count wildcard templates accepted by Matches.
var (
	emptyList    = &Item{format: FormatList}
	emptyBinary  = &Item{format: FormatBinary}
	emptyBoolean = &Item{format: FormatBoolean}
	emptyASCII   = &Item{format: FormatASCII}
	emptyJIS8    = &Item{format: FormatJIS8}
	emptyI1      = &Item{format: FormatI1}
	emptyI2      = &Item{format: FormatI2}
	emptyI4      = &Item{format: FormatI4}
	emptyI8      = &Item{format: FormatI8}
	emptyF4      = &Item{format: FormatF4}
	emptyF8      = &Item{format: FormatF8}
	emptyU1      = &Item{format: FormatU1}
	emptyU2      = &Item{format: FormatU2}
	emptyU4      = &Item{format: FormatU4}
	emptyU8      = &Item{format: FormatU8}
)

// L constructs a List item. Panics with ErrListOverflow if children has
// more than 255 elements; the wire format has no way to represent that.
func L(children []*Item) *Item {
	if len(children) == 0 {
		return emptyList
	}
	if len(children) > 255 {
		panic(ErrListOverflow)
	}
	return &Item{format: FormatList, children: children}
}

// B constructs a Binary item from a raw byte string.
func B(b []byte) *Item {
	if len(b) == 0 {
		return emptyBinary
	}
	return &Item{format: FormatBinary, raw: b}
}

// A constructs an ASCII text item.
func A(s string) *Item {
	if len(s) == 0 {
		return emptyASCII
	}
	return &Item{format: FormatASCII, text: s}
}

// J constructs a JIS-8 (JIS X 0201) text item.
func J(s string) *Item {
	if len(s) == 0 {
		return emptyJIS8
	}
	return &Item{format: FormatJIS8, text: s}
}

// Boolean constructs a Boolean array item.
func Boolean(v []bool) *Item {
	if len(v) == 0 {
		return emptyBoolean
	}
	return &Item{format: FormatBoolean, bools: v}
}

func I1(v []int8) *Item {
	if len(v) == 0 {
		return emptyI1
	}
	return &Item{format: FormatI1, i1: v}
}

func I2(v []int16) *Item {
	if len(v) == 0 {
		return emptyI2
	}
	return &Item{format: FormatI2, i2: v}
}

func I4(v []int32) *Item {
	if len(v) == 0 {
		return emptyI4
	}
	return &Item{format: FormatI4, i4: v}
}

func I8(v []int64) *Item {
	if len(v) == 0 {
		return emptyI8
	}
	return &Item{format: FormatI8, i8: v}
}

func F4(v []float32) *Item {
	if len(v) == 0 {
		return emptyF4
	}
	return &Item{format: FormatF4, f4: v}
}

func F8(v []float64) *Item {
	if len(v) == 0 {
		return emptyF8
	}
	return &Item{format: FormatF8, f8: v}
}

func U1(v []uint8) *Item {
	if len(v) == 0 {
		return emptyU1
	}
	return &Item{format: FormatU1, raw: v}
}

func U2(v []uint16) *Item {
	if len(v) == 0 {
		return emptyU2
	}
	return &Item{format: FormatU2, u2: v}
}

func U4(v []uint32) *Item {
	if len(v) == 0 {
		return emptyU4
	}
	return &Item{format: FormatU4, u4: v}
}

func U8(v []uint64) *Item {
	if len(v) == 0 {
		return emptyU8
	}
	return &Item{format: FormatU8, u8: v}
}

// Format reports the item's wire format.
func (it *Item) Format() SecsFormat {
	return it.format
}

// Accessors. Each returns ErrWrongFormat if the item wasn't built with the
// matching factory.

func (it *Item) List() ([]*Item, error) {
	if it.format != FormatList {
		return nil, ErrWrongFormat
	}
	return it.children, nil
}

func (it *Item) B() ([]byte, error) {
	if it.format != FormatBinary {
		return nil, ErrWrongFormat
	}
	return it.raw, nil
}

func (it *Item) A() (string, error) {
	if it.format != FormatASCII {
		return "", ErrWrongFormat
	}
	return it.text, nil
}

func (it *Item) J() (string, error) {
	if it.format != FormatJIS8 {
		return "", ErrWrongFormat
	}
	return it.text, nil
}

func (it *Item) Boolean() ([]bool, error) {
	if it.format != FormatBoolean {
		return nil, ErrWrongFormat
	}
	return it.bools, nil
}

func (it *Item) I1() ([]int8, error) {
	if it.format != FormatI1 {
		return nil, ErrWrongFormat
	}
	return it.i1, nil
}

func (it *Item) I2() ([]int16, error) {
	if it.format != FormatI2 {
		return nil, ErrWrongFormat
	}
	return it.i2, nil
}

func (it *Item) I4() ([]int32, error) {
	if it.format != FormatI4 {
		return nil, ErrWrongFormat
	}
	return it.i4, nil
}

func (it *Item) I8() ([]int64, error) {
	if it.format != FormatI8 {
		return nil, ErrWrongFormat
	}
	return it.i8, nil
}

func (it *Item) F4() ([]float32, error) {
	if it.format != FormatF4 {
		return nil, ErrWrongFormat
	}
	return it.f4, nil
}

func (it *Item) F8() ([]float64, error) {
	if it.format != FormatF8 {
		return nil, ErrWrongFormat
	}
	return it.f8, nil
}

func (it *Item) U1() ([]uint8, error) {
	if it.format != FormatU1 {
		return nil, ErrWrongFormat
	}
	return it.raw, nil
}

func (it *Item) U2() ([]uint16, error) {
	if it.format != FormatU2 {
		return nil, ErrWrongFormat
	}
	return it.u2, nil
}

func (it *Item) U4() ([]uint32, error) {
	if it.format != FormatU4 {
		return nil, ErrWrongFormat
	}
	return it.u4, nil
}

func (it *Item) U8() ([]uint64, error) {
	if it.format != FormatU8 {
		return nil, ErrWrongFormat
	}
	return it.u8, nil
}

// elemCount returns the List child count, or the scalar element count
// (the byte count for text), used by Matches for its wildcard and count
// checks.
func (it *Item) elemCount() int {
	switch it.format {
	case FormatList:
		return len(it.children)
	case FormatASCII:
		return len(it.text)
	case FormatJIS8:
		return len(encodeJIS8(it.text))
	case FormatBinary, FormatU1:
		return len(it.raw)
	case FormatBoolean:
		return len(it.bools)
	case FormatI1:
		return len(it.i1)
	case FormatI2:
		return len(it.i2)
	case FormatI4:
		return len(it.i4)
	case FormatI8:
		return len(it.i8)
	case FormatU2:
		return len(it.u2)
	case FormatU4:
		return len(it.u4)
	case FormatU8:
		return len(it.u8)
	case FormatF4:
		return len(it.f4)
	case FormatF8:
		return len(it.f8)
	}
	return 0
}

// Matches reports whether it structurally equals template, treating a
// template with zero elements (including the interned empty items) as a
// wildcard that matches any instance of the same format.
func (it *Item) Matches(template *Item) bool {
	if template == nil {
		return false
	}
	if it.format != template.format {
		return false
	}
	if template.elemCount() == 0 {
		return true
	}
	if it.elemCount() != template.elemCount() {
		return false
	}
	switch it.format {
	case FormatList:
		for i, c := range it.children {
			if !c.Matches(template.children[i]) {
				return false
			}
		}
		return true
	case FormatASCII, FormatJIS8:
		return it.text == template.text
	case FormatBinary, FormatU1:
		return slices.Equal(it.raw, template.raw)
	case FormatBoolean:
		return slices.Equal(it.bools, template.bools)
	case FormatI1:
		return slices.Equal(it.i1, template.i1)
	case FormatI2:
		return slices.Equal(it.i2, template.i2)
	case FormatI4:
		return slices.Equal(it.i4, template.i4)
	case FormatI8:
		return slices.Equal(it.i8, template.i8)
	case FormatU2:
		return slices.Equal(it.u2, template.u2)
	case FormatU4:
		return slices.Equal(it.u4, template.u4)
	case FormatU8:
		return slices.Equal(it.u8, template.u8)
	case FormatF4:
		return slices.Equal(it.f4, template.f4)
	case FormatF8:
		return slices.Equal(it.f8, template.f8)
	}
	return false
}

// RawBytes returns the item's lazily-computed wire representation: header
// plus payload for every non-List format, header only for List (children
// are separate fragments, see appendFragments). The result is cached after
// the first call and is safe to read concurrently from then on.
func (it *Item) RawBytes() ([]byte, error) {
	it.rawOnce.Do(func() {
		it.rawVal, it.rawErr = it.computeRawBytes()
	})
	return it.rawVal, it.rawErr
}

func (it *Item) computeRawBytes() ([]byte, error) {
	if it.format == FormatList {
		if len(it.children) > 255 {
			return nil, ErrListOverflow
		}
		n := len(it.children)
		lb := lengthBitsFor(n)
		header := make([]byte, 1+lb)
		header[0] = byte(it.format) | byte(lb)
		putBigEndian(header[1:], n, lb)
		return header, nil
	}

	payload, err := it.encodePayload()
	if err != nil {
		return nil, err
	}
	lb := lengthBitsFor(len(payload))
	if lb == 0 {
		return nil, ErrItemOversize
	}
	out := make([]byte, 1+lb+len(payload))
	out[0] = byte(it.format) | byte(lb)
	putBigEndian(out[1:1+lb], len(payload), lb)
	copy(out[1+lb:], payload)
	return out, nil
}

func (it *Item) encodePayload() ([]byte, error) {
	switch it.format {
	case FormatASCII:
		return []byte(it.text), nil
	case FormatJIS8:
		return encodeJIS8(it.text), nil
	case FormatBinary, FormatU1:
		return it.raw, nil
	case FormatBoolean:
		b := make([]byte, len(it.bools))
		for i, v := range it.bools {
			if v {
				b[i] = 1
			}
		}
		return b, nil
	case FormatI1:
		b := make([]byte, len(it.i1))
		for i, v := range it.i1 {
			b[i] = byte(v)
		}
		return b, nil
	case FormatI2:
		b := make([]byte, len(it.i2)*2)
		for i, v := range it.i2 {
			binary.BigEndian.PutUint16(b[i*2:], uint16(v))
		}
		return b, nil
	case FormatI4:
		b := make([]byte, len(it.i4)*4)
		for i, v := range it.i4 {
			binary.BigEndian.PutUint32(b[i*4:], uint32(v))
		}
		return b, nil
	case FormatI8:
		b := make([]byte, len(it.i8)*8)
		for i, v := range it.i8 {
			binary.BigEndian.PutUint64(b[i*8:], uint64(v))
		}
		return b, nil
	case FormatU2:
		b := make([]byte, len(it.u2)*2)
		for i, v := range it.u2 {
			binary.BigEndian.PutUint16(b[i*2:], v)
		}
		return b, nil
	case FormatU4:
		b := make([]byte, len(it.u4)*4)
		for i, v := range it.u4 {
			binary.BigEndian.PutUint32(b[i*4:], v)
		}
		return b, nil
	case FormatU8:
		b := make([]byte, len(it.u8)*8)
		for i, v := range it.u8 {
			binary.BigEndian.PutUint64(b[i*8:], v)
		}
		return b, nil
	case FormatF4:
		b := make([]byte, len(it.f4)*4)
		for i, v := range it.f4 {
			binary.BigEndian.PutUint32(b[i*4:], math.Float32bits(v))
		}
		return b, nil
	case FormatF8:
		b := make([]byte, len(it.f8)*8)
		for i, v := range it.f8 {
			binary.BigEndian.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b, nil
	}
	return nil, ErrBadFormatCode
}

func putBigEndian(dst []byte, n, width int) {
	for i := 0; i < width; i++ {
		dst[width-1-i] = byte(n >> (8 * i))
	}
}

// appendFragments depth-first appends it's wire bytes to bufs: its own
// header+payload (or header-only for a List), then recursively each
// child's fragments. The resulting net.Buffers is suitable for a single
// scatter/gather socket write (see net.Buffers.WriteTo).
func (it *Item) appendFragments(bufs *net.Buffers) error {
	raw, err := it.RawBytes()
	if err != nil {
		return err
	}
	*bufs = append(*bufs, raw)
	if it.format != FormatList {
		return nil
	}
	for _, c := range it.children {
		if err := c.appendFragments(bufs); err != nil {
			return err
		}
	}
	return nil
}

// Hash returns a content hash over the item's full wire representation
// (header and payload, recursively for List items), suitable for dedup
// keys or log correlation. It is not a cryptographic digest.
func (it *Item) Hash() (uint64, error) {
	var bufs net.Buffers
	if err := it.appendFragments(&bufs); err != nil {
		return 0, err
	}
	h := xxhash.New()
	for _, b := range bufs {
		_, _ = h.Write(b)
	}
	return h.Sum64(), nil
}

// String renders a human-readable, non-authoritative view of the item
// tree, e.g. "<U2 [4660]>" or "<L [<A \"x\"> <L []>]>". Grounded on the
// pretty-printer in the pack's lib-secs2-hsms-go reference, reimplemented
// for this tree shape rather than ported.
func (it *Item) String() string {
	switch it.format {
	case FormatList:
		parts := make([]string, len(it.children))
		for i, c := range it.children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("<L [%s]>", strings.Join(parts, " "))
	case FormatASCII, FormatJIS8:
		return fmt.Sprintf("<%s %q>", it.format, it.text)
	case FormatBinary, FormatU1:
		return fmt.Sprintf("<%s 0x%s>", it.format, hex.EncodeToString(it.raw))
	case FormatBoolean:
		return fmt.Sprintf("<%s %v>", it.format, it.bools)
	case FormatI1:
		return fmt.Sprintf("<%s %v>", it.format, it.i1)
	case FormatI2:
		return fmt.Sprintf("<%s %v>", it.format, it.i2)
	case FormatI4:
		return fmt.Sprintf("<%s %v>", it.format, it.i4)
	case FormatI8:
		return fmt.Sprintf("<%s %v>", it.format, it.i8)
	case FormatU2:
		return fmt.Sprintf("<%s %v>", it.format, it.u2)
	case FormatU4:
		return fmt.Sprintf("<%s %v>", it.format, it.u4)
	case FormatU8:
		return fmt.Sprintf("<%s %v>", it.format, it.u8)
	case FormatF4:
		return fmt.Sprintf("<%s %v>", it.format, it.f4)
	case FormatF8:
		return fmt.Sprintf("<%s %v>", it.format, it.f8)
	}
	return "<?>"
}
