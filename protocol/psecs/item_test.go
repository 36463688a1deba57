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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatten renders an item's full wire representation, header plus (for
// lists) every descendant in order - unlike RawBytes, which for a list
// item is only that list's own 2-byte header.
func flatten(t *testing.T, it *Item) []byte {
	t.Helper()
	var bufs net.Buffers
	require.NoError(t, it.appendFragments(&bufs))
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

func TestItemRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		item *Item
	}{
		{name: "empty list", item: L(nil)},
		{name: "ascii", item: A("Hello!")},
		{name: "jis8 katakana", item: J("ｱｲA")},
		{name: "binary", item: B([]byte{0x01, 0x02, 0xFF})},
		{name: "boolean", item: Boolean([]bool{true, false, true})},
		{name: "u1", item: U1([]uint8{1, 2, 3})},
		{name: "u2", item: U2([]uint16{0x1234, 0xFFFF})},
		{name: "u4", item: U4([]uint32{0xDEADBEEF})},
		{name: "u8", item: U8([]uint64{0x0102030405060708})},
		{name: "i1", item: I1([]int8{-1, 0, 127})},
		{name: "i2", item: I2([]int16{-32768, 32767})},
		{name: "i4", item: I4([]int32{-1, 1})},
		{name: "i8", item: I8([]int64{-1})},
		{name: "f4", item: F4([]float32{3.5, -2.25})},
		{name: "f8", item: F8([]float64{1.0 / 3.0})},
		{
			name: "nested list",
			item: L([]*Item{U2([]uint16{0x1234}), L(nil)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := flatten(t, tt.item)

			decoded, consumed, err := parseItemTree(raw)
			require.NoError(t, err)
			assert.Equal(t, len(raw), consumed)
			assert.True(t, decoded.Matches(tt.item), "decoded=%s want=%s", decoded, tt.item)
			assert.True(t, tt.item.Matches(decoded))
		})
	}
}

func TestEmptyItemsAreInterned(t *testing.T) {
	assert.Same(t, emptyList, L(nil))
	assert.Same(t, emptyASCII, A(""))
	assert.Same(t, emptyU2, U2(nil))
	assert.Same(t, emptyBinary, B(nil))
}

func TestListOverflowPanics(t *testing.T) {
	children := make([]*Item, 256)
	for i := range children {
		children[i] = emptyList
	}
	assert.PanicsWithValue(t, ErrListOverflow, func() {
		L(children)
	})
}

func TestMatchesWildcard(t *testing.T) {
	wildcard := U2(nil) // zero-count template, matches any U2
	assert.True(t, U2([]uint16{1, 2, 3}).Matches(wildcard))
	assert.False(t, U4([]uint32{1}).Matches(wildcard))

	exact := U2([]uint16{1, 2})
	assert.True(t, U2([]uint16{1, 2}).Matches(exact))
	assert.False(t, U2([]uint16{1, 3}).Matches(exact))
	assert.False(t, U2([]uint16{1, 2, 3}).Matches(exact))
}

func TestWrongFormatAccessor(t *testing.T) {
	item := A("x")
	_, err := item.U2()
	assert.ErrorIs(t, err, ErrWrongFormat)
}

func TestItemHashStable(t *testing.T) {
	a := L([]*Item{A("x"), U2([]uint16{1, 2})})
	b := L([]*Item{A("x"), U2([]uint16{1, 2})})
	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	c := L([]*Item{A("y"), U2([]uint16{1, 2})})
	hc, err := c.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestValidateAggregatesOversizedItems(t *testing.T) {
	big1 := U1(make([]byte, 1<<24+1))
	big2 := U1(make([]byte, 1<<24+1))
	tree := L([]*Item{big1, big2})

	err := Validate(tree)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemOversize)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestItemStringFormatsList(t *testing.T) {
	s := L([]*Item{A("x"), L(nil)}).String()
	assert.Equal(t, `<L [<A "x"> <L []>]>`, s)
}
