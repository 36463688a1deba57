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

// JIS8 items carry JIS X 0201: the low half matches ASCII, and bytes
// 0xA1-0xDF are the half-width katakana block, which maps 1:1 onto the
// Unicode half-width-and-fullwidth-forms range U+FF61-U+FF9F. Nothing in
// the retrieval pack pulls in a dedicated Japanese text-encoding library
// (golang.org/x/text/encoding/japanese is only an indirect dependency of
// unrelated packages), and the mapping is a fixed 63-byte table, so it is
// implemented directly rather than adding an unwired ecosystem dependency.
const jis8KatakanaBase = 0xA1
const jis8KatakanaRuneBase = 0xFF61
const jis8KatakanaCount = 0xDF - 0xA1 + 1

func decodeJIS8(b []byte) string {
	runes := make([]rune, 0, len(b))
	for _, c := range b {
		switch {
		case c < 0x80:
			runes = append(runes, rune(c))
		case c >= jis8KatakanaBase && c < jis8KatakanaBase+jis8KatakanaCount:
			runes = append(runes, jis8KatakanaRuneBase+rune(c-jis8KatakanaBase))
		default:
			runes = append(runes, '�')
		}
	}
	return string(runes)
}

func encodeJIS8(s string) []byte {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x80:
			b = append(b, byte(r))
		case r >= jis8KatakanaRuneBase && r < jis8KatakanaRuneBase+jis8KatakanaCount:
			b = append(b, byte(r-jis8KatakanaRuneBase)+jis8KatakanaBase)
		default:
			b = append(b, '?')
		}
	}
	return b
}
