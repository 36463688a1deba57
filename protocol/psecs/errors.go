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

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "psecs: " + format
	return errors.Errorf(format, args...)
}

// Sentinel errors for the five-kind taxonomy. Callers distinguish them with
// errors.Is. Decode returns ErrBadFormatCode, ErrFrameCorrupt and (for a
// misaligned numeric payload) ErrItemOversize, and every one of them is
// terminal for the originating Decoder. ErrListOverflow surfaces from list
// construction and encoding, ErrWrongFormat from accessors, and
// ErrItemOversize from encoding as well.
var (
	// ErrItemOversize is returned when an item's encoded value would need
	// more than 3 length-field bytes (over 16MB), or when a decoded numeric
	// payload's byte length isn't a whole multiple of its element size.
	ErrItemOversize = newError("item value exceeds the maximum encodable size")

	// ErrWrongFormat is returned by a typed accessor when the Item's
	// format doesn't match what the accessor expects.
	ErrWrongFormat = newError("item format does not match accessor")

	// ErrBadFormatCode is returned when a header byte's format bits don't
	// match any known SecsFormat, or its lengthBits field is zero.
	ErrBadFormatCode = newError("unrecognized item format code")

	// ErrListOverflow is returned when a list being built or encoded has
	// more than 255 children. A decoded list header that declares more
	// than 255 children is reported as ErrFrameCorrupt instead.
	ErrListOverflow = newError("list item declares more than 255 children")

	// ErrFrameCorrupt is returned when frame-level bookkeeping goes
	// negative or otherwise inconsistent (e.g. a declared messageDataLength
	// that is smaller than the bytes needed to hold the fixed header).
	ErrFrameCorrupt = newError("frame length inconsistent with its contents")
)
