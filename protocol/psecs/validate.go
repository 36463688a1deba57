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
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validate walks the whole item tree under root and reports every item
// that would fail to encode (ErrItemOversize, ErrListOverflow), instead of
// stopping at the first one the way RawBytes/Fragments does. Useful
// before encoding a large, programmatically-built tree where failing
// fast on item #1 of 10000 hides the other 9999 problems.
func Validate(root *Item) error {
	var result *multierror.Error

	var walk func(it *Item, path string)
	walk = func(it *Item, path string) {
		if it == nil {
			return
		}
		if it.format == FormatList && len(it.children) > 255 {
			result = multierror.Append(result, errors.Wrapf(ErrListOverflow, "%s", path))
		}
		if _, err := it.RawBytes(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s", path))
		}
		for i, c := range it.children {
			walk(c, path+"["+strconv.Itoa(i)+"]")
		}
	}
	walk(root, "root")
	return result.ErrorOrNil()
}
