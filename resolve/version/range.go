// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"deps.dev/util/semver"
)

// Range is an immutable NuGet version range such as "[1.0,2.0)", "1.2"
// (meaning 1.2 or later) or the floating "1.*".
// The zero value is not a valid range and is satisfied by no version.
type Range struct {
	c *semver.Constraint
}

// ParseRange parses a NuGet version range.
func ParseRange(s string) (Range, error) {
	c, err := semver.NuGet.ParseConstraint(s)
	if err != nil {
		return Range{}, err
	}
	return Range{c: c}, nil
}

// MustParseRange is like ParseRange but panics if the range cannot be
// parsed. It is intended for tests and static data.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Exact returns the range that only contains v.
func Exact(v Version) Range {
	return MustParseRange("[" + v.String() + "]")
}

// Satisfies reports whether v is a member of the range.
func (r Range) Satisfies(v Version) bool {
	if r.c == nil {
		return false
	}
	sv, err := semver.NuGet.Parse(v.String())
	if err != nil {
		return false
	}
	return r.c.MatchVersion(sv)
}

// IsZero reports whether r is the zero Range.
func (r Range) IsZero() bool { return r.c == nil }

// String returns the text the range was parsed from.
func (r Range) String() string {
	if r.c == nil {
		return ""
	}
	return r.c.String()
}
