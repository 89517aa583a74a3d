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

/*
Package version provides the NuGet version and version range values used by
the resolver.

Versions have up to four numeric components and an optional pre-release
label. Parsing and range matching are delegated to deps.dev/util/semver
using its NuGet system; this package only gives the results a comparable
value representation that is usable as a map key.
*/
package version

import (
	"fmt"
	"strconv"
	"strings"

	"deps.dev/util/semver"
)

// Version is a concrete NuGet version: major.minor.patch.revision with an
// optional pre-release label. Build metadata is not retained.
// The zero value is 0.0.0.
type Version struct {
	Major, Minor, Patch, Revision int64
	// Release holds the pre-release label without its leading hyphen.
	Release string
}

// Parse parses a concrete NuGet version. Floating versions such as "1.*"
// or "1.0.0-beta*" are rejected, they are ranges rather than versions.
func Parse(s string) (Version, error) {
	sv, err := semver.NuGet.Parse(s)
	if err != nil {
		return Version{}, err
	}
	// Floating pre-release labels are not reported as wildcards.
	if sv.IsWildcard() || strings.Contains(s, "*") {
		return Version{}, fmt.Errorf("floating version %q is not concrete", s)
	}
	str := s
	if i := strings.IndexByte(str, '+'); i >= 0 {
		str = str[:i]
	}
	var v Version
	if i := strings.IndexByte(str, '-'); i >= 0 {
		str, v.Release = str[:i], str[i+1:]
	}
	parts := strings.Split(str, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("more than 4 numbers present in %q", s)
	}
	nums := [4]*int64{&v.Major, &v.Minor, &v.Patch, &v.Revision}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: %w", s, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("negative number in version %q", s)
		}
		*nums[i] = n
	}
	return v, nil
}

// MustParse is like Parse but panics if the version cannot be parsed.
// It is intended for tests and static data.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the normalized form of the version: three numbers, a
// fourth only when it is not zero, then the pre-release label if any.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatInt(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatInt(v.Patch, 10))
	if v.Revision != 0 {
		b.WriteByte('.')
		b.WriteString(strconv.FormatInt(v.Revision, 10))
	}
	if v.Release != "" {
		b.WriteByte('-')
		b.WriteString(v.Release)
	}
	return b.String()
}

// IsPrerelease reports whether the version carries a pre-release label.
func (v Version) IsPrerelease() bool { return v.Release != "" }

// Compare reports whether v is less than, equal to or greater than w,
// returning -1, 0 or 1 respectively.
// Numbers are compared in order, then a version without a pre-release label
// sorts after any pre-release of the same numbers. Pre-release labels use
// the NuGet ordering, which ignores case; labels that only differ by case
// are then ordered bytewise so that Compare is zero only for equal values.
func (v Version) Compare(w Version) int {
	if c := sgn64(v.Major, w.Major); c != 0 {
		return c
	}
	if c := sgn64(v.Minor, w.Minor); c != 0 {
		return c
	}
	if c := sgn64(v.Patch, w.Patch); c != 0 {
		return c
	}
	if c := sgn64(v.Revision, w.Revision); c != 0 {
		return c
	}
	switch {
	case v.Release == w.Release:
		return 0
	case v.Release == "":
		return 1
	case w.Release == "":
		return -1
	}
	if c := semver.NuGet.Compare("0.0.0-"+v.Release, "0.0.0-"+w.Release); c != 0 {
		return c
	}
	return strings.Compare(v.Release, w.Release)
}

// Less reports whether v sorts before w.
func (v Version) Less(w Version) bool { return v.Compare(w) < 0 }

func sgn64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
