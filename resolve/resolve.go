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
Package resolve performs NuGet-style dependency resolution.

A resolution takes a set of target packages and the universe of available
package versions with their dependency ranges, and picks exactly one version
for every package that must be installed, such that every dependency range is
satisfied. Packages that nothing requires are left out. The result lists the
chosen versions in an order in which they can be installed: dependencies
before the packages that depend on them.

Candidates for each package are tried in a preference order controlled by a
Behavior (lowest, highest, highest minor, highest patch) and biased towards
versions that are already installed. The search is a complete backtracking
search that returns the first solution found in that order; it does not look
for a globally optimal solution.

The Client interface describes how to access available package versions and
their dependencies; Gather uses a Client to materialize the input of a
resolution.
*/
package resolve

import (
	"fmt"
	"strings"

	"deps.dev/util/nuget/resolve/version"
)

// PackageKey identifies a package. Package names are case-insensitive:
// keys that only differ by the case of their name are equal.
type PackageKey struct {
	Name string
}

func (k PackageKey) String() string { return k.Name }

// Equal reports whether the two keys name the same package.
func (k PackageKey) Equal(o PackageKey) bool { return k.id() == o.id() }

// Compare reports whether k is less than, equal to or greater than o,
// returning -1, 0 or 1 respectively. Names are compared without regard to
// case.
func (k PackageKey) Compare(o PackageKey) int {
	return strings.Compare(k.id(), o.id())
}

// id is the folded name used to index packages.
func (k PackageKey) id() string { return strings.ToLower(k.Name) }

// VersionKey identifies a concrete version of a package.
type VersionKey struct {
	PackageKey
	Version version.Version
}

func (k VersionKey) String() string {
	return k.Name + " " + k.Version.String()
}

// Equal reports whether the two keys identify the same package version.
func (vk1 VersionKey) Equal(vk2 VersionKey) bool { return vk1.Compare(vk2) == 0 }

// Compare reports whether vk1 is less than, equal to or greater than vk2,
// returning -1, 0 or 1 respectively.
// It compares PackageKey and then Version.
func (vk1 VersionKey) Compare(vk2 VersionKey) int {
	if c := vk1.PackageKey.Compare(vk2.PackageKey); c != 0 {
		return c
	}
	return vk1.Version.Compare(vk2.Version)
}

// id is the map key of a version key, folded like the package name.
func (k VersionKey) id() versionID {
	return versionID{pkg: k.PackageKey.id(), ver: k.Version}
}

type versionID struct {
	pkg string
	ver version.Version
}

// Dependency is a dependency declared by a package version: the package it
// requires and the range of versions it accepts.
type Dependency struct {
	PackageKey
	Range version.Range
}

func (d Dependency) String() string {
	return d.Name + "@" + d.Range.String()
}

// PackageInfo is an available package version along with its direct
// dependencies.
type PackageInfo struct {
	VersionKey
	Dependencies []Dependency
}

// Behavior selects which version of a package is preferred when several are
// acceptable.
type Behavior byte

const (
	UnknownBehavior Behavior = iota

	// Lowest prefers the oldest version.
	Lowest

	// Highest prefers the newest version.
	Highest

	// HighestMinor prefers the lowest major version and, within it, the
	// highest minor and then patch version.
	HighestMinor

	// HighestPatch prefers the lowest major and minor version and, within
	// them, the highest patch version.
	HighestPatch
)

var behaviorNames = [...]string{
	UnknownBehavior: "UnknownBehavior",
	Lowest:          "Lowest",
	Highest:         "Highest",
	HighestMinor:    "HighestMinor",
	HighestPatch:    "HighestPatch",
}

func (b Behavior) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return fmt.Sprintf("Behavior(%d)", b)
}

// valid reports whether b is one of the defined behaviors.
func (b Behavior) valid() bool {
	return b >= Lowest && b <= HighestPatch
}

// ParseBehavior parses the name of a Behavior. Names are case-insensitive
// and may be hyphenated, as in "highest-minor".
func ParseBehavior(s string) (Behavior, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
	for b := Lowest; b <= HighestPatch; b++ {
		if n == strings.ToLower(behaviorNames[b]) {
			return b, nil
		}
	}
	return UnknownBehavior, fmt.Errorf("%w: unknown dependency behavior %q", ErrInvalidInput, s)
}

// Request holds the input of a resolution.
type Request struct {
	// Targets are the packages that must be installed. Only the package
	// is significant; the resolver picks the version.
	Targets []PackageKey
	// Available holds every known package version and its dependencies.
	Available []PackageInfo
	// Installed holds the versions already present. They are preferred
	// over other versions of the same package but are not required.
	Installed []VersionKey
	// Behavior selects the preferred versions.
	Behavior Behavior
}
