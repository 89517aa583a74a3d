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

package resolve

import (
	"fmt"

	"deps.dev/util/nuget/resolve/version"
)

// candidate is one choice for a package in a resolution: either a concrete
// version of the package (*concrete) or its absence (absent).
type candidate interface {
	pkg() PackageKey
}

// concrete is a candidate version along with its dependencies.
type concrete struct {
	VersionKey
	// deps holds the dependencies in declaration order.
	deps []Dependency
	// ranges indexes the dependency ranges by folded package name. When a
	// package is listed twice the first range applies.
	ranges map[string]version.Range
}

func newConcrete(pi PackageInfo) *concrete {
	c := &concrete{
		VersionKey: pi.VersionKey,
		deps:       pi.Dependencies,
		ranges:     make(map[string]version.Range, len(pi.Dependencies)),
	}
	for _, d := range pi.Dependencies {
		if _, ok := c.ranges[d.id()]; !ok {
			c.ranges[d.id()] = d.Range
		}
	}
	return c
}

func (c *concrete) pkg() PackageKey { return c.PackageKey }

func (c *concrete) String() string { return c.VersionKey.String() }

// absent is the candidate that leaves its package out of the solution. It
// has neither a version nor dependencies.
type absent struct {
	PackageKey
}

func (a absent) pkg() PackageKey { return a.PackageKey }

func (a absent) String() string { return a.Name + " (absent)" }

// domain holds the candidates competing for one package.
type domain struct {
	key   PackageKey
	cands []candidate
}

// group partitions the available versions of a request into domains, one
// per package mentioned by the request, in order of first appearance.
// Packages that are only named by dependencies get a domain of their own so
// that every dependency is constrained. Every domain that is not a target
// also holds the absent candidate; targets must resolve to a version.
func group(req Request) ([]domain, error) {
	targets := make(map[string]bool, len(req.Targets))
	for _, t := range req.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: empty target package name", ErrInvalidInput)
		}
		targets[t.id()] = true
	}

	var domains []domain
	index := make(map[string]int)
	addDomain := func(pk PackageKey) int {
		if i, ok := index[pk.id()]; ok {
			return i
		}
		index[pk.id()] = len(domains)
		domains = append(domains, domain{key: pk})
		return len(domains) - 1
	}

	seen := make(map[versionID]PackageInfo, len(req.Available))
	for _, pi := range req.Available {
		if err := checkInfo(pi); err != nil {
			return nil, err
		}
		if prev, ok := seen[pi.id()]; ok {
			if !sameDependencies(prev.Dependencies, pi.Dependencies) {
				return nil, fmt.Errorf("%w: conflicting definitions of %v and %v", ErrInvalidInput, prev.VersionKey, pi.VersionKey)
			}
			continue
		}
		seen[pi.id()] = pi
		i := addDomain(pi.PackageKey)
		domains[i].cands = append(domains[i].cands, newConcrete(pi))
	}
	for _, pi := range req.Available {
		for _, d := range pi.Dependencies {
			addDomain(d.PackageKey)
		}
	}

	var missing []PackageKey
	reported := make(map[string]bool)
	for _, t := range req.Targets {
		if i, ok := index[t.id()]; ok && len(domains[i].cands) > 0 {
			continue
		}
		if !reported[t.id()] {
			reported[t.id()] = true
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return nil, &UnresolvableTargetError{Targets: missing}
	}

	for i, d := range domains {
		if !targets[d.key.id()] {
			domains[i].cands = append(domains[i].cands, absent{d.key})
		}
	}
	return domains, nil
}

// checkInfo validates an available package version.
func checkInfo(pi PackageInfo) error {
	if pi.Name == "" {
		return fmt.Errorf("%w: empty package name", ErrInvalidInput)
	}
	for _, d := range pi.Dependencies {
		switch {
		case d.Name == "":
			return fmt.Errorf("%w: %v has a dependency with an empty package name", ErrInvalidInput, pi.VersionKey)
		case d.Range.IsZero():
			return fmt.Errorf("%w: %v has no version range for %s", ErrInvalidInput, pi.VersionKey, d.Name)
		case d.PackageKey.Equal(pi.PackageKey):
			return fmt.Errorf("%w: %v depends on itself", ErrInvalidInput, pi.VersionKey)
		}
	}
	return nil
}

func sameDependencies(a, b []Dependency) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].PackageKey.Equal(b[i].PackageKey) || a[i].Range.String() != b[i].Range.String() {
			return false
		}
	}
	return true
}
