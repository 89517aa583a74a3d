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
Package schema provides a text format for describing package universes and
resolution graphs, mostly for use in tests.

A universe lists packages, their versions and the dependencies of each
version, using indentation to relate them:

	# Comments start with a hash.
	Newtonsoft.Json
		12.0.3
		13.0.1
			System.Memory@[4.5,5.0)
	System.Memory
		4.5.4

Package names are not indented, versions are indented with one tab and
dependencies, written as name@range, with two tabs. Names, versions and
ranges cannot contain spaces. Empty lines and comments are ignored.

A resolution graph, see ParseGraph, is written the way resolve.Graph
prints itself.
*/
package schema

import (
	"fmt"
	"strings"

	"deps.dev/util/nuget/resolve"
	"deps.dev/util/nuget/resolve/version"
)

// Schema is a parsed universe.
type Schema struct {
	Packages []Package
}

// Package is a package of a universe and its versions in the order they
// were declared.
type Package struct {
	resolve.PackageKey
	Versions []resolve.PackageInfo
}

// New parses the text of a universe.
func New(text string) (*Schema, error) {
	s := &Schema{}
	var (
		pkg  *Package
		info *resolve.PackageInfo
	)
	for i, line := range strings.Split(text, "\n") {
		lineNum := i + 1
		line = stripComment(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth := 0
		for depth < len(line) && line[depth] == '\t' {
			depth++
		}
		content := strings.TrimSpace(line)
		if strings.ContainsAny(content, " \t") {
			return nil, fmt.Errorf("line %d: unexpected space in %q", lineNum, content)
		}

		switch depth {
		case 0:
			if s.Package(content) != nil {
				return nil, fmt.Errorf("line %d: duplicate package %q", lineNum, content)
			}
			s.Packages = append(s.Packages, Package{PackageKey: resolve.PackageKey{Name: content}})
			pkg, info = &s.Packages[len(s.Packages)-1], nil

		case 1:
			if pkg == nil {
				return nil, fmt.Errorf("line %d: version %q outside of a package", lineNum, content)
			}
			v, err := version.Parse(content)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if pkg.Version(v.String()) != nil {
				return nil, fmt.Errorf("line %d: duplicate version %s of %s", lineNum, v, pkg.Name)
			}
			pkg.Versions = append(pkg.Versions, resolve.PackageInfo{
				VersionKey: resolve.VersionKey{PackageKey: pkg.PackageKey, Version: v},
			})
			info = &pkg.Versions[len(pkg.Versions)-1]

		case 2:
			if info == nil {
				return nil, fmt.Errorf("line %d: dependency %q outside of a version", lineNum, content)
			}
			d, err := parseDependency(content)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			info.Dependencies = append(info.Dependencies, d)

		default:
			return nil, fmt.Errorf("line %d: too deeply indented (%d tabs)", lineNum, depth)
		}
	}
	return s, nil
}

// parseDependency parses a name@range dependency.
func parseDependency(s string) (resolve.Dependency, error) {
	name, rng, ok := strings.Cut(s, "@")
	if !ok || name == "" {
		return resolve.Dependency{}, fmt.Errorf("expected name@range, got %q", s)
	}
	r, err := version.ParseRange(rng)
	if err != nil {
		return resolve.Dependency{}, fmt.Errorf("dependency %s: %w", name, err)
	}
	return resolve.Dependency{
		PackageKey: resolve.PackageKey{Name: name},
		Range:      r,
	}, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		return line[:i]
	}
	return line
}

// Package returns the package with the given name, ignoring case, or nil if
// there is none.
func (s *Schema) Package(name string) *Package {
	pk := resolve.PackageKey{Name: name}
	for i := range s.Packages {
		if s.Packages[i].PackageKey.Equal(pk) {
			return &s.Packages[i]
		}
	}
	return nil
}

// Version returns the given version of the package, or nil if there is
// none.
func (p *Package) Version(ver string) *resolve.PackageInfo {
	v, err := version.Parse(ver)
	if err != nil {
		return nil
	}
	for i := range p.Versions {
		if p.Versions[i].Version == v {
			return &p.Versions[i]
		}
	}
	return nil
}

// NewClient creates a LocalClient holding the universe.
func (s *Schema) NewClient() *resolve.LocalClient {
	lc := resolve.NewLocalClient()
	for _, p := range s.Packages {
		for _, pi := range p.Versions {
			lc.AddVersion(pi)
		}
	}
	return lc
}

// Available returns every version of the universe, in declaration order.
func (s *Schema) Available() []resolve.PackageInfo {
	var all []resolve.PackageInfo
	for _, p := range s.Packages {
		all = append(all, p.Versions...)
	}
	return all
}
