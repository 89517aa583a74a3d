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
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Client defines an interface to fetch the data needed for dependency
// resolutions.
type Client interface {
	// Versions returns all the known versions of a package along with
	// their direct dependencies, in ascending version order.
	Versions(context.Context, PackageKey) ([]PackageInfo, error)
}

// ErrNotFound is returned by Clients to indicate the requested data could not
// be located.
var ErrNotFound = errors.New("not found")

// LocalClient is a Client holding a universe of packages in memory.
type LocalClient struct {
	// packages holds the versions of every package, keyed by folded
	// name, in ascending version order.
	packages map[string][]PackageInfo
	// keys holds the package keys in the order they were first seen.
	keys []PackageKey
}

// NewLocalClient creates a new, empty, LocalClient.
func NewLocalClient() *LocalClient {
	return &LocalClient{
		packages: make(map[string][]PackageInfo),
	}
}

// AddVersion adds a version to the client along with its direct dependencies.
// Any existing version will be replaced. Also ensures all packages in the
// dependencies have an entry in the client, although it may be empty.
func (lc *LocalClient) AddVersion(pi PackageInfo) {
	versions := lc.ensure(pi.PackageKey)
	// If an equivalent version already exists, replace it.
	existed := false
	for i, w := range versions {
		if w.VersionKey.Equal(pi.VersionKey) {
			existed = true
			versions[i] = pi
		}
	}
	// Otherwise insert and sort.
	if !existed {
		versions = append(versions, pi)
		sortInfos(versions)
	}
	lc.packages[pi.PackageKey.id()] = versions

	// Ensure dependency packages exist, even though we might
	// not have versions for them.
	for _, d := range pi.Dependencies {
		lc.ensure(d.PackageKey)
	}
}

func (lc *LocalClient) ensure(pk PackageKey) []PackageInfo {
	vs, ok := lc.packages[pk.id()]
	if !ok {
		lc.packages[pk.id()] = []PackageInfo{}
		lc.keys = append(lc.keys, pk)
	}
	return vs
}

// Packages returns the keys of every package known to the client, in the
// order they were first added.
func (lc *LocalClient) Packages() []PackageKey {
	return append([]PackageKey(nil), lc.keys...)
}

// Available returns every version held by the client, grouped by package
// in the order of Packages.
func (lc *LocalClient) Available() []PackageInfo {
	var all []PackageInfo
	for _, pk := range lc.keys {
		all = append(all, lc.packages[pk.id()]...)
	}
	return all
}

// Versions implements Client, returning all of the known versions for the
// given package. The returned slice is a copy; the Dependencies of each
// version are shared with the client and must not be modified.
func (lc *LocalClient) Versions(ctx context.Context, pk PackageKey) ([]PackageInfo, error) {
	if vs, ok := lc.packages[pk.id()]; ok {
		return slices.Clone(vs), nil
	}
	return nil, fmt.Errorf("package %v: %w", pk, ErrNotFound)
}

// sortInfos sorts versions of a single package in ascending order.
func sortInfos(infos []PackageInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Version.Less(infos[j].Version)
	})
}
