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
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "deps.dev/api/v3"
	"deps.dev/util/nuget/resolve/version"
)

// cacheSize bounds the number of responses each APIClient cache holds.
const cacheSize = 10000

// APIClient is a Client that fetches NuGet data from the deps.dev API.
// Every version listed by the API costs one GetRequirements call, so
// responses are kept in LRU caches. It is safe for concurrent use.
type APIClient struct {
	c pb.InsightsClient
	// framework selects the dependency group to use for each version.
	framework string

	// mu guards versions and requirements.
	mu sync.Mutex
	// versions caches version lists, keyed by folded package name.
	versions *lru.Cache
	// requirements caches dependencies, keyed by versionID.
	requirements *lru.Cache
}

// NewAPIClient creates a new APIClient using the provided gRPC client to
// call the deps.dev Insights service. The framework names the target
// framework whose dependency group is used; it is matched against the
// groups reported by the API verbatim, ignoring case. If it is empty the
// dependencies of all groups are merged.
func NewAPIClient(c pb.InsightsClient, framework string) *APIClient {
	return &APIClient{
		c:            c,
		framework:    framework,
		versions:     lru.New(cacheSize),
		requirements: lru.New(cacheSize),
	}
}

// Versions implements Client. Versions the API reports that cannot be
// parsed are skipped. The returned slice is a copy of the cached one; the
// Dependencies of each version are shared and must not be modified.
func (a *APIClient) Versions(ctx context.Context, pk PackageKey) ([]PackageInfo, error) {
	a.mu.Lock()
	cached, ok := a.versions.Get(pk.id())
	a.mu.Unlock()
	if ok {
		return slices.Clone(cached.([]PackageInfo)), nil
	}

	resp, err := a.c.GetPackage(ctx, &pb.GetPackageRequest{
		PackageKey: &pb.PackageKey{
			System: pb.System_NUGET,
			Name:   pk.Name,
		},
	})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("package %v: %w", pk, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var infos []PackageInfo
	for _, pv := range resp.GetVersions() {
		v, err := version.Parse(pv.GetVersionKey().GetVersion())
		if err != nil {
			if debug {
				log.Printf("skipping %s %s: %v", pk, pv.GetVersionKey().GetVersion(), err)
			}
			continue
		}
		vk := VersionKey{PackageKey: pk, Version: v}
		deps, err := a.dependencies(ctx, vk, pv.GetVersionKey().GetVersion())
		if err != nil {
			return nil, err
		}
		infos = append(infos, PackageInfo{VersionKey: vk, Dependencies: deps})
	}
	sortInfos(infos)

	a.mu.Lock()
	a.versions.Add(pk.id(), infos)
	a.mu.Unlock()
	return slices.Clone(infos), nil
}

// dependencies fetches the dependencies of a version. The raw version
// string is the one reported by the API, which is not necessarily in
// normalized form.
func (a *APIClient) dependencies(ctx context.Context, vk VersionKey, raw string) ([]Dependency, error) {
	a.mu.Lock()
	cached, ok := a.requirements.Get(vk.id())
	a.mu.Unlock()
	if ok {
		return cached.([]Dependency), nil
	}

	resp, err := a.c.GetRequirements(ctx, &pb.GetRequirementsRequest{
		VersionKey: &pb.VersionKey{
			System:  pb.System_NUGET,
			Name:    vk.Name,
			Version: raw,
		},
	})
	var deps []Dependency
	switch {
	case status.Code(err) == codes.NotFound:
		// No requirements are known, treat it as having no
		// dependencies.
	case err != nil:
		return nil, fmt.Errorf("requirements %v: %w", vk, err)
	default:
		deps, err = nugetDependencies(resp.GetNuget().GetDependencyGroups(), a.framework)
		if err != nil {
			return nil, fmt.Errorf("requirements %v: %w", vk, err)
		}
	}

	a.mu.Lock()
	a.requirements.Add(vk.id(), deps)
	a.mu.Unlock()
	return deps, nil
}

// nugetDependencies picks the dependencies of the group targeting the given
// framework, or of the framework-agnostic group if no group matches. With
// an empty framework the groups are merged, the first range seen for a
// package being kept. An empty requirement allows any version.
func nugetDependencies(groups []*pb.Requirements_NuGet_DependencyGroup, framework string) ([]Dependency, error) {
	var selected []*pb.Requirements_NuGet_DependencyGroup
	if framework == "" {
		selected = groups
	} else {
		var fallback *pb.Requirements_NuGet_DependencyGroup
		for _, g := range groups {
			tf := g.GetTargetFramework()
			if strings.EqualFold(tf, framework) {
				selected = []*pb.Requirements_NuGet_DependencyGroup{g}
				break
			}
			if tf == "" && fallback == nil {
				fallback = g
			}
		}
		if selected == nil && fallback != nil {
			selected = []*pb.Requirements_NuGet_DependencyGroup{fallback}
		}
	}

	var deps []Dependency
	seen := make(map[string]bool)
	for _, g := range selected {
		for _, d := range g.GetDependencies() {
			pk := PackageKey{Name: d.GetName()}
			if pk.Name == "" || seen[pk.id()] {
				continue
			}
			req := d.GetRequirement()
			if req == "" {
				req = "0.0.0"
			}
			r, err := version.ParseRange(req)
			if err != nil {
				return nil, fmt.Errorf("dependency %s: %w", pk, err)
			}
			seen[pk.id()] = true
			deps = append(deps, Dependency{PackageKey: pk, Range: r})
		}
	}
	return deps, nil
}
