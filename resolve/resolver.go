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
	"log"
	"time"
)

const (
	debug = false
)

// Options configures a Resolver.
type Options struct {
	// MaxSteps bounds the number of candidate versions the search may
	// try before failing with ErrSearchLimit. Zero means no bound.
	MaxSteps int
}

// Resolver resolves Requests.
//
// The search tries, for every package in turn, its candidates in order of
// preference: leaving the package out if it is not a target, then installed
// versions, then the versions favored by the Request's Behavior. A candidate
// is kept if it is compatible with every candidate kept so far; when a
// package has no compatible candidate left, the search backtracks to the
// previous package and tries its next candidate. The first combination found
// is the solution.
//
// A Resolver holds no per-resolution state and is safe for concurrent use.
type Resolver struct {
	opts Options
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve returns the versions to install to satisfy the request, in
// install order.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]VersionKey, error) {
	g, err := r.ResolveGraph(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.Order(), nil
}

// ResolveGraph is like Resolve but returns the selected versions as a Graph
// that also records the dependencies between them.
//
// It fails with an *UnresolvableTargetError if a target has no available
// version, a *NoSolutionError if no combination of versions satisfies every
// dependency, and an error wrapping ErrInvalidInput if the request is
// malformed.
func (r *Resolver) ResolveGraph(ctx context.Context, req Request) (*Graph, error) {
	if !req.Behavior.valid() {
		return nil, fmt.Errorf("%w: unknown dependency behavior %v", ErrInvalidInput, req.Behavior)
	}
	for _, vk := range req.Installed {
		if vk.Name == "" {
			return nil, fmt.Errorf("%w: empty installed package name", ErrInvalidInput)
		}
	}

	start := time.Now()
	domains, err := group(req)
	if err != nil {
		return nil, err
	}
	if debug {
		log.Printf("resolving %d packages with behavior %v", len(domains), req.Behavior)
	}

	comp := newComparator(req.Installed, req.Behavior)
	cands := make([][]candidate, len(domains))
	for i, d := range domains {
		cands[i] = d.cands
	}
	solution, err := findSolution(ctx, cands, comp.compare, shouldReject, r.opts.MaxSteps)
	var nce *noCombinationError
	if errors.As(err, &nce) {
		e := &NoSolutionError{Package: domains[nce.Domain].key}
		for _, i := range nce.Conflicts {
			e.Conflicts = append(e.Conflicts, domains[i].key)
		}
		return nil, e
	}
	if err != nil {
		return nil, err
	}

	chosen := make(map[string]candidate, len(solution))
	var accepted []*concrete
	for _, c := range solution {
		chosen[c.pkg().id()] = c
		if cc, ok := c.(*concrete); ok {
			accepted = append(accepted, cc)
		}
	}
	if err := checkSolution(req.Targets, accepted, chosen); err != nil {
		return nil, err
	}

	g := &Graph{}
	ids := make(map[string]NodeID, len(accepted))
	ordered := installOrder(accepted)
	for _, c := range ordered {
		ids[c.PackageKey.id()] = g.AddNode(c.VersionKey)
	}
	for _, c := range ordered {
		seen := make(map[string]bool)
		for _, d := range c.deps {
			if seen[d.id()] {
				continue
			}
			seen[d.id()] = true
			if err := g.AddEdge(ids[c.PackageKey.id()], ids[d.id()], d.Range.String()); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternal, err)
			}
		}
	}
	g.Duration = time.Since(start)
	return g, nil
}

// checkSolution verifies that every target is selected and that every
// dependency of the selected versions is satisfied by another selected
// version. A failure means the search is broken.
func checkSolution(targets []PackageKey, accepted []*concrete, chosen map[string]candidate) error {
	for _, t := range targets {
		if _, ok := chosen[t.id()].(*concrete); !ok {
			return fmt.Errorf("%w: target %v not selected", ErrInternal, t)
		}
	}
	for _, c := range accepted {
		for _, d := range c.deps {
			// The first range given for a package is the one that applies.
			if dc := chosen[d.id()]; dc == nil || !satisfies(c.ranges[d.id()], dc) {
				return fmt.Errorf("%w: %v requires %v, selected %v", ErrInternal, c, d, dc)
			}
		}
	}
	return nil
}
