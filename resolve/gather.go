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

	"golang.org/x/sync/errgroup"
)

// GatherOptions configures Gather.
type GatherOptions struct {
	// Concurrency bounds the number of concurrent Client calls.
	// Zero means DefaultGatherConcurrency.
	Concurrency int
}

// DefaultGatherConcurrency is the default number of concurrent Client calls
// made by Gather.
const DefaultGatherConcurrency = 8

// Gather collects from the client the versions of the targets and of every
// package they may transitively depend on, in a form suitable for
// Request.Available.
//
// Packages are visited breadth-first from the targets, every package of a
// level being fetched concurrently. The result lists packages in the order
// they were discovered, and is the same for the same client data. Packages
// unknown to the client contribute no versions.
func Gather(ctx context.Context, c Client, targets []PackageKey, opts GatherOptions) ([]PackageInfo, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultGatherConcurrency
	}

	seen := make(map[string]bool)
	var level []PackageKey
	for _, t := range targets {
		if !seen[t.id()] {
			seen[t.id()] = true
			level = append(level, t)
		}
	}

	var all []PackageInfo
	for len(level) > 0 {
		results := make([][]PackageInfo, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, pk := range level {
			i, pk := i, pk
			g.Go(func() error {
				vs, err := c.Versions(gctx, pk)
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("fetching versions of %v: %w", pk, err)
				}
				results[i] = vs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []PackageKey
		for _, vs := range results {
			all = append(all, vs...)
			for _, v := range vs {
				for _, d := range v.Dependencies {
					if !seen[d.id()] {
						seen[d.id()] = true
						next = append(next, d.PackageKey)
					}
				}
			}
		}
		level = next
	}
	return all, nil
}
