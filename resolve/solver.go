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
	"sort"
)

// checkEvery is the number of search steps between context checks.
const checkEvery = 1024

// noCombinationError is returned by findSolution when the domains admit no
// combination. It records where the search gave up.
type noCombinationError struct {
	// Domain is the index of the deepest domain for which no candidate
	// could be chosen.
	Domain int
	// Conflicts holds, in increasing order, the indexes of the domains
	// whose chosen candidates rejected a candidate of Domain.
	Conflicts []int
}

func (e *noCombinationError) Error() string {
	return fmt.Sprintf("no combination for domain %d (conflicts with %v)", e.Domain, e.Conflicts)
}

/*
findSolution chooses one element of each domain such that reject holds for
no pair of chosen elements. It returns the chosen elements in domain order.

The search is a chronological backtracking search over the domains in the
given order. The elements of each domain are tried in the order defined by
compare, and each is checked against the elements already chosen for the
previous domains. The first complete combination found is returned; it is
the most preferred one reachable by choosing greedily and backtracking, not
necessarily the best of all the combinations.

The search keeps an explicit stack of cursors, one per domain, rather than
recursing, so that its memory use only depends on the number of domains.

If maxSteps is positive, the search fails with ErrSearchLimit after trying
that many elements. The context is checked periodically.
*/
func findSolution[T any](ctx context.Context, domains [][]T, compare func(a, b T) int, reject func(a, b T) bool, maxSteps int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sorted := make([][]T, len(domains))
	for i, d := range domains {
		s := append([]T(nil), d...)
		sort.SliceStable(s, func(i, j int) bool { return compare(s[i], s[j]) < 0 })
		sorted[i] = s
	}

	var (
		// next[d] is the index in sorted[d] of the next candidate to try.
		next = make([]int, len(sorted))
		// chosen holds the candidates committed for domains 0..depth-1.
		chosen = make([]T, 0, len(sorted))
		// conflicts holds the domains that rejected a candidate at the
		// current depth since it was last entered.
		conflicts = make(map[int]bool)
		deepest   *noCombinationError
		steps     int
		depth     int
	)
	for depth >= 0 {
		if depth == len(sorted) {
			return chosen, nil
		}
		committed := false
		for next[depth] < len(sorted[depth]) {
			c := sorted[depth][next[depth]]
			next[depth]++

			steps++
			if maxSteps > 0 && steps > maxSteps {
				return nil, fmt.Errorf("%w: %d steps", ErrSearchLimit, maxSteps)
			}
			if steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			conflict := -1
			for i, p := range chosen {
				if reject(p, c) {
					conflict = i
					break
				}
			}
			if conflict >= 0 {
				if debug {
					log.Printf("depth %d: %v rejected by %v", depth, c, chosen[conflict])
				}
				conflicts[conflict] = true
				continue
			}

			if debug {
				log.Printf("depth %d: choose %v", depth, c)
			}
			chosen = append(chosen, c)
			depth++
			if depth < len(sorted) {
				next[depth] = 0
				clear(conflicts)
			}
			committed = true
			break
		}
		if committed {
			continue
		}

		// Every candidate at this depth failed: backtrack.
		if deepest == nil || depth > deepest.Domain {
			deepest = &noCombinationError{Domain: depth}
			for i := range conflicts {
				deepest.Conflicts = append(deepest.Conflicts, i)
			}
			sort.Ints(deepest.Conflicts)
		}
		if debug {
			log.Printf("depth %d: exhausted, backtracking", depth)
		}
		clear(conflicts)
		depth--
		if depth >= 0 {
			chosen = chosen[:depth]
		}
	}
	return nil, deepest
}
