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

import "log"

// installOrder orders the accepted versions so that every version comes
// after the versions it depends on.
//
// Versions whose dependencies are all placed are ready; the ready versions
// are placed first come, first served, starting from the given order. When
// versions depend on each other no version of the cycle is ever ready: one
// of them is then placed regardless, chosen so that only the dependencies
// within the cycle are placed late.
func installOrder(nodes []*concrete) []*concrete {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.PackageKey.id()] = i
	}
	// deps[i] holds the nodes i depends on, dependants[i] those that depend
	// on i, both in increasing order.
	deps := make([][]int, len(nodes))
	dependants := make([][]int, len(nodes))
	for i, n := range nodes {
		seen := make(map[int]bool)
		for _, d := range n.deps {
			j, ok := index[d.id()]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			deps[i] = append(deps[i], j)
			dependants[j] = append(dependants[j], i)
		}
	}

	pending := make([]int, len(nodes))
	var ready []int
	for i := range nodes {
		pending[i] = len(deps[i])
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	placed := make([]bool, len(nodes))
	result := make([]*concrete, 0, len(nodes))
	for len(result) < len(nodes) {
		if len(ready) == 0 {
			i := breakCycle(deps, placed)
			if debug {
				log.Printf("dependency cycle: placing %v early", nodes[i])
			}
			ready = append(ready, i)
		}
		i := ready[0]
		ready = ready[1:]
		if placed[i] {
			continue
		}
		placed[i] = true
		result = append(result, nodes[i])
		for _, k := range dependants[i] {
			pending[k]--
			if pending[k] == 0 && !placed[k] {
				ready = append(ready, k)
			}
		}
	}
	return result
}

// breakCycle picks the unplaced node to place next when none is ready.
// It finds a strongly connected component of the unplaced nodes that
// depends on no other unplaced component, and returns its first node.
func breakCycle(deps [][]int, placed []bool) int {
	// Tarjan's algorithm emits a component only after every component it
	// can reach, so the first component emitted depends on no other.
	var (
		counter = 0
		index   = make([]int, len(deps))
		low     = make([]int, len(deps))
		onStack = make([]bool, len(deps))
		stack   []int
		found   = -1
	)
	for i := range index {
		index[i] = -1
	}
	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range deps[v] {
			if found >= 0 {
				return
			}
			if placed[w] {
				continue
			}
			if index[w] < 0 {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if found >= 0 || low[v] != index[v] {
			return
		}
		// v is the root of the first complete component.
		first := v
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			first = min(first, w)
			if w == v {
				break
			}
		}
		found = first
	}
	for v := range deps {
		if !placed[v] && index[v] < 0 {
			visit(v)
			if found >= 0 {
				return found
			}
		}
	}
	panic("no unplaced node")
}
