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

import "deps.dev/util/nuget/resolve/version"

// shouldReject reports whether two candidates of different packages cannot
// be part of the same solution. If p1 depends on p2's package, p2 must be a
// version within the range, and if p2 depends on p1's package, p1 must be
// within that range. The verdict does not depend on argument order.
// Candidates unrelated by dependencies never conflict.
func shouldReject(p1, p2 candidate) bool {
	if r, ok := dependencyRange(p1, p2.pkg()); ok && !satisfies(r, p2) {
		return true
	}
	if r, ok := dependencyRange(p2, p1.pkg()); ok && !satisfies(r, p1) {
		return true
	}
	return false
}

// dependencyRange returns the range c requires for the given package, if c
// depends on it.
func dependencyRange(c candidate, pk PackageKey) (version.Range, bool) {
	cc, ok := c.(*concrete)
	if !ok {
		return version.Range{}, false
	}
	r, ok := cc.ranges[pk.id()]
	return r, ok
}

// satisfies reports whether c is a version within r. The absent candidate
// satisfies no range.
func satisfies(r version.Range, c candidate) bool {
	cc, ok := c.(*concrete)
	return ok && r.Satisfies(cc.Version)
}
