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

// comparator orders the candidates of a domain, most preferred first.
type comparator struct {
	installed map[versionID]bool
	behavior  Behavior
}

func newComparator(installed []VersionKey, b Behavior) comparator {
	c := comparator{
		installed: make(map[versionID]bool, len(installed)),
		behavior:  b,
	}
	for _, vk := range installed {
		c.installed[vk.id()] = true
	}
	return c
}

// compare reports whether x is preferred to (-1), equivalent to (0) or less
// preferred than (1) y. Both candidates must belong to the same package.
//
// The absent candidate comes first, so that packages nothing needs are
// dropped. Installed versions come next. The remaining versions are ordered
// by the behavior. The HighestMinor and HighestPatch orderings prefer a
// lower major version over a higher one; this is long-standing behavior
// that callers rely on.
func (c comparator) compare(x, y candidate) int {
	cx, xok := x.(*concrete)
	cy, yok := y.(*concrete)
	switch {
	case !xok && !yok:
		return 0
	case !xok:
		return -1
	case !yok:
		return 1
	}

	if xi, yi := c.installed[cx.id()], c.installed[cy.id()]; xi != yi {
		if xi {
			return -1
		}
		return 1
	}

	xv, yv := cx.Version, cy.Version
	switch c.behavior {
	case Lowest:
		return xv.Compare(yv)
	case Highest:
		return -xv.Compare(yv)
	case HighestMinor:
		if s := sgn(xv.Major, yv.Major); s != 0 {
			return s
		}
		if s := sgn(yv.Minor, xv.Minor); s != 0 {
			return s
		}
		if s := sgn(yv.Patch, xv.Patch); s != 0 {
			return s
		}
		return -xv.Compare(yv)
	case HighestPatch:
		if s := sgn(xv.Major, yv.Major); s != 0 {
			return s
		}
		if s := sgn(xv.Minor, yv.Minor); s != 0 {
			return s
		}
		if s := sgn(yv.Patch, xv.Patch); s != 0 {
			return s
		}
		return -xv.Compare(yv)
	}
	panic("unknown dependency behavior " + c.behavior.String())
}

func sgn(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
