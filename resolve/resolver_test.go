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
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"deps.dev/util/nuget/resolve/version"
)

// rangeComparer compares ranges by their text, as Range holds an opaque
// parsed constraint.
var rangeComparer = cmp.Comparer(func(a, b version.Range) bool {
	return a.String() == b.String()
})

func vk(name, ver string) VersionKey {
	return VersionKey{
		PackageKey: PackageKey{Name: name},
		Version:    version.MustParse(ver),
	}
}

// info builds a PackageInfo from dependencies written as "name@range".
func info(name, ver string, deps ...string) PackageInfo {
	pi := PackageInfo{VersionKey: vk(name, ver)}
	for _, d := range deps {
		n, r, ok := strings.Cut(d, "@")
		if !ok {
			panic("bad dependency " + d)
		}
		pi.Dependencies = append(pi.Dependencies, Dependency{
			PackageKey: PackageKey{Name: n},
			Range:      version.MustParseRange(r),
		})
	}
	return pi
}

func targets(names ...string) []PackageKey {
	pks := make([]PackageKey, len(names))
	for i, n := range names {
		pks[i] = PackageKey{Name: n}
	}
	return pks
}

func keyStrings(vks []VersionKey) []string {
	var s []string
	for _, vk := range vks {
		s = append(s, vk.String())
	}
	return s
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	for _, c := range []struct {
		name string
		req  Request
		want []string
	}{{
		name: "lowest",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0"), info("A", "2.0")},
			Behavior:  Lowest,
		},
		want: []string{"A 1.0.0"},
	}, {
		name: "highest",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0"), info("A", "2.0")},
			Behavior:  Highest,
		},
		want: []string{"A 2.0.0"},
	}, {
		name: "installed preferred",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.5"), info("A", "1.6")},
			Installed: []VersionKey{vk("A", "1.5")},
			Behavior:  Highest,
		},
		want: []string{"A 1.5.0"},
	}, {
		name: "installed not required",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0"), info("B", "1.0")},
			Installed: []VersionKey{vk("B", "1.0")},
			Behavior:  Highest,
		},
		want: []string{"A 1.0.0"},
	}, {
		name: "unneeded packages left out",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0"), info("B", "1.0")},
			Behavior:  Highest,
		},
		want: []string{"A 1.0.0"},
	}, {
		name: "dependencies first",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{
				info("A", "1.0", "B@[1.0,2.0)"),
				info("B", "1.0", "C@1.0"),
				info("B", "1.5", "C@1.0"),
				info("B", "2.0"),
				info("C", "1.0"),
				info("C", "3.0"),
			},
			Behavior: Highest,
		},
		want: []string{"C 3.0.0", "B 1.5.0", "A 1.0.0"},
	}, {
		name: "lowest dependencies",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{
				info("A", "1.0", "B@[1.0,2.0)"),
				info("B", "1.0"),
				info("B", "1.5"),
			},
			Behavior: Lowest,
		},
		want: []string{"B 1.0.0", "A 1.0.0"},
	}, {
		name: "backtrack",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{
				info("A", "1.0"),
				info("A", "2.0", "B@[2.0]"),
				info("B", "1.0"),
			},
			Behavior: Highest,
		},
		want: []string{"A 1.0.0"},
	}, {
		name: "mutual dependency",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{
				info("A", "1.0", "B@1.0"),
				info("B", "1.0", "A@1.0"),
			},
			Behavior: Highest,
		},
		want: []string{"A 1.0.0", "B 1.0.0"},
	}, {
		name: "shared dependency",
		req: Request{
			Targets: targets("A", "B"),
			Available: []PackageInfo{
				info("A", "1.0", "C@[1.0,3.0)"),
				info("B", "1.0", "C@[2.0,4.0)"),
				info("C", "1.0"),
				info("C", "2.0"),
				info("C", "3.0"),
			},
			Behavior: Highest,
		},
		want: []string{"C 2.0.0", "A 1.0.0", "B 1.0.0"},
	}, {
		name: "case insensitive names",
		req: Request{
			Targets: targets("newtonsoft.json"),
			Available: []PackageInfo{
				info("Newtonsoft.Json", "13.0.1", "system.memory@4.5"),
				info("System.Memory", "4.5.4"),
			},
			Behavior: Lowest,
		},
		want: []string{"System.Memory 4.5.4", "Newtonsoft.Json 13.0.1"},
	}, {
		name: "duplicate definitions merged",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@1.0"), info("B", "1.0"), info("A", "1.0", "B@1.0")},
			Behavior:  Highest,
		},
		want: []string{"B 1.0.0", "A 1.0.0"},
	}, {
		name: "first range applies",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{
				info("A", "1.0", "B@[1.0]", "B@[2.0]"),
				info("B", "1.0"),
				info("B", "2.0"),
			},
			Behavior: Highest,
		},
		want: []string{"B 1.0.0", "A 1.0.0"},
	}, {
		name: "no targets",
		req: Request{
			Available: []PackageInfo{info("A", "1.0")},
			Behavior:  Highest,
		},
		want: nil,
	}} {
		t.Run(c.name, func(t *testing.T) {
			got, err := NewResolver(Options{}).Resolve(ctx, c.req)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(keyStrings(got), c.want); diff != "" {
				t.Errorf("Resolve (-got, +want):\n%s", diff)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	ctx := context.Background()
	req := Request{
		Targets: targets("A", "D"),
		Available: []PackageInfo{
			info("A", "1.0", "B@[1.0,2.0)"),
			info("A", "1.1", "B@[1.5,2.0)"),
			info("B", "1.0", "C@1.0"),
			info("B", "1.5", "C@2.0"),
			info("C", "1.0"),
			info("C", "2.0"),
			info("D", "1.0", "C@[1.0]"),
			info("D", "2.0", "C@[2.0]"),
		},
		Installed: []VersionKey{vk("B", "1.0")},
		Behavior:  HighestMinor,
	}
	r := NewResolver(Options{})
	first, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := r.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if diff := cmp.Diff(got, first); diff != "" {
			t.Fatalf("Resolve #%d (-got, +want):\n%s", i, diff)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()
	for _, c := range []struct {
		name string
		req  Request
		opts Options
		want error
	}{{
		name: "unknown behavior",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0")},
		},
		want: ErrInvalidInput,
	}, {
		name: "empty target",
		req: Request{
			Targets:   targets(""),
			Available: []PackageInfo{info("A", "1.0")},
			Behavior:  Highest,
		},
		want: ErrInvalidInput,
	}, {
		name: "self dependency",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "a@1.0")},
			Behavior:  Highest,
		},
		want: ErrInvalidInput,
	}, {
		name: "conflicting definitions",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@1.0"), info("a", "1.0.0", "B@2.0")},
			Behavior:  Highest,
		},
		want: ErrInvalidInput,
	}, {
		name: "missing range",
		req: Request{
			Targets: targets("A"),
			Available: []PackageInfo{{
				VersionKey:   vk("A", "1.0"),
				Dependencies: []Dependency{{PackageKey: PackageKey{Name: "B"}}},
			}},
			Behavior: Highest,
		},
		want: ErrInvalidInput,
	}, {
		name: "unresolvable target",
		req: Request{
			Targets:   targets("A", "C"),
			Available: []PackageInfo{info("A", "1.0", "C@1.0")},
			Behavior:  Highest,
		},
		want: ErrUnresolvableTarget,
	}, {
		name: "infeasible",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@[2.0,3.0)"), info("B", "1.0")},
			Behavior:  Highest,
		},
		want: ErrNoSolution,
	}, {
		name: "dependency not available",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@1.0")},
			Behavior:  Highest,
		},
		want: ErrNoSolution,
	}, {
		name: "mutual dependency out of range",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@[1.0]"), info("B", "1.0", "A@[5.0]")},
			Behavior:  Lowest,
		},
		want: ErrNoSolution,
	}, {
		name: "step limit",
		req: Request{
			Targets:   targets("A"),
			Available: []PackageInfo{info("A", "1.0", "B@[2.0,3.0)"), info("B", "1.0")},
			Behavior:  Highest,
		},
		opts: Options{MaxSteps: 2},
		want: ErrSearchLimit,
	}} {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewResolver(c.opts).Resolve(ctx, c.req)
			if !errors.Is(err, c.want) {
				t.Errorf("Resolve: got error %v, want %v", err, c.want)
			}
		})
	}
}

func TestResolveErrorDetails(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(Options{})

	_, err := r.Resolve(ctx, Request{
		Targets:   targets("A", "X", "x"),
		Available: []PackageInfo{info("A", "1.0")},
		Behavior:  Highest,
	})
	var ute *UnresolvableTargetError
	if !errors.As(err, &ute) {
		t.Fatalf("got error %v, want an *UnresolvableTargetError", err)
	}
	if diff := cmp.Diff(ute.Targets, targets("X")); diff != "" {
		t.Errorf("UnresolvableTargetError.Targets (-got, +want):\n%s", diff)
	}

	_, err = r.Resolve(ctx, Request{
		Targets:   targets("A"),
		Available: []PackageInfo{info("A", "1.0", "B@[2.0,3.0)"), info("B", "1.0")},
		Behavior:  Highest,
	})
	var nse *NoSolutionError
	if !errors.As(err, &nse) {
		t.Fatalf("got error %v, want a *NoSolutionError", err)
	}
	want := &NoSolutionError{
		Package:   PackageKey{Name: "B"},
		Conflicts: targets("A"),
	}
	if diff := cmp.Diff(nse, want); diff != "" {
		t.Errorf("NoSolutionError (-got, +want):\n%s", diff)
	}
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(Options{}).Resolve(ctx, Request{
		Targets:   targets("A"),
		Available: []PackageInfo{info("A", "1.0")},
		Behavior:  Highest,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want %v", err, context.Canceled)
	}
}

func TestResolveGraph(t *testing.T) {
	g, err := NewResolver(Options{}).ResolveGraph(context.Background(), Request{
		Targets: targets("A"),
		Available: []PackageInfo{
			info("A", "1.0", "B@[1.0,2.0)", "C@1.0"),
			info("B", "1.2", "C@1.0"),
			info("C", "1.0.0.1"),
		},
		Behavior: Highest,
	})
	if err != nil {
		t.Fatalf("ResolveGraph: %v", err)
	}
	want := `C 1.0.0.1
B 1.2.0
└─ C@1.0 1.0.0.1
A 1.0.0
├─ B@[1.0,2.0) 1.2.0
└─ C@1.0 1.0.0.1
`
	if diff := cmp.Diff(g.String(), want); diff != "" {
		t.Errorf("Graph (-got, +want):\n%s", diff)
	}
	wantEdges := []Edge{
		{From: 1, To: 0, Requirement: "1.0"},
		{From: 2, To: 1, Requirement: "[1.0,2.0)"},
		{From: 2, To: 0, Requirement: "1.0"},
	}
	if diff := cmp.Diff(g.Edges, wantEdges); diff != "" {
		t.Errorf("Edges (-got, +want):\n%s", diff)
	}
}

func TestParseBehavior(t *testing.T) {
	for _, c := range []struct {
		in   string
		want Behavior
	}{
		{"lowest", Lowest},
		{"Highest", Highest},
		{"highest-minor", HighestMinor},
		{"HighestPatch", HighestPatch},
		{" HIGHEST_PATCH ", UnknownBehavior},
		{"", UnknownBehavior},
	} {
		got, err := ParseBehavior(c.in)
		if got != c.want {
			t.Errorf("ParseBehavior(%q): got %v, want %v", c.in, got, c.want)
		}
		if (err != nil) != (c.want == UnknownBehavior) {
			t.Errorf("ParseBehavior(%q): unexpected error state %v", c.in, err)
		}
	}
}

// TestResolveProperties checks the results of resolutions of generated
// universes: targets are selected, every dependency of a selected version
// is satisfied by another selected version, and dependencies come first
// unless they are part of a cycle.
func TestResolveProperties(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(1))
	names := []string{"P0", "P1", "P2", "P3", "P4", "P5"}
	versions := []string{"1.0", "1.5", "2.0"}
	ranges := []string{"1.0", "[1.0,2.0)", "[2.0]", "(,1.5]", "[1.5,)"}
	solved := 0
	for round := 0; round < 200; round++ {
		var avail []PackageInfo
		for i, n := range names {
			for _, v := range versions {
				if rnd.Intn(4) == 0 {
					continue
				}
				var deps []string
				for j, m := range names {
					if j != i && rnd.Intn(5) == 0 {
						deps = append(deps, m+"@"+ranges[rnd.Intn(len(ranges))])
					}
				}
				avail = append(avail, info(n, v, deps...))
			}
		}
		req := Request{
			Targets:   targets("P0", "P1"),
			Available: avail,
			Behavior:  Behavior(1 + round%4),
		}
		if rnd.Intn(2) == 0 && len(avail) > 0 {
			req.Installed = []VersionKey{avail[rnd.Intn(len(avail))].VersionKey}
		}
		got, err := NewResolver(Options{}).Resolve(ctx, req)
		if errors.Is(err, ErrNoSolution) || errors.Is(err, ErrUnresolvableTarget) {
			continue
		}
		if err != nil {
			t.Fatalf("round %d: Resolve: %v", round, err)
		}
		solved++
		checkProperties(t, req, got)
	}
	if solved == 0 {
		t.Errorf("no generated universe could be resolved")
	}
}

func checkProperties(t *testing.T, req Request, got []VersionKey) {
	t.Helper()
	infos := make(map[versionID]PackageInfo)
	for _, pi := range req.Available {
		infos[pi.id()] = pi
	}
	index := make(map[string]int)
	for i, vk := range got {
		if _, ok := index[vk.PackageKey.id()]; ok {
			t.Fatalf("%v selected twice in %v", vk.PackageKey, got)
		}
		index[vk.PackageKey.id()] = i
	}
	for _, tk := range req.Targets {
		if _, ok := index[tk.id()]; !ok {
			t.Errorf("target %v not selected in %v", tk, got)
		}
	}

	// deps[i] holds the indexes of the selected dependencies of got[i].
	deps := make([][]int, len(got))
	for i, vk := range got {
		c := newConcrete(infos[vk.id()])
		for id, r := range c.ranges {
			j, ok := index[id]
			if !ok {
				t.Errorf("%v depends on %s, which is not selected", vk, id)
				continue
			}
			if !r.Satisfies(got[j].Version) {
				t.Errorf("%v requires %s in %v, got %v", vk, id, r, got[j])
			}
			deps[i] = append(deps[i], j)
		}
	}
	reaches := func(from, to int) bool {
		seen := make([]bool, len(got))
		stack := []int{from}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n == to {
				return true
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			stack = append(stack, deps[n]...)
		}
		return false
	}
	for i := range got {
		for _, j := range deps[i] {
			if j > i && !reaches(j, i) {
				t.Errorf("%v installed before its dependency %v", got[i], got[j])
			}
		}
	}
}
