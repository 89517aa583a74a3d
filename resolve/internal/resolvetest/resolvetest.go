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
Package resolvetest provides a way to define test data for resolvers.

Test data follows a simple format that describes universes (sets of
available package versions), resolved graphs, and test cases.

	Below is the definition of two universes, one named sample, the other
	named other, specified as schema definitions.

	-- Universe sample
	alice
		1.0.0
			bob@1.0
	bob
		1.0.0
		2.0.0
	-- END

	-- Universe other
	eve
		1.0.0
			bob@[1.0,2.0)
	-- END

	Below is the definition of a test. It links a universe, the packages to
	resolve and the expected result, given as a graph.

	-- Test alice
	Universe sample
	Resolve alice
	Behavior Lowest
	Graph alice
	-- END

	Below is the definition of a resolve.Graph, named alice, specified as a
	graph schema definition.

	-- Graph alice
	bob 1.0.0
	alice 1.0.0
	└─ bob@1.0 1.0.0
	-- END

	A test may use several universes, which are merged. The expected result
	may also be given as an install order with Want lines, or as an error
	kind: unresolvable, nosolution, invalid or limit. Installed lines name
	versions that are already installed and MaxSteps bounds the search.

	-- Test eve
	Universe sample, other
	Resolve eve
	Installed bob 2.0.0
	Behavior Highest
	Want bob 1.0.0
	Want eve 1.0.0
	-- END

The behavior defaults to Lowest.
*/
package resolvetest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deps.dev/util/nuget/resolve"
	"deps.dev/util/nuget/resolve/schema"
	"deps.dev/util/nuget/resolve/version"
)

const (
	startBlockUniverse = "-- universe "
	startBlockGraph    = "-- graph "
	startBlockTest     = "-- test "
	endBlock           = "-- end"
	prefixTestUniverse = "universe "
	prefixTestResolve  = "resolve "
	prefixTestInstall  = "installed "
	prefixTestBehavior = "behavior "
	prefixTestGraph    = "graph "
	prefixTestWant     = "want "
	prefixTestError    = "error "
	prefixTestMaxSteps = "maxsteps "
)

// errorKinds maps the error kinds of tests to the errors they stand for.
var errorKinds = map[string]error{
	"unresolvable": resolve.ErrUnresolvableTarget,
	"nosolution":   resolve.ErrNoSolution,
	"invalid":      resolve.ErrInvalidInput,
	"limit":        resolve.ErrSearchLimit,
}

// Artifact describes the parsed content from a test data file.
type Artifact struct {
	// Universe holds the defined universes, indexed by name.
	Universe map[string]*schema.Schema
	// Graph holds the defined resolved graphs, indexed by name.
	Graph map[string]*resolve.Graph
	// Test holds the defined tests in the order in which they were defined.
	Test []*Test
}

// Test describes a parsed test.
type Test struct {
	// Name of the test.
	Name string
	// Request holds the request to resolve. Its available versions are
	// those of the test universes.
	Request resolve.Request
	// Options holds the resolver options.
	Options resolve.Options
	// Universe holds the client serving the test universes.
	Universe *resolve.LocalClient
	// Graph holds the resolved graph, if the test names one.
	Graph *resolve.Graph
	// GraphName holds the resolved graph name.
	GraphName string
	// Want holds the expected install order, if the test gives one.
	Want []resolve.VersionKey
	// Error holds the expected error, if any. It is one of the resolve
	// package sentinels.
	Error error
}

// parsedTest describes a test during the parsing phase of the data.
// It contains identifiers instead of objects that may be parsed later.
type parsedTest struct {
	name      string
	universes []string
	targets   []resolve.PackageKey
	installed []resolve.VersionKey
	behavior  resolve.Behavior
	graph     string
	want      []resolve.VersionKey
	err       error
	maxSteps  int
}

// ParseFiles parses the data from the given files and creates test
// artifacts: universes, resolved graphs, and tests.
func ParseFiles(files ...string) (*Artifact, error) {
	var b bytes.Buffer
	for _, file := range files {
		p, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		b.Write(p)
		b.WriteRune('\n')
	}

	return Parse(&b)
}

// Parse parses the data from the given reader and creates test artifacts:
// universes, resolved graphs, and tests.
func Parse(r io.Reader) (*Artifact, error) {
	a := &Artifact{
		Universe: make(map[string]*schema.Schema),
		Graph:    make(map[string]*resolve.Graph),
	}
	sc := bufio.NewScanner(r)
	var parsedTests []*parsedTest
	seenTest := make(map[string]bool)
	for line := 1; sc.Scan(); line++ {
		curLine := line
		l := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(strings.ToLower(l), startBlockUniverse):
			name, err := parseName(l[len(startBlockUniverse):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if a.Universe[name] != nil {
				return nil, fmt.Errorf("line %d: duplicate universe name: %q", curLine, name)
			}
			text, err := readBlock(sc, &line)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing universe: %w", curLine, err)
			}
			a.Universe[name], err = schema.New(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing universe %s: %w", curLine, name, err)
			}

		case strings.HasPrefix(strings.ToLower(l), startBlockGraph):
			name, err := parseName(l[len(startBlockGraph):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if a.Graph[name] != nil {
				return nil, fmt.Errorf("line %d: duplicate graph name: %q", curLine, name)
			}
			text, err := readBlock(sc, &line)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing graph: %w", curLine, err)
			}
			a.Graph[name], err = schema.ParseGraph(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing graph %s: %w", curLine, name, err)
			}

		case strings.HasPrefix(strings.ToLower(l), startBlockTest):
			name, err := parseName(l[len(startBlockTest):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if seenTest[name] {
				return nil, fmt.Errorf("line %d: duplicate test name: %q", curLine, name)
			}
			t, err := parseTest(sc, &line, name)
			if err != nil {
				return nil, fmt.Errorf("line %d: cannot parse test: %w", curLine, err)
			}
			parsedTests = append(parsedTests, t)
			seenTest[name] = true
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	// Convert parsed tests into artifact tests.
	a.Test = make([]*Test, len(parsedTests))
	for i, pt := range parsedTests {
		t := &Test{
			Name: pt.name,
			Request: resolve.Request{
				Targets:   pt.targets,
				Installed: pt.installed,
				Behavior:  pt.behavior,
			},
			Options:   resolve.Options{MaxSteps: pt.maxSteps},
			GraphName: pt.graph,
			Want:      pt.want,
			Error:     pt.err,
		}
		if pt.graph != "" {
			t.Graph = a.Graph[pt.graph]
			if t.Graph == nil {
				return nil, fmt.Errorf("test %s: undefined graph %q", pt.name, pt.graph)
			}
		}
		if len(pt.universes) == 0 {
			return nil, fmt.Errorf("test %s: no universe", pt.name)
		}
		var us []*schema.Schema
		for _, name := range pt.universes {
			u := a.Universe[name]
			if u == nil {
				return nil, fmt.Errorf("test %s: undefined universe %q", pt.name, name)
			}
			us = append(us, u)
		}
		t.Universe = newMultiverse(us)
		t.Request.Available = t.Universe.Available()
		a.Test[i] = t
	}

	return a, nil
}

// newMultiverse gathers content from all the given universes and returns a
// client holding all the gathered versions. A version defined in several
// universes takes its dependencies from the last one.
func newMultiverse(universes []*schema.Schema) *resolve.LocalClient {
	lc := resolve.NewLocalClient()
	for _, u := range universes {
		for _, pi := range u.Available() {
			lc.AddVersion(pi)
		}
	}
	return lc
}

func parseName(s string) (string, error) {
	ts := strings.TrimSpace(s)
	if ts == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	return ts, nil
}

// readBlock reads the lines up to the end of the current block.
func readBlock(sc *bufio.Scanner, line *int) (string, error) {
	var lines []string
	for sc.Scan() {
		*line++
		l := sc.Text()
		if strings.TrimSpace(strings.ToLower(l)) == endBlock {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, l)
	}
	return "", fmt.Errorf("%w, want %q", io.ErrUnexpectedEOF, endBlock)
}

func parseTest(sc *bufio.Scanner, line *int, name string) (*parsedTest, error) {
	t := &parsedTest{
		name:     name,
		behavior: resolve.Lowest,
	}
	for sc.Scan() {
		*line++
		l := strings.TrimSpace(sc.Text())
		ll := strings.ToLower(l)

		switch {
		case ll == endBlock:
			if t.graph == "" && t.want == nil && t.err == nil {
				return nil, fmt.Errorf("line %d: test %s has no expectation", *line, name)
			}
			return t, nil

		case strings.HasPrefix(ll, prefixTestUniverse):
			for _, u := range strings.Split(l[len(prefixTestUniverse):], ",") {
				n, err := parseName(u)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", *line, err)
				}
				t.universes = append(t.universes, n)
			}

		case strings.HasPrefix(ll, prefixTestResolve):
			for _, n := range strings.Fields(l[len(prefixTestResolve):]) {
				t.targets = append(t.targets, resolve.PackageKey{Name: n})
			}

		case strings.HasPrefix(ll, prefixTestInstall):
			vk, err := parseVersionKey(l[len(prefixTestInstall):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.installed = append(t.installed, vk)

		case strings.HasPrefix(ll, prefixTestBehavior):
			b, err := resolve.ParseBehavior(l[len(prefixTestBehavior):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.behavior = b

		case strings.HasPrefix(ll, prefixTestGraph):
			n, err := parseName(l[len(prefixTestGraph):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.graph = n

		case strings.HasPrefix(ll, prefixTestWant):
			vk, err := parseVersionKey(l[len(prefixTestWant):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.want = append(t.want, vk)

		case strings.HasPrefix(ll, prefixTestError):
			kind := strings.ToLower(strings.TrimSpace(l[len(prefixTestError):]))
			err, ok := errorKinds[kind]
			if !ok {
				return nil, fmt.Errorf("line %d: unknown error kind %q", *line, kind)
			}
			t.err = err

		case strings.HasPrefix(ll, prefixTestMaxSteps):
			n, err := strconv.Atoi(strings.TrimSpace(l[len(prefixTestMaxSteps):]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.maxSteps = n

		case l == "" || strings.HasPrefix(l, "#"):

		default:
			return nil, fmt.Errorf("line %d: unexpected line %q", *line, l)
		}
	}
	return nil, fmt.Errorf("%w, want %q", io.ErrUnexpectedEOF, endBlock)
}

// parseVersionKey parses a "name version" pair.
func parseVersionKey(s string) (resolve.VersionKey, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return resolve.VersionKey{}, fmt.Errorf("invalid version string %q", s)
	}
	v, err := version.Parse(fields[1])
	if err != nil {
		return resolve.VersionKey{}, err
	}
	return resolve.VersionKey{
		PackageKey: resolve.PackageKey{Name: fields[0]},
		Version:    v,
	}, nil
}
