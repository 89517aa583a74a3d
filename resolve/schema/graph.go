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

package schema

import (
	"fmt"
	"strings"

	"deps.dev/util/nuget/resolve"
	"deps.dev/util/nuget/resolve/version"
)

// graphRow is a processed line of a graph.
type graphRow struct {
	// line holds the line number, for error reporting.
	line int
	// node is the index of the node the row defines or, for an edge, the
	// index of the node the edge comes from.
	node int
	// edge reports whether the row is an edge.
	edge bool
	// name, requirement and version are the fields of the row. Only edges
	// have a requirement.
	name, requirement, version string
}

/*
ParseGraph parses the text of a resolution graph, as produced by
resolve.Graph.String.

Lines without indentation define nodes, in install order:

	name version

Indented lines define the edges from the node above them to another node of
the graph, defined before or after:

	name version
		name@range version

Edges may also be prefixed with the tree art used by resolve.Graph.String
rather than a tab:

	A 1.0.0
	├─ B@[1.0,2.0) 1.2.0
	└─ C@1.0 1.0.0

Lines are trimmed, and empty lines or lines starting with a `#` are skipped.
*/
func ParseGraph(text string) (*resolve.Graph, error) {
	var (
		rows  []graphRow
		nodes []int
	)
	for i, line := range strings.Split(text, "\n") {
		tl := strings.TrimSpace(line)
		if tl == "" || strings.HasPrefix(tl, "#") {
			continue
		}
		r := graphRow{line: i + 1}

		line = replaceArt(line)
		depth := 0
		for _, c := range line {
			if c != '\t' {
				break
			}
			depth++
		}
		items := strings.Fields(line)
		if len(items) != 2 {
			return nil, fmt.Errorf("line %d: unexpected number of items (%d)", r.line, len(items))
		}

		switch depth {
		case 0:
			r.name, r.version = items[0], items[1]
			r.node = len(nodes)
			nodes = append(nodes, len(rows))
		case 1:
			if len(nodes) == 0 {
				return nil, fmt.Errorf("line %d: edge before any node", r.line)
			}
			name, req, ok := strings.Cut(items[0], "@")
			if !ok {
				return nil, fmt.Errorf("line %d: expected a requirement, got %q", r.line, items[0])
			}
			r.edge = true
			r.name, r.requirement, r.version = name, req, items[1]
			r.node = len(nodes) - 1
		default:
			return nil, fmt.Errorf("line %d: skipped indentation level (%d > 1)", r.line, depth)
		}
		rows = append(rows, r)
	}

	g := &resolve.Graph{}
	ids := make(map[string]resolve.NodeID)
	for _, i := range nodes {
		r := rows[i]
		v, err := version.Parse(r.version)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		pk := resolve.PackageKey{Name: r.name}
		key := strings.ToLower(r.name)
		if _, ok := ids[key]; ok {
			return nil, fmt.Errorf("line %d: duplicate node %s", r.line, r.name)
		}
		ids[key] = g.AddNode(resolve.VersionKey{PackageKey: pk, Version: v})
	}
	for _, r := range rows {
		if !r.edge {
			continue
		}
		to, ok := ids[strings.ToLower(r.name)]
		if !ok {
			return nil, fmt.Errorf("line %d: undefined node %s", r.line, r.name)
		}
		v, err := version.Parse(r.version)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if got := g.Nodes[to].Version.Version; got != v {
			return nil, fmt.Errorf("line %d: %s is at version %s, not %s", r.line, r.name, got, v)
		}
		if _, err := version.ParseRange(r.requirement); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if err := g.AddEdge(resolve.NodeID(r.node), to, r.requirement); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
	}
	return g, nil
}

func replaceArt(s string) string {
	for _, p := range []string{"   ", "├─ ", "│  ", "└─ "} {
		if strings.HasPrefix(s, p) {
			return "\t" + replaceArt(s[len(p):])
		}
	}
	return s
}
