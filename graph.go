// Copyright 2011 Google Inc. All Rights Reserved.
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

package trimja

// Graph is the bipartite file/edge dependency graph: every path is a node,
// and every build edge contributes an adjacency from each of its inputs to
// each of its outputs. It is intentionally simple (no statting, no dirty
// tracking) since the trim tool never executes a build - it only needs
// reachability.
type Graph struct {
	pathToIndex  map[string]int
	paths        []string
	out          [][]int // out[i] = edges reachable by treating i as an input
	in           [][]int // in[i] = edges reachable by treating i as an output
	defaultIndex int
}

// NewGraph creates an empty graph with the synthetic "default" node already
// registered at index 0, matching addDefault()'s single call-site contract
// in the original implementation.
func NewGraph() *Graph {
	g := &Graph{pathToIndex: make(map[string]int)}
	g.defaultIndex = g.addIndex("//default//")
	return g
}

func (g *Graph) addIndex(canonical string) int {
	if i, ok := g.pathToIndex[canonical]; ok {
		return i
	}
	i := len(g.paths)
	g.pathToIndex[canonical] = i
	g.paths = append(g.paths, canonical)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

// AddPath interns path (already canonicalized by the caller) and returns its
// node index, creating it if necessary.
func (g *Graph) AddPath(path string) int {
	return g.addIndex(path)
}

// AddPathNormalized interns path as-is, with no canonicalization, for
// sources (like the dep log) that are already known to store normalized
// paths.
func (g *Graph) AddPathNormalized(path string) int {
	return g.addIndex(path)
}

// FindPath looks up an already-canonicalized path without creating it.
func (g *Graph) FindPath(path string) (int, bool) {
	i, ok := g.pathToIndex[path]
	return i, ok
}

// Path returns the canonical path stored at index i.
func (g *Graph) Path(i int) string {
	return g.paths[i]
}

// Size returns the number of nodes in the graph.
func (g *Graph) Size() int {
	return len(g.paths)
}

// DefaultIndex returns the synthetic node that "default" statements add
// their targets to as inputs.
func (g *Graph) DefaultIndex() int {
	return g.defaultIndex
}

// IsDefault reports whether i is the synthetic default node.
func (g *Graph) IsDefault(i int) bool {
	return i == g.defaultIndex
}

// AddEdge records that in is an input and out is an output of the same
// build edge, connecting them in both adjacency directions. Both indices
// must already have been interned by AddPath/AddPathNormalized.
func (g *Graph) AddEdge(in, out int) {
	assert(in >= 0 && in < len(g.out))
	assert(out >= 0 && out < len(g.out))
	assert(in != out)
	g.out[in] = append(g.out[in], out)
	g.in[out] = append(g.in[out], in)
}

// Out returns the nodes reachable forward (as outputs) from treating i as
// an input.
func (g *Graph) Out(i int) []int {
	return g.out[i]
}

// In returns the nodes reachable backward (as inputs) from treating i as an
// output.
func (g *Graph) In(i int) []int {
	return g.in[i]
}
