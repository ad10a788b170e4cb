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

import "testing"

func TestGraphAddPathInterns(t *testing.T) {
	g := NewGraph()
	a := g.AddPath("foo.o")
	b := g.AddPath("foo.o")
	if a != b {
		t.Fatalf("AddPath not idempotent: %d != %d", a, b)
	}
	if got := g.Path(a); got != "foo.o" {
		t.Fatalf("Path(%d) = %q", a, got)
	}
}

func TestGraphDefaultNodeReserved(t *testing.T) {
	g := NewGraph()
	if !g.IsDefault(g.DefaultIndex()) {
		t.Fatal("DefaultIndex should be the default node")
	}
	if g.IsDefault(g.AddPath("a.o")) {
		t.Fatal("a.o should not be the default node")
	}
}

func TestGraphAddEdgeAdjacency(t *testing.T) {
	g := NewGraph()
	in := g.AddPath("a.c")
	out := g.AddPath("a.o")
	g.AddEdge(in, out)

	outs := g.Out(in)
	if len(outs) != 1 || outs[0] != out {
		t.Fatalf("Out(in) = %v; want [%d]", outs, out)
	}
	ins := g.In(out)
	if len(ins) != 1 || ins[0] != in {
		t.Fatalf("In(out) = %v; want [%d]", ins, in)
	}
}

func TestGraphAddEdgeRejectsSelfEdge(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("AddEdge(n, n) should panic")
		}
	}()
	g := NewGraph()
	n := g.AddPath("a.o")
	g.AddEdge(n, n)
}

func TestGraphFindPath(t *testing.T) {
	g := NewGraph()
	g.AddPath("a.o")
	if _, ok := g.FindPath("a.o"); !ok {
		t.Fatal("FindPath should find an interned path")
	}
	if _, ok := g.FindPath("b.o"); ok {
		t.Fatal("FindPath should not find an unknown path")
	}
}
