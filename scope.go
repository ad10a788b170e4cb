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

import "strings"

// Scope resolves a variable name to a value, writing it to out. It reports
// whether the name was bound at all (an unbound name expands to "").
type Scope interface {
	AppendValue(out *strings.Builder, name string) bool
}

// BasicScope is a flat, mutable set of name/value bindings: the file-level
// scope for a manifest or a subninja.
type BasicScope struct {
	bindings map[string]string
	parent   Scope
}

// NewBasicScope creates a scope chained to parent (nil for the root
// manifest's own file scope).
func NewBasicScope(parent Scope) *BasicScope {
	return &BasicScope{parent: parent}
}

// Set binds name to value in this scope, shadowing any parent binding.
func (s *BasicScope) Set(name, value string) {
	if s.bindings == nil {
		s.bindings = make(map[string]string)
	}
	s.bindings[name] = value
}

// Lookup returns the value bound to name in this scope only (no parent
// walk), and whether it was found.
func (s *BasicScope) Lookup(name string) (string, bool) {
	v, ok := s.bindings[name]
	return v, ok
}

func (s *BasicScope) AppendValue(out *strings.Builder, name string) bool {
	if v, ok := s.bindings[name]; ok {
		out.WriteString(v)
		return true
	}
	if s.parent != nil {
		return s.parent.AppendValue(out, name)
	}
	return false
}

// NestedScope is the scope introduced by a subninja: its own bindings,
// falling back to the parent file scope for anything it does not define
// itself. Per this tool's subninja design, nothing written through a
// NestedScope is ever visible to its parent.
type NestedScope struct {
	BasicScope
}

// NewNestedScope creates the scope used while parsing a subninja file,
// chained to the including file's scope.
func NewNestedScope(parent Scope) *NestedScope {
	return &NestedScope{BasicScope: BasicScope{parent: parent}}
}

// EdgeScope resolves the three build-edge builtins ("in", "out",
// "in_newline") before falling back to the edge's own local bindings, then
// the owning rule's (recursively evaluated) bindings, then the file scope
// the edge was declared in. This order mirrors the Ninja manual's
// description of variable scoping for build statements.
type EdgeScope struct {
	in, out   []string
	local     *BasicScope
	rule      *Rule
	fileScope Scope
}

// NewEdgeScope builds the per-edge scope used to evaluate a rule's
// variables (command, depfile, ...) for one specific build edge.
func NewEdgeScope(in, out []string, rule *Rule, fileScope Scope) *EdgeScope {
	return &EdgeScope{
		in:        in,
		out:       out,
		local:     NewBasicScope(nil),
		rule:      rule,
		fileScope: fileScope,
	}
}

// Set binds a local (indented, under the "build" line) variable.
func (e *EdgeScope) Set(name, value string) {
	e.local.Set(name, value)
}

// appendJoined writes items separated by sep, escape-quoting each one for
// the local subprocess shell the way the owning command would actually see
// it - $in/$out/$in_newline are always shell arguments, never raw text.
func appendJoined(out *strings.Builder, items []string, sep string) {
	for i, it := range items {
		if i > 0 {
			out.WriteString(sep)
		}
		appendEscapedString(out, it)
	}
}

func (e *EdgeScope) AppendValue(out *strings.Builder, name string) bool {
	switch name {
	case "in":
		appendJoined(out, e.in, " ")
		return true
	case "out":
		appendJoined(out, e.out, " ")
		return true
	case "in_newline":
		appendJoined(out, e.in, "\n")
		return true
	}
	if v, ok := e.local.Lookup(name); ok {
		out.WriteString(v)
		return true
	}
	if e.rule != nil {
		if es, ok := e.rule.Binding(name); ok {
			out.WriteString(es.Evaluate(e))
			return true
		}
	}
	if e.fileScope != nil {
		return e.fileScope.AppendValue(out, name)
	}
	return false
}
