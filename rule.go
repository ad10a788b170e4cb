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

// reservedRuleBindings lists the variable names a "rule" block may bind, in
// a fixed order so Rule can store them in a small array instead of a map.
var reservedRuleBindings = [...]string{
	"command",
	"depfile",
	"dyndep",
	"description",
	"deps",
	"generator",
	"pool",
	"restat",
	"rspfile",
	"rspfile_content",
	"msvc_deps_prefix",
}

// Rule is a named template for build edges: "rule cc" followed by indented
// "command = ...", etc. Only the fixed set of reserved bindings above may
// be set on a rule; anything else is a parse error.
type Rule struct {
	name     string
	bindings [len(reservedRuleBindings)]*EvalString
	// builtin marks the "phony" rule that every BuildContext pre-registers,
	// which is never considered "real" work by the trim solver's
	// affected-set propagation.
	builtin bool
}

// NewRule creates an empty, named rule.
func NewRule(name string) *Rule {
	return &Rule{name: name}
}

func ruleLookupIndex(name string) int {
	for i, n := range reservedRuleBindings {
		if n == name {
			return i
		}
	}
	return -1
}

// IsReservedBinding reports whether name is one a "rule" block may set.
func IsReservedBinding(name string) bool {
	return ruleLookupIndex(name) != -1
}

// AddBinding records value for the reserved variable name. It returns false
// if name is not a valid rule-level binding.
func (r *Rule) AddBinding(name string, value *EvalString) bool {
	i := ruleLookupIndex(name)
	if i == -1 {
		return false
	}
	r.bindings[i] = value
	return true
}

// Binding looks up a rule-level binding by name.
func (r *Rule) Binding(name string) (*EvalString, bool) {
	i := ruleLookupIndex(name)
	if i == -1 || r.bindings[i] == nil {
		return nil, false
	}
	return r.bindings[i], true
}

// Name returns the rule's declared name ("phony" for the built-in rule).
func (r *Rule) Name() string {
	return r.name
}

const phonyRuleName = "phony"
const defaultRuleName = "default"
