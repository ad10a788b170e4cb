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

// evalStringTokenType distinguishes a literal-text fragment from a
// "$name"/"${name}" variable reference inside an EvalString.
type evalStringTokenType int

const (
	rawText evalStringTokenType = iota
	special
)

type evalStringToken struct {
	value string
	kind  evalStringTokenType
}

// EvalString stores a parsed $-escaped string as a sequence of literal text
// and variable-reference fragments, lazily joined against a Scope only when
// Evaluate is called. It never loses the distinction between "$x" and the
// literal text "x", which is why it must be evaluated rather than stored as
// a plain string.
type EvalString struct {
	parsed []evalStringToken
}

// AddText appends literal text, merging it into the previous fragment when
// that fragment was also literal text.
func (e *EvalString) AddText(text string) {
	if text == "" {
		return
	}
	if n := len(e.parsed); n > 0 && e.parsed[n-1].kind == rawText {
		e.parsed[n-1].value += text
		return
	}
	e.parsed = append(e.parsed, evalStringToken{value: text, kind: rawText})
}

// AddSpecial appends a variable reference by name.
func (e *EvalString) AddSpecial(name string) {
	e.parsed = append(e.parsed, evalStringToken{value: name, kind: special})
}

// Empty reports whether the EvalString has no fragments at all.
func (e *EvalString) Empty() bool {
	return len(e.parsed) == 0
}

// Evaluate resolves every fragment against env and concatenates the result.
func (e *EvalString) Evaluate(env Scope) string {
	var b strings.Builder
	for _, t := range e.parsed {
		if t.kind == rawText {
			b.WriteString(t.value)
		} else {
			env.AppendValue(&b, t.value)
		}
	}
	return b.String()
}

// Unparse reconstructs the original-ish $-escaped source form (used when
// re-synthesizing text, e.g. phony edge outputs, from already-evaluated
// strings this is not needed; Unparse exists for completeness/debugging).
func (e *EvalString) Unparse() string {
	var b strings.Builder
	for _, t := range e.parsed {
		if t.kind == rawText {
			b.WriteString(t.value)
		} else {
			if len(t.value) > 1 {
				b.WriteString("${")
				b.WriteString(t.value)
				b.WriteString("}")
			} else {
				b.WriteString("$")
				b.WriteString(t.value)
			}
		}
	}
	return b.String()
}

// Serialize renders the fragment list for diagnostics/tests, e.g.
// "[plain text ][$var]".
func (e *EvalString) Serialize() string {
	var b strings.Builder
	for _, t := range e.parsed {
		b.WriteByte('[')
		if t.kind == special {
			b.WriteByte('$')
		}
		b.WriteString(t.value)
		b.WriteByte(']')
	}
	return b.String()
}
