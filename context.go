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

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileReader abstracts reading an included/subninja file, so parser tests
// can inject an in-memory filesystem instead of touching disk.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// realFileReader reads from the actual filesystem.
type realFileReader struct{}

func (realFileReader) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// buildCommand is the trim solver's view of one "build" edge: enough to
// regenerate either its original text or a phony replacement.
type buildCommand struct {
	partsIndex     int
	outs           []string // canonical outputs, primary then implicit, in source order
	outIdx         []int    // graph node index of each entry in outs, same order
	outsRaw        string   // source text of the output path list, up to (not including) ":"
	validationsRaw string   // source text following "|@", up to (not including) the newline
	ruleName       string
	isPhony        bool
	hash           uint64
}

// BuildContext accumulates everything a manifest parse discovers: the
// source-byte parts that make up the final output, every declared rule, and
// the bipartite file/edge Graph the trim solver walks.
type BuildContext struct {
	rules          map[string]*Rule
	rulePartsIndex map[string]int
	ruleReferenced map[string]bool

	parts []string

	commands      []*buildCommand
	nodeToCommand map[int]int

	fileScope *BasicScope
	graph     *Graph

	pools map[string]bool

	defaultTargets []string
}

// NewBuildContext creates an empty context with the built-in "phony" rule
// pre-registered, and "console" pre-registered as a pool name.
func NewBuildContext() *BuildContext {
	ctx := &BuildContext{
		rules:          make(map[string]*Rule),
		rulePartsIndex: make(map[string]int),
		ruleReferenced: make(map[string]bool),
		nodeToCommand:  make(map[int]int),
		fileScope:      NewBasicScope(nil),
		graph:          NewGraph(),
		pools:          map[string]bool{"console": true},
	}
	phony := NewRule(phonyRuleName)
	phony.builtin = true
	ctx.rules[phonyRuleName] = phony
	ctx.ruleReferenced[phonyRuleName] = true
	return ctx
}

// getPathIndex interns a raw (not yet canonicalized) path into the graph.
func (c *BuildContext) getPathIndex(raw string) int {
	canon, _ := CanonicalizePath(raw)
	return c.graph.AddPath(canon)
}

// addPart appends a raw source-text slice, returning its index so the trim
// solver can later overwrite it with a phony line.
func (c *BuildContext) addPart(text string) int {
	c.parts = append(c.parts, text)
	return len(c.parts) - 1
}

// builddir returns the evaluated top-level "builddir" variable, or "" if
// unset. A subninja's own "builddir" binding, if any, never reaches here:
// NestedScope only ever shadows lookups for its own file, it cannot write
// into the parent BasicScope this reads from.
func (c *BuildContext) builddir() string {
	return lookupString(c.fileScope, "builddir")
}

func lookupString(s Scope, name string) string {
	var b strings.Builder
	s.AppendValue(&b, name)
	return b.String()
}

// ParseManifest parses a whole Ninja manifest (including any transitively
// included or subninja'd files) into ctx, using fr to resolve include and
// subninja paths. A nil fr reads from the real filesystem.
func ParseManifest(ctx *BuildContext, filename, input string, fr FileReader) error {
	if fr == nil {
		fr = realFileReader{}
	}
	p := &parser{ctx: ctx, fr: fr, scope: ctx.fileScope, dir: filepath.Dir(filename)}
	p.lexer.Start(filename, input)
	return p.parse()
}

type parser struct {
	lexer Lexer
	ctx   *BuildContext
	fr    FileReader
	// scope is what top-level variable reads/writes and build-edge
	// output/input path evaluation resolve against: the root fileScope
	// normally, or a fresh NestedScope while inside a subninja.
	scope Scope
	// dir is the directory of the file currently being lexed; include and
	// subninja paths are resolved relative to it, not to the process's cwd.
	dir string
}

func (p *parser) errorAt(message string) error {
	var s string
	p.lexer.Error(message, &s)
	return fmt.Errorf("%s", s)
}

func (p *parser) expectToken(expected Token) error {
	if t := p.lexer.ReadToken(); t != expected {
		return p.errorAt(fmt.Sprintf("expected %s, got %s%s", TokenName(expected), TokenName(t), TokenErrorHint(expected)))
	}
	return nil
}

func (p *parser) parse() error {
	for {
		token := p.lexer.ReadToken()
		switch token {
		case TEOF:
			return nil
		case NEWLINE:
			p.ctx.addPart(p.lexer.input_[p.lexer.last_token_:p.lexer.ofs_])
		case POOL:
			if err := p.parsePool(); err != nil {
				return err
			}
		case BUILD:
			if err := p.parseEdge(); err != nil {
				return err
			}
		case RULE:
			if err := p.parseRule(); err != nil {
				return err
			}
		case DEFAULT:
			if err := p.parseDefault(); err != nil {
				return err
			}
		case IDENT:
			p.lexer.UnreadToken()
			if err := p.parseTopLevelLet(); err != nil {
				return err
			}
		case INCLUDE:
			if err := p.parseInclude(); err != nil {
				return err
			}
		case SUBNINJA:
			if err := p.parseSubninja(); err != nil {
				return err
			}
		default:
			return p.errorAt(fmt.Sprintf("unexpected %s", TokenName(token)))
		}
	}
}

// parseLet reads "name = value" and returns them, unevaluated.
func (p *parser) parseLet() (string, *EvalString, error) {
	var name string
	if !p.lexer.ReadIdent(&name) {
		return "", nil, p.errorAt("expected variable name")
	}
	if err := p.expectToken(EQUALS); err != nil {
		return "", nil, err
	}
	value := &EvalString{}
	var errStr string
	if !p.lexer.ReadVarValue(value, &errStr) {
		return "", nil, fmt.Errorf("%s", errStr)
	}
	return name, value, nil
}

func (p *parser) setScoped(name, value string) {
	switch s := p.scope.(type) {
	case *NestedScope:
		s.Set(name, value)
	case *BasicScope:
		s.Set(name, value)
	}
}

// parseTopLevelLet parses a bare "name = value" manifest-level assignment.
func (p *parser) parseTopLevelLet() error {
	start := p.lexer.last_token_
	name, value, err := p.parseLet()
	if err != nil {
		return err
	}
	p.setScoped(name, value.Evaluate(p.scope))
	p.ctx.addPart(p.lexer.input_[start:p.lexer.ofs_])
	return nil
}

func (p *parser) parsePool() error {
	start := p.lexer.last_token_
	var name string
	if !p.lexer.ReadIdent(&name) {
		return p.errorAt("expected pool name")
	}
	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}
	for p.lexer.PeekToken(INDENT) {
		if _, _, err := p.parseLet(); err != nil {
			return err
		}
	}
	p.ctx.pools[name] = true
	p.ctx.addPart(p.lexer.input_[start:p.lexer.ofs_])
	return nil
}

func (p *parser) parseRule() error {
	start := p.lexer.last_token_
	var name string
	if !p.lexer.ReadIdent(&name) {
		return p.errorAt("expected rule name")
	}
	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}

	rule := NewRule(name)
	hasBinding := false
	for p.lexer.PeekToken(INDENT) {
		key, value, err := p.parseLet()
		if err != nil {
			return err
		}
		if !rule.AddBinding(key, value) {
			return p.errorAt(fmt.Sprintf("unexpected variable %q", key))
		}
		hasBinding = true
	}
	if !hasBinding {
		return p.errorAt("expected a command variable")
	}

	idx := p.ctx.addPart(p.lexer.input_[start:p.lexer.ofs_])
	p.ctx.rules[name] = rule
	p.ctx.rulePartsIndex[name] = idx
	return nil
}

func (p *parser) parseDefault() error {
	start := p.lexer.last_token_
	targets, err := p.collectPaths()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return p.errorAt("expected target name")
	}
	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}

	for _, t := range targets {
		value := t.Evaluate(p.scope)
		idx := p.ctx.getPathIndex(value)
		p.ctx.graph.AddEdge(idx, p.ctx.graph.DefaultIndex())
		p.ctx.defaultTargets = append(p.ctx.defaultTargets, p.ctx.graph.Path(idx))
	}

	p.ctx.addPart(p.lexer.input_[start:p.lexer.ofs_])
	return nil
}

// collectPaths reads EvalString paths until a non-path delimiter token is
// hit, leaving that token unread.
func (p *parser) collectPaths() ([]*EvalString, error) {
	var out []*EvalString
	for {
		eval := &EvalString{}
		var errStr string
		if !p.lexer.ReadPath(eval, &errStr) {
			return nil, fmt.Errorf("%s", errStr)
		}
		if eval.Empty() {
			return out, nil
		}
		out = append(out, eval)
	}
}

func evalAll(evals []*EvalString, scope Scope) []string {
	out := make([]string, len(evals))
	for i, e := range evals {
		out[i] = e.Evaluate(scope)
	}
	return out
}

func canonicalizeAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i], _ = CanonicalizePath(p)
	}
	return out
}

func (p *parser) parseEdge() error {
	start := p.lexer.last_token_
	outsStart := p.lexer.ofs_

	outs, err := p.collectPaths()
	if err != nil {
		return err
	}
	if len(outs) == 0 {
		return p.errorAt("expected path")
	}

	var implicitOuts []*EvalString
	if p.lexer.PeekToken(PIPE) {
		if implicitOuts, err = p.collectPaths(); err != nil {
			return err
		}
	}
	outsRaw := p.lexer.input_[outsStart:p.lexer.last_token_]

	if err := p.expectToken(COLON); err != nil {
		return err
	}

	var ruleName string
	if !p.lexer.ReadIdent(&ruleName) {
		return p.errorAt("expected build command name")
	}
	rule, ok := p.ctx.rules[ruleName]
	if !ok {
		msg := fmt.Sprintf("unknown build rule %q", ruleName)
		if best := p.suggestRuleName(ruleName); best != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", best)
		}
		return p.errorAt(msg)
	}

	ins, err := p.collectPaths()
	if err != nil {
		return err
	}

	var implicitIns []*EvalString
	if p.lexer.PeekToken(PIPE) {
		if implicitIns, err = p.collectPaths(); err != nil {
			return err
		}
	}

	var orderOnlyIns []*EvalString
	if p.lexer.PeekToken(PIPE2) {
		if orderOnlyIns, err = p.collectPaths(); err != nil {
			return err
		}
	}

	// Validations are never added to the graph (they are not required to
	// build this edge's outputs), so only their source text is kept, for
	// reuse verbatim if this edge is later phonied out.
	var validationsRaw string
	if p.lexer.PeekToken(PIPEAT) {
		validationsStart := p.lexer.ofs_
		if _, err = p.collectPaths(); err != nil {
			return err
		}
		validationsRaw = p.lexer.input_[validationsStart:p.lexer.last_token_]
	}

	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}

	// Outputs and inputs are evaluated against the declaring file's scope;
	// $in/$out only become meaningful once the edge's own EdgeScope exists
	// below, for the rule's bindings and this edge's local bindings.
	outStrs := evalAll(outs, p.scope)
	implicitOutStrs := evalAll(implicitOuts, p.scope)
	inStrs := evalAll(ins, p.scope)
	implicitInStrs := evalAll(implicitIns, p.scope)
	orderOnlyStrs := evalAll(orderOnlyIns, p.scope)

	allOuts := append(append([]string{}, outStrs...), implicitOutStrs...)
	allExplicitIns := append(append([]string{}, inStrs...), implicitInStrs...)

	// $in/$out expand only the edge's explicit inputs/outputs, matching
	// Ninja: implicit and order-only dependencies are never substituted.
	edgeScope := NewEdgeScope(inStrs, outStrs, rule, p.scope)

	for p.lexer.PeekToken(INDENT) {
		key, value, err := p.parseLet()
		if err != nil {
			return err
		}
		edgeScope.Set(key, value.Evaluate(edgeScope))
	}

	cmd := &buildCommand{
		ruleName:       ruleName,
		isPhony:        rule.builtin,
		outs:           canonicalizeAll(allOuts),
		outsRaw:        outsRaw,
		validationsRaw: validationsRaw,
	}

	if !rule.builtin {
		command := lookupString(edgeScope, "command")
		rspfileContent := lookupString(edgeScope, "rspfile_content")
		cmd.hash = commandHash(command, rspfileContent)
	}

	outIdx := make([]int, len(cmd.outs))
	for i, o := range cmd.outs {
		outIdx[i] = p.ctx.graph.AddPath(o)
	}
	cmd.outIdx = outIdx

	// Validations are not graph inputs: Ninja never requires them to build
	// the edge's outputs, and neither forward nor backward propagation
	// should treat a validation target as affecting (or affected by) this
	// edge.
	allIns := append(append([]string{}, allExplicitIns...), orderOnlyStrs...)
	for _, in := range allIns {
		inIdx := p.ctx.getPathIndex(in)
		for _, oi := range outIdx {
			if inIdx == oi {
				continue
			}
			p.ctx.graph.AddEdge(inIdx, oi)
		}
	}

	p.ctx.ruleReferenced[ruleName] = true
	idx := p.ctx.addPart(p.lexer.input_[start:p.lexer.ofs_])
	cmd.partsIndex = idx
	cmdIdx := len(p.ctx.commands)
	p.ctx.commands = append(p.ctx.commands, cmd)
	for _, oi := range outIdx {
		p.ctx.nodeToCommand[oi] = cmdIdx
	}

	return nil
}

// suggestRuleName finds the closest known rule name to name, for a "did you
// mean" hint, the way Ninja's own error messages do.
func (p *parser) suggestRuleName(name string) string {
	best := ""
	bestDist := 1 << 30
	const maxDist = 3
	for known := range p.ctx.rules {
		d := editDistance(name, known, true, maxDist)
		if d < bestDist && d <= maxDist {
			bestDist = d
			best = known
		}
	}
	return best
}

func (p *parser) parseInclude() error {
	eval := &EvalString{}
	var errStr string
	if !p.lexer.ReadPath(eval, &errStr) {
		return fmt.Errorf("%s", errStr)
	}
	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}
	path := p.resolvePath(eval.Evaluate(p.scope))
	contents, err := p.fr.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	// include shares the current scope: it behaves as if the included
	// file's text were pasted in place.
	child := &parser{ctx: p.ctx, fr: p.fr, scope: p.scope, dir: filepath.Dir(path)}
	child.lexer.Start(path, contents)
	return child.parse()
}

// resolvePath joins a relative include/subninja path against the directory
// of the file currently being parsed, so nested manifests can be found
// regardless of the process's working directory.
func (p *parser) resolvePath(path string) string {
	if filepath.IsAbs(path) || p.dir == "" || p.dir == "." {
		return path
	}
	return filepath.Join(p.dir, path)
}

func (p *parser) parseSubninja() error {
	eval := &EvalString{}
	var errStr string
	if !p.lexer.ReadPath(eval, &errStr) {
		return fmt.Errorf("%s", errStr)
	}
	if err := p.expectToken(NEWLINE); err != nil {
		return err
	}
	path := p.resolvePath(eval.Evaluate(p.scope))
	contents, err := p.fr.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	// A subninja gets its own scope, chained to (but never writing back
	// into) the including file's scope, so its variables cannot leak out.
	childScope := NewNestedScope(p.scope)
	child := &parser{ctx: p.ctx, fr: p.fr, scope: childScope, dir: filepath.Dir(path)}
	child.lexer.Start(path, contents)
	return child.parse()
}
