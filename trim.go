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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TrimOptions configures one trim run.
type TrimOptions struct {
	// NinjaFileDir is the directory the manifest was loaded from; .ninja_deps
	// and .ninja_log are resolved against NinjaFileDir/builddir, and
	// user-supplied affected paths are resolved against NinjaFileDir.
	NinjaFileDir string
	// Explain turns on per-decision rationale, written to ExplainOut.
	Explain bool
	// ExplainOut receives rationale lines when Explain is set; ignored
	// otherwise. May be nil.
	ExplainOut io.Writer
	// WarnOut receives non-fatal "affected path not found" warnings. May be
	// nil, in which case warnings are discarded.
	WarnOut io.Writer
}

func readOptionalFile(fr FileReader, path string) (string, bool, error) {
	content, err := fr.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return content, true, nil
}

// Trim runs the full trim solver (SPEC_FULL.md §4.15 stages 2-10) over an
// already-parsed BuildContext, reading affected from one path per line, and
// returns the trimmed manifest text.
func Trim(ctx *BuildContext, opts TrimOptions, fr FileReader, affected io.Reader) (string, error) {
	if fr == nil {
		fr = realFileReader{}
	}
	explainOut := opts.ExplainOut
	if explainOut == nil || !opts.Explain {
		explainOut = io.Discard
	}
	warnOut := opts.WarnOut
	if warnOut == nil {
		warnOut = io.Discard
	}

	builddir := ctx.builddir()
	logDir := opts.NinjaFileDir
	if builddir != "" {
		logDir = filepath.Join(opts.NinjaFileDir, builddir)
	}
	depsPath := filepath.Join(logDir, ".ninja_deps")
	logPath := filepath.Join(logDir, ".ninja_log")

	// Stage 3: merge dep-log edges into the graph.
	if content, ok, err := readOptionalFile(fr, depsPath); err != nil {
		return "", fmt.Errorf("reading %s: %w", depsPath, err)
	} else if ok {
		depsLog, err := ReadDepsLog([]byte(content))
		if err != nil {
			return "", fmt.Errorf("%s: %w", depsPath, err)
		}
		for outIndex, rec := range depsLog.Deps {
			if outIndex < 0 || outIndex >= len(depsLog.Paths) {
				continue
			}
			outIdx := ctx.graph.AddPathNormalized(depsLog.Paths[outIndex])
			for _, inIndex := range rec.Inputs {
				if inIndex < 0 || inIndex >= len(depsLog.Paths) {
					continue
				}
				inIdx := ctx.graph.AddPathNormalized(depsLog.Paths[inIndex])
				if inIdx == outIdx {
					continue
				}
				ctx.graph.AddEdge(inIdx, outIdx)
			}
		}
	}

	size := ctx.graph.Size()
	affectedSeed := make([]bool, size)
	userDefinedOutputs := make(map[int]bool)
	for _, cmd := range ctx.commands {
		if cmd.isPhony {
			continue
		}
		for _, o := range cmd.outIdx {
			userDefinedOutputs[o] = true
		}
	}

	// Stage 4: seed affected set from build-log mismatches.
	logContent, logExists, err := readOptionalFile(fr, logPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", logPath, err)
	}
	if !logExists {
		for o := range userDefinedOutputs {
			affectedSeed[o] = true
		}
		fmt.Fprintf(explainOut, "Unable to find '%s', so including everything\n", logPath)
	} else {
		buildLog, err := ReadBuildLog(strings.NewReader(logContent))
		if err != nil {
			return "", fmt.Errorf("%s: %w", logPath, err)
		}
		for _, cmd := range ctx.commands {
			if cmd.isPhony {
				continue
			}
			for i, path := range cmd.outs {
				entry, ok := buildLog.Entries[path]
				switch {
				case !ok:
					affectedSeed[cmd.outIdx[i]] = true
					fmt.Fprintf(explainOut, "Including '%s' as it was not found in '%s'\n", path, logPath)
				case entry.CommandHash != cmd.hash:
					affectedSeed[cmd.outIdx[i]] = true
					fmt.Fprintf(explainOut, "Including '%s' as the build command hash differs in '%s'\n", path, logPath)
				}
			}
		}
	}

	// Stage 5: seed affected set from the user-supplied affected-file list.
	if affected != nil {
		scanner := bufio.NewScanner(affected)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			idx, ok := resolveAffectedPath(ctx.graph, opts.NinjaFileDir, line)
			if !ok {
				fmt.Fprintf(warnOut, "%s: not found in manifest\n", line)
				continue
			}
			if !affectedSeed[idx] {
				fmt.Fprintf(explainOut, "Including '%s' as it was marked as affected by the user\n", line)
			}
			affectedSeed[idx] = true
		}
	}

	// isBuiltinOutput reports whether i is not the output of a user-defined
	// rule: a source file, the default node, or a phony output. The forward
	// pass's explain message skips such nodes.
	isBuiltinOutput := func(i int) bool {
		cmdIdx, ok := ctx.nodeToCommand[i]
		return !ok || ctx.commands[cmdIdx].isPhony
	}

	// Stage 6: forward propagation.
	state := make([]bool, size)
	affectedNode := make([]bool, size)
	copy(affectedNode, affectedSeed)
	for i := 0; i < size; i++ {
		forwardVisit(ctx.graph, state, affectedNode, i, explainOut, isBuiltinOutput)
	}

	// Stage 7: backward propagation (needs-all-inputs).
	needsAllInputs := make([]bool, size)
	var seeds []int
	for o := range userDefinedOutputs {
		if affectedNode[o] {
			seeds = append(seeds, o)
		}
	}
	propagateBackward(ctx.graph, affectedNode, needsAllInputs, seeds, explainOut)

	// Stage 8: rewrite phonied edges.
	referencedRules := make(map[string]bool)
	for _, cmd := range ctx.commands {
		keep := false
		for _, o := range cmd.outIdx {
			if affectedNode[o] {
				keep = true
				break
			}
		}
		if keep {
			referencedRules[cmd.ruleName] = true
			continue
		}
		ctx.parts[cmd.partsIndex] = synthesizePhony(cmd)
	}

	// Stage 9: strip unreferenced rules.
	for name, idx := range ctx.rulePartsIndex {
		if name == phonyRuleName {
			continue
		}
		if !referencedRules[name] {
			ctx.parts[idx] = ""
		}
	}

	// Stage 10: emit.
	return strings.Join(ctx.parts, ""), nil
}

// synthesizePhony rewrites a dropped edge as a "phony" stand-in, reusing the
// original output-path-list text verbatim (so "|" implicit-output markers,
// path spelling, and spacing all survive) rather than rejoining the
// canonicalized output set.
func synthesizePhony(cmd *buildCommand) string {
	var b strings.Builder
	b.WriteString(cmd.outsRaw)
	b.WriteString(": phony")
	if cmd.validationsRaw != "" {
		b.WriteByte(' ')
		b.WriteString(cmd.validationsRaw)
	}
	b.WriteByte('\n')
	return b.String()
}

// resolveAffectedPath implements the three-tiered lookup for one
// user-supplied affected line: the literal path, the path resolved against
// ninjaFileDir and made absolute, and finally that absolute form made
// lexically relative to ninjaFileDir. The first one found in the graph wins.
func resolveAffectedPath(g *Graph, ninjaFileDir, line string) (int, bool) {
	if canon, _ := CanonicalizePath(line); canon != "" {
		if idx, ok := g.FindPath(canon); ok {
			return idx, true
		}
	}

	abs := line
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(ninjaFileDir, line)
	}
	if a, err := filepath.Abs(abs); err == nil {
		abs = a
	}
	if canon, _ := CanonicalizePath(abs); canon != "" {
		if idx, ok := g.FindPath(canon); ok {
			return idx, true
		}
	}

	absDir, err := filepath.Abs(ninjaFileDir)
	if err != nil {
		absDir = ninjaFileDir
	}
	if rel, err := filepath.Rel(absDir, abs); err == nil {
		if canon, _ := CanonicalizePath(rel); canon != "" {
			if idx, ok := g.FindPath(canon); ok {
				return idx, true
			}
		}
	}

	return 0, false
}

// forwardVisit is a memoized post-order DFS: a node becomes affected if it
// was seeded affected, or if any of its inputs (processed first) is
// affected. isBuiltinOutput gates the explain message the same way the
// original tool does: it is printed only for outputs of user-defined rules.
func forwardVisit(g *Graph, state, affected []bool, i int, explainOut io.Writer, isBuiltinOutput func(int) bool) bool {
	if state[i] {
		return affected[i]
	}
	state[i] = true
	result := affected[i]
	for _, in := range g.In(i) {
		childAffected := forwardVisit(g, state, affected, in, explainOut, isBuiltinOutput)
		if childAffected && !result {
			result = true
			if !isBuiltinOutput(i) {
				fmt.Fprintf(explainOut, "Including '%s' as it has the affected input '%s'\n", g.Path(i), g.Path(in))
			}
		}
	}
	affected[i] = result
	return result
}

// propagateBackward marks every transitive input of a needs-all-inputs seed
// node as affected and itself needs-all-inputs.
func propagateBackward(g *Graph, affected, needsAllInputs []bool, seeds []int, explainOut io.Writer) {
	queue := append([]int(nil), seeds...)
	for _, s := range seeds {
		needsAllInputs[s] = true
		affected[s] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, in := range g.In(n) {
			if needsAllInputs[in] {
				continue
			}
			needsAllInputs[in] = true
			if !affected[in] {
				fmt.Fprintf(explainOut, "Including '%s' as it is a required input for the affected output '%s'\n", g.Path(in), g.Path(n))
				affected[in] = true
			}
			queue = append(queue, in)
		}
	}
}
