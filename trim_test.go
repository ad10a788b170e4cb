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
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// fakeFileReader serves include/subninja reads and the log/deps lookups in
// Trim from an in-memory map, reporting a non-existent file the same way
// os.ReadFile would for anything not present.
type fakeFileReader map[string]string

func (f fakeFileReader) ReadFile(path string) (string, error) {
	if content, ok := f[path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func mustParse(t *testing.T, manifest string) *BuildContext {
	t.Helper()
	ctx := NewBuildContext()
	if err := ParseManifest(ctx, "build.ninja", manifest, fakeFileReader{}); err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	return ctx
}

const twoRuleManifest = `rule cc
  command = cc $in -o $out

build a.o: cc a.c
build b.o: cc b.c
`

func TestTrimNoLogFileIncludesEverything(t *testing.T) {
	ctx := mustParse(t, twoRuleManifest)
	var explain bytes.Buffer
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: ".", Explain: true, ExplainOut: &explain}, fakeFileReader{}, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if out != twoRuleManifest {
		t.Errorf("output = %q; want manifest unchanged (%q)", out, twoRuleManifest)
	}
	if !strings.Contains(explain.String(), "so including everything") {
		t.Errorf("explain = %q; want missing-log message", explain.String())
	}
}

func TestTrimHashMismatchIncludesEdge(t *testing.T) {
	ctx := mustParse(t, twoRuleManifest)
	aHash := commandHash("cc a.c -o a.o", "")
	bHash := commandHash("cc b.c -o b.o", "") + 1 // force a mismatch

	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\ta.o\t%016x\n1\t2\t3\tb.o\t%016x\n", aHash, bHash),
	}
	var explain bytes.Buffer
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: ".", Explain: true, ExplainOut: &explain}, log, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "build b.o: cc b.c") {
		t.Errorf("output missing untouched b.o edge: %q", out)
	}
	if !strings.Contains(out, "a.o: phony") {
		t.Errorf("output = %q; want a.o phonied out (its logged hash still matches)", out)
	}
	if !strings.Contains(explain.String(), "the build command hash differs") {
		t.Errorf("explain = %q; want hash-mismatch message", explain.String())
	}
}

func TestTrimIrrelevantEdgePhoniedAndRuleStripped(t *testing.T) {
	// cc1 is only ever used to produce a.o (kept, so the rule survives);
	// cc2 is only ever used to produce b.o (phonied away, so the rule,
	// unreferenced by anything surviving, gets stripped entirely).
	manifest := `rule cc1
  command = cc1 $in -o $out

rule cc2
  command = cc2 $in -o $out

build a.o: cc1 a.c
build b.o: cc2 b.c
`
	ctx := mustParse(t, manifest)
	aHash := commandHash("cc1 a.c -o a.o", "")
	bHash := commandHash("cc2 b.c -o b.o", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf(
			"# ninja log v5\n1\t2\t3\ta.o\t%016x\n1\t2\t3\tb.o\t%016x\n",
			aHash, bHash),
	}

	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader("a.c\n"))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "b.o: phony\n") {
		t.Errorf("output = %q; want b.o phonied (no space before colon)", out)
	}
	if !strings.Contains(out, "rule cc1") {
		t.Errorf("output = %q; want rule cc1 kept since a.o still uses it", out)
	}
	if strings.Contains(out, "rule cc2") {
		t.Errorf("output = %q; want rule cc2 stripped, nothing references it anymore", out)
	}
}

func TestTrimValidationsPreservedOnPhony(t *testing.T) {
	manifest := `rule gen
  command = gen $in -o $out

build x: gen y |@ v
`
	ctx := mustParse(t, manifest)
	// x's logged hash matches its current command, and nothing marks it
	// affected, so it gets phonied - but the validation edge "v" must
	// survive onto the synthesized phony line.
	xHash := commandHash("gen y -o x", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\tx\t%016x\n", xHash),
	}
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "x: phony v\n") {
		t.Errorf("output = %q; want %q preserved", out, "x: phony v\n")
	}
}

func TestTrimValidationNotTreatedAsGraphEdge(t *testing.T) {
	manifest := `rule gen
  command = gen $in -o $out

build x: gen y |@ v
`
	ctx := mustParse(t, manifest)
	xHash := commandHash("gen y -o x", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\tx\t%016x\n", xHash),
	}
	// Marking the validation target "v" affected must not make forward
	// propagation treat x as affected too - a validation is never a
	// required input of the edge that declares it.
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader("v\n"))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "x: phony v\n") {
		t.Errorf("output = %q; want x still phonied despite \"v\" being marked affected", out)
	}
}

func TestTrimPhonySurvivesImplicitOutputPipe(t *testing.T) {
	manifest := `rule cc
  command = cc $in -o $out

build a | b: cc c
`
	ctx := mustParse(t, manifest)
	// The logged hash of both outputs matches the current command, and
	// nothing marks them affected, so the edge gets phonied - the
	// implicit-output separator must survive, since "a b: phony" is not a
	// valid replacement for "a | b: cc c".
	hash := commandHash("cc c -o a", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\ta\t%016x\n1\t2\t3\tb\t%016x\n", hash, hash),
	}
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "a | b: phony\n") {
		t.Errorf("output = %q; want %q preserved", out, "a | b: phony\n")
	}
}

func TestTrimCommandHashIgnoresImplicitDeps(t *testing.T) {
	// $in/$out must expand only explicit inputs/outputs: the implicit
	// input "hdr" must not appear in the hashed command line, even
	// though it's still a real graph dependency.
	manifest := `rule cc
  command = cc $in -o $out

build a.o: cc a.c | hdr.h
`
	ctx := mustParse(t, manifest)
	hash := commandHash("cc a.c -o a.o", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\ta.o\t%016x\n", hash),
	}
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "a.o: phony\n") {
		t.Errorf("output = %q; want a.o phonied (hash should match)", out)
	}
}

func TestTrimUserAffectedViaRelativePath(t *testing.T) {
	ctx := mustParse(t, twoRuleManifest)
	aHash := commandHash("cc a.c -o a.o", "")
	bHash := commandHash("cc b.c -o b.o", "")
	log := fakeFileReader{
		".ninja_log": fmt.Sprintf("# ninja log v5\n1\t2\t3\ta.o\t%016x\n1\t2\t3\tb.o\t%016x\n", aHash, bHash),
	}
	out, err := Trim(ctx, TrimOptions{NinjaFileDir: "."}, log, strings.NewReader("./a.c\n"))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !strings.Contains(out, "build a.o: cc a.c") {
		t.Errorf("output = %q; want a.o kept", out)
	}
	if !strings.Contains(out, "b.o: phony") {
		t.Errorf("output = %q; want b.o phonied", out)
	}
}
