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

// Command trimja reads a Ninja build manifest and an "affected" file list,
// and writes a reduced manifest that retains only the build edges needed to
// rebuild the affected set, replacing everything else with no-op phony
// edges.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/elliotgoodrich/trimja-sub000"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	flags := pflag.NewFlagSet("trimja", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	ninjaFile := flags.StringP("file", "f", "", "path to the ninja manifest")
	changedFile := flags.StringP("changed", "c", "", "path to a file listing affected paths, one per line")
	expectedFile := flags.StringP("expected", "e", "", "optional: compare output against this file and exit 1 if they differ")
	explain := flags.Bool("explain", false, "emit per-decision rationale to stderr")
	version := flags.BoolP("version", "v", false, "print the version and exit")
	help := flags.BoolP("help", "h", false, "print usage and exit")

	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *help {
		fmt.Fprintf(stdout, "Usage: trimja -f manifest.ninja -c changed.txt [-e expected.ninja] [--explain]\n")
		flags.PrintDefaults()
		return 0
	}
	if *version {
		fmt.Fprintln(stdout, trimja.Version)
		return 0
	}

	manifestBytes, err := os.ReadFile(*ninjaFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx := trimja.NewBuildContext()
	if err := trimja.ParseManifest(ctx, *ninjaFile, string(manifestBytes), nil); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	changed, err := os.Open(*changedFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer changed.Close()

	opts := trimja.TrimOptions{
		NinjaFileDir: filepath.Dir(*ninjaFile),
		Explain:      *explain,
		ExplainOut:   stderr,
		WarnOut:      stderr,
	}
	output, err := trimja.Trim(ctx, opts, nil, changed)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if *expectedFile == "" {
		fmt.Fprint(stdout, output)
		return 0
	}
	return runCompare(stdout, output, *expectedFile)
}

// runCompare restores the comparison mode from the original trimja CLI: it
// prints both the actual and expected text either way, differing only in
// the banner line and exit code.
func runCompare(stdout *os.File, actual, expectedFile string) int {
	expectedBytes, err := os.ReadFile(expectedFile)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	expected := string(expectedBytes)

	if actual != expected {
		fmt.Fprintf(stdout, "Output is different to expected\nactual:\n%s---\nexpected:\n%s", actual, expected)
		return 1
	}
	fmt.Fprintf(stdout, "Files are equal!\nactual:\n%s---\nexpected:\n%s", actual, expected)
	return 0
}
