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
	"strings"
	"testing"
)

func TestReadBuildLogParsesEntry(t *testing.T) {
	input := "# ninja log v5\n" +
		"10\t200\t1500000000000\ta.o\tdeadbeefcafef00d\n"
	log, err := ReadBuildLog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBuildLog: %v", err)
	}
	entry, ok := log.Entries["a.o"]
	if !ok {
		t.Fatal("expected entry for a.o")
	}
	if entry.StartMs != 10 || entry.EndMs != 200 || entry.MtimeNanos != 1500000000000 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.CommandHash != 0xdeadbeefcafef00d {
		t.Errorf("CommandHash = %x", entry.CommandHash)
	}
}

func TestReadBuildLogStaleVersionIsEmpty(t *testing.T) {
	log, err := ReadBuildLog(strings.NewReader("# ninja log v3\nstale data here\n"))
	if err != nil {
		t.Fatalf("ReadBuildLog: %v", err)
	}
	if len(log.Entries) != 0 {
		t.Errorf("expected no entries from a stale-version log, got %d", len(log.Entries))
	}
}

func TestReadBuildLogSkipsMalformedLines(t *testing.T) {
	input := "# ninja log v5\n" +
		"not enough fields\n" +
		"10\t200\t1500000000000\ta.o\tdeadbeefcafef00d\n"
	log, err := ReadBuildLog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBuildLog: %v", err)
	}
	if len(log.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(log.Entries))
	}
}

func TestWriteBuildLogThenReadIsIdentity(t *testing.T) {
	log := &BuildLog{Entries: map[string]LogEntry{
		"a.o": {Output: "a.o", CommandHash: 0x1234, StartMs: 1, EndMs: 2, MtimeNanos: 3},
		"b.o": {Output: "b.o", CommandHash: 0x5678, StartMs: 4, EndMs: 5, MtimeNanos: 6},
	}}

	var buf bytes.Buffer
	if err := WriteBuildLog(&buf, log); err != nil {
		t.Fatalf("WriteBuildLog: %v", err)
	}

	roundTripped, err := ReadBuildLog(&buf)
	if err != nil {
		t.Fatalf("ReadBuildLog: %v", err)
	}
	if len(roundTripped.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(roundTripped.Entries))
	}
	for k, v := range log.Entries {
		got, ok := roundTripped.Entries[k]
		if !ok || got != v {
			t.Errorf("entry %q = %+v; want %+v", k, got, v)
		}
	}
}
