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
	"fmt"
	"io"
	"strconv"
	"strings"
)

const buildLogVersion = 5

// LogEntry is one decoded line of a .ninja_log file: the recorded outcome
// of the most recent run of the command producing Output.
type LogEntry struct {
	Output      string
	CommandHash uint64
	StartMs     int32
	EndMs       int32
	MtimeNanos  uint64
}

// BuildLog is the decoded contents of a .ninja_log v5 file, keyed by
// output path with only the most recent entry per output retained (a later
// line always overwrites an earlier one for the same output, matching the
// append-only on-disk log).
type BuildLog struct {
	Entries map[string]LogEntry
}

// ReadBuildLog parses a .ninja_log v5 stream. Unknown or malformed lines
// are skipped silently, matching Ninja's own tolerant reader; a header for
// an unsupported version is treated as an empty log rather than an error,
// since a stale log simply means "no entries recorded yet".
func ReadBuildLog(r io.Reader) (*BuildLog, error) {
	log := &BuildLog{Entries: make(map[string]LogEntry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		return log, nil
	}
	header := scanner.Text()
	if !strings.HasPrefix(header, "# ninja log v") {
		return nil, fmt.Errorf("build log: bad signature")
	}
	versionStr := strings.TrimPrefix(header, "# ninja log v")
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, fmt.Errorf("build log: bad version header")
	}
	if version != buildLogVersion {
		// An older/newer log is not fatal: it simply carries no usable
		// entries for this tool's hash comparison.
		return log, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			continue
		}
		startMs, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			continue
		}
		endMs, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			continue
		}
		mtime, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		hash, err := strconv.ParseUint(fields[4], 16, 64)
		if err != nil {
			continue
		}
		log.Entries[fields[3]] = LogEntry{
			Output:      fields[3],
			CommandHash: hash,
			StartMs:     int32(startMs),
			EndMs:       int32(endMs),
			MtimeNanos:  mtime,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("build log: %w", err)
	}
	return log, nil
}

// WriteBuildLog encodes log back to its v5 textual on-disk form. Map
// iteration order is not the original file's line order (that information
// isn't preserved once entries collapse into a map), so this is exercised
// only for the "decode then re-encode is an identity on the second pass"
// property, not byte-identical round-trip of an arbitrary input file.
func WriteBuildLog(w io.Writer, log *BuildLog) error {
	if _, err := fmt.Fprintf(w, "# ninja log v%d\n", buildLogVersion); err != nil {
		return err
	}
	for _, e := range log.Entries {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%016x\n", e.StartMs, e.EndMs, e.MtimeNanos, e.Output, e.CommandHash); err != nil {
			return err
		}
	}
	return nil
}
