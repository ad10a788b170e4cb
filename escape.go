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
	"runtime"
	"strings"
)

func isKnownShellSafeCharacter(c byte) bool {
	if 'A' <= c && c <= 'Z' {
		return true
	}
	if 'a' <= c && c <= 'z' {
		return true
	}
	if '0' <= c && c <= '9' {
		return true
	}
	switch c {
	case '_', '+', '-', '.', '/':
		return true
	}
	return false
}

func isKnownWin32SafeCharacter(c byte) bool {
	switch c {
	case ' ', '"':
		return false
	}
	return true
}

// appendEscapedString appends input to out, quoting it for the local
// subprocess shell (POSIX sh single-quoting, or Win32
// CommandLineToArgvW-compatible double-quoting) only if it contains a
// character that shell would otherwise treat specially.
func appendEscapedString(out *strings.Builder, input string) {
	if runtime.GOOS == "windows" {
		appendWin32EscapedString(out, input)
		return
	}
	appendPosixEscapedString(out, input)
}

func appendPosixEscapedString(out *strings.Builder, input string) {
	safe := true
	for i := 0; i < len(input); i++ {
		if !isKnownShellSafeCharacter(input[i]) {
			safe = false
			break
		}
	}
	if safe {
		out.WriteString(input)
		return
	}

	out.WriteByte('\'')
	spanStart := 0
	for i := 0; i < len(input); i++ {
		if input[i] == '\'' {
			out.WriteString(input[spanStart:i])
			out.WriteString(`'\''`)
			spanStart = i + 1
		}
	}
	out.WriteString(input[spanStart:])
	out.WriteByte('\'')
}

func appendWin32EscapedString(out *strings.Builder, input string) {
	safe := true
	for i := 0; i < len(input); i++ {
		if !isKnownWin32SafeCharacter(input[i]) {
			safe = false
			break
		}
	}
	if safe {
		out.WriteString(input)
		return
	}

	out.WriteByte('"')
	spanStart := 0
	consecutiveBackslashes := 0
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '\\':
			consecutiveBackslashes++
		case '"':
			out.WriteString(input[spanStart:i])
			out.WriteString(strings.Repeat(`\`, consecutiveBackslashes+1))
			spanStart = i
			consecutiveBackslashes = 0
		default:
			consecutiveBackslashes = 0
		}
	}
	out.WriteString(input[spanStart:])
	out.WriteString(strings.Repeat(`\`, consecutiveBackslashes))
	out.WriteByte('"')
}
