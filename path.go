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

import "runtime"

// isPathSeparator reports whether c terminates a path component. On Windows
// both '/' and '\\' separate components; elsewhere only '/' does.
func isPathSeparator(c byte) bool {
	if runtime.GOOS == "windows" {
		return c == '/' || c == '\\'
	}
	return c == '/'
}

// CanonicalizePath returns path in its canonical form: it
// collapses repeated separators, resolves "." and ".." components against
// real preceding components, converts backslashes to forward slashes on
// Windows, and strips a trailing separator (except for a bare root). A
// leading ".." that cannot be resolved against a real component is kept
// verbatim. It returns the canonicalized path and a bitmask recording which
// separators were backslashes before normalization; the bitmask is
// informational only and is not used to reconstruct the original spelling.
func CanonicalizePath(path string) (string, uint64) {
	if len(path) == 0 {
		return path, 0
	}

	buf := []byte(path)
	start := 0
	dst := 0
	dstStart := 0
	src := 0
	end := len(buf)

	if isPathSeparator(buf[src]) {
		if runtime.GOOS == "windows" && src+2 <= end && isPathSeparator(buf[src+1]) {
			src += 2
			dst += 2
		} else {
			src++
			dst++
		}
		dstStart = dst
	} else {
		for src+3 <= end && buf[src] == '.' && buf[src+1] == '.' && isPathSeparator(buf[src+2]) {
			src += 3
			dst += 3
		}
	}

	componentCount := 0
	dst0 := dst
	for src < end {
		nextSep := -1
		for i := src; i < end; i++ {
			if isPathSeparator(buf[i]) {
				nextSep = i
				break
			}
		}
		if nextSep == -1 {
			break
		}
		srcNext := nextSep + 1
		componentLen := nextSep - src

		skip := false
		if componentLen <= 2 {
			if componentLen == 0 {
				src = srcNext
				continue
			}
			if buf[src] == '.' {
				if componentLen == 1 {
					src = srcNext
					continue
				} else if buf[src+1] == '.' {
					if componentCount > 0 {
						componentCount--
						dst--
						for dst > dst0 && !isPathSeparator(buf[dst-1]) {
							dst--
						}
					} else {
						buf[dst] = '.'
						buf[dst+1] = '.'
						buf[dst+2] = buf[src+2]
						dst += 3
					}
					src = srcNext
					skip = true
				}
			}
		}
		if skip {
			continue
		}

		componentCount++
		if dst != src {
			copy(buf[dst:dst+srcNext-src], buf[src:srcNext])
		}
		dst += srcNext - src
		src = srcNext
	}

	componentLen := end - src
	if componentLen != 0 {
		switch {
		case buf[src] == '.' && componentLen == 1:
			// trailing "." dropped
		case componentLen >= 2 && buf[src] == '.' && buf[src+1] == '.':
			if componentCount > 0 {
				dst--
				for dst > dst0 && !isPathSeparator(buf[dst-1]) {
					dst--
				}
			} else {
				buf[dst] = '.'
				buf[dst+1] = '.'
				dst += 2
			}
		default:
			if dst != src {
				copy(buf[dst:dst+componentLen], buf[src:src+componentLen])
			}
			dst += componentLen
		}
	}

	if dst > dstStart && isPathSeparator(buf[dst-1]) {
		dst--
	}

	if dst == start {
		buf[dst] = '.'
		dst++
	}

	buf = buf[:dst]

	var slashBits uint64
	if runtime.GOOS == "windows" {
		var mask uint64 = 1
		for i := range buf {
			switch buf[i] {
			case '\\':
				slashBits |= mask
				buf[i] = '/'
				mask <<= 1
			case '/':
				mask <<= 1
			}
		}
	}

	return string(buf), slashBits
}
