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

import "encoding/binary"

// murmurHash64A is Austin Appleby's MurmurHash2 64-bit-A variant, with the
// exact constants Ninja uses for .ninja_log command hashes. It must match
// byte-for-byte or every build-log lookup in the trim solver's hash-mismatch
// detection silently fails.
func murmurHash64A(key []byte) uint64 {
	const m uint64 = 0xc6a4a7935bd1e995
	const r = 47
	const seed uint64 = 0xdecafbaddecafbad

	h := seed ^ (uint64(len(key)) * m)

	n := len(key) &^ 7
	for i := 0; i < n; i += 8 {
		k := binary.LittleEndian.Uint64(key[i : i+8])
		k *= m
		k ^= k >> r
		k *= m
		h ^= k
		h *= m
	}

	tail := key[n:]
	switch len(tail) {
	case 7:
		h ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		h ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		h ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		h ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		h ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint64(tail[0])
		h *= m
	}

	h ^= h >> r
	h *= m
	h ^= h >> r
	return h
}

// commandHash returns the hash recorded in .ninja_log for a build edge: the
// hash of command, or of command+";rspfile="+rspfileContent when a
// non-empty rspfile is used, since a changed response-file payload must
// also be treated as a changed command.
func commandHash(command, rspfileContent string) uint64 {
	if rspfileContent == "" {
		return murmurHash64A([]byte(command))
	}
	return murmurHash64A([]byte(command + ";rspfile=" + rspfileContent))
}
