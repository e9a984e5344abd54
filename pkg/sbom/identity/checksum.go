// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"encoding/hex"
	"strings"

	"github.com/google/oss-sbomgraph/internal/hashext"
)

// Checksum is a normalized (algorithm, digest) pair.
type Checksum struct {
	// Algorithm is the NIST-style lower-case name, e.g. "sha256".
	Algorithm string
	// Value is the lower-case hex digest.
	Value string
}

// Digest sizes in bytes for algorithms without a crypto.Hash.
var extraAlgorithms = map[string]int{
	"blake3":  32,
	"adler32": 4,
	"md2":     16,
	"md4":     16,
	"md6":     0,
}

// ParseChecksum normalizes an algorithm name and hex digest.
func ParseChecksum(algorithm, value string) (*Checksum, error) {
	digest := strings.ToLower(strings.TrimSpace(value))
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) == 0 {
		return nil, invalid("checksum %s: digest %q is not hex", algorithm, value)
	}
	if h, ok := hashext.Lookup(algorithm); ok {
		name, _ := hashext.Name(h)
		if len(raw) != h.Size() {
			return nil, invalid("checksum %s: digest is %d bytes, want %d", name, len(raw), h.Size())
		}
		return &Checksum{Algorithm: name, Value: digest}, nil
	}
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(algorithm), "-", ""))
	size, ok := extraAlgorithms[name]
	if !ok {
		return nil, invalid("checksum: unsupported algorithm %q", algorithm)
	}
	if size != 0 && len(raw) != size {
		return nil, invalid("checksum %s: digest is %d bytes, want %d", name, len(raw), size)
	}
	return &Checksum{Algorithm: name, Value: digest}, nil
}

// ParseChecksumString parses "<algorithm>:<hex digest>".
func ParseChecksumString(s string) (*Checksum, error) {
	algo, digest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, invalid("checksum %q: want <algorithm>:<digest>", s)
	}
	return ParseChecksum(algo, digest)
}

func (c *Checksum) String() string {
	return c.Algorithm + ":" + c.Value
}

// Identity is the canonical identity of the checksum.
func (c *Checksum) Identity() Identity {
	return newIdentity(KindChecksum, c.String())
}
