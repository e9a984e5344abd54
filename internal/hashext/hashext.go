// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package hashext provides extensions to the standard crypto/hash package.
package hashext

import (
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	_ "golang.org/x/crypto/blake2b"
	_ "golang.org/x/crypto/sha3"
)

// TypedHash is a hash.Hash annotated with its algorithm.
type TypedHash struct {
	hash.Hash
	Algorithm crypto.Hash
}

// NewTypedHash constructs a new TypedHash.
func NewTypedHash(algo crypto.Hash) TypedHash {
	return TypedHash{Hash: algo.New(), Algorithm: algo}
}

// Hex returns the hex encoding of the current sum.
func (t TypedHash) Hex() string {
	return hex.EncodeToString(t.Sum(nil))
}

var names = map[crypto.Hash]string{
	crypto.MD5:         "md5",
	crypto.SHA1:        "sha1",
	crypto.SHA224:      "sha224",
	crypto.SHA256:      "sha256",
	crypto.SHA384:      "sha384",
	crypto.SHA512:      "sha512",
	crypto.SHA512_224:  "sha512_224",
	crypto.SHA512_256:  "sha512_256",
	crypto.SHA3_224:    "sha3_224",
	crypto.SHA3_256:    "sha3_256",
	crypto.SHA3_384:    "sha3_384",
	crypto.SHA3_512:    "sha3_512",
	crypto.BLAKE2b_256: "blake2b_256",
	crypto.BLAKE2b_384: "blake2b_384",
	crypto.BLAKE2b_512: "blake2b_512",
}

// Name returns the lower-case NIST-style name of h, e.g. "sha256" or "sha3_256".
func Name(h crypto.Hash) (string, bool) {
	n, ok := names[h]
	return n, ok
}

// Lookup resolves an algorithm name written in any of the common spellings
// ("SHA-256", "sha256", "SHA256", "sha3-256", "BLAKE2b-256").
func Lookup(name string) (crypto.Hash, bool) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	for h, n := range names {
		if strings.ReplaceAll(n, "_", "") == norm {
			return h, true
		}
	}
	return 0, false
}

// Digests computes several digests of r in a single pass, keyed by algorithm
// name and hex encoded.
func Digests(r io.Reader, algos ...crypto.Hash) (map[string]string, int64, error) {
	hs := make([]TypedHash, len(algos))
	ws := make([]io.Writer, len(algos))
	for i, a := range algos {
		hs[i] = NewTypedHash(a)
		ws[i] = hs[i]
	}
	n, err := io.Copy(io.MultiWriter(ws...), r)
	if err != nil {
		return nil, n, err
	}
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		name, _ := Name(h.Algorithm)
		out[name] = h.Hex()
	}
	return out, n, nil
}
