// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package identity derives stable, content-derived identifiers for the
// canonical entities shared across documents: package URLs, CPEs, licenses
// and checksums.
//
// Every identifier is a UUIDv5 over the canonical string of its input, so
// semantically equal inputs (differing only in case, percent-encoding or
// qualifier order) always map to the same identifier.
package identity

import (
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Kind is the family of a canonical identity.
type Kind string

const (
	KindBasePurl      Kind = "base-purl"
	KindVersionedPurl Kind = "versioned-purl"
	KindQualifiedPurl Kind = "qualified-purl"
	KindCPE           Kind = "cpe"
	KindLicense       Kind = "license"
	KindChecksum      Kind = "checksum"
	KindDocument      Kind = "document"
)

// namespace roots every identity derived by this package.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/google/oss-sbomgraph/identity"))

// Identity is a canonical identity: its family, canonical text and id.
type Identity struct {
	Kind      Kind
	Canonical string
	ID        uuid.UUID
}

func derive(kind Kind, canonical string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(string(kind)+":"+canonical))
}

func newIdentity(kind Kind, canonical string) Identity {
	return Identity{Kind: kind, Canonical: canonical, ID: derive(kind, canonical)}
}

// Of canonicalizes raw as an identity of the given kind.
// Checksums are written "<algorithm>:<hex digest>".
func Of(kind Kind, raw string) (Identity, error) {
	switch kind {
	case KindBasePurl, KindVersionedPurl, KindQualifiedPurl:
		p, err := ParsePurl(raw)
		if err != nil {
			return Identity{}, err
		}
		switch kind {
		case KindBasePurl:
			return p.Base(), nil
		case KindVersionedPurl:
			return p.Versioned(), nil
		default:
			return p.Qualified(), nil
		}
	case KindCPE:
		c, err := ParseCPE(raw)
		if err != nil {
			return Identity{}, err
		}
		return c.Identity(), nil
	case KindLicense:
		l, err := ParseLicense(raw)
		if err != nil {
			return Identity{}, err
		}
		return l.Identity(), nil
	case KindChecksum:
		c, err := ParseChecksumString(raw)
		if err != nil {
			return Identity{}, err
		}
		return c.Identity(), nil
	case KindDocument:
		return DocumentIdentity(raw)
	default:
		return Identity{}, sbomerr.Errorf(sbomerr.InvalidIdentity, "unknown identity kind %q", kind)
	}
}

// DocumentIdentity derives the instance identity of a document from the
// hex sha256 digest of its raw bytes.
func DocumentIdentity(sha256Hex string) (Identity, error) {
	c, err := ParseChecksum("sha256", sha256Hex)
	if err != nil {
		return Identity{}, errors.Wrap(err, "document digest")
	}
	return newIdentity(KindDocument, c.Value), nil
}

func invalid(format string, args ...any) error {
	return sbomerr.Errorf(sbomerr.InvalidIdentity, format, args...)
}
