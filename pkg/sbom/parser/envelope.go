// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/pkg/errors"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

// InTotoPayloadType is the DSSE payload type of in-toto statements.
const InTotoPayloadType = "application/vnd.in-toto+json"

type statement struct {
	in_toto.StatementHeader
	Predicate json.RawMessage `json:"predicate"`
}

type envelopeProbe struct {
	PayloadType *string `json:"payloadType"`
	Payload     *string `json:"payload"`
}

// unwrap returns the SBOM carried by a DSSE envelope, or data unchanged when
// it is not an envelope. Signatures are not verified.
func unwrap(data []byte, md *Metadata) ([]byte, error) {
	var probe envelopeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding document"))
	}
	if probe.PayloadType == nil || probe.Payload == nil {
		return data, nil
	}
	var env dsse.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding envelope"))
	}
	if env.Payload == "" {
		return nil, sbomerr.Errorf(sbomerr.ParseFailure, "empty envelope payload")
	}
	payload, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding base64 payload"))
	}
	md.PayloadType = env.PayloadType
	var st statement
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding payload"))
	}
	switch st.Type {
	case in_toto.StatementInTotoV01, in_toto.StatementInTotoV1:
		if len(bytes.TrimSpace(st.Predicate)) == 0 {
			return nil, sbomerr.Errorf(sbomerr.ParseFailure, "statement has no predicate")
		}
		md.PredicateType = st.PredicateType
		return st.Predicate, nil
	case "":
		// A bare SBOM signed directly.
		return payload, nil
	default:
		return nil, sbomerr.Errorf(sbomerr.ParseFailure, "unsupported statement type %q", st.Type)
	}
}
