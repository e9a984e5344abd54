// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"encoding/json"
	"iter"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/oss-sbomgraph/internal/iterx"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Checkpoint is the persisted state of an importer between runs.
type Checkpoint struct {
	Importer  string    `json:"importer" firestore:"importer"`
	Marker    string    `json:"marker" firestore:"marker"`
	LastRun   time.Time `json:"last_run" firestore:"last_run"`
	LastState string    `json:"last_state" firestore:"last_state"`
	LastError string    `json:"last_error,omitempty" firestore:"last_error,omitempty"`
	Processed int       `json:"processed" firestore:"processed"`
	Skipped   int       `json:"skipped" firestore:"skipped"`
	Failed    int       `json:"failed" firestore:"failed"`
}

// StateStore persists checkpoints.
type StateStore interface {
	// Load returns the checkpoint of importer, or a zero checkpoint if the
	// importer never ran.
	Load(ctx context.Context, importer string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	// All lists every stored checkpoint.
	All(ctx context.Context) iter.Seq2[*Checkpoint, error]
}

// FSStateStore keeps one JSON file per importer.
type FSStateStore struct {
	FS billy.Filesystem
}

var _ StateStore = &FSStateStore{}

const checkpointExt = ".json"

func checkpointName(importer string) string {
	return checkpointID(importer) + checkpointExt
}

func (s *FSStateStore) Load(ctx context.Context, importer string) (*Checkpoint, error) {
	data, err := util.ReadFile(s.FS, checkpointName(importer))
	if errors.Is(err, os.ErrNotExist) {
		return &Checkpoint{Importer: importer}, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading checkpoint of %s", importer)
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, errors.Wrapf(err, "decoding checkpoint of %s", importer)
	}
	return cp, nil
}

func (s *FSStateStore) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding checkpoint")
	}
	name := checkpointName(cp.Importer)
	tmp := name + ".tmp"
	if err := util.WriteFile(s.FS, tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "writing checkpoint of %s", cp.Importer)
	}
	return errors.Wrapf(s.FS.Rename(tmp, name), "replacing checkpoint of %s", cp.Importer)
}

func (s *FSStateStore) All(ctx context.Context) iter.Seq2[*Checkpoint, error] {
	return func(yield func(*Checkpoint, error) bool) {
		infos, err := s.FS.ReadDir("/")
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				yield(nil, errors.Wrap(err, "listing checkpoints"))
			}
			return
		}
		for _, info := range infos {
			if info.IsDir() || path.Ext(info.Name()) != checkpointExt {
				continue
			}
			data, err := util.ReadFile(s.FS, info.Name())
			if err != nil {
				yield(nil, errors.Wrapf(err, "reading %s", info.Name()))
				return
			}
			cp := &Checkpoint{}
			if err := json.Unmarshal(data, cp); err != nil {
				yield(nil, errors.Wrapf(err, "decoding %s", info.Name()))
				return
			}
			if !yield(cp, nil) {
				return
			}
		}
	}
}

// FirestoreStateStore keeps checkpoints as documents of one collection.
type FirestoreStateStore struct {
	Client     *firestore.Client
	Collection string
}

var _ StateStore = &FirestoreStateStore{}

// DefaultCheckpointCollection is the collection used when none is configured.
const DefaultCheckpointCollection = "importer_checkpoints"

func (s *FirestoreStateStore) collection() *firestore.CollectionRef {
	if s.Collection == "" {
		return s.Client.Collection(DefaultCheckpointCollection)
	}
	return s.Client.Collection(s.Collection)
}

func (s *FirestoreStateStore) Load(ctx context.Context, importer string) (*Checkpoint, error) {
	doc, err := s.collection().Doc(checkpointID(importer)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &Checkpoint{Importer: importer}, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "getting checkpoint of %s", importer)
	}
	cp := &Checkpoint{}
	if err := doc.DataTo(cp); err != nil {
		return nil, errors.Wrapf(err, "decoding checkpoint of %s", importer)
	}
	return cp, nil
}

func (s *FirestoreStateStore) Save(ctx context.Context, cp *Checkpoint) error {
	_, err := s.collection().Doc(checkpointID(cp.Importer)).Set(ctx, cp)
	return errors.Wrapf(err, "setting checkpoint of %s", cp.Importer)
}

func (s *FirestoreStateStore) All(ctx context.Context) iter.Seq2[*Checkpoint, error] {
	return func(yield func(*Checkpoint, error) bool) {
		for doc, err := range iterx.ToSeq2(s.collection().Documents(ctx), iterator.Done) {
			if err != nil {
				yield(nil, errors.Wrap(err, "listing checkpoints"))
				return
			}
			cp := &Checkpoint{}
			if err := doc.DataTo(cp); err != nil {
				yield(nil, errors.Wrapf(err, "decoding %s", doc.Ref.ID))
				return
			}
			if !yield(cp, nil) {
				return
			}
		}
	}
}

// checkpointID maps an importer name to a valid document id.
func checkpointID(importer string) string {
	return strings.ReplaceAll(importer, "/", "_")
}
