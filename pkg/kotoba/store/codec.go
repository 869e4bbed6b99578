package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
)

// Validate checks the snapshot's version and shape. Loading a snapshot
// whose maps came back in the wrong form was a recurring runtime failure
// at this boundary, so every path into the model goes through here.
func (s Snapshot) Validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", internalerr.ErrSnapshotShape, s.Version, SchemaVersion)
	}
	p := s.Payload
	if p.TotalDocs < 0 {
		return fmt.Errorf("%w: negative total_docs %d", internalerr.ErrSnapshotShape, p.TotalDocs)
	}
	for _, pr := range p.Frequencies {
		if pr.Key == "" {
			return fmt.Errorf("%w: empty n-gram key", internalerr.ErrSnapshotShape)
		}
		if pr.Freq < 0 || math.IsNaN(pr.Freq) || math.IsInf(pr.Freq, 0) {
			return fmt.Errorf("%w: frequency %v for %q", internalerr.ErrSnapshotShape, pr.Freq, pr.Key)
		}
	}
	for _, pr := range p.DocFreq {
		if pr.Count < 0 {
			return fmt.Errorf("%w: negative doc freq for %q", internalerr.ErrSnapshotShape, pr.Key)
		}
		if pr.Count > p.TotalDocs {
			return fmt.Errorf("%w: doc freq %d for %q exceeds total %d",
				internalerr.ErrSnapshotShape, pr.Count, pr.Key, p.TotalDocs)
		}
	}
	for _, pr := range p.Continuations {
		if pr.Key == "" {
			return fmt.Errorf("%w: empty continuation prefix", internalerr.ErrSnapshotShape)
		}
	}
	if p.VectorDims < 0 {
		return fmt.Errorf("%w: negative vector dims %d", internalerr.ErrSnapshotShape, p.VectorDims)
	}
	if len(p.Vectors) > 0 && p.VectorDims == 0 {
		return fmt.Errorf("%w: vectors without dimensionality", internalerr.ErrSnapshotShape)
	}
	for _, pr := range p.Vectors {
		if pr.Key == "" {
			return fmt.Errorf("%w: empty vector term", internalerr.ErrSnapshotShape)
		}
		if len(pr.Values) != p.VectorDims {
			return fmt.Errorf("%w: vector for %q has %d dims, want %d",
				internalerr.ErrSnapshotShape, pr.Key, len(pr.Values), p.VectorDims)
		}
		for _, v := range pr.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: vector value %v for %q", internalerr.ErrSnapshotShape, v, pr.Key)
			}
		}
	}
	return nil
}

// EncodeJSON serializes a snapshot to its canonical JSON document.
func EncodeJSON(s Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeJSON is the single deserialization routine for snapshot
// documents. The shape is validated before the snapshot is returned.
func DecodeJSON(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", internalerr.ErrSnapshotShape, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// sortPayload orders every pair list so encoded snapshots are
// byte-for-byte reproducible for identical state.
func sortPayload(p *Payload) {
	sort.Slice(p.Frequencies, func(i, j int) bool { return p.Frequencies[i].Key < p.Frequencies[j].Key })
	sort.Slice(p.Continuations, func(i, j int) bool { return p.Continuations[i].Key < p.Continuations[j].Key })
	sort.Slice(p.LeftContinuations, func(i, j int) bool { return p.LeftContinuations[i].Key < p.LeftContinuations[j].Key })
	sort.Slice(p.DocFreq, func(i, j int) bool { return p.DocFreq[i].Key < p.DocFreq[j].Key })
	sort.Slice(p.ContextFreq, func(i, j int) bool { return p.ContextFreq[i].Key < p.ContextFreq[j].Key })
	sort.Slice(p.LastSeen, func(i, j int) bool { return p.LastSeen[i].Key < p.LastSeen[j].Key })
	sort.Slice(p.Vectors, func(i, j int) bool { return p.Vectors[i].Key < p.Vectors[j].Key })
}
