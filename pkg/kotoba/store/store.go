// Package store defines the persistence boundary of the engine: a
// versioned, JSON-compatible snapshot of every learned table, with one
// canonical serialization schema. Maps always cross this boundary as
// arrays of pairs; the single decode routine validates the shape before
// any of it reaches the model.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
)

// SchemaVersion is the current snapshot schema version. Loaders reject
// versions they do not understand instead of guessing at the shape.
const SchemaVersion = 1

// Store persists and restores snapshots.
type Store interface {
	Close() error

	// LoadSnapshot returns the stored snapshot and whether one existed.
	LoadSnapshot(ctx context.Context) (Snapshot, bool, error)

	// SaveSnapshot persists the snapshot. Implementations refuse to
	// overwrite a non-empty stored snapshot with an empty one.
	SaveSnapshot(ctx context.Context, s Snapshot) error
}

// Snapshot is the versioned wire form of the model state.
type Snapshot struct {
	Version int     `json:"version"`
	Payload Payload `json:"payload"`
}

// Payload carries every persisted table in array-of-pairs form.
type Payload struct {
	BatchID           string      `json:"batch_id"`
	SavedAt           time.Time   `json:"saved_at"`
	TotalDocs         int64       `json:"total_docs"`
	BatchSeq          uint64      `json:"batch_seq"`
	Frequencies       []FreqPair  `json:"frequencies"`
	Continuations     []SetPair   `json:"continuations"`
	LeftContinuations []SetPair   `json:"left_continuations"`
	DocFreq           []CountPair `json:"doc_freq"`
	ContextFreq       []CountPair `json:"context_freq"`
	LastSeen          []SeqPair   `json:"last_seen"`

	// Semantic cache: the derived distributional vectors, so a reload can
	// serve similarity queries without regenerating the projection. The
	// section is optional; a snapshot without it stays valid.
	VectorDims int          `json:"vector_dims,omitempty"`
	Vectors    []VectorPair `json:"vectors,omitempty"`
}

// FreqPair is one n-gram frequency entry.
type FreqPair struct {
	Key  string  `json:"k"`
	Freq float64 `json:"v"`
}

// SetPair is one continuation-set entry.
type SetPair struct {
	Key    string   `json:"k"`
	Tokens []string `json:"v"`
}

// CountPair is one integer-count entry.
type CountPair struct {
	Key   string `json:"k"`
	Count int64  `json:"v"`
}

// SeqPair is one last-reinforcement sequence entry.
type SeqPair struct {
	Key string `json:"k"`
	Seq uint64 `json:"v"`
}

// VectorPair is one term's distributional vector.
type VectorPair struct {
	Key    string    `json:"k"`
	Values []float64 `json:"v"`
}

// Empty reports whether the snapshot carries no learned data.
func (s Snapshot) Empty() bool {
	p := s.Payload
	return len(p.Frequencies) == 0 && len(p.DocFreq) == 0 && p.TotalDocs == 0
}

// FromState converts model state into a snapshot at the current schema
// version.
func FromState(st ngram.State, batchID string, now time.Time) Snapshot {
	p := Payload{
		BatchID:   batchID,
		SavedAt:   now,
		TotalDocs: st.TotalDocs,
		BatchSeq:  st.BatchSeq,
	}
	for k, v := range st.Freq {
		p.Frequencies = append(p.Frequencies, FreqPair{k, v})
	}
	for k, v := range st.Continuations {
		p.Continuations = append(p.Continuations, SetPair{k, v})
	}
	for k, v := range st.LeftContinuations {
		p.LeftContinuations = append(p.LeftContinuations, SetPair{k, v})
	}
	for k, v := range st.DocFreq {
		p.DocFreq = append(p.DocFreq, CountPair{k, v})
	}
	for k, v := range st.ContextFreq {
		p.ContextFreq = append(p.ContextFreq, CountPair{k, v})
	}
	for k, v := range st.LastSeen {
		p.LastSeen = append(p.LastSeen, SeqPair{k, v})
	}
	sortPayload(&p)
	return Snapshot{Version: SchemaVersion, Payload: p}
}

// WithVectors attaches the derived semantic vectors to the snapshot so a
// reload can reuse them instead of rebuilding the projection. No-op when
// there are no vectors.
func (s Snapshot) WithVectors(dims int, vectors map[string][]float64) Snapshot {
	if dims <= 0 || len(vectors) == 0 {
		return s
	}
	s.Payload.VectorDims = dims
	s.Payload.Vectors = make([]VectorPair, 0, len(vectors))
	for k, v := range vectors {
		s.Payload.Vectors = append(s.Payload.Vectors, VectorPair{k, append([]float64(nil), v...)})
	}
	sort.Slice(s.Payload.Vectors, func(i, j int) bool {
		return s.Payload.Vectors[i].Key < s.Payload.Vectors[j].Key
	})
	return s
}

// VectorMap reconstructs the vector table from the snapshot. Zero values
// mean the snapshot carries no vector section.
func (s Snapshot) VectorMap() (int, map[string][]float64) {
	if s.Payload.VectorDims <= 0 || len(s.Payload.Vectors) == 0 {
		return 0, nil
	}
	out := make(map[string][]float64, len(s.Payload.Vectors))
	for _, pr := range s.Payload.Vectors {
		out[pr.Key] = append([]float64(nil), pr.Values...)
	}
	return s.Payload.VectorDims, out
}

// ToState validates the snapshot and reconstructs model state from it.
func (s Snapshot) ToState() (ngram.State, error) {
	if err := s.Validate(); err != nil {
		return ngram.State{}, err
	}
	st := ngram.State{
		Freq:              make(map[string]float64, len(s.Payload.Frequencies)),
		Continuations:     make(map[string][]string, len(s.Payload.Continuations)),
		LeftContinuations: make(map[string][]string, len(s.Payload.LeftContinuations)),
		DocFreq:           make(map[string]int64, len(s.Payload.DocFreq)),
		ContextFreq:       make(map[string]int64, len(s.Payload.ContextFreq)),
		LastSeen:          make(map[string]uint64, len(s.Payload.LastSeen)),
		TotalDocs:         s.Payload.TotalDocs,
		BatchSeq:          s.Payload.BatchSeq,
	}
	for _, pr := range s.Payload.Frequencies {
		st.Freq[pr.Key] = pr.Freq
	}
	for _, pr := range s.Payload.Continuations {
		st.Continuations[pr.Key] = pr.Tokens
	}
	for _, pr := range s.Payload.LeftContinuations {
		st.LeftContinuations[pr.Key] = pr.Tokens
	}
	for _, pr := range s.Payload.DocFreq {
		st.DocFreq[pr.Key] = pr.Count
	}
	for _, pr := range s.Payload.ContextFreq {
		st.ContextFreq[pr.Key] = pr.Count
	}
	for _, pr := range s.Payload.LastSeen {
		st.LastSeen[pr.Key] = pr.Seq
	}
	return st, nil
}
