package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

func tempStore(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "kotoba.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func learnedModel(t *testing.T) *ngram.Model {
	t.Helper()
	m := ngram.NewModel(config.Default().Ngram)
	docs := [][]string{
		{"猫", "が", "好き", "です"},
		{"犬", "も", "好き", "です"},
		{"猫", "は", "かわいい"},
	}
	for _, d := range docs {
		toks := make([]ingest.Token, len(d))
		for i, w := range d {
			toks[i] = ingest.Token{Surface: w, BaseForm: w}
		}
		m.Learn(toks, ngram.ContextInfo{})
	}
	return m
}

func TestSQLiteRoundTripPreservesPredictions(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	m := learnedModel(t)
	snap := store.FromState(m.Export(), "batch-1", time.Now())
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	loaded, found, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("saved snapshot not found")
	}
	if loaded.Payload.BatchID != "batch-1" {
		t.Errorf("batch id = %q", loaded.Payload.BatchID)
	}

	st, err := loaded.ToState()
	if err != nil {
		t.Fatal(err)
	}
	restored := ngram.NewModel(config.Default().Ngram)
	restored.Restore(st)

	for _, key := range []string{"猫", "好き", "猫 が", "猫 が 好き", "未知 列"} {
		order := len(restored.Tokens(key))
		if a, b := m.KneserNey(key, order), restored.KneserNey(key, order); a != b {
			t.Errorf("KneserNey(%q) changed across sqlite persistence: %g vs %g", key, a, b)
		}
	}
}

func TestSQLiteVectorRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	snap := store.FromState(learnedModel(t).Export(), "batch-1", time.Now()).WithVectors(2, map[string][]float64{
		"猫": {0.25, -0.5},
		"犬": {0.75, 0.125},
	})
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	loaded, found, err := s.LoadSnapshot(ctx)
	if err != nil || !found {
		t.Fatalf("snapshot not loaded: found=%v err=%v", found, err)
	}
	dims, vecs := loaded.VectorMap()
	if dims != 2 {
		t.Errorf("dims = %d, want 2", dims)
	}
	if len(vecs) != 2 {
		t.Fatalf("vector count = %d, want 2", len(vecs))
	}
	if vecs["猫"][0] != 0.25 || vecs["猫"][1] != -0.5 {
		t.Errorf("vector values changed across sqlite persistence: %v", vecs["猫"])
	}

	// A vector-less save replaces the cached vectors along with the rest.
	plain := store.FromState(learnedModel(t).Export(), "batch-2", time.Now())
	if err := s.SaveSnapshot(ctx, plain); err != nil {
		t.Fatal(err)
	}
	loaded, _, err = s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dims, vecs := loaded.VectorMap(); dims != 0 || len(vecs) != 0 {
		t.Error("replaced snapshot must not retain old vectors")
	}
}

func TestSQLiteLoadEmptyDatabase(t *testing.T) {
	s := tempStore(t)
	_, found, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("fresh database should report no snapshot")
	}
}

func TestSQLiteEmptyOverwriteRefused(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	snap := store.FromState(learnedModel(t).Export(), "batch-1", time.Now())
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	empty := store.Snapshot{Version: store.SchemaVersion}
	if err := s.SaveSnapshot(ctx, empty); !errors.Is(err, internalerr.ErrEmptySnapshot) {
		t.Errorf("empty overwrite error = %v, want ErrEmptySnapshot", err)
	}

	_, found, err := s.LoadSnapshot(ctx)
	if err != nil || !found {
		t.Error("refused save must leave the stored snapshot readable")
	}
}

func TestSQLiteSaveReplacesPrevious(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	first := store.FromState(learnedModel(t).Export(), "batch-1", time.Now())
	if err := s.SaveSnapshot(ctx, first); err != nil {
		t.Fatal(err)
	}

	m2 := ngram.NewModel(config.Default().Ngram)
	m2.Learn([]ingest.Token{
		{Surface: "天気", BaseForm: "天気"},
		{Surface: "は", BaseForm: "は"},
		{Surface: "晴れ", BaseForm: "晴れ"},
	}, ngram.ContextInfo{})
	second := store.FromState(m2.Export(), "batch-2", time.Now())
	if err := s.SaveSnapshot(ctx, second); err != nil {
		t.Fatal(err)
	}

	loaded, _, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Payload.BatchID != "batch-2" {
		t.Errorf("batch id = %q, want batch-2", loaded.Payload.BatchID)
	}
	for _, pr := range loaded.Payload.Frequencies {
		if pr.Key == "猫" {
			t.Error("replaced snapshot must not retain old rows")
		}
	}
}

func TestSQLiteValidatesOnSave(t *testing.T) {
	s := tempStore(t)
	bad := store.Snapshot{Version: store.SchemaVersion + 1}
	if err := s.SaveSnapshot(context.Background(), bad); !errors.Is(err, internalerr.ErrSnapshotShape) {
		t.Errorf("invalid snapshot error = %v, want ErrSnapshotShape", err)
	}
}
