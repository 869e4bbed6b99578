package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

func learnedSnapshot(t *testing.T) store.Snapshot {
	t.Helper()
	m := ngram.NewModel(config.Default().Ngram)
	m.Learn([]ingest.Token{
		{Surface: "猫", BaseForm: "猫"},
		{Surface: "が", BaseForm: "が"},
		{Surface: "好き", BaseForm: "好き"},
	}, ngram.ContextInfo{})
	return store.FromState(m.Export(), "batch-1", time.Now())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, found, err := s.LoadSnapshot(ctx); err != nil || found {
		t.Fatalf("fresh store: found=%v err=%v", found, err)
	}

	snap := learnedSnapshot(t)
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, found, err := s.LoadSnapshot(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Version != store.SchemaVersion {
		t.Errorf("version = %d", got.Version)
	}
	if len(got.Payload.Frequencies) != len(snap.Payload.Frequencies) {
		t.Error("payload should survive the round trip")
	}
}

func TestEmptyOverwriteRefused(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, learnedSnapshot(t)); err != nil {
		t.Fatal(err)
	}

	empty := store.Snapshot{Version: store.SchemaVersion}
	err := s.SaveSnapshot(ctx, empty)
	if !errors.Is(err, internalerr.ErrEmptySnapshot) {
		t.Errorf("empty overwrite error = %v, want ErrEmptySnapshot", err)
	}

	// The original data is intact.
	got, found, _ := s.LoadSnapshot(ctx)
	if !found || got.Empty() {
		t.Error("refused save must leave the stored snapshot untouched")
	}
}

func TestSaveValidates(t *testing.T) {
	s := New()
	bad := store.Snapshot{Version: store.SchemaVersion + 9}
	if err := s.SaveSnapshot(context.Background(), bad); !errors.Is(err, internalerr.ErrSnapshotShape) {
		t.Errorf("invalid snapshot error = %v, want ErrSnapshotShape", err)
	}
}
