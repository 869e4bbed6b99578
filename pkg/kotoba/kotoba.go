// Package kotoba is the statistical language-learning engine facade. It
// owns the n-gram model, the context predictor, the co-occurrence engine,
// the optional vocabulary bandit, and the persistence store, and exposes
// the learn / predict / similarity / selection surface as one API.
package kotoba

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/kotoba/pkg/kotoba/bandit"
	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/cooccur"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
	"github.com/cognicore/kotoba/pkg/kotoba/lexicon"
	"github.com/cognicore/kotoba/pkg/kotoba/maintenance"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/predict"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

// Kotoba is the main engine facade. All public methods are safe for
// concurrent use; learning and prediction share one mutex because any
// learn can change any score.
type Kotoba struct {
	mu sync.Mutex

	cfg       config.Config
	tokenizer ingest.Tokenizer
	filter    *ingest.Filter
	model     *ngram.Model
	predictor *predict.Predictor
	cooccur   *cooccur.Engine
	bandit    bandit.Bandit
	selector  *bandit.Selector
	lex       *lexicon.Lexicon
	store     store.Store

	ulidEntropy *rand.Rand
}

// Options configures a Kotoba instance.
type Options struct {
	// Config supplies all tuning parameters. Zero value means Default().
	Config config.Config

	// Tokenizer performs morphological analysis. When nil, a
	// whitespace tokenizer is used and a warning is logged on first use.
	Tokenizer ingest.Tokenizer

	// Store persists snapshots. When nil the engine is ephemeral.
	Store store.Store

	// Lexicon biases fallback prediction and term expansion. Optional.
	Lexicon *lexicon.Lexicon

	// Bandit enables UCB-assisted vocabulary selection. When nil,
	// SelectVocabulary returns ErrNoBandit.
	Bandit bandit.Bandit
}

// New creates an engine and, when a store is configured, restores the
// last saved snapshot into the model.
func New(ctx context.Context, opts Options) (*Kotoba, error) {
	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model := ngram.NewModel(cfg.Ngram)
	pred, err := predict.New(cfg.Predict, model, cfg.Seed, opts.Lexicon)
	if err != nil {
		return nil, err
	}

	k := &Kotoba{
		cfg:         cfg,
		tokenizer:   opts.Tokenizer,
		filter:      ingest.NewFilter(),
		model:       model,
		predictor:   pred,
		cooccur:     cooccur.NewEngine(cfg.Cooccur, cfg.LSH, cfg.Seed, model),
		bandit:      opts.Bandit,
		lex:         opts.Lexicon,
		store:       opts.Store,
		ulidEntropy: rand.New(rand.NewSource(cfg.Seed)),
	}
	if k.bandit != nil {
		k.selector = bandit.NewSelector(cfg.Bandit, k.bandit, model, k.cooccur)
	}

	if k.store != nil {
		snap, found, err := k.store.LoadSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			st, err := snap.ToState()
			if err != nil {
				return nil, err
			}
			model.Restore(st)
			if dims, vecs := snap.VectorMap(); len(vecs) > 0 {
				k.cooccur.RestoreVectors(cooccur.VectorState{Dims: dims, Vectors: vecs})
			}
		}
	}
	return k, nil
}

// Close shuts the engine down, closing the store if one is configured.
func (k *Kotoba) Close() error {
	if k.store == nil {
		return nil
	}
	return k.store.Close()
}

// LearnResult summarizes one learn call.
type LearnResult struct {
	BatchID string
	Stats   ngram.LearnStats
}

// LearnPattern cleans, tokenizes, and learns one text. An input that the
// noise filter rejects entirely is counted but contributes nothing.
func (k *Kotoba) LearnPattern(ctx context.Context, text string, info ngram.ContextInfo) (LearnResult, error) {
	if text == "" {
		return LearnResult{}, internalerr.ErrInvalidInput
	}

	tokens, err := k.tokenize(ctx, text)
	if err != nil {
		return LearnResult{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	stats := k.model.Learn(tokens, info)
	k.predictor.Invalidate()

	return LearnResult{
		BatchID: ulid.MustNew(ulid.Timestamp(time.Now()), k.ulidEntropy).String(),
		Stats:   stats,
	}, nil
}

// PredictContext returns the best-matching learned context for the input
// plus a predicted next token. It never fails on learned-data grounds;
// the fallback chain covers cold start and unseen vocabulary.
func (k *Kotoba) PredictContext(ctx context.Context, text string) (predict.Prediction, error) {
	if text == "" {
		return predict.Prediction{}, internalerr.ErrInvalidInput
	}
	tokens, err := k.tokenize(ctx, text)
	if err != nil {
		return predict.Prediction{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.predictor.Predict(tokens), nil
}

// KneserNeyProbability returns the smoothed probability of an n-gram,
// tokens joined by the configured separator.
func (k *Kotoba) KneserNeyProbability(tokens []string) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(tokens) == 0 {
		return 0
	}
	key := strings.Join(tokens, k.model.Separator())
	return k.model.KneserNey(key, len(tokens))
}

// BuildCooccurrenceMatrix rebuilds the co-occurrence matrix from the
// learned n-gram tables. windowSize <= 0 uses the configured window.
func (k *Kotoba) BuildCooccurrenceMatrix(windowSize int) cooccur.BuildStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cooccur.BuildMatrix(windowSize)
}

// BuildCooccurrenceFromRelations rebuilds the matrix from an external
// relationship graph instead of n-gram windows.
func (k *Kotoba) BuildCooccurrenceFromRelations(graph cooccur.RelationGraph) cooccur.BuildStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cooccur.BuildFromRelations(graph)
}

// GenerateDistributionalVectors derives dense term vectors and the LSH
// index from the current matrix. Call after a matrix build.
func (k *Kotoba) GenerateDistributionalVectors(ctx context.Context) (cooccur.VectorStats, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cooccur.GenerateVectors(ctx)
}

// CosineSimilarity returns the blended similarity of two terms in [0, 1].
func (k *Kotoba) CosineSimilarity(a, b string) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cooccur.Similarity(a, b)
}

// FindSimilarTerms returns candidates similar to target above threshold,
// most similar first. threshold <= 0 derives one from the score spread.
func (k *Kotoba) FindSimilarTerms(target string, candidates []string, threshold float64) []cooccur.SimilarTerm {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cooccur.SimilarTerms(target, candidates, threshold)
}

// SelectVocabulary runs bandit-assisted selection over the candidates.
func (k *Kotoba) SelectVocabulary(contextTokens, candidates []string, opts bandit.Options) (bandit.Selection, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.selector == nil {
		return bandit.Selection{}, internalerr.ErrNoBandit
	}
	return k.selector.Select(contextTokens, candidates, opts), nil
}

// RewardVocabulary feeds selection feedback back into the bandit.
func (k *Kotoba) RewardVocabulary(term string, reward float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.bandit == nil {
		return internalerr.ErrNoBandit
	}
	k.bandit.Reward(term, reward)
	return nil
}

// Save persists the current model state, together with any generated
// distributional vectors so the next start can serve similarity queries
// without a rebuild. Saving an empty model over a non-empty stored
// snapshot is refused by the store.
func (k *Kotoba) Save(ctx context.Context) (string, error) {
	if k.store == nil {
		return "", internalerr.ErrStoreUnavailable
	}
	k.mu.Lock()
	st := k.model.Export()
	vecs := k.cooccur.ExportVectors()
	batchID := ulid.MustNew(ulid.Timestamp(time.Now()), k.ulidEntropy).String()
	k.mu.Unlock()

	snap := store.FromState(st, batchID, time.Now()).WithVectors(vecs.Dims, vecs.Vectors)
	if err := k.store.SaveSnapshot(ctx, snap); err != nil {
		return "", err
	}
	return batchID, nil
}

// Compact runs the decay/eviction maintenance pass and, when a store is
// configured, persists the compacted state.
func (k *Kotoba) Compact(ctx context.Context, halfLifeBatches uint64, minFreq float64) (maintenance.Result, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	c := maintenance.Compactor{Model: k.model, Store: k.store}
	res, err := c.Compact(ctx, maintenance.Options{
		HalfLifeBatches: halfLifeBatches,
		MinFreq:         minFreq,
		BatchID:         ulid.MustNew(ulid.Timestamp(time.Now()), k.ulidEntropy).String(),
	})
	if err != nil {
		return res, err
	}
	k.predictor.Invalidate()
	return res, nil
}

// ModelSize returns the number of stored n-gram entries.
func (k *Kotoba) ModelSize() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.model.Size()
}

// ContextLabels returns the discovered context labels and their counts.
func (k *Kotoba) ContextLabels() map[string]int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.model.ContextLabels()
}

// tokenize runs the configured tokenizer, falling back to whitespace
// splitting when none is set or the tokenizer fails.
func (k *Kotoba) tokenize(ctx context.Context, text string) ([]ingest.Token, error) {
	cleaned := k.filter.Clean(text)
	if cleaned == "" {
		return nil, nil
	}
	if k.tokenizer == nil {
		return ingest.SpaceTokenizer{}.ProcessText(ctx, cleaned)
	}
	tokens, err := k.tokenizer.ProcessText(ctx, cleaned)
	if err != nil {
		log.Printf("kotoba: tokenizer failed, falling back to whitespace: %v", err)
		return ingest.SpaceTokenizer{}.ProcessText(ctx, cleaned)
	}
	return tokens, err
}
