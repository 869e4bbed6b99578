// Package lsh provides approximate nearest-neighbor lookup over dense
// term vectors via MinHash signatures and banded locality-sensitive
// hashing. The index is derived data: it can be rebuilt from the current
// vector set at any time and carries no invariants of its own.
package lsh

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
)

// ErrNoFeatures is returned when a vector quantizes to nothing hashable.
var ErrNoFeatures = errors.New("vector produced no sparse features")

// featureEpsilon is the magnitude below which a dimension is treated as
// zero and produces no feature.
const featureEpsilon = 1e-9

// sparseFeatures converts a dense vector into MinHash-compatible string
// features, one per sufficiently non-zero dimension, quantized into the
// given number of buckets.
func sparseFeatures(vec []float64, buckets int) []string {
	if buckets < 1 {
		buckets = 1
	}
	features := make([]string, 0, len(vec))
	for i, v := range vec {
		if math.Abs(v) < featureEpsilon {
			continue
		}
		b := int(math.Floor(v * float64(buckets)))
		features = append(features, fmt.Sprintf("%d:%d", i, b))
	}
	return features
}

// newSalts derives the deterministic hash-family salts from the seed.
func newSalts(n int, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	salts := make([]uint64, n)
	for i := range salts {
		salts[i] = rng.Uint64()
	}
	return salts
}

// signature computes the MinHash signature of a feature set: for each hash
// function, the minimum salted FNV-1a hash over all features.
func signature(features []string, salts []uint64) []uint64 {
	sig := make([]uint64, len(salts))
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, f := range features {
		h := fnv.New64a()
		h.Write([]byte(f))
		base := h.Sum64()
		for i, salt := range salts {
			mixed := base ^ salt
			// One xorshift round spreads the salt through the low bits.
			mixed ^= mixed >> 33
			mixed *= 0xff51afd7ed558ccd
			mixed ^= mixed >> 33
			if mixed < sig[i] {
				sig[i] = mixed
			}
		}
	}
	return sig
}
