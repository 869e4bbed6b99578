// kotoba-learn feeds a corpus file (one sentence per line) into the
// engine, builds the co-occurrence vectors, and saves a snapshot.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cognicore/kotoba/pkg/kotoba"
	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Snapshot database path (required)")
		corpusPath = flag.String("corpus", "", "Corpus file, one sentence per line (required)")
		configPath = flag.String("config", "", "YAML config file (optional)")
		source     = flag.String("source", "corpus", "Source tag recorded with each learn")
		vectors    = flag.Bool("vectors", true, "Build co-occurrence vectors after learning")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *corpusPath == "" {
		log.Fatal("--corpus required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	ctx := context.Background()

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal(err)
	}

	engine, err := kotoba.New(ctx, kotoba.Options{Config: cfg, Store: st})
	if err != nil {
		st.Close()
		log.Fatal(err)
	}
	defer engine.Close()

	f, err := os.Open(*corpusPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	learned, filtered := 0, 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := engine.LearnPattern(ctx, line, ngram.ContextInfo{Source: *source})
		if err != nil {
			log.Printf("learn: %v", err)
			continue
		}
		if res.Stats.Filtered {
			filtered++
		} else {
			learned++
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Learned %d sentences (%d filtered), model size %d\n",
		learned, filtered, engine.ModelSize())

	if *vectors {
		build := engine.BuildCooccurrenceMatrix(0)
		vs, err := engine.GenerateDistributionalVectors(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Co-occurrence: %d terms, %d pairs; vectors: %d terms x %d dims\n",
			build.TermCount, build.PairCount, vs.VectorCount, vs.Dimensions)
	}

	batchID, err := engine.Save(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Saved snapshot %s\n", batchID)
}
