// kotoba-chat is an interactive loop over a learned snapshot: each input
// line is predicted against the learned contexts, and lines prefixed with
// "learn:" are learned in place.
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
	"github.com/cognicore/kotoba/pkg/kotoba/bandit"
	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Snapshot database path (required)")
		configPath = flag.String("config", "", "YAML config file (optional)")
		input      = flag.String("input", "", "One-shot input (non-interactive mode)")
		saveOnExit = flag.Bool("save", true, "Save a snapshot on exit")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
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

	engine, err := kotoba.New(ctx, kotoba.Options{
		Config: cfg,
		Store:  st,
		Bandit: bandit.NewUCB1(cfg.Bandit.Exploration),
	})
	if err != nil {
		st.Close()
		log.Fatal(err)
	}
	defer engine.Close()

	if *input != "" {
		if err := respond(ctx, engine, *input); err != nil {
			log.Fatal(err)
		}
		return
	}

	fmt.Println("kotoba chat")
	fmt.Printf("model size: %d n-grams, %d contexts\n", engine.ModelSize(), len(engine.ContextLabels()))
	fmt.Println("type text to predict, \"learn: <text>\" to learn, Ctrl+D to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if text, ok := strings.CutPrefix(line, "learn:"); ok {
			res, err := engine.LearnPattern(ctx, strings.TrimSpace(text), ngram.ContextInfo{Source: "chat"})
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("learned batch %s (%d n-grams)\n", res.BatchID, res.Stats.NgramsAdded)
			continue
		}

		if err := respond(ctx, engine, line); err != nil {
			fmt.Println("error:", err)
		}
	}

	if *saveOnExit && engine.ModelSize() > 0 {
		batchID, err := engine.Save(ctx)
		if err != nil {
			log.Printf("save: %v", err)
		} else {
			fmt.Printf("\nsaved snapshot %s\n", batchID)
		}
	}
}

func respond(ctx context.Context, engine *kotoba.Kotoba, text string) error {
	pred, err := engine.PredictContext(ctx, text)
	if err != nil {
		return err
	}

	fmt.Printf("context: %s (confidence %.3f)", pred.Category, pred.Confidence)
	if pred.Fallback {
		fmt.Printf(" [fallback: %s]", pred.Tier)
	}
	fmt.Println()
	if pred.NextWord != "" {
		fmt.Printf("next word: %s\n", pred.NextWord)
	}
	return nil
}
