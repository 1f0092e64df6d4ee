package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"qrmatch/config"
	"qrmatch/internal/adapter/embedding"
	"qrmatch/internal/adapter/matcher"
	"qrmatch/internal/adapter/store"
)

type scored struct {
	id    string
	text  string
	score float64
}

// Prints how every stored entry scores against a prompt, so the match
// threshold can be tuned against real data.
func main() {
	dir := flag.String("dir", ".", "Directory holding qrmatch.yaml and the store")
	query := flag.String("q", "", "Prompt to score")
	topK := flag.Int("k", 10, "Number of entries to show")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"prompt\"")
		fmt.Println("\nShows:")
		fmt.Println("  1. Similarity of the prompt to each stored entry")
		fmt.Println("  2. Where the configured threshold cuts the ranking")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.Backend != "bolt" {
		fmt.Fprintf(os.Stderr, "Only the bolt store can be scored, config uses %s\n", cfg.Store.Backend)
		os.Exit(1)
	}

	st, err := store.NewBoltStore(cfg.StorePath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	entries, err := st.ListAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing entries: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No entries - run 'qrmatch encode' or 'qrmatch import' first")
		os.Exit(1)
	}

	fmt.Println("SIMILARITY REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Entries:   %d\n", len(entries))
	fmt.Printf("Model:     %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Threshold: %.2f\n", cfg.Match.Threshold)
	fmt.Println()

	fmt.Printf("Prompt: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	vecs, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}

	results := make([]scored, 0, len(entries))
	for _, e := range entries {
		s, err := matcher.Similarity(vecs[0], e.Fingerprint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", e.ID, err)
			continue
		}
		results = append(results, scored{id: e.ID, text: e.Text, score: s})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > *topK {
		results = results[:*topK]
	}

	cutShown := false
	for i, r := range results {
		if !cutShown && r.score < cfg.Match.Threshold {
			fmt.Printf("   %s threshold %.2f %s\n\n", strings.Repeat("-", 20), cfg.Match.Threshold, strings.Repeat("-", 20))
			cutShown = true
		}

		preview := r.text
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		fmt.Printf("%d. [%.3f] %s\n", i+1, r.score, r.id)
		fmt.Printf("   %s\n\n", preview)
	}

	fmt.Println(strings.Repeat("=", 70))
	if len(results) > 0 && results[0].score >= cfg.Match.Threshold {
		fmt.Printf("Query would return %s (%.3f)\n", results[0].id, results[0].score)
	} else {
		fmt.Println("Query would return no match")
	}
}
