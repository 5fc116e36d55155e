// Seed script for creating demo data for the classifier.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/bootstrap"
	"github.com/lorios22/twitter-news-classifier/internal/config"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
)

const demoTweetsPath = "data/demo_tweets.json"

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	rt, err := bootstrap.OpenStorage(ctx, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer rt.Close()

	fmt.Printf("Using %s memory backend\n", config.MemoryBackend())

	// Generate API key
	apiKey := generateAPIKey()
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Println("(Add it to API_KEYS in your .env.secret file)")

	// A chronically low-quality author
	for i, score := range []float64{0.82, 0.75, 0.9, 0.71, 0.88, 0.79} {
		_, err := rt.Memory.Update(ctx, domain.NamespaceSlop, "demo_spammer", func(f domain.Record) error {
			count := f.FloatOr("count", 0) + 1
			total := f.FloatOr("total_slop", 0) + score
			f["count"] = count
			f["total_slop"] = total
			f["avg_slop"] = total / count
			f["last_scores"] = append(toSlice(f["last_scores"]), score)
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to seed slop record %d: %v", i, err)
		}
	}
	fmt.Println("Seeded slop fingerprint for demo_spammer")

	_, err = rt.Memory.Update(ctx, domain.NamespaceBanTerms, "demo_spammer", func(f domain.Record) error {
		f["count"] = 4
		f["total_weight"] = 2.4
		f["avg_weight"] = 0.6
		f["violations"] = map[string]any{"100x": 2, "guaranteed": 1, "wagmi": 1}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed ban term stats: %v", err)
	}
	fmt.Println("Seeded ban term stats for demo_spammer")

	if err := writeDemoTweets(demoTweetsPath); err != nil {
		log.Fatalf("Failed to write demo tweets: %v", err)
	}
	fmt.Printf("Wrote demo tweets to %s\n", demoTweetsPath)

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nTo analyze the demo tweets, use:")
	fmt.Printf("go run ./cmd/classifier analyze --input %s\n", demoTweetsPath)
	fmt.Println("\nTo query low-quality authors:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' 'http://localhost:8080/v1/reports/low-quality-authors'\n", apiKey)
}

func writeDemoTweets(path string) error {
	now := time.Now().UTC().Truncate(time.Second)
	tweets := []domain.ContentItem{
		{
			ID:             "1790000000000000001",
			Text:           "Ethereum validators processed 1.2M deposits this week according to beaconcha.in data. Withdrawal queue is now under 2 days.",
			AuthorID:       "1001",
			AuthorUsername: "chain_analyst",
			CreatedAt:      now.Add(-2 * time.Hour),
			LikeCount:      340,
			RetweetCount:   85,
			ReplyCount:     22,
			ExternalLinks:  []string{"https://beaconcha.in"},
		},
		{
			ID:             "1790000000000000002",
			Text:           "Oh great, ANOTHER exchange hack. Totally didn't see that coming. Best week ever for crypto!!!",
			AuthorID:       "1002",
			AuthorUsername: "weary_trader",
			CreatedAt:      now.Add(-90 * time.Minute),
			LikeCount:      1200,
			RetweetCount:   410,
			ReplyCount:     96,
		},
		{
			ID:             "1790000000000000003",
			Text:           "This token is GUARANTEED to 100x by Friday. Not financial advice but you would be crazy not to buy. WAGMI",
			AuthorID:       "demo_spammer",
			AuthorUsername: "demo_spammer",
			CreatedAt:      now.Add(-30 * time.Minute),
			LikeCount:      12,
			RetweetCount:   3,
		},
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(map[string]any{"tweets": tweets}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func generateAPIKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}
	return "tnc_" + base64.URLEncoding.EncodeToString(b)[:40]
}

func toSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
