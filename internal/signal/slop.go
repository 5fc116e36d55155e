package signal

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

// SlopThreshold is the slop score above which a post counts as sloppy.
const SlopThreshold = 0.7

var (
	clichePatterns = func() []*regexp.Regexp {
		src := []string{
			`\bgame[- ]?changer\b`,
			`\bparadigm shift\b`,
			`\brevolution(?:ary|ize)\b`,
			`\bto the moon\b`,
			`\bmoon(?:ing|shot)\b`,
			`\bonly time will tell\b`,
			`\bnext big thing\b`,
			`\bhuge news\b`,
			`\bbig announcement\b`,
			`\bmassive\b.*\bpotential\b`,
			`\bmind[- ]?blow(?:ing|n)\b`,
			`\bin today's\s+(?:digital\s+)?(?:world|landscape|age)\b`,
			`\bas we move forward\b`,
			`\bat the end of the day\b`,
			`\bwhen all is said and done\b`,
			`\bthe bottom line is\b`,
			`\blet's be honest\b`,
			`\blet me tell you\b`,
			`\bhere's the thing\b`,
			`\bthe fact of the matter is\b`,
			`\bthis could be huge\b`,
			`\bprice prediction\b.*\bmoon\b`,
			`\b(?:100|1000)x\s+gains?\b`,
			`\bmake you rich\b`,
			`\bgems?\s+(?:hidden|secret)\b`,
			`\bnot financial advice\b.*\bbut\b`,
			`\bdyor\b.*\bbut\b`,
			`!{3,}`,
			`\?{2,}`,
			`\.{4,}`,
		}
		out := make([]*regexp.Regexp, 0, len(src)+1)
		for _, p := range src {
			out = append(out, regexp.MustCompile(`(?i)`+p))
		}
		// shouting only counts when it is actually upper case
		return append(out, regexp.MustCompile(`\b[A-Z]{4,}\b`))
	}()

	slopClusters = map[string][]string{
		"generic_hype": {
			"huge potential", "game changer", "revolutionary", "to the moon",
			"massive gains", "next big thing", "paradigm shift",
		},
		"clickbait": {
			"you won't believe", "shocking truth", "secret revealed",
			"what they don't want you to know", "hidden gem",
		},
		"ai_filler": {
			"in today's digital world", "as we move forward", "at the end of the day",
			"the bottom line is", "when all is said and done",
		},
	}

	substanceIndicators = []string{
		"data", "analysis", "research", "study", "report", "evidence",
		"statistics", "metrics", "measurement", "findings", "results",
		"conclusion", "methodology", "technical", "implementation",
		"documentation", "specification", "protocol", "algorithm",
	}

	factualPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
		regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?\b`),
		regexp.MustCompile(`\b\d+(?:,\d{3})*\s+(?:users?|transactions?|tokens?)\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	}
	urlPattern = regexp.MustCompile(`https?://\S+`)

	highValueIndicators = []*regexp.Regexp{
		regexp.MustCompile(`\$\d+(?:m|million|b|billion)\b`),
		regexp.MustCompile(`\b\d+(?:\.\d+)?%\s+(?:gain|loss|increase|decrease)\b`),
		regexp.MustCompile(`\b(?:breaking|confirmed|official|announced)\b`),
		regexp.MustCompile(`\b(?:partnership|acquisition|merger|funding)\b`),
		regexp.MustCompile(`\b(?:upgrade|launch|release|deployment)\b`),
	}

	fillerWords = map[string]bool{
		"like": true, "just": true, "really": true, "very": true, "so": true,
		"actually": true, "basically": true, "literally": true, "totally": true,
		"absolutely": true, "definitely": true, "obviously": true,
	}
)

type SlopResult struct {
	IsSloppy          bool    `json:"is_sloppy"`
	SlopScore         float64 `json:"slop_score"`
	ClicheCount       int     `json:"cliche_count"`
	Redundancy        float64 `json:"redundancy"`
	Similarity        float64 `json:"similarity"`
	FactualAdjustment float64 `json:"factual_adjustment"`
	Preserve          bool    `json:"preserve_content"`
	AuthorAvgSlop     float64 `json:"author_avg_slop"`
	ChronicSlopper    bool    `json:"chronic_slopper"`
	Reasoning         string  `json:"reasoning"`
	AgentScore        float64 `json:"agent_score"`
}

// Slop detects low-effort, cliché-ridden or machine-sounding posts.
type Slop struct{}

var _ domain.Invoker = Slop{}

func (Slop) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	if inv.Item == nil {
		return "", domain.ErrItemTextEmpty
	}
	res := AnalyzeSlop(inv.Item.Text)

	prior := inv.Priors.Fields(domain.NamespaceSlop)
	res.AuthorAvgSlop = round(prior.FloatOr("avg_slop", 0), 3)
	res.ChronicSlopper = prior.FloatOr("count", 0) >= ChronicMinCount && res.AuthorAvgSlop >= SlopThreshold
	return encode(res)
}

// AnalyzeSlop scores a single text without any author history.
func AnalyzeSlop(text string) SlopResult {
	cliche, count := clicheScore(text)
	redundancy := redundancyScore(text)
	similarity := clusterSimilarity(text)
	factual := factualAdjustment(text)

	slop := math.Max(0, cliche*0.4+redundancy*0.3+similarity*0.3-factual)
	slop = round(slop, 2)

	return SlopResult{
		IsSloppy:          slop > SlopThreshold,
		SlopScore:         slop,
		ClicheCount:       count,
		Redundancy:        round(redundancy, 3),
		Similarity:        round(similarity, 3),
		FactualAdjustment: round(factual, 3),
		Preserve:          shouldPreserve(text, slop),
		Reasoning:         slopReasoning(count, redundancy, similarity, factual),
		AgentScore:        round(math.Max(1, 10-8*slop), 2),
	}
}

func clicheScore(text string) (float64, int) {
	n := 0
	for _, re := range clichePatterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return math.Min(1, float64(n)*0.15), n
}

func redundancyScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 3 {
		return 0
	}
	unique := map[string]struct{}{}
	filler := 0
	for _, w := range words {
		unique[w] = struct{}{}
		if fillerWords[w] {
			filler++
		}
	}
	repetition := 1 - float64(len(unique))/float64(len(words))
	fillerRatio := float64(filler) / float64(len(words))
	return math.Min(1, repetition*0.7+fillerRatio*0.3)
}

func clusterSimilarity(text string) float64 {
	lower := strings.ToLower(text)
	var best float64
	for _, phrases := range slopClusters {
		hits := 0
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				hits++
			}
		}
		best = math.Max(best, float64(hits)/float64(len(phrases)))
	}
	return math.Min(1, best*2)
}

func factualAdjustment(text string) float64 {
	var score float64
	for _, re := range factualPatterns {
		score += float64(len(re.FindAllStringIndex(text, -1))) * 0.1
	}
	lower := strings.ToLower(text)
	for _, w := range substanceIndicators {
		if strings.Contains(lower, w) {
			score += 0.05
		}
	}
	// a linked source counts both as a fact and as sourcing
	score += float64(len(urlPattern.FindAllStringIndex(text, -1))) * 0.3
	return math.Min(0.5, score)
}

// shouldPreserve reports whether content has redeeming value despite its slop.
func shouldPreserve(text string, slop float64) bool {
	if slop < 0.8 {
		return true
	}
	lower := strings.ToLower(text)
	for _, re := range highValueIndicators {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func slopReasoning(count int, redundancy, similarity, factual float64) string {
	var reasons []string
	if count > 0 {
		reasons = append(reasons, fmt.Sprintf("%d cliché phrase(s)", count))
	}
	if redundancy > 0.5 {
		reasons = append(reasons, "high word repetition")
	}
	if similarity > 0.3 {
		reasons = append(reasons, "matches known slop patterns")
	}
	if factual > 0.1 {
		reasons = append(reasons, fmt.Sprintf("contains factual content (adjustment: -%.1f)", factual))
	}
	if len(reasons) == 0 {
		return "No significant slop indicators detected"
	}
	return "Detected: " + strings.Join(reasons, ", ")
}
