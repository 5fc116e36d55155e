package signal

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
)

// MaxBannedWeight is the adjusted weight at which the tone penalty saturates.
const MaxBannedWeight = 5.0

type BanCategory string

const (
	CategoryHype          BanCategory = "hype_language"
	CategoryUnrealistic   BanCategory = "unrealistic_promises"
	CategoryFormatting    BanCategory = "formatting_issues"
	CategoryInappropriate BanCategory = "inappropriate_language"
	CategoryClickbait     BanCategory = "clickbait"
)

var categoryWeights = map[BanCategory]float64{
	CategoryHype:          1.0,
	CategoryUnrealistic:   1.5,
	CategoryFormatting:    0.5,
	CategoryInappropriate: 2.0,
	CategoryClickbait:     0.8,
}

type bannedPhrase struct {
	re       *regexp.Regexp
	category BanCategory
	weight   float64
	note     string
}

func phrase(cat BanCategory, pattern string, weight float64, note string) bannedPhrase {
	return bannedPhrase{
		re:       regexp.MustCompile(pattern),
		category: cat,
		weight:   weight * categoryWeights[cat],
		note:     note,
	}
}

var bannedTaxonomy = []bannedPhrase{
	phrase(CategoryHype, `(?i)\bto the moon\b`, 1.0, "Hype language"),
	phrase(CategoryHype, `(?i)\bmoon(?:ing|shot)\b`, 0.8, "Hype language"),
	phrase(CategoryHype, `(?i)\blambo\b`, 0.5, "Slang/off-brand"),
	phrase(CategoryHype, `(?i)\brekt\b`, 0.5, "Slang/informal"),
	phrase(CategoryHype, `(?i)\bhodl\b`, 0.3, "Crypto slang"),
	phrase(CategoryHype, `(?i)\bwagmi\b`, 0.4, "Crypto slang"),
	phrase(CategoryHype, `(?i)\bngmi\b`, 0.4, "Crypto slang"),
	phrase(CategoryHype, `(?i)\blfg\b`, 0.4, "Informal acronym"),
	phrase(CategoryHype, `(?i)\bfomo\b`, 0.3, "Crypto acronym"),
	phrase(CategoryHype, `(?i)\bfud\b`, 0.3, "Crypto acronym"),

	phrase(CategoryUnrealistic, `(?i)\b\d+x\s+gains?\b`, 1.2, "Unrealistic promise"),
	phrase(CategoryUnrealistic, `(?i)\b(?:100|1000)x\b`, 1.5, "Unrealistic multiplier"),
	phrase(CategoryUnrealistic, `(?i)\bmake you rich\b`, 1.5, "Financial advice"),
	phrase(CategoryUnrealistic, `(?i)\bguaranteed\s+(?:profit|gains?|returns?)\b`, 1.8, "False guarantee"),
	phrase(CategoryUnrealistic, `(?i)\beasy money\b`, 1.0, "Misleading claim"),
	phrase(CategoryUnrealistic, `(?i)\bget rich quick\b`, 1.5, "Unrealistic promise"),

	phrase(CategoryFormatting, `!{3,}`, 0.3, "Excessive punctuation"),
	phrase(CategoryFormatting, `\?{2,}`, 0.2, "Excessive punctuation"),
	phrase(CategoryFormatting, `\b[A-Z]{5,}\b`, 0.4, "Excessive caps"),
	phrase(CategoryFormatting, `(?:🚀){2,}`, 0.3, "Excessive emoji"),

	phrase(CategoryInappropriate, `(?i)\bsh[i1]t(?:coin)?\b`, 1.0, "Profanity"),
	phrase(CategoryInappropriate, `(?i)\bcrap\b`, 0.8, "Inappropriate"),
	phrase(CategoryInappropriate, `(?i)\btrash\b`, 0.6, "Harsh language"),
	phrase(CategoryInappropriate, `(?i)\bg[a@]rbage\b`, 0.6, "Harsh language"),
	phrase(CategoryInappropriate, `(?i)\bscam\b`, 0.8, "Accusatory language"),

	phrase(CategoryClickbait, `(?i)\byou won't believe\b`, 0.8, "Clickbait"),
	phrase(CategoryClickbait, `(?i)\bshocking\s+(?:truth|news|revelation)\b`, 0.8, "Clickbait"),
	phrase(CategoryClickbait, `(?i)\bsecret\s+(?:revealed|exposed)\b`, 0.7, "Clickbait"),
	phrase(CategoryClickbait, `(?i)\bwhat\s+they\s+don't\s+want\s+you\s+to\s+know\b`, 0.9, "Clickbait"),
	phrase(CategoryClickbait, `(?i)\binsane\s+(?:profits?|gains?)\b`, 0.8, "Clickbait"),
	phrase(CategoryClickbait, `(?i)\bmind[- ]?blow(?:ing|n)\b`, 0.6, "Clickbait"),
}

var (
	contextExceptions = []string{"moonbeam", "moonriver", "lunar", "eclipse", "solana"}

	innocentContexts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:cooking|eating|food|lunch|dinner|recipe|chef)\b`),
		regexp.MustCompile(`(?i)\b(?:gaming|game|casino|spin|poker|betting)\b`),
	}

	valueIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$\d+(?:m|million|b|billion)\b`),
		regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
		regexp.MustCompile(`(?i)\b(?:partnership|funding|acquisition)\b`),
		regexp.MustCompile(`(?i)\b(?:upgrade|launch|release)\b`),
		regexp.MustCompile(`https?://\S+`),
	}
)

type Violation struct {
	Term     string      `json:"term"`
	Category BanCategory `json:"category"`
	Weight   float64     `json:"weight"`
	Note     string      `json:"note"`
}

type BannedResult struct {
	BannedTerms       []string    `json:"banned_terms"`
	Violations        []Violation `json:"violations"`
	RawWeight         float64     `json:"raw_weight"`
	TotalWeight       float64     `json:"total_weight"`
	TonePenalty       float64     `json:"tone_penalty"`
	Sarcastic         bool        `json:"sarcasm_adjusted"`
	ChronicViolator   bool        `json:"chronic_violator"`
	Escalate          bool        `json:"escalate"`
	EscalationReasons []string    `json:"escalation_reasons,omitempty"`
	RiskAssessment    string      `json:"risk_assessment"`
	AgentScore        float64     `json:"agent_score"`
}

// Banned applies editorial tone penalties for terms from a weighted taxonomy.
// It never removes content; it only lowers the tone score.
type Banned struct {
	logger *zap.Logger
}

var _ domain.Invoker = (*Banned)(nil)

func NewBanned(logger *zap.Logger) *Banned {
	return &Banned{logger: logger}
}

func (b *Banned) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	if inv.Item == nil {
		return "", domain.ErrItemTextEmpty
	}
	text := inv.Item.Text
	p := clamp01(SarcasmCueScore(text)*0.5 + AuthorSarcasmPrior(inv.Priors)*0.2)
	return encode(b.Analyze(text, p > 0.5, inv.Priors.Fields(domain.NamespaceBanTerms)))
}

// Analyze scores text against the taxonomy. history is the author's
// ban_term_stats record and may be empty.
func (b *Banned) Analyze(text string, sarcastic bool, history domain.Record) BannedResult {
	violations, raw := detectBanned(text)
	for _, v := range violations {
		b.logger.Debug("banned term detected",
			zap.String("term", v.Term), zap.String("category", string(v.Category)))
	}

	adjusted := adjustBannedWeight(raw, text, sarcastic)
	tone := round(math.Min(1, adjusted/MaxBannedWeight), 2)

	res := BannedResult{
		BannedTerms:     make([]string, 0, len(violations)),
		Violations:      violations,
		RawWeight:       round(raw, 2),
		TotalWeight:     round(adjusted, 2),
		TonePenalty:     tone,
		Sarcastic:       sarcastic,
		ChronicViolator: ChronicViolator(history),
		AgentScore:      round(math.Max(1, 10-8*tone), 2),
	}
	if res.Violations == nil {
		res.Violations = []Violation{}
	}
	for _, v := range violations {
		res.BannedTerms = append(res.BannedTerms, fmt.Sprintf("%s (%s)", v.Term, strings.ToLower(v.Note)))
	}

	if tone > 0.8 {
		res.EscalationReasons = append(res.EscalationReasons, "tone penalty above 0.8")
	}
	for _, v := range violations {
		if v.Category == CategoryInappropriate {
			res.EscalationReasons = append(res.EscalationReasons, "inappropriate language")
			break
		}
	}
	if res.ChronicViolator && tone > 0.5 {
		res.EscalationReasons = append(res.EscalationReasons, "chronic violator with a severe new violation")
	}
	res.Escalate = len(res.EscalationReasons) > 0

	switch {
	case tone >= 0.7:
		res.RiskAssessment = "High"
	case tone >= 0.3:
		res.RiskAssessment = "Medium"
	default:
		res.RiskAssessment = "Low"
	}
	return res
}

// ChronicViolator reports whether an author's history shows an average
// adjusted weight above 1 over at least ChronicMinCount items.
func ChronicViolator(history domain.Record) bool {
	return history.FloatOr("count", 0) >= ChronicMinCount && history.FloatOr("avg_weight", 0) > 1
}

func detectBanned(text string) ([]Violation, float64) {
	lower := strings.ToLower(text)
	innocent := false
	for _, re := range innocentContexts {
		if re.MatchString(text) {
			innocent = true
			break
		}
	}

	var out []Violation
	var total float64
	for _, p := range bannedTaxonomy {
		matches := p.re.FindAllString(text, -1)
		if len(matches) == 0 || innocent || excepted(lower, matches) {
			continue
		}
		for _, m := range matches {
			out = append(out, Violation{
				Term:     strings.ToLower(m),
				Category: p.category,
				Weight:   round(p.weight, 3),
				Note:     p.note,
			})
			total += p.weight
		}
	}
	return out, total
}

// excepted reports whether a match is really part of a known project name.
func excepted(lower string, matches []string) bool {
	for _, ex := range contextExceptions {
		if !strings.Contains(lower, ex) {
			continue
		}
		for _, m := range matches {
			m = strings.ToLower(m)
			if strings.Contains(ex, m) || strings.Contains(m, ex) {
				return true
			}
		}
	}
	return false
}

func adjustBannedWeight(weight float64, text string, sarcastic bool) float64 {
	if sarcastic {
		weight *= 0.6
	}
	hits := 0
	for _, re := range valueIndicators {
		if re.MatchString(text) {
			hits++
		}
	}
	if hits > 0 {
		weight *= 1 - math.Min(0.3, float64(hits)*0.1)
	}
	if strings.ContainsAny(text, `"'`) {
		weight *= 0.8
	}
	return math.Max(0, weight)
}
