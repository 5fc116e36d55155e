package signal

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/parser"
	"go.uber.org/zap"
)

// DefaultSarcasmPrior is used for authors without a sarcasm history.
const DefaultSarcasmPrior = 0.1

var sarcasmCues = []*regexp.Regexp{
	regexp.MustCompile(`🙄`),
	regexp.MustCompile(`😏`),
	regexp.MustCompile(`😜`),
	regexp.MustCompile(`🤡`),
	regexp.MustCompile(`(?i)/s$`),
	regexp.MustCompile(`(?i)\byeah,?\s+right\b`),
	regexp.MustCompile(`(?i)\bsure,?\s+\w+`),
	regexp.MustCompile(`(?i)\btotally\b.*\b(not|never)\b`),
	regexp.MustCompile(`(?i)\bgreat\b.*🙄`),
	regexp.MustCompile(`(?i)\bwhat\s+could\s+(possibly\s+)?go\s+wrong`),
	regexp.MustCompile(`(?i)\bjust\s+what\s+we\s+needed`),
	regexp.MustCompile(`(?i)\boh\s+wonderful\b`),
}

var repeatedBang = regexp.MustCompile(`!{2,}`)

// SarcasmCueScore scores linguistic sarcasm cues on 0-1 with diminishing returns.
func SarcasmCueScore(text string) float64 {
	var cues float64
	for _, re := range sarcasmCues {
		if re.MatchString(text) {
			cues++
		}
	}
	lower := strings.ToLower(text)
	if strings.Contains(text, "...") && containsAny(lower, "great", "perfect", "wonderful") {
		cues++
	}
	if repeatedBang.MatchString(text) && containsAny(lower, "amazing", "fantastic", "brilliant") {
		cues += 0.5
	}
	return clamp01(cues * 0.3)
}

// AuthorSarcasmPrior is the author's historical sarcasm rate.
func AuthorSarcasmPrior(priors domain.Priors) float64 {
	rec, ok := priors[domain.NamespaceSarcasm]
	if !ok || !rec.Exists() {
		return DefaultSarcasmPrior
	}
	return clamp01(rec.Fields.FloatOr("sarcasm_rate", DefaultSarcasmPrior))
}

type SarcasmResult struct {
	IsSarcastic bool    `json:"is_sarcastic"`
	PSarcasm    float64 `json:"p_sarcasm"`
	CueScore    float64 `json:"cue_score"`
	AuthorPrior float64 `json:"author_prior"`
	Reason      string  `json:"reason"`
	AgentScore  float64 `json:"agent_score"`
}

// Sarcasm flags sarcastic or tone-inverted posts so literal-minded agents'
// penalties can be offset during consolidation.
type Sarcasm struct {
	llm    domain.LLMClient
	logger *zap.Logger
}

var _ domain.Invoker = (*Sarcasm)(nil)

// NewSarcasm builds the agent. llm is optional and only consulted for
// ambiguous cases.
func NewSarcasm(llm domain.LLMClient, logger *zap.Logger) *Sarcasm {
	return &Sarcasm{llm: llm, logger: logger}
}

func (s *Sarcasm) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	if inv.Item == nil {
		return "", domain.ErrItemTextEmpty
	}
	return encode(s.Analyze(ctx, inv.Item.Text, strings.Join(inv.Item.ThreadContext, "\n"), AuthorSarcasmPrior(inv.Priors)))
}

func (s *Sarcasm) Analyze(ctx context.Context, text, thread string, prior float64) SarcasmResult {
	cue := SarcasmCueScore(text)
	// no local classifier: the model component contributes 0
	const model = 0.0
	p := clamp01(cue*0.5 + model*0.3 + prior*0.2)
	reason := sarcasmReason(cue, model, prior)

	if p >= 0.4 && p <= 0.6 && s.llm != nil {
		if rec, ok := s.askModel(ctx, text, thread); ok {
			p = clamp01(rec.FloatOr("p_sarcasm", p))
			if r := rec.String("reason"); r != "" {
				reason = r
			}
		}
	}

	res := SarcasmResult{
		IsSarcastic: p > 0.5,
		PSarcasm:    round(p, 3),
		CueScore:    round(cue, 3),
		AuthorPrior: prior,
		Reason:      reason,
		AgentScore:  7,
	}
	if res.IsSarcastic {
		res.AgentScore = 8
	}
	return res
}

func (s *Sarcasm) askModel(ctx context.Context, text, thread string) (domain.Record, bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the tone of the following post and determine if it's sarcastic:\n\nPost: %q\n", text)
	if thread != "" {
		fmt.Fprintf(&sb, "Context: %s\n", thread)
	}
	sb.WriteString("\nConsider irony or opposite meaning from the literal text, a mocking or humorous tone, punctuation and emojis that signal sarcasm, and context clues.\n\n")
	sb.WriteString("Answer in JSON with keys is_sarcastic (true/false), p_sarcasm (0.0 to 1.0) and reason (brief explanation). If unsure, lean towards not sarcastic.")

	raw, err := s.llm.Complete(ctx, "", sb.String())
	if err != nil {
		s.logger.Warn("sarcasm model check failed", zap.Error(err))
		return nil, false
	}
	rec := parser.Parse(raw, "sarcasm_sentinel")
	if rec.Degraded() {
		return nil, false
	}
	return rec, true
}

func sarcasmReason(cue, model, prior float64) string {
	var reasons []string
	if cue > 0.3 {
		reasons = append(reasons, "Contains sarcasm indicators (emojis, phrases)")
	}
	if model > 0.5 {
		reasons = append(reasons, "Model detected sarcastic tone")
	}
	if prior > 0.3 {
		reasons = append(reasons, "Author frequently uses sarcasm")
	}
	if len(reasons) == 0 {
		return "No clear sarcasm indicators detected"
	}
	return strings.Join(reasons, "; ")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
