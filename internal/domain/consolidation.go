package domain

type AdjustmentKind string

const (
	AdjustmentBoost   AdjustmentKind = "boost"
	AdjustmentPenalty AdjustmentKind = "penalty"
)

type ScoreAdjustment struct {
	SourceAgent string         `json:"source_agent"`
	Kind        AdjustmentKind `json:"kind"`
	Magnitude   float64        `json:"magnitude"`
	Rationale   string         `json:"rationale"`
	Confidence  float64        `json:"confidence"`
}

// Signed returns the magnitude with the sign implied by Kind.
func (a ScoreAdjustment) Signed() float64 {
	if a.Kind == AdjustmentPenalty {
		return -a.Magnitude
	}
	return a.Magnitude
}

type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// Quality flags set by consolidation.
const (
	FlagLowContentQuality      = "low_content_quality"
	FlagEditorialViolations    = "editorial_violations"
	FlagViralContent           = "viral_content"
	FlagSarcasmProtected       = "sarcasm_protected"
	FlagSarcasticContent       = "sarcastic_content"
	FlagTemporalMisalignment   = "temporal_misalignment"
	FlagNoValidScores          = "no_valid_scores"
	FlagChronicLowQuality      = "chronic_low_quality_author"
	FlagChronicEditorialAuthor = "chronic_editorial_violator"
	FlagConsolidationError     = "consolidation_error"
)

type ConsolidationResult struct {
	BaseScore          float64           `json:"base_score"`
	Adjustments        []ScoreAdjustment `json:"adjustments"`
	FinalScore         float64           `json:"final_score"`
	QualityFlags       []string          `json:"quality_flags"`
	ConfidenceTier     ConfidenceTier    `json:"confidence_tier"`
	Rationale          string            `json:"rationale"`
	ContributingAgents int               `json:"contributing_agents"`
}

func (c *ConsolidationResult) HasFlag(flag string) bool {
	for _, f := range c.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// TotalAdjustment is the signed sum of all adjustments.
func (c *ConsolidationResult) TotalAdjustment() float64 {
	var total float64
	for _, a := range c.Adjustments {
		total += a.Signed()
	}
	return total
}

// FallbackConsolidation is returned when consolidation itself fails.
func FallbackConsolidation(reason string) *ConsolidationResult {
	return &ConsolidationResult{
		BaseScore:      NeutralScore,
		Adjustments:    []ScoreAdjustment{},
		FinalScore:     NeutralScore,
		QualityFlags:   []string{FlagConsolidationError},
		ConfidenceTier: ConfidenceLow,
		Rationale:      "Consolidation failed: " + reason,
	}
}
