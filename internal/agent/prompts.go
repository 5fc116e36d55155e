package agent

import (
	"fmt"
	"strings"
)

// SystemPrompt is sent with every prompt agent request.
const SystemPrompt = "You are a specialized AI agent for social media content analysis. Always respond with valid JSON format as specified in the prompt."

type prompt struct {
	role     string
	task     string
	checks   []string
	focus    string
	response string
}

var prompts = map[string]prompt{
	"summary_agent": {
		role: "Summary Agent specialized in generating comprehensive titles and abstracts for social media content",
		task: "Generate an extensive summary analysis including",
		checks: []string{
			"A compelling, descriptive title that captures the content essence",
			"A detailed abstract (100-150 words) summarizing key points",
			"Key themes and topics identified",
			"Content categorization (announcement, analysis, news, etc.)",
			"Relevance assessment",
			"Quality score (1-10)",
		},
		focus:    "Focus on identifying main topics, themes, and providing clear, engaging summaries.",
		response: `{"title": "...", "abstract": "...", "key_themes": ["..."], "content_category": "...", "relevance_assessment": "...", "quality_indicators": {"clarity": 8, "focus": 9, "accuracy": 7}, "agent_score": 8.5, "detailed_reasoning": "..."}`,
	},
	"input_preprocessor": {
		role: "Input Preprocessor Agent specialized in data cleansing and normalization for social media content",
		task: "Perform comprehensive input preprocessing including",
		checks: []string{
			"Text normalization and terminology cleaning",
			"Data quality evaluation",
			"Inconsistency detection",
			"Missing information identification",
			"Preprocessing recommendations",
			"Data quality score (1-10)",
		},
		focus:    "Focus on improving text quality, identifying issues, and standardizing content.",
		response: `{"normalized_text": "...", "data_quality_assessment": "...", "issues_identified": ["..."], "missing_information": ["..."], "preprocessing_applied": ["..."], "quality_metrics": {"completeness": 8, "accuracy": 9, "consistency": 7}, "agent_score": 8.2, "detailed_reasoning": "..."}`,
	},
	"context_evaluator": {
		role: "Context Evaluator Agent specialized in comprehensive quality assessment for social media content",
		task: "Evaluate content context and overall quality across multiple dimensions",
		checks: []string{
			"Content context richness and depth",
			"Information completeness for analysis",
			"Source credibility",
			"Temporal relevance",
			"Overall quality assessment",
			"Context quality score (1-10)",
		},
		focus:    "Consider content depth, source reliability, and contextual information availability.",
		response: `{"context_richness": "...", "information_completeness": "...", "source_credibility": "...", "temporal_relevance": "...", "quality_dimensions": {"depth": 8, "accuracy": 9, "relevance": 7, "clarity": 8}, "strengths": ["..."], "weaknesses": ["..."], "agent_score": 8.3, "detailed_reasoning": "..."}`,
	},
	"fact_checker": {
		role: "Fact Checker Agent specialized in verifying accuracy and factual claims in social media content",
		task: "Perform comprehensive fact-checking including",
		checks: []string{
			"Factual claim identification and verification",
			"Information accuracy assessment",
			"Source verification and credibility check",
			"Misinformation detection",
			"Confidence level in factual accuracy",
			"Fact-checking score (1-10)",
		},
		focus:    "Focus on identifying verifiable claims and assessing their accuracy.",
		response: `{"factual_claims": ["..."], "accuracy_assessment": "...", "verification_status": "...", "credibility_indicators": ["..."], "misinformation_risk": "...", "confidence_level": "...", "accuracy_metrics": {"verifiability": 8, "consistency": 9, "reliability": 7}, "agent_score": 8.4, "detailed_reasoning": "..."}`,
	},
	"depth_analyzer": {
		role: "Depth Analyzer Agent specialized in evaluating content complexity and analytical depth",
		task: "Analyze content depth and complexity including",
		checks: []string{
			"Content complexity assessment",
			"Analytical depth evaluation",
			"Technical detail level analysis",
			"Insight quality assessment",
			"Intellectual value evaluation",
			"Depth analysis score (1-10)",
		},
		focus:    "Focus on evaluating how thoroughly topics are explored and analyzed.",
		response: `{"complexity_assessment": "...", "analytical_depth": "...", "technical_detail_level": "...", "insight_quality": "...", "intellectual_value": "...", "depth_metrics": {"complexity": 8, "thoroughness": 9, "insights": 7, "value": 8}, "depth_indicators": ["..."], "agent_score": 8.1, "detailed_reasoning": "..."}`,
	},
	"relevance_analyzer": {
		role: "Relevance Analyzer Agent specialized in evaluating real-world importance and impact",
		task: "Assess relevance and real-world importance including",
		checks: []string{
			"Current relevance and timeliness",
			"Impact and significance assessment",
			"Audience relevance and target demographics",
			"Practical implications",
			"Long-term importance evaluation",
			"Relevance score (1-10)",
		},
		focus:    "Consider current trends, impact potential, and practical significance.",
		response: `{"current_relevance": "...", "impact_assessment": "...", "target_audience": "...", "practical_implications": "...", "long_term_importance": "...", "impact_categories": {"immediate": 8, "medium_term": 7, "long_term": 6}, "relevance_factors": ["..."], "agent_score": 7.8, "detailed_reasoning": "..."}`,
	},
	"structure_analyzer": {
		role: "Structure Analyzer Agent specialized in evaluating content organization and presentation quality",
		task: "Analyze content structure and presentation including",
		checks: []string{
			"Content organization assessment",
			"Logical flow evaluation",
			"Presentation clarity analysis",
			"Structural coherence evaluation",
			"Communication effectiveness assessment",
			"Structure quality score (1-10)",
		},
		focus:    "Focus on how well content is organized and presented to the audience.",
		response: `{"organization_assessment": "...", "logical_flow": "...", "presentation_clarity": "...", "structural_coherence": "...", "communication_effectiveness": "...", "structure_metrics": {"organization": 8, "flow": 9, "clarity": 7, "coherence": 8}, "structural_strengths": ["..."], "structural_weaknesses": ["..."], "agent_score": 8.0, "detailed_reasoning": "..."}`,
	},
	"reflective_agent": {
		role: "Reflective Agent specialized in meta-analysis and critical evaluation of content",
		task: "Perform reflective meta-analysis including",
		checks: []string{
			"Critical evaluation of content quality",
			"Bias identification and assessment",
			"Perspective analysis",
			"Assumption examination",
			"Alternative viewpoint consideration",
			"Reflection score (1-10)",
		},
		focus:    "Focus on critical thinking, bias detection, and comprehensive perspective analysis.",
		response: `{"critical_evaluation": "...", "bias_identification": "...", "perspective_analysis": "...", "assumption_examination": "...", "alternative_viewpoints": "...", "reflection_metrics": {"objectivity": 8, "balance": 7, "critical_thinking": 9, "depth": 8}, "identified_biases": ["..."], "alternative_perspectives": ["..."], "agent_score": 8.2, "detailed_reasoning": "..."}`,
	},
	"metadata_ranking_agent": {
		role: "Metadata Ranking Agent specialized in comprehensive user credibility and authority assessment",
		task: "Evaluate user credibility and authority including",
		checks: []string{
			"Account verification and legitimacy",
			"Follower quality and engagement patterns",
			"Historical posting behavior analysis",
			"Domain expertise indicators",
			"Influence and authority metrics",
			"Credibility ranking score (1-10)",
		},
		focus:    "Consider account reputation, engagement quality, and expertise indicators.",
		response: `{"verification_status": "...", "follower_analysis": "...", "engagement_patterns": "...", "expertise_indicators": "...", "authority_metrics": "...", "credibility_factors": {"verification": 9, "followers": 8, "engagement": 7, "expertise": 8}, "risk_indicators": ["..."], "trust_signals": ["..."], "agent_score": 8.6, "detailed_reasoning": "..."}`,
	},
	"consensus_agent": {
		role: "Consensus Agent specialized in evaluating agreement and consensus in social media content",
		task: "Assess consensus and agreement levels including",
		checks: []string{
			"Content consensus evaluation",
			"Community agreement assessment",
			"Controversial topic identification",
			"Opinion polarization analysis",
			"Consensus building potential",
			"Consensus score (1-10)",
		},
		focus:    "Focus on agreement levels, controversy detection, and consensus analysis.",
		response: `{"consensus_evaluation": "...", "community_agreement": "...", "controversial_elements": "...", "polarization_analysis": "...", "consensus_building": "...", "consensus_metrics": {"agreement": 8, "controversy": 3, "polarization": 4, "stability": 7}, "agreement_indicators": ["..."], "disagreement_points": ["..."], "agent_score": 7.5, "detailed_reasoning": "..."}`,
	},
	"score_consolidator": {
		role: "Score Consolidator Agent specialized in comprehensive score aggregation and final classification",
		task: "Consolidate all scores and provide final classification including",
		checks: []string{
			"Weighted aggregation of all agent scores",
			"Final classification category determination",
			"Confidence interval and uncertainty analysis",
			"Score reliability and consistency assessment",
			"Comprehensive scoring methodology",
			"Final consolidated score (1-10)",
		},
		focus:    "Consider all agent inputs and provide weighted consolidation with detailed methodology.",
		response: `{"score_aggregation": "...", "individual_scores": {"agent1": 8.2, "agent2": 7.8}, "weighted_average": "...", "classification_category": "...", "confidence_interval": "...", "score_consistency": "...", "aggregation_methodology": "...", "agent_score": 8.1, "detailed_reasoning": "..."}`,
	},
	"validator": {
		role: "Validator Agent specialized in final validation and quality assurance of analysis results",
		task: "Perform final validation including",
		checks: []string{
			"Analysis quality validation",
			"Consistency check across agents",
			"Completeness verification",
			"Error detection and reporting",
			"Final quality assurance",
			"Validation score (1-10)",
		},
		focus:    "Ensure all analysis meets quality standards and identify any issues.",
		response: `{"analysis_quality": "...", "consistency_check": "...", "completeness_verification": "...", "error_detection": "...", "quality_assurance": "...", "validation_metrics": {"quality": 9, "consistency": 8, "completeness": 9, "accuracy": 8}, "validation_passed": true, "identified_issues": ["..."], "recommendations": ["..."], "agent_score": 8.8, "detailed_reasoning": "..."}`,
	},
}

// HasPrompt reports whether name is a known prompt agent.
func HasPrompt(name string) bool {
	_, ok := prompts[name]
	return ok
}

// render builds the user message. responses is only included for dependent agents.
func (p prompt) render(input, responses string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s.\n\n", p.role)
	sb.WriteString("COMPREHENSIVE INPUT:\n")
	sb.WriteString(input)
	sb.WriteString("\n\n")
	if responses != "" {
		sb.WriteString("ALL AGENT RESPONSES:\n")
		sb.WriteString(responses)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "TASK: %s:\n", p.task)
	for i, c := range p.checks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	sb.WriteString("\n")
	sb.WriteString(p.focus)
	sb.WriteString("\n\nRESPONSE FORMAT (JSON):\n")
	sb.WriteString(p.response)
	sb.WriteString("\n")
	return sb.String()
}
