package analysis

import "github.com/kirillkom/defence-assistant/internal/core/domain"

const FallbackSummary = "Claimant's skeleton argument uploaded for analysis"

// Fallback returns the conservative analysis used when the LLM cannot be
// reached or its reply cannot be parsed. The document text is accepted but
// does not influence the content.
func Fallback(_ string) domain.AnalysisResult {
	return domain.AnalysisResult{
		DocumentSummary:    FallbackSummary,
		ClaimValueEstimate: 0,
		TrackAssessment:    domain.TrackSmallClaims,
		LegalCategories:    []string{"contract"},
		ClaimantArguments: []domain.ClaimantArgument{
			{
				Argument:   "Analysis could not be completed automatically",
				LegalBasis: "Manual review required",
				Strength:   domain.StrengthModerate,
			},
		},
		DefencePoints: []domain.DefencePoint{
			{
				DefenceStrategy:  "Comprehensive document review required - please consult with a solicitor for detailed analysis",
				LegalBasis:       "General civil procedure rules",
				EvidenceRequired: "All relevant case documents and evidence",
				Strength:         domain.StrengthModerate,
				Track:            DefaultDefenceTrack,
			},
		},
		ProceduralConsiderations: []string{
			"Review all deadlines and filing requirements",
			"Consider whether additional time is needed for defence preparation",
		},
		EvidenceStrategy: []string{
			"Compile all relevant documents",
			"Identify potential witnesses",
			"Consider expert evidence requirements",
		},
		SettlementConsiderations: "Manual review required to assess settlement prospects",
		CostsConsiderations:      "Consider costs implications and seek legal advice",
		UrgencyLevel:             domain.UrgencyHigh,
	}
}
