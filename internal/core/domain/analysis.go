package domain

// Track is the civil procedure allocation tier of a claim.
type Track string

const (
	TrackSmallClaims Track = "small_claims"
	TrackFastTrack   Track = "fast_track"
	TrackMultiTrack  Track = "multi_track"
)

const (
	SmallClaimsLimit = 10000
	FastTrackLimit   = 25000
)

func (t Track) Valid() bool {
	switch t {
	case TrackSmallClaims, TrackFastTrack, TrackMultiTrack:
		return true
	default:
		return false
	}
}

// Label is the human-readable track name used in reports and chat replies.
func (t Track) Label() string {
	switch t {
	case TrackSmallClaims:
		return "Small Claims Track (up to £10,000)"
	case TrackFastTrack:
		return "Fast Track (£10,000-£25,000)"
	case TrackMultiTrack:
		return "Multi-Track (£25,000+)"
	default:
		return string(t)
	}
}

// TrackForClaimValue allocates a track from a claim value in pounds.
func TrackForClaimValue(value int) Track {
	switch {
	case value <= SmallClaimsLimit:
		return TrackSmallClaims
	case value <= FastTrackLimit:
		return TrackFastTrack
	default:
		return TrackMultiTrack
	}
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

func (s Strength) Valid() bool {
	switch s {
	case StrengthWeak, StrengthModerate, StrengthStrong:
		return true
	default:
		return false
	}
}

type ClaimantArgument struct {
	Argument   string   `json:"argument"`
	LegalBasis string   `json:"legal_basis"`
	Strength   Strength `json:"strength"`
}

type DefencePoint struct {
	DefenceStrategy  string   `json:"defence_strategy"`
	LegalBasis       string   `json:"legal_basis"`
	EvidenceRequired string   `json:"evidence_required"`
	Strength         Strength `json:"strength"`
	Track            string   `json:"track"`
}

// AnalysisResult is the structured defence analysis of one uploaded document.
// Every field is populated once it leaves the analysis pipeline.
type AnalysisResult struct {
	DocumentSummary          string             `json:"document_summary"`
	ClaimValueEstimate       int                `json:"claim_value_estimate"`
	TrackAssessment          Track              `json:"track_assessment"`
	LegalCategories          []string           `json:"legal_categories"`
	ClaimantArguments        []ClaimantArgument `json:"claimant_arguments"`
	DefencePoints            []DefencePoint     `json:"defence_points"`
	ProceduralConsiderations []string           `json:"procedural_considerations"`
	EvidenceStrategy         []string           `json:"evidence_strategy"`
	SettlementConsiderations string             `json:"settlement_considerations"`
	CostsConsiderations      string             `json:"costs_considerations"`
	UrgencyLevel             Urgency            `json:"urgency_level"`
}

// Field names of AnalysisResult, in schema order.
const (
	FieldDocumentSummary          = "document_summary"
	FieldClaimValueEstimate       = "claim_value_estimate"
	FieldTrackAssessment          = "track_assessment"
	FieldLegalCategories          = "legal_categories"
	FieldClaimantArguments        = "claimant_arguments"
	FieldDefencePoints            = "defence_points"
	FieldProceduralConsiderations = "procedural_considerations"
	FieldEvidenceStrategy         = "evidence_strategy"
	FieldSettlementConsiderations = "settlement_considerations"
	FieldCostsConsiderations      = "costs_considerations"
	FieldUrgencyLevel             = "urgency_level"
)

var RequiredAnalysisFields = []string{
	FieldDocumentSummary,
	FieldClaimValueEstimate,
	FieldTrackAssessment,
	FieldLegalCategories,
	FieldClaimantArguments,
	FieldDefencePoints,
	FieldProceduralConsiderations,
	FieldEvidenceStrategy,
	FieldSettlementConsiderations,
	FieldCostsConsiderations,
	FieldUrgencyLevel,
}

// PrimaryCategory is the first legal category, or fallback when there is none.
func (r AnalysisResult) PrimaryCategory(fallback string) string {
	for _, c := range r.LegalCategories {
		if c != "" {
			return c
		}
	}
	return fallback
}
