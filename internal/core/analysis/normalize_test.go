package analysis

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

func validResult() domain.AnalysisResult {
	return domain.AnalysisResult{
		DocumentSummary:    "Claim for unpaid invoices under a supply contract",
		ClaimValueEstimate: 18250,
		TrackAssessment:    domain.TrackFastTrack,
		LegalCategories:    []string{"contract", "debt"},
		ClaimantArguments: []domain.ClaimantArgument{
			{Argument: "Goods were delivered", LegalBasis: "Sale of Goods Act 1979", Strength: domain.StrengthStrong},
		},
		DefencePoints: []domain.DefencePoint{
			{
				DefenceStrategy:  "Goods were defective",
				LegalBasis:       "Consumer Rights Act 2015 s.9",
				EvidenceRequired: "Inspection report",
				Strength:         domain.StrengthModerate,
				Track:            "fast_track",
			},
		},
		ProceduralConsiderations: []string{"File defence within 14 days of service"},
		EvidenceStrategy:         []string{"Obtain delivery notes"},
		SettlementConsiderations: "Reasonable prospects of partial settlement",
		CostsConsiderations:      "Fixed recoverable costs apply",
		UrgencyLevel:             domain.UrgencyLow,
	}
}

func TestFillMissingAddsEveryRequiredField(t *testing.T) {
	filled := FillMissing(map[string]any{
		domain.FieldDocumentSummary: "present",
		domain.FieldUrgencyLevel:    nil,
	})

	for _, field := range domain.RequiredAnalysisFields {
		if v, ok := filled[field]; !ok || v == nil {
			t.Fatalf("field %q missing after FillMissing", field)
		}
	}
	if filled[domain.FieldDocumentSummary] != "present" {
		t.Fatalf("present field overwritten: %v", filled[domain.FieldDocumentSummary])
	}
	if filled[domain.FieldUrgencyLevel] != "medium" {
		t.Fatalf("expected null urgency to default to medium, got %v", filled[domain.FieldUrgencyLevel])
	}
}

func TestFillMissingDoesNotModifyInput(t *testing.T) {
	raw := map[string]any{"extra": 1}
	_ = FillMissing(raw)
	if len(raw) != 1 {
		t.Fatalf("input map modified: %v", raw)
	}
}

func TestNormalizeEmptyMappingUsesDefaults(t *testing.T) {
	result := Normalize(map[string]any{})

	if result.DocumentSummary != DefaultSummary {
		t.Fatalf("unexpected summary: %q", result.DocumentSummary)
	}
	if result.ClaimValueEstimate != 0 || result.TrackAssessment != domain.TrackSmallClaims {
		t.Fatalf("unexpected claim/track: %d %s", result.ClaimValueEstimate, result.TrackAssessment)
	}
	if !reflect.DeepEqual(result.LegalCategories, []string{"contract"}) {
		t.Fatalf("unexpected categories: %v", result.LegalCategories)
	}
	if result.ClaimantArguments == nil || len(result.ClaimantArguments) != 0 {
		t.Fatalf("expected empty non-nil arguments, got %#v", result.ClaimantArguments)
	}
	if result.DefencePoints == nil || len(result.DefencePoints) != 0 {
		t.Fatalf("expected empty non-nil defence points, got %#v", result.DefencePoints)
	}
	if len(result.ProceduralConsiderations) != 1 || len(result.EvidenceStrategy) != 1 {
		t.Fatalf("expected placeholder bullets, got %v / %v", result.ProceduralConsiderations, result.EvidenceStrategy)
	}
	if result.SettlementConsiderations != DefaultSettlementConsiderations || result.CostsConsiderations != DefaultCostsConsiderations {
		t.Fatalf("unexpected settlement/costs: %q / %q", result.SettlementConsiderations, result.CostsConsiderations)
	}
	if result.UrgencyLevel != domain.UrgencyMedium {
		t.Fatalf("unexpected urgency: %s", result.UrgencyLevel)
	}
	if err := CheckConformance(result); err != nil {
		t.Fatalf("defaults do not conform: %v", err)
	}
}

func TestNormalizeEverySingleMissingFieldConforms(t *testing.T) {
	full := ToMap(validResult())
	for _, field := range domain.RequiredAnalysisFields {
		raw := make(map[string]any, len(full))
		for k, v := range full {
			if k != field {
				raw[k] = v
			}
		}
		if err := CheckConformance(Normalize(raw)); err != nil {
			t.Fatalf("missing %q: %v", field, err)
		}
	}
}

func TestParseClaimValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int
	}{
		{name: "thousands separator", in: "£12,500 approx", want: 12500},
		{name: "plain digits string", in: "5000", want: 5000},
		{name: "no digits", in: "unclear", want: 0},
		{name: "empty string", in: "", want: 0},
		{name: "first run wins", in: "between 3000 and 4000", want: 3000},
		{name: "comma not between digits", in: "claims 7, 8 and 9", want: 7},
		{name: "float truncated", in: 9999.99, want: 9999},
		{name: "zero", in: 0.0, want: 0},
		{name: "negative", in: -250.0, want: 0},
		{name: "nan", in: math.NaN(), want: 0},
		{name: "inf", in: math.Inf(1), want: 0},
		{name: "int", in: 42, want: 42},
		{name: "json number", in: json.Number("30000"), want: 30000},
		{name: "bool", in: true, want: 0},
		{name: "nil", in: nil, want: 0},
		{name: "list", in: []any{"100"}, want: 0},
		{name: "huge digit run", in: strings.Repeat("9", 40), want: 0},
	}

	for _, tc := range cases {
		if got := ParseClaimValue(tc.in); got != tc.want {
			t.Fatalf("%s: ParseClaimValue(%v)=%d want %d", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestRepairRecomputesInvalidTrack(t *testing.T) {
	cases := []struct {
		value int
		want  domain.Track
	}{
		{0, domain.TrackSmallClaims},
		{10000, domain.TrackSmallClaims},
		{10001, domain.TrackFastTrack},
		{25000, domain.TrackFastTrack},
		{25001, domain.TrackMultiTrack},
		{99000, domain.TrackMultiTrack},
	}
	for _, tc := range cases {
		for _, track := range []any{"unknown", "", nil, 3.0, "Small Claims"} {
			repaired := Repair(map[string]any{
				domain.FieldClaimValueEstimate: float64(tc.value),
				domain.FieldTrackAssessment:    track,
			})
			if got := repaired[domain.FieldTrackAssessment]; got != string(tc.want) {
				t.Fatalf("value %d track %v: got %v want %s", tc.value, track, got, tc.want)
			}
		}
	}
}

func TestRepairTrustsRecognisedTrack(t *testing.T) {
	repaired := Repair(map[string]any{
		domain.FieldClaimValueEstimate: 50000.0,
		domain.FieldTrackAssessment:    "small_claims",
	})
	if repaired[domain.FieldTrackAssessment] != "small_claims" {
		t.Fatalf("recognised track overwritten: %v", repaired[domain.FieldTrackAssessment])
	}
	if repaired[domain.FieldClaimValueEstimate] != 50000 {
		t.Fatalf("claim value not coerced to int: %#v", repaired[domain.FieldClaimValueEstimate])
	}
}

func TestNormalizeMissingTrackTakesFixedDefault(t *testing.T) {
	for name, raw := range map[string]map[string]any{
		"absent": {domain.FieldClaimValueEstimate: 50000},
		"null":   {domain.FieldClaimValueEstimate: "£40,000", domain.FieldTrackAssessment: nil},
	} {
		result := Normalize(raw)
		if result.TrackAssessment != domain.TrackSmallClaims {
			t.Fatalf("%s: expected small_claims default regardless of claim value, got %s", name, result.TrackAssessment)
		}
	}
}

func TestNormalizeInvalidTrackDerivedFromClaimValue(t *testing.T) {
	result := Normalize(map[string]any{
		domain.FieldClaimValueEstimate: "£40,000",
		domain.FieldTrackAssessment:    "county_court",
	})
	if result.ClaimValueEstimate != 40000 || result.TrackAssessment != domain.TrackMultiTrack {
		t.Fatalf("unexpected claim/track: %d %s", result.ClaimValueEstimate, result.TrackAssessment)
	}
}

func TestNormalizeLenientShapes(t *testing.T) {
	result := Normalize(map[string]any{
		domain.FieldLegalCategories:          "tort",
		domain.FieldProceduralConsiderations: []any{"Check limitation", "", 14.0},
		domain.FieldUrgencyLevel:             " HIGH ",
		domain.FieldClaimantArguments: []any{
			map[string]any{"argument": "Negligent advice", "legal_basis": "Caparo", "strength": "overwhelming"},
			"Duty of care owed",
			42.0,
		},
		domain.FieldDefencePoints: map[string]any{
			"defence_strategy": "Claim is time-barred",
			"legal_basis":      "Limitation Act 1980 s.5",
		},
	})

	if !reflect.DeepEqual(result.LegalCategories, []string{"tort"}) {
		t.Fatalf("lone string not wrapped: %v", result.LegalCategories)
	}
	if !reflect.DeepEqual(result.ProceduralConsiderations, []string{"Check limitation", "14"}) {
		t.Fatalf("unexpected procedural list: %v", result.ProceduralConsiderations)
	}
	if result.UrgencyLevel != domain.UrgencyHigh {
		t.Fatalf("urgency not normalized: %q", result.UrgencyLevel)
	}
	if len(result.ClaimantArguments) != 2 {
		t.Fatalf("expected 2 arguments, got %#v", result.ClaimantArguments)
	}
	if result.ClaimantArguments[0].Strength != domain.StrengthModerate {
		t.Fatalf("invalid strength not repaired: %q", result.ClaimantArguments[0].Strength)
	}
	if result.ClaimantArguments[1].Argument != "Duty of care owed" {
		t.Fatalf("string argument not kept: %#v", result.ClaimantArguments[1])
	}
	if len(result.DefencePoints) != 1 || result.DefencePoints[0].Track != DefaultDefenceTrack || result.DefencePoints[0].Strength != domain.StrengthModerate {
		t.Fatalf("unexpected defence points: %#v", result.DefencePoints)
	}
	if err := CheckConformance(result); err != nil {
		t.Fatalf("lenient result does not conform: %v", err)
	}
}

func TestNormalizeIsIdempotentOnValidResult(t *testing.T) {
	want := validResult()
	once := Normalize(ToMap(want))
	if !reflect.DeepEqual(once, want) {
		t.Fatalf("valid result drifted:\n got %#v\nwant %#v", once, want)
	}
	twice := Normalize(ToMap(once))
	if !reflect.DeepEqual(twice, once) {
		t.Fatalf("second pass drifted:\n got %#v\nwant %#v", twice, once)
	}
}

func TestNormalizeIsIdempotentAfterRepair(t *testing.T) {
	first := Normalize(map[string]any{
		domain.FieldClaimValueEstimate: "about £30,000",
		domain.FieldTrackAssessment:    "county_court",
		domain.FieldUrgencyLevel:       "Urgent",
	})
	second := Normalize(ToMap(first))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization drifted:\n got %#v\nwant %#v", second, first)
	}
}

func TestCheckConformanceRejectsInvalidTrack(t *testing.T) {
	result := validResult()
	result.TrackAssessment = "county_court"
	if err := CheckConformance(result); err == nil {
		t.Fatalf("expected schema violation")
	}
}
