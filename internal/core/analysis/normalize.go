package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

const (
	DefaultSummary                  = "Document analysis could not be completed fully"
	DefaultSettlementConsiderations = "Consider settlement prospects based on strength of case"
	DefaultCostsConsiderations      = "Assess costs implications and Part 36 offer strategy"
	DefaultDefenceTrack             = "all_tracks"
)

var digitRun = regexp.MustCompile(`\d+`)

// defaultValue returns a fresh default for a missing required field. A
// missing track becomes small_claims, which Repair keeps as a recognised value.
func defaultValue(field string) any {
	switch field {
	case domain.FieldDocumentSummary:
		return DefaultSummary
	case domain.FieldClaimValueEstimate:
		return 0
	case domain.FieldTrackAssessment:
		return string(domain.TrackSmallClaims)
	case domain.FieldLegalCategories:
		return []any{"contract"}
	case domain.FieldClaimantArguments, domain.FieldDefencePoints:
		return []any{}
	case domain.FieldProceduralConsiderations:
		return []any{"Review all relevant deadlines and procedural requirements"}
	case domain.FieldEvidenceStrategy:
		return []any{"Gather all relevant documents and witness statements"}
	case domain.FieldSettlementConsiderations:
		return DefaultSettlementConsiderations
	case domain.FieldCostsConsiderations:
		return DefaultCostsConsiderations
	case domain.FieldUrgencyLevel:
		return string(domain.UrgencyMedium)
	default:
		return ""
	}
}

// FillMissing returns a copy of raw in which every absent or null required
// field holds its default. raw is not modified.
func FillMissing(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+len(domain.RequiredAnalysisFields))
	for k, v := range raw {
		out[k] = v
	}
	for _, field := range domain.RequiredAnalysisFields {
		if v, ok := out[field]; !ok || v == nil {
			out[field] = defaultValue(field)
		}
	}
	return out
}

// Repair coerces the claim value to a non-negative integer and recomputes the
// track when the stated one is not a recognised value. A recognised track is
// trusted even if it disagrees with the claim value. raw is not modified.
func Repair(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	claimValue := ParseClaimValue(out[domain.FieldClaimValueEstimate])
	out[domain.FieldClaimValueEstimate] = claimValue

	track, _ := out[domain.FieldTrackAssessment].(string)
	if !domain.Track(track).Valid() {
		out[domain.FieldTrackAssessment] = string(domain.TrackForClaimValue(claimValue))
	}
	return out
}

// Normalize turns a possibly malformed LLM reply into a fully populated
// AnalysisResult. It never fails; unusable values degrade to defaults.
func Normalize(raw map[string]any) domain.AnalysisResult {
	fields := Repair(FillMissing(raw))

	claimValue, _ := fields[domain.FieldClaimValueEstimate].(int)
	track, _ := fields[domain.FieldTrackAssessment].(string)

	return domain.AnalysisResult{
		DocumentSummary:          toText(fields[domain.FieldDocumentSummary]),
		ClaimValueEstimate:       claimValue,
		TrackAssessment:          domain.Track(track),
		LegalCategories:          toTextList(fields[domain.FieldLegalCategories]),
		ClaimantArguments:        toClaimantArguments(fields[domain.FieldClaimantArguments]),
		DefencePoints:            toDefencePoints(fields[domain.FieldDefencePoints]),
		ProceduralConsiderations: toTextList(fields[domain.FieldProceduralConsiderations]),
		EvidenceStrategy:         toTextList(fields[domain.FieldEvidenceStrategy]),
		SettlementConsiderations: toText(fields[domain.FieldSettlementConsiderations]),
		CostsConsiderations:      toText(fields[domain.FieldCostsConsiderations]),
		UrgencyLevel:             toUrgency(fields[domain.FieldUrgencyLevel]),
	}
}

// ToMap converts a result back into the loosely typed form the LLM returns.
func ToMap(result domain.AnalysisResult) map[string]any {
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// ParseClaimValue coerces a claim value to a non-negative integer number of
// pounds. Strings yield their first run of digits, ignoring thousands
// separators, so "£12,500 approx" is 12500. Anything unusable is 0.
func ParseClaimValue(v any) int {
	switch value := v.(type) {
	case string:
		match := digitRun.FindString(stripThousandsSeparators(value))
		if match == "" {
			return 0
		}
		n, err := strconv.ParseInt(match, 10, 64)
		if err != nil {
			return 0
		}
		return intToClaimValue(n)
	case float64:
		return floatToClaimValue(value)
	case float32:
		return floatToClaimValue(float64(value))
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return intToClaimValue(n)
		}
		f, err := value.Float64()
		if err != nil {
			return 0
		}
		return floatToClaimValue(f)
	case int:
		return intToClaimValue(int64(value))
	case int64:
		return intToClaimValue(value)
	case int32:
		return intToClaimValue(int64(value))
	default:
		return 0
	}
}

func stripThousandsSeparators(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && i > 0 && i+1 < len(s) && isDigit(s[i-1]) && isDigit(s[i+1]) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func floatToClaimValue(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f >= math.MaxInt32 {
		return 0
	}
	return int(f)
}

func intToClaimValue(n int64) int {
	if n <= 0 || n >= math.MaxInt32 {
		return 0
	}
	return int(n)
}

func toText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case json.Number:
		return value.String()
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s := toText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(raw)
	}
}

func toTextList(v any) []string {
	out := []string{}
	switch value := v.(type) {
	case nil:
	case []any:
		for _, item := range value {
			if s := toText(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range value {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := toText(value); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asObjects returns the entries of a list field, wrapping a lone value.
func asObjects(v any) []any {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return value
	default:
		return []any{value}
	}
}

func toClaimantArguments(v any) []domain.ClaimantArgument {
	out := []domain.ClaimantArgument{}
	for _, item := range asObjects(v) {
		switch entry := item.(type) {
		case map[string]any:
			out = append(out, domain.ClaimantArgument{
				Argument:   toText(entry["argument"]),
				LegalBasis: toText(entry["legal_basis"]),
				Strength:   toStrength(entry["strength"]),
			})
		case string:
			if s := strings.TrimSpace(entry); s != "" {
				out = append(out, domain.ClaimantArgument{Argument: s, Strength: domain.StrengthModerate})
			}
		}
	}
	return out
}

func toDefencePoints(v any) []domain.DefencePoint {
	out := []domain.DefencePoint{}
	for _, item := range asObjects(v) {
		switch entry := item.(type) {
		case map[string]any:
			track := toText(entry["track"])
			if track == "" {
				track = DefaultDefenceTrack
			}
			out = append(out, domain.DefencePoint{
				DefenceStrategy:  toText(entry["defence_strategy"]),
				LegalBasis:       toText(entry["legal_basis"]),
				EvidenceRequired: toText(entry["evidence_required"]),
				Strength:         toStrength(entry["strength"]),
				Track:            track,
			})
		case string:
			if s := strings.TrimSpace(entry); s != "" {
				out = append(out, domain.DefencePoint{
					DefenceStrategy: s,
					Strength:        domain.StrengthModerate,
					Track:           DefaultDefenceTrack,
				})
			}
		}
	}
	return out
}

func toStrength(v any) domain.Strength {
	s, _ := v.(string)
	strength := domain.Strength(strings.ToLower(strings.TrimSpace(s)))
	if !strength.Valid() {
		return domain.StrengthModerate
	}
	return strength
}

func toUrgency(v any) domain.Urgency {
	s, _ := v.(string)
	urgency := domain.Urgency(strings.ToLower(strings.TrimSpace(s)))
	if !urgency.Valid() {
		return domain.UrgencyMedium
	}
	return urgency
}
