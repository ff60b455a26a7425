package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

// referralIndicators are query phrases that suggest professional advice is needed.
var referralIndicators = []string{
	"urgent", "emergency", "injunction", "court date", "deadline",
	"served with", "claim form", "defence", "trial", "represent me",
	"complex", "multiple parties", "international", "regulatory",
}

// urgentIndicators raise a referral to high urgency.
var urgentIndicators = []string{"urgent", "emergency", "injunction", "court date", "deadline", "served with"}

var complexCategories = map[string]bool{
	"professional_negligence": true,
	"commercial_dispute":      true,
	"employment":              true,
}

var solicitorTypes = map[string]string{
	"professional_negligence": "Professional negligence solicitor",
	"commercial_dispute":      "Commercial litigation solicitor",
	"employment":              "Employment law solicitor",
	"personal_injury":         "Personal injury solicitor",
	"clinical_negligence":     "Clinical negligence solicitor",
	"landlord_tenant":         "Housing and property litigation solicitor",
	"debt":                    "Debt recovery and civil litigation solicitor",
}

var referralResources = []domain.ReferralResource{
	{Name: "Law Society - Find a Solicitor", URL: "https://solicitors.lawsociety.org.uk/"},
	{Name: "Citizens Advice", URL: "https://www.citizensadvice.org.uk/"},
	{Name: "Advocate (free legal help from barristers)", URL: "https://weareadvocate.org.uk/"},
	{Name: "Civil Legal Advice", URL: "https://www.gov.uk/civil-legal-advice"},
}

// IsComplexCategory reports whether a legal category usually needs specialist advice.
func IsComplexCategory(category string) bool {
	return complexCategories[normalizeCategory(category)]
}

// referralReason returns why a chat query should be referred to a solicitor,
// or "" when no referral is needed.
func referralReason(q domain.QueryAnalysis, query string) string {
	lower := strings.ToLower(query)
	for _, indicator := range referralIndicators {
		if strings.Contains(lower, indicator) {
			return fmt.Sprintf("Your query mentions %q, which usually calls for professional legal advice", indicator)
		}
	}
	if q.Track == domain.TrackMultiTrack {
		return "Multi-track claims involve case management, costs budgeting and significant costs exposure"
	}
	if IsComplexCategory(q.Category) {
		return fmt.Sprintf("%s matters usually need specialist legal advice", categoryLabel(q.Category))
	}
	return ""
}

// analysisReferralReason applies the referral rules to a stored analysis.
func analysisReferralReason(event domain.AnalysisCompleted) string {
	switch {
	case event.Track == domain.TrackMultiTrack:
		return "Multi-track claims involve case management, costs budgeting and significant costs exposure"
	case event.Urgency == domain.UrgencyHigh:
		return "The analysis rates this matter as high urgency"
	}
	for _, category := range event.LegalCategories {
		if IsComplexCategory(category) {
			return fmt.Sprintf("%s matters usually need specialist legal advice", categoryLabel(category))
		}
	}
	return ""
}

func recommendReferral(q domain.QueryAnalysis, query, reason string) *domain.ReferralRecommendation {
	urgency := string(domain.UrgencyMedium)
	if q.Urgency == string(domain.UrgencyHigh) || containsAny(strings.ToLower(query), urgentIndicators) {
		urgency = string(domain.UrgencyHigh)
	}
	return &domain.ReferralRecommendation{
		Reason:        reason,
		SolicitorType: solicitorTypeFor(q.Category),
		Urgency:       urgency,
		Resources:     append([]domain.ReferralResource(nil), referralResources...),
	}
}

func solicitorTypeFor(category string) string {
	if t, ok := solicitorTypes[normalizeCategory(category)]; ok {
		return t
	}
	return "Civil litigation solicitor"
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	return strings.Join(strings.FieldsFunc(category, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func categoryLabel(category string) string {
	label := strings.ReplaceAll(normalizeCategory(category), "_", " ")
	if label == "" {
		return "General"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
