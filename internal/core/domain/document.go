package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type AnalysisOutcome string

const (
	OutcomeAnalyzed AnalysisOutcome = "analyzed"
	OutcomeFallback AnalysisOutcome = "fallback"
)

const (
	DocumentTypeSkeletonArgument = "skeleton_argument"

	// MaxStoredDocumentChars bounds the document text kept with an analysis.
	MaxStoredDocumentChars = 10000
	// MinAnalysableChars is the shortest extracted text worth sending for analysis.
	MinAnalysableChars = 50
	// MaxUploadBytes is the largest accepted upload.
	MaxUploadBytes = 16 << 20
)

// DocumentAnalysis is the persisted record of one document upload.
type DocumentAnalysis struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	Filename          string             `json:"filename"`
	DocumentType      string             `json:"document_type"`
	StoragePath       string             `json:"storage_path,omitempty"`
	DocumentText      string             `json:"-"`
	Summary           string             `json:"analysis_summary"`
	ClaimantArguments []ClaimantArgument `json:"claimant_arguments"`
	DefencePoints     []DefencePoint     `json:"defence_points"`
	ClaimValue        int                `json:"claim_value_estimate"`
	Track             Track              `json:"track_type"`
	LegalCategories   []string           `json:"legal_categories"`
	Urgency           Urgency            `json:"urgency_level"`
	Outcome           AnalysisOutcome    `json:"outcome"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// AnalysisCompleted is published once an analysis has been stored.
type AnalysisCompleted struct {
	AnalysisID      string          `json:"analysis_id"`
	UserID          string          `json:"user_id"`
	Filename        string          `json:"filename"`
	ClaimValue      int             `json:"claim_value"`
	Track           Track           `json:"track"`
	Urgency         Urgency         `json:"urgency"`
	LegalCategories []string        `json:"legal_categories"`
	Outcome         AnalysisOutcome `json:"outcome"`
	CreatedAt       time.Time       `json:"created_at"`
}

// UploadResult is returned to the caller of a successful upload.
type UploadResult struct {
	Analysis          AnalysisResult  `json:"analysis"`
	FormattedResponse string          `json:"formatted_response"`
	DocumentID        string          `json:"document_id"`
	Filename          string          `json:"filename"`
	Outcome           AnalysisOutcome `json:"outcome"`
}

// SupportedDocumentExtensions lists the accepted upload suffixes, without the dot.
var SupportedDocumentExtensions = []string{"txt", "pdf", "doc", "docx"}

// DocumentExtension returns the lowercased suffix of filename without the dot.
func DocumentExtension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), ".")
}

func IsSupportedDocument(filename string) bool {
	ext := DocumentExtension(filename)
	for _, supported := range SupportedDocumentExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
