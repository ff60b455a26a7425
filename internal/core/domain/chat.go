package domain

import "time"

type User struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Citation is a source attached to a chat reply. Only the fields relevant
// to the citation type are set.
type Citation struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Citation   string `json:"citation,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source,omitempty"`
	Category   string `json:"category,omitempty"`
	Track      string `json:"track,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
	Filename   string `json:"filename,omitempty"`
	ClaimValue *int   `json:"claim_value,omitempty"`
	TrackType  string `json:"track_type,omitempty"`
}

type ChatMessage struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Message       string     `json:"message"`
	Response      string     `json:"response"`
	LegalCategory string     `json:"legal_category"`
	Citations     []Citation `json:"citations"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChatTurn is one side of an exchange, as replayed to the LLM.
type ChatTurn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// LegalGuidance is the LLM's reply to a chat query.
type LegalGuidance struct {
	Response string `json:"response"`
	Category string `json:"category"`
	Track    string `json:"track"`
	Urgency  string `json:"urgency"`
}

// QueryAnalysis is the routing information derived for one chat query.
type QueryAnalysis struct {
	Category string `json:"category"`
	Track    Track  `json:"track_type,omitempty"`
	Urgency  string `json:"urgency,omitempty"`
}

type CaseLaw struct {
	CaseName   string   `json:"case_name" yaml:"case_name"`
	Citation   string   `json:"citation" yaml:"citation"`
	Summary    string   `json:"summary" yaml:"summary"`
	URL        string   `json:"url,omitempty" yaml:"url"`
	Categories []string `json:"categories" yaml:"categories"`
	Tracks     []Track  `json:"tracks" yaml:"tracks"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
}

type Procedure struct {
	Title      string   `json:"title" yaml:"title"`
	Summary    string   `json:"summary" yaml:"summary"`
	Source     string   `json:"source,omitempty" yaml:"source"`
	Categories []string `json:"categories" yaml:"categories"`
	Tracks     []Track  `json:"tracks" yaml:"tracks"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
}

// KnowledgeResult is the canned knowledge relevant to a query.
type KnowledgeResult struct {
	Cases      []CaseLaw   `json:"cases"`
	Procedures []Procedure `json:"procedures"`
}

type ReferralResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ReferralRecommendation struct {
	Reason        string             `json:"reason"`
	SolicitorType string             `json:"solicitor_type"`
	Urgency       string             `json:"urgency"`
	Resources     []ReferralResource `json:"resources"`
}

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralContacted ReferralStatus = "contacted"
)

// SolicitorReferral is a stored recommendation to seek professional advice.
type SolicitorReferral struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	AnalysisID    string         `json:"analysis_id,omitempty"`
	LegalCategory string         `json:"legal_category"`
	Track         Track          `json:"track_type"`
	Reason        string         `json:"reason"`
	SolicitorType string         `json:"solicitor_type"`
	Urgency       Urgency        `json:"urgency"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ChatReply is returned for one chat turn.
type ChatReply struct {
	Message       string                  `json:"message"`
	Citations     []Citation              `json:"citations"`
	LegalCategory string                  `json:"legal_category"`
	TrackType     Track                   `json:"track_type,omitempty"`
	ReferralInfo  *ReferralRecommendation `json:"referral_info"`
}

// CompletionRequest is a single system+user exchange with an LLM backend.
type CompletionRequest struct {
	System      string
	User        string
	History     []ChatTurn
	MaxTokens   int
	Temperature float64
	JSON        bool
}
