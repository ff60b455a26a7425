// Package analysis turns extracted document text into a fully populated
// defence analysis: prompt construction, LLM output normalization, the
// conservative fallback used when the LLM is unavailable, and the Markdown
// report rendered for the user.
package analysis

// SystemPrompt frames the model for every document analysis request.
const SystemPrompt = "You are a specialist UK civil litigation barrister with extensive experience in defending civil claims up to £100,000. " +
	"You provide detailed, practical legal analysis focusing on actionable defence strategies."

const promptHeader = `You are a specialist UK civil litigation barrister acting as a defence analyst, with expertise in defending claims up to £100,000.
Analyze the following claimant's skeleton argument and provide a comprehensive defence strategy.

CLAIMANT'S SKELETON ARGUMENT:
`

// outputSchema enumerates every AnalysisResult field and its value domain so
// the reply can be validated deterministically.
const outputSchema = `
Respond with a single JSON object, no prose and no markdown, with exactly these keys:

{
    "document_summary": "Brief summary of the claimant's case and main arguments",
    "claim_value_estimate": "Estimated monetary value of the claim in pounds (integer number only, or 0 if unclear)",
    "track_assessment": "small_claims|fast_track|multi_track",
    "legal_categories": ["contract", "tort", "debt", "employment", "property", "consumer", "professional_negligence"],
    "claimant_arguments": [
        {
            "argument": "Description of claimant's argument",
            "legal_basis": "Legal principle or statute relied upon",
            "strength": "weak|moderate|strong"
        }
    ],
    "defence_points": [
        {
            "defence_strategy": "Specific defence point to counter claimant's argument",
            "legal_basis": "Supporting case law, statute, or legal principle",
            "evidence_required": "What evidence would be needed to support this defence",
            "strength": "weak|moderate|strong",
            "track": "Relevant to which track type"
        }
    ],
    "procedural_considerations": [
        "Key procedural points and deadlines to consider"
    ],
    "evidence_strategy": [
        "Recommended evidence gathering approaches"
    ],
    "settlement_considerations": "Assessment of settlement prospects and strategy",
    "costs_considerations": "Likely costs implications and Part 36 offer prospects",
    "urgency_level": "low|medium|high"
}

Track allocation: small_claims up to £10,000, fast_track up to £25,000, multi_track above £25,000.

Focus on practical, actionable defence strategies that comply with the UK Civil Procedure Rules and recent case law.
Consider all potential defences including limitation, causation, quantum, procedural defects, and substantive legal defences.
`

// BuildPrompt embeds the document text in the fixed analysis instructions.
func BuildPrompt(documentText string) string {
	return promptHeader + documentText + "\n" + outputSchema
}
