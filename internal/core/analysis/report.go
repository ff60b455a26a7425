package analysis

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

// ReportErrorMessage replaces a report that could not be rendered.
const ReportErrorMessage = "Error formatting defence analysis. Please try uploading the document again."

const disclaimer = "**⚠️ Legal Disclaimer:** This analysis is for informational purposes only and does not constitute legal advice. " +
	"Always consult with a qualified solicitor for case-specific guidance."

// FormatReport renders result as Markdown. It never fails: a rendering fault
// yields ReportErrorMessage.
func FormatReport(result domain.AnalysisResult) string {
	report, err := RenderReport(result)
	if err != nil {
		return ReportErrorMessage
	}
	return report
}

// RenderReport renders result as Markdown, converting any internal fault into
// an ErrFormatting error.
func RenderReport(result domain.AnalysisResult) (report string, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = ""
			err = domain.WrapError(domain.ErrFormatting, "render report", fmt.Errorf("%v", r))
		}
	}()

	printer := message.NewPrinter(language.BritishEnglish)
	title := cases.Title(language.BritishEnglish)

	var b strings.Builder
	b.WriteString("# 🛡️ Defence Strategy Analysis\n\n")

	b.WriteString("## Document Summary\n")
	b.WriteString(result.DocumentSummary)
	b.WriteString("\n\n")

	b.WriteString("## Case Assessment\n")
	fmt.Fprintf(&b, "- **Estimated Claim Value:** £%s\n", printer.Sprintf("%d", result.ClaimValueEstimate))
	fmt.Fprintf(&b, "- **Appropriate Track:** %s\n", result.TrackAssessment.Label())
	fmt.Fprintf(&b, "- **Legal Categories:** %s\n", strings.Join(result.LegalCategories, ", "))
	fmt.Fprintf(&b, "- **Urgency Level:** %s\n", title.String(string(result.UrgencyLevel)))

	b.WriteString("\n## Claimant's Key Arguments\n")
	for i, arg := range result.ClaimantArguments {
		fmt.Fprintf(&b, "\n### %d. %s\n", i+1, arg.Argument)
		fmt.Fprintf(&b, "- **Legal Basis:** %s\n", arg.LegalBasis)
		fmt.Fprintf(&b, "- **Strength Assessment:** %s\n", title.String(string(arg.Strength)))
	}

	b.WriteString("\n## 🎯 Recommended Defence Points\n")
	for i, point := range result.DefencePoints {
		fmt.Fprintf(&b, "\n### %d. %s\n", i+1, point.DefenceStrategy)
		fmt.Fprintf(&b, "- **Legal Basis:** %s\n", point.LegalBasis)
		fmt.Fprintf(&b, "- **Evidence Required:** %s\n", point.EvidenceRequired)
		fmt.Fprintf(&b, "- **Strength:** %s\n", title.String(string(point.Strength)))
		fmt.Fprintf(&b, "- **Relevant Track:** %s\n", title.String(strings.ReplaceAll(point.Track, "_", " ")))
	}

	b.WriteString("\n## ⚖️ Procedural Considerations\n")
	for _, item := range result.ProceduralConsiderations {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	b.WriteString("\n## 📋 Evidence Strategy\n")
	for _, item := range result.EvidenceStrategy {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	b.WriteString("\n## 💰 Settlement & Costs\n")
	fmt.Fprintf(&b, "**Settlement Considerations:** %s\n\n", result.SettlementConsiderations)
	fmt.Fprintf(&b, "**Costs Considerations:** %s\n\n", result.CostsConsiderations)

	b.WriteString("---\n")
	b.WriteString(disclaimer)

	return strings.TrimSpace(b.String()), nil
}
