package enrich

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logiclamp/leadscout/internal/model"
)

// System prompts for the two enrichment calls. Both are fixed for the life
// of a run so the provider can serve them from its prompt cache.
const analysisSystemPrompt = `You are an expert in energy efficiency and sustainable building solutions. Analyze this potential lead to determine their energy efficiency needs and opportunities. Focus on identifying their likely energy-related pain points and how LogicLamp Technologies (a company specializing in energy efficiency solutions like LED lighting and smart building technologies) could help them reduce costs and improve sustainability. Provide a brief opportunity assessment and a lead quality score from 0-100 based on their potential need for energy efficiency solutions. Higher scores mean better opportunities.

Return ONLY valid JSON:
{"score": 85, "analysis": "Two to four sentence opportunity assessment."}`

const outreachSystemPrompt = `You are a skilled sales development representative for LogicLamp Technologies, a company specializing in energy efficiency and sustainability solutions including LED lighting retrofits, smart building technologies, and energy management systems. Write a personalized, compelling outreach email to this company. Format your response with 'Subject: [Your subject line]' on the first line, followed by the email body. Focus on the specific benefits they would gain based on their profile. Keep it concise (150-200 words), professional, and emphasize potential energy savings. Do not use pushy sales language. Make it warm and conversational. Include a clear call to action for a brief intro call.`

// analysisContext renders the lead attributes the analysis call works from.
func analysisContext(lead *model.Lead) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", orUnknown(lead.Name))
	fmt.Fprintf(&sb, "Category/Industry: %s\n", orUnknown(lead.Category))
	fmt.Fprintf(&sb, "Address: %s, %s, %s\n", orUnknown(lead.Street), lead.City, lead.State)
	fmt.Fprintf(&sb, "Building Size: %s\n", sqftLine(lead))
	fmt.Fprintf(&sb, "Year Built/Established: %s\n", yearLine(lead))
	fmt.Fprintf(&sb, "Description: %s\n", orUnknown(lead.Description))
	fmt.Fprintf(&sb, "Contact: %s, %s\n", lead.ContactName, lead.ContactTitle)
	fmt.Fprintf(&sb, "Website: %s\n", lead.Website)
	return sb.String()
}

// outreachContext renders the context for the email draft, including the
// current score and any analysis produced by the first call.
func outreachContext(lead *model.Lead, from Sender) string {
	contact := lead.ContactName
	if contact == "" {
		contact = "Building Owner/Manager"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", orUnknown(lead.Name))
	fmt.Fprintf(&sb, "Category/Industry: %s\n", orUnknown(lead.Category))
	fmt.Fprintf(&sb, "Contact Person: %s, %s\n", contact, lead.ContactTitle)
	fmt.Fprintf(&sb, "Building Size: %s\n", sqftLine(lead))
	fmt.Fprintf(&sb, "Year Built/Established: %s\n", yearLine(lead))
	fmt.Fprintf(&sb, "City, State: %s, %s\n", lead.City, lead.State)
	fmt.Fprintf(&sb, "Lead Score: %d/100\n", lead.EffectiveScore())
	if lead.AINotes != "" {
		fmt.Fprintf(&sb, "\nAI Analysis: %s\n", lead.AINotes)
	}
	if sig := from.signature(); sig != "" {
		fmt.Fprintf(&sb, "\nSign the email as: %s\n", sig)
	}
	return sb.String()
}

// signature joins whichever sender fields are set.
func (s Sender) signature() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Name, s.Title, s.Company} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func sqftLine(lead *model.Lead) string {
	if lead.Sqft == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d sq ft", *lead.Sqft)
}

func yearLine(lead *model.Lead) string {
	if lead.YearBuilt == nil {
		return "Unknown"
	}
	return strconv.Itoa(*lead.YearBuilt)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
