package pipeline

import (
	"fmt"
	"strings"

	"github.com/ApexChef/backlog-chef/models"
)

// maxTranscriptChars bounds how much transcript text is inlined into a
// single prompt. Longer transcripts are truncated at a line boundary.
const maxTranscriptChars = 24000

const classifySystem = `You are an assistant that classifies software team meeting transcripts.
Respond with JSON only: {"meeting_type": "<standup|planning|refinement|retrospective|incident_review|other>"}`

const extractSystem = `You are an assistant that extracts backlog candidates from meeting transcripts.
Respond with a JSON array only. Each element:
{"title": "...", "description": "...", "type": "<feature|bug|tech_debt|decision|action_item>", "source_quote": "..."}`

const scoreSystem = `You are an assistant that scores backlog items.
Respond with a JSON array only. Each element:
{"index": <n>, "value": <1-10>, "effort": <1-10>, "confidence": <0.0-1.0>}`

const enrichSystem = `You are an assistant that writes acceptance criteria for backlog items.
Respond with a JSON array only. Each element:
{"index": <n>, "acceptance_criteria": ["...", "..."]}`

const risksSystem = `You are an assistant that identifies delivery risks for backlog items.
Respond with a JSON array only. Each element:
{"index": <n>, "risks": [{"description": "...", "severity": "<low|medium|high>", "mitigation": "..."}]}`

const proposalSystem = `You are an assistant that proposes a next-sprint slice from a scored backlog.
Respond with JSON only: {"goal": "...", "indexes": [<n>, ...], "rationale": "..."}`

const readinessSystem = `You are an assistant that checks backlog items against a definition of ready.
An item is ready when it has a clear title, a description, and at least one acceptance criterion.
Respond with a JSON array only. Each element:
{"index": <n>, "ready": <true|false>, "notes": ["..."]}`

const formatSystem = `You are an assistant that writes a short executive summary of a refined backlog.
Respond with plain prose, three sentences at most. No JSON, no markdown headers.`

const (
	scoreInstruction     = "Score each backlog item below for business value, implementation effort and your confidence in the estimate."
	enrichInstruction    = "Write 2-4 concrete, testable acceptance criteria for each backlog item below."
	risksInstruction     = "List the delivery risks for each backlog item below. Omit items with no notable risk."
	proposalInstruction  = "Propose a coherent next-sprint slice from the backlog items below. Prefer high-score items that form a shippable goal."
	readinessInstruction = "Check each backlog item below against the definition of ready."
)

func classifyPrompt(transcript *models.Transcript) string {
	return fmt.Sprintf("Classify this meeting transcript:\n\n%s", truncateTranscript(transcript))
}

func extractPrompt(transcript *models.Transcript, meetingType string) string {
	return fmt.Sprintf("Meeting type: %s\nParticipants: %s\n\nExtract every backlog candidate from this transcript:\n\n%s",
		meetingType,
		strings.Join(transcript.Speakers(), ", "),
		truncateTranscript(transcript))
}

// itemListPrompt renders the items as a numbered list so the model can refer
// back by index.
func itemListPrompt(instruction string, items []models.BacklogItem) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	for i, item := range items {
		b.WriteString(itemIndexLabel(i, item))
		if len(item.AcceptanceCriteria) > 0 {
			b.WriteString("\n   acceptance criteria: ")
			b.WriteString(strings.Join(item.AcceptanceCriteria, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func summaryPrompt(transcript *models.Transcript, items []models.BacklogItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %d-item backlog was refined from a meeting with %s.\n\nItems:\n",
		len(items), strings.Join(transcript.Speakers(), ", "))
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s (score %.2f, ready: %v)\n", i, item.Type, item.Title, item.Score, item.Ready)
	}
	b.WriteString("\nWrite the executive summary.")
	return b.String()
}

func truncateTranscript(transcript *models.Transcript) string {
	text := transcript.Text()
	if len(text) <= maxTranscriptChars {
		return text
	}
	cut := strings.LastIndexByte(text[:maxTranscriptChars], '\n')
	if cut <= 0 {
		cut = maxTranscriptChars
	}
	return text[:cut] + "\n[transcript truncated]"
}
