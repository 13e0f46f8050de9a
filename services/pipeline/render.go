package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/google/uuid"
)

// RenderJSON serializes a run for machine consumption.
func RenderJSON(run *models.Run) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}

// RenderMarkdown renders a run as a backlog document, items sorted by score
// descending.
func RenderMarkdown(run *models.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Backlog: %s\n\n", run.Source)
	fmt.Fprintf(&b, "Meeting type: %s  \n", run.MeetingType)
	fmt.Fprintf(&b, "Generated: %s  \n", run.FinishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Cost: $%.4f across %d requests\n\n", run.TotalCostUSD, run.TotalRequests)

	if run.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(run.Summary))
	}

	items := make([]models.BacklogItem, len(run.Items))
	copy(items, run.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	b.WriteString("## Items\n\n")
	if len(items) == 0 {
		b.WriteString("No backlog candidates were found in this transcript.\n")
	}
	for _, item := range items {
		readiness := "not ready"
		if item.Ready {
			readiness = "ready"
		}
		fmt.Fprintf(&b, "### %s\n\n", item.Title)
		fmt.Fprintf(&b, "- Type: %s\n- Score: %.2f (value %d, effort %d, confidence %.2f)\n- Status: %s\n",
			item.Type, item.Score, item.Value, item.Effort, item.Confidence, readiness)
		if item.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", item.Description)
		}
		if len(item.AcceptanceCriteria) > 0 {
			b.WriteString("\nAcceptance criteria:\n")
			for _, ac := range item.AcceptanceCriteria {
				fmt.Fprintf(&b, "- %s\n", ac)
			}
		}
		if len(item.Risks) > 0 {
			b.WriteString("\nRisks:\n")
			for _, risk := range item.Risks {
				fmt.Fprintf(&b, "- (%s) %s", risk.Severity, risk.Description)
				if risk.Mitigation != "" {
					fmt.Fprintf(&b, "; mitigation: %s", risk.Mitigation)
				}
				b.WriteString("\n")
			}
		}
		if len(item.ReadinessNotes) > 0 {
			b.WriteString("\nReadiness notes:\n")
			for _, note := range item.ReadinessNotes {
				fmt.Fprintf(&b, "- %s\n", note)
			}
		}
		if item.SourceQuote != "" {
			fmt.Fprintf(&b, "\n> %s\n", item.SourceQuote)
		}
		b.WriteString("\n")
	}

	if run.Proposal != nil {
		b.WriteString("## Sprint proposal\n\n")
		fmt.Fprintf(&b, "**Goal:** %s\n\n", run.Proposal.Goal)
		if len(run.Proposal.ItemIDs) > 0 {
			byID := make(map[uuid.UUID]models.BacklogItem, len(run.Items))
			for _, item := range run.Items {
				byID[item.ID] = item
			}
			for _, id := range run.Proposal.ItemIDs {
				if item, ok := byID[id]; ok {
					fmt.Fprintf(&b, "- %s\n", item.Title)
				}
			}
			b.WriteString("\n")
		}
		if run.Proposal.Rationale != "" {
			fmt.Fprintf(&b, "%s\n", run.Proposal.Rationale)
		}
	}

	return b.String()
}
