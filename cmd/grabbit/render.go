package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"grabbit/internal/batch"
	"grabbit/internal/document"
)

// renderDocument writes a human-readable run summary: the decision, the
// options when a choice is needed, dispatch receipts, and warnings.
func renderDocument(out io.Writer, doc *document.Document) {
	if doc.Work.Title != "" {
		identity := doc.Work.Title
		if doc.Work.Artist != "" {
			identity = doc.Work.Artist + " - " + identity
		} else if doc.Work.Author != "" {
			identity = identity + " by " + doc.Work.Author
		}
		if doc.Work.Year > 0 {
			identity += fmt.Sprintf(" (%d)", doc.Work.Year)
		}
		fmt.Fprintf(out, "Identified: %s [%s]\n", identity, doc.Work.MediaType)
	}

	if doc.Decision != nil {
		renderDecision(out, doc.Decision)
	}
	renderDispatch(out, doc.Dispatch)

	for _, warning := range doc.Warnings {
		if warning.Step != "" {
			fmt.Fprintf(out, "warning (%s): %s\n", warning.Step, warning.Message)
		} else {
			fmt.Fprintf(out, "warning: %s\n", warning.Message)
		}
	}
	if doc.Error != nil {
		fmt.Fprintf(out, "error at %s [%s]: %s\n", doc.Error.Step, doc.Error.Code, doc.Error.Message)
		if doc.Error.Hint != "" {
			fmt.Fprintf(out, "hint: %s\n", doc.Error.Hint)
		}
	}
}

func renderDecision(out io.Writer, decision *document.Decision) {
	switch decision.Status {
	case document.StatusSelected:
		fmt.Fprintf(out, "Decision: selected (%s)\n", decision.Reason)
		if decision.Selected != nil {
			fmt.Fprintf(out, "  %s\n", candidateLine(decision.Selected))
		}
	case document.StatusNeedsChoice:
		fmt.Fprintln(out, "Decision: needs choice — rerun with --choice <index>")
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Title", "Score", "Size", "Seeders"},
			candidateRows(decision.Options),
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
		))
	case document.StatusComplete:
		fmt.Fprintf(out, "Decision: complete (%s)\n", decision.Reason)
	case document.StatusError:
		// The error block below carries the detail.
	default:
		fmt.Fprintf(out, "Decision: %s\n", decision.Status)
	}
}

func renderDispatch(out io.Writer, dispatch map[string]*document.DispatchRecord) {
	if len(dispatch) == 0 {
		return
	}
	keys := make([]string, 0, len(dispatch))
	for key := range dispatch {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		record := dispatch[key]
		line := fmt.Sprintf("Dispatch %s: %s", key, record.Status)
		if record.Reason != "" {
			line += " (" + record.Reason + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func candidateRows(candidates []*document.Candidate) [][]string {
	rows := make([][]string, 0, len(candidates))
	for i, candidate := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(i),
			candidate.Title,
			fmt.Sprintf("%.0f", candidate.Score()),
			formatSize(candidate.Size),
			strconv.Itoa(candidate.Seeders),
		})
	}
	return rows
}

func candidateLine(candidate *document.Candidate) string {
	return fmt.Sprintf("%s  score=%.0f size=%s seeders=%d",
		candidate.Title, candidate.Score(), formatSize(candidate.Size), candidate.Seeders)
}

func formatSize(size int64) string {
	switch {
	case size <= 0:
		return "-"
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(size)/float64(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/float64(1<<20))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// renderBatchSummary writes one line per outcome plus totals.
func renderBatchSummary(out io.Writer, outcomes []batch.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	complete, choices, failed := 0, 0, 0
	for _, outcome := range outcomes {
		status := "complete"
		detail := ""
		switch {
		case outcome.Failed():
			status = "error"
			failed++
			if outcome.Doc.Error != nil {
				detail = outcome.Doc.Error.Message
			}
		case outcome.NeedsChoice():
			status = "needs choice"
			choices++
			detail = fmt.Sprintf("%d options", len(outcome.Doc.Decision.Options))
		default:
			complete++
			if outcome.Doc.Decision != nil && outcome.Doc.Decision.Selected != nil {
				detail = outcome.Doc.Decision.Selected.Title
			}
		}
		rows = append(rows, []string{outcome.Input, status, detail})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Input", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "%d complete, %d need a choice, %d failed\n", complete, choices, failed)
}
