package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"multichain-distributor/internal/orchestrator"
)

// RenderMarkdown renders the history report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Distribution History Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Network Reserves\n\n")
	if len(r.Reserves) > 0 {
		sb.WriteString("| Network | Reserve | Last Attempt |\n")
		sb.WriteString("|---------|---------|--------------|\n")
		for _, row := range r.Reserves {
			sb.WriteString(fmt.Sprintf("| %s | %.8f | %s |\n",
				row.Network, row.Amount, formatMs(row.LastAttemptAt)))
		}
	} else {
		sb.WriteString("No reserves recorded.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Distribution History\n\n")
	if len(r.Networks) > 0 {
		sb.WriteString("| Network | Sent | Deferred | Failed | Sent Amount | Sent USD |\n")
		sb.WriteString("|---------|------|----------|--------|-------------|----------|\n")
		for _, row := range r.Networks {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.8f | %.2f |\n",
				row.Network, row.SentCount, row.DeferredCount, row.FailedCount,
				row.SentAmount, row.SentValueUSD))
		}
	} else {
		sb.WriteString("No distributions recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderCycleMarkdown renders one cycle's result as a Markdown string.
func RenderCycleMarkdown(res *orchestrator.CycleResult) string {
	var sb strings.Builder

	sb.WriteString("# Distribution Cycle Result\n\n")
	sb.WriteString(fmt.Sprintf("Total sent: %.8f | Total reserved: %.8f | Duration: %dms\n\n",
		res.TotalSent, res.TotalReserved, res.FinishedAt-res.StartedAt))

	networks := make([]string, 0, len(res.Networks))
	for n := range res.Networks {
		networks = append(networks, n)
	}
	sort.Strings(networks)

	sb.WriteString("## Per-Network Outcomes\n\n")
	for _, n := range networks {
		no := res.Networks[n]
		sb.WriteString(fmt.Sprintf("### %s (sent %.8f, reserved %.8f)\n\n", n, no.Sent, no.Reserved))
		if len(no.Outcomes) == 0 {
			sb.WriteString("No candidates attempted.\n\n")
			continue
		}
		sb.WriteString("| Recipient | Status | Amount | USD | Tx / Reason |\n")
		sb.WriteString("|-----------|--------|--------|-----|-------------|\n")
		for _, out := range no.Outcomes {
			detail := out.TxRef
			if detail == "" {
				detail = out.Reason
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.8f | %.2f | %s |\n",
				out.RecipientID, out.Status, out.Amount, out.ValueUSD, detail))
		}
		sb.WriteString("\n")
	}

	if len(res.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range res.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatMs(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
