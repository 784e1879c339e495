package reporting

import (
	"fmt"
	"strings"

	"multichain-distributor/internal/domain"
)

// RenderRecordsCSV renders ledger rows as a CSV string.
func RenderRecordsCSV(records []*domain.DistributionRecord) string {
	var sb strings.Builder

	sb.WriteString("id,recipient_id,network,amount,value_usd,status,tx_ref,error_detail,created_at\n")

	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%.8f,%.2f,%s,%s,%s,%d\n",
			rec.ID,
			rec.RecipientID,
			rec.Network,
			rec.Amount,
			rec.ValueUSD,
			rec.Status,
			rec.TxRef,
			csvEscape(rec.ErrorDetail),
			rec.CreatedAt,
		))
	}

	return sb.String()
}

// RenderReservesCSV renders the reserve snapshot as a CSV string.
func RenderReservesCSV(reserves []ReserveRow) string {
	var sb strings.Builder

	sb.WriteString("network,amount,last_attempt_at\n")

	for _, r := range reserves {
		sb.WriteString(fmt.Sprintf("%s,%.8f,%d\n", r.Network, r.Amount, r.LastAttemptAt))
	}

	return sb.String()
}

// csvEscape quotes a field containing commas or quotes. Error details carry
// free-form chain error text.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
