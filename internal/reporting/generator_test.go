package reporting

import (
	"context"
	"strings"
	"testing"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage/memory"
)

func seedStores(t *testing.T) (*memory.RecordStore, *memory.ReserveStore) {
	t.Helper()
	ctx := context.Background()

	records := memory.NewRecordStore()
	reserves := memory.NewReserveStore()

	add := func(recipient, network string, status domain.Status, amount, usd float64, at int64) {
		t.Helper()
		err := records.Append(ctx, &domain.DistributionRecord{
			RecipientID: recipient,
			Network:     network,
			Amount:      amount,
			ValueUSD:    usd,
			Status:      status,
			CreatedAt:   at,
		})
		if err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	add("alice", "ethereum", domain.StatusSent, 1.5, 150, 1000)
	add("bob", "ethereum", domain.StatusSent, 0.5, 50, 2000)
	add("carol", "ethereum", domain.StatusDeferred, 0.05, 5, 3000)
	add("alice", "bitcoin", domain.StatusFailed, 0.01, 640, 1000)

	reserves.UpsertReserve(ctx, "ethereum", 0.05, 3000)
	reserves.UpsertReserve(ctx, "bitcoin", 0.01, 1000)

	return records, reserves
}

func TestGenerate(t *testing.T) {
	records, reserves := seedStores(t)
	g := NewGenerator(records, reserves)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(report.Reserves) != 2 {
		t.Fatalf("expected 2 reserve rows, got %d", len(report.Reserves))
	}
	if report.Reserves[0].Network != "bitcoin" || report.Reserves[1].Network != "ethereum" {
		t.Errorf("reserves not ordered by network: %+v", report.Reserves)
	}

	if len(report.Networks) != 2 {
		t.Fatalf("expected 2 network summaries, got %d", len(report.Networks))
	}

	eth := report.Networks[1]
	if eth.Network != "ethereum" {
		t.Fatalf("expected ethereum second, got %s", eth.Network)
	}
	if eth.SentCount != 2 || eth.DeferredCount != 1 || eth.FailedCount != 0 {
		t.Errorf("ethereum counts wrong: %+v", eth)
	}
	if eth.SentAmount != 2.0 || eth.SentValueUSD != 200 {
		t.Errorf("ethereum sent totals wrong: %+v", eth)
	}

	btc := report.Networks[0]
	if btc.FailedCount != 1 || btc.SentCount != 0 {
		t.Errorf("bitcoin counts wrong: %+v", btc)
	}
}

func TestRecipientHistory(t *testing.T) {
	records, reserves := seedStores(t)
	g := NewGenerator(records, reserves)

	history, err := g.RecipientHistory(context.Background(), "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows for alice, got %d", len(history))
	}
}

func TestRenderRecordsCSV(t *testing.T) {
	records, _ := seedStores(t)
	all, _ := records.GetAll(context.Background())

	csv := RenderRecordsCSV(all)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,recipient_id,network") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(csv, "alice,ethereum") || !strings.Contains(csv, "SENT") {
		t.Errorf("csv missing expected rows:\n%s", csv)
	}
}

func TestCSVEscapesErrorDetail(t *testing.T) {
	rec := &domain.DistributionRecord{
		ID:          1,
		RecipientID: "alice",
		Network:     "ethereum",
		Status:      domain.StatusFailed,
		ErrorDetail: `broadcast rejected: "nonce too low", retry later`,
		CreatedAt:   1000,
	}

	csv := RenderRecordsCSV([]*domain.DistributionRecord{rec})
	if !strings.Contains(csv, `"broadcast rejected: ""nonce too low"", retry later"`) {
		t.Errorf("error detail not escaped:\n%s", csv)
	}
}

func TestRenderMarkdown(t *testing.T) {
	records, reserves := seedStores(t)
	g := NewGenerator(records, reserves)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Distribution History Report",
		"## Network Reserves",
		"## Distribution History",
		"| ethereum | 2 | 1 | 0 |",
		"| bitcoin | 0 | 0 | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
