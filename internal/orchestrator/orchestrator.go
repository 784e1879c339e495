// Package orchestrator drives the distribution cycle.
// Flow: context discovery → candidate computation → per-network dispatch →
// aggregation → reserve & ledger persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/pricing"
	"multichain-distributor/internal/storage"
)

// Archiver mirrors persisted records into an analytical store. Archive
// failures are reported as cycle errors but never fail the cycle.
type Archiver interface {
	InsertBatch(ctx context.Context, records []*domain.DistributionRecord) error
}

// Orchestrator runs distribution cycles. It is written entirely against the
// adapter contract: nothing here knows which chain a network is.
type Orchestrator struct {
	adapters []adapter.Adapter
	prices   pricing.Lookup
	reserves storage.ReserveStore
	records  storage.RecordStore
	archive  Archiver

	thresholds       map[string]float64
	defaultThreshold float64
	tokenKinds       []domain.TokenKind

	dryRun  bool
	verbose bool

	now func() int64
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Adapters     []adapter.Adapter
	Prices       pricing.Lookup
	ReserveStore storage.ReserveStore
	RecordStore  storage.RecordStore

	// Optional analytical mirror of appended records.
	Archive Archiver

	// ThresholdsUSD maps network identifier to the minimum USD value a
	// candidate must reach to be paid out; networks without an entry use
	// DefaultThresholdUSD.
	ThresholdsUSD       map[string]float64
	DefaultThresholdUSD float64

	// TokenKinds narrows context discovery; empty means native-only.
	TokenKinds []domain.TokenKind

	// DryRun stops after estimation: nothing is sent and nothing is
	// persisted. Outcomes report what a real cycle would have done.
	DryRun  bool
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Adapters) == 0 {
		return nil, errors.New("orchestrator: no adapters configured")
	}
	if opts.Prices == nil {
		return nil, errors.New("orchestrator: price lookup is required")
	}
	if opts.ReserveStore == nil || opts.RecordStore == nil {
		return nil, errors.New("orchestrator: reserve and record stores are required")
	}

	return &Orchestrator{
		adapters:         opts.Adapters,
		prices:           opts.Prices,
		reserves:         opts.ReserveStore,
		records:          opts.RecordStore,
		archive:          opts.Archive,
		thresholds:       opts.ThresholdsUSD,
		defaultThreshold: opts.DefaultThresholdUSD,
		tokenKinds:       opts.TokenKinds,
		dryRun:           opts.DryRun,
		verbose:          opts.Verbose,
		now:              func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NetworkOutcome is one network's share of a cycle result.
type NetworkOutcome struct {
	Sent     float64 // token units successfully sent
	Reserved float64 // token units newly added to the reserve
	Outcomes []domain.Outcome
}

// CycleResult aggregates one full cycle.
type CycleResult struct {
	TotalSent     float64
	TotalReserved float64
	Networks      map[string]*NetworkOutcome
	Errors        []string
	StartedAt     int64 // Unix milliseconds
	FinishedAt    int64
}

// unit is the per-network work item handed to a dispatch goroutine.
type unit struct {
	ad         adapter.Adapter
	nc         domain.NetworkContext
	candidates []domain.DistributionCandidate
	threshold  float64
}

// unitResult is what a dispatch goroutine reports back.
type unitResult struct {
	network      string
	outcomes     []domain.Outcome
	sent         float64
	reserveDelta float64
	drained      float64 // stored reserve consumed by this cycle's sends
	errs         []string
}

// RunCycle executes one distribution cycle over the given recipients.
// Adapter and unit-level failures are isolated per network and surface in
// CycleResult.Errors; the returned error is reserved for invalid input.
func (o *Orchestrator) RunCycle(ctx context.Context, recipients []domain.Recipient) (*CycleResult, error) {
	result := &CycleResult{
		Networks:  make(map[string]*NetworkOutcome),
		StartedAt: o.now(),
	}

	o.log("Phase 1: Discovering network contexts...")
	units := o.discoverUnits(ctx, result)
	o.log("  %d active contexts", len(units))

	o.log("Phase 2: Computing candidates...")
	units = o.computeCandidates(ctx, units, recipients, result)

	o.log("Phase 3: Dispatching %d network units...", len(units))
	unitResults := o.dispatch(ctx, units)

	o.log("Phase 4: Aggregating outcomes...")
	for _, ur := range unitResults {
		result.Networks[ur.network] = &NetworkOutcome{
			Sent:     ur.sent,
			Reserved: ur.reserveDelta,
			Outcomes: ur.outcomes,
		}
		result.TotalSent += ur.sent
		result.TotalReserved += ur.reserveDelta
		result.Errors = append(result.Errors, ur.errs...)
	}

	if o.dryRun {
		o.log("Dry run: skipping persistence")
		result.FinishedAt = o.now()
		return result, nil
	}

	o.log("Phase 5: Persisting reserves and records...")
	o.persist(ctx, unitResults, result)

	result.FinishedAt = o.now()
	o.log("Cycle done: sent %.6f, reserved %.6f, %d errors",
		result.TotalSent, result.TotalReserved, len(result.Errors))
	return result, nil
}

// discoverUnits collects one unit per network from every adapter. Discovery
// errors are configuration problems: the network is skipped with a warning,
// never failing the cycle. A duplicate network identifier keeps the first
// context and warns about the rest.
func (o *Orchestrator) discoverUnits(ctx context.Context, result *CycleResult) []*unit {
	prefs := domain.TokenPreferences{Kinds: o.tokenKinds}
	seen := make(map[string]bool)
	var units []*unit

	for _, ad := range o.adapters {
		contexts, err := ad.DiscoverContexts(ctx, prefs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("discover %s: %v", ad.Kind(), err))
			continue
		}
		for _, nc := range contexts {
			if seen[nc.Network] {
				result.Errors = append(result.Errors, fmt.Sprintf("discover %s: duplicate context for network %s skipped", ad.Kind(), nc.Network))
				continue
			}
			seen[nc.Network] = true
			units = append(units, &unit{
				ad:        ad,
				nc:        nc,
				threshold: o.thresholdFor(nc.Network),
			})
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].nc.Network < units[j].nc.Network })
	return units
}

func (o *Orchestrator) thresholdFor(network string) float64 {
	if t, ok := o.thresholds[network]; ok {
		return t
	}
	return o.defaultThreshold
}

// computeCandidates prices each context's token once and sizes every eligible
// recipient's payout. A network whose token cannot be priced is dropped for
// the cycle. Candidate order is ascending recipient ID, which fixes the
// dispatch order.
func (o *Orchestrator) computeCandidates(ctx context.Context, units []*unit, recipients []domain.Recipient, result *CycleResult) []*unit {
	sorted := make([]domain.Recipient, len(recipients))
	copy(sorted, recipients)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var active []*unit
	for _, u := range units {
		price, err := o.prices.PriceUSD(ctx, u.nc.TokenSymbol)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("network %s: price %s: %v", u.nc.Network, u.nc.TokenSymbol, err))
			continue
		}

		for _, r := range sorted {
			if r.TargetUSD <= 0 {
				continue
			}
			addr, ok := u.ad.ResolveRecipientAddress(r, u.nc)
			if !ok {
				continue
			}
			u.candidates = append(u.candidates, domain.DistributionCandidate{
				RecipientID: r.ID,
				Address:     addr,
				Amount:      r.TargetUSD / price,
				ValueUSD:    r.TargetUSD,
			})
		}

		o.log("  network %s: %d candidates at %s=$%.4f", u.nc.Network, len(u.candidates), u.nc.TokenSymbol, price)
		active = append(active, u)
	}
	return active
}

// dispatch runs every unit in its own goroutine. Units are fully isolated:
// one network's failure never cancels or delays a sibling.
func (o *Orchestrator) dispatch(ctx context.Context, units []*unit) []*unitResult {
	results := make([]*unitResult, len(units))

	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func(i int, u *unit) {
			defer wg.Done()
			results[i] = o.runUnit(ctx, u)
		}(i, u)
	}
	wg.Wait()

	return results
}

// runUnit processes one network sequentially: threshold check, estimate,
// liquidity check, send. The available counter is owned by this goroutine
// alone, so sends within a network can never overdraft each other.
func (o *Orchestrator) runUnit(ctx context.Context, u *unit) *unitResult {
	ur := &unitResult{network: u.nc.Network}

	balance, err := u.ad.WalletBalance(ctx, u.nc)
	if err != nil {
		ur.errs = append(ur.errs, fmt.Sprintf("network %s: wallet balance: %v", u.nc.Network, err))
		return ur
	}

	feeReserve := u.ad.DynamicFeeReserve(ctx, u.nc)

	stored := 0.0
	if r, err := o.reserves.GetReserve(ctx, u.nc.Network); err == nil {
		stored = r.Amount
	} else if !errors.Is(err, storage.ErrNotFound) {
		ur.errs = append(ur.errs, fmt.Sprintf("network %s: load reserve: %v", u.nc.Network, err))
		return ur
	}

	available := balance - feeReserve + stored
	o.log("  network %s: balance %.6f, fee reserve %.6f, stored %.6f, available %.6f",
		u.nc.Network, balance, feeReserve, stored, available)

	for _, c := range u.candidates {
		out := domain.Outcome{
			RecipientID: c.RecipientID,
			Network:     u.nc.Network,
			Amount:      c.Amount,
			ValueUSD:    c.ValueUSD,
		}

		switch {
		case c.ValueUSD < u.threshold:
			out.Status = domain.StatusDeferred
			out.Reason = fmt.Sprintf("value $%.2f below network minimum $%.2f", c.ValueUSD, u.threshold)

		default:
			est, err := u.ad.EstimateTransfer(ctx, u.nc, c.Address, c.Amount)
			if err != nil {
				// Estimation endpoint failure is transient: abort the rest
				// of this unit, leaving unattempted candidates unrecorded so
				// the next cycle reconsiders them.
				ur.errs = append(ur.errs, fmt.Sprintf("network %s: estimate for %s: %v", u.nc.Network, c.RecipientID, err))
				return ur
			}

			switch {
			case est.Deferred():
				out.Status = domain.StatusDeferred
				out.Reason = est.DeferReason

			case available < c.Amount:
				out.Status = domain.StatusDeferred
				out.Reason = fmt.Sprintf("insufficient liquidity: need %.6f, available %.6f", c.Amount, available)

			case o.dryRun:
				out.Status = domain.StatusSent
				out.Reason = "dry run: transfer not broadcast"
				available -= c.Amount
				ur.sent += c.Amount

			default:
				txRef, err := u.ad.SendTransfer(ctx, u.nc, c.Address, c.Amount)
				if err != nil {
					out.Status = domain.StatusFailed
					out.Reason = err.Error()
				} else {
					out.Status = domain.StatusSent
					out.TxRef = txRef
					available -= c.Amount
					ur.sent += c.Amount
				}
			}
		}

		if out.Status != domain.StatusSent {
			ur.reserveDelta += c.Amount
		}
		ur.outcomes = append(ur.outcomes, out)
	}

	// Sends consume the stored reserve they were backed by.
	if ur.sent > 0 && stored > 0 {
		ur.drained = stored
		if ur.sent < stored {
			ur.drained = ur.sent
		}
	}

	return ur
}

// persist upserts each network's reserve delta and appends one record per
// outcome. Failures here are reported but never undo broadcast transfers.
func (o *Orchestrator) persist(ctx context.Context, unitResults []*unitResult, result *CycleResult) {
	now := o.now()

	for _, ur := range unitResults {
		if len(ur.outcomes) == 0 && len(ur.errs) > 0 {
			// Unit aborted before attempting anything; no attempt to stamp.
			continue
		}

		delta := ur.reserveDelta - ur.drained
		if err := o.reserves.UpsertReserve(ctx, ur.network, delta, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("network %s: persist reserve: %v", ur.network, err))
		}

		var appended []*domain.DistributionRecord
		for _, out := range ur.outcomes {
			rec := out.Record(now)
			if err := o.records.Append(ctx, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("network %s: persist record for %s: %v", ur.network, out.RecipientID, err))
				continue
			}
			appended = append(appended, rec)
		}

		if o.archive != nil && len(appended) > 0 {
			if err := o.archive.InsertBatch(ctx, appended); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("network %s: archive records: %v", ur.network, err))
			}
		}
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
