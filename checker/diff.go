package checker

import (
	"fmt"
	"math/big"
	"slices"
	"time"

	"cosmossdk.io/math"
)

// Engine computes the next Snapshot from freshly fetched validators and the previous Snapshot.
// It holds no state besides the clock used to stamp snapshots.
type Engine struct {
	clock Clock
}

// NewEngine creates an Engine stamping snapshots with the given clock
func NewEngine(clock Clock) *Engine {
	return &Engine{clock: clock}
}

// classified is a raw validator with its status resolved
type classified struct {
	RawValidator
	status Status
}

// ranked is a classified validator with its position among bonded validators
type ranked struct {
	classified
	rank *int
}

// rankCounter is the running rank: only bonded validators advance it
type rankCounter int

func (c rankCounter) next(status Status) (rankCounter, *int) {
	if status != StatusBonded {
		return c, nil
	}
	c++
	rank := int(c)
	return c, &rank
}

// Transform ranks raw validators by delegated tokens and annotates them with changes
// relative to previous. A nil previous marks the first run.
//
// Any unknown status code fails the whole batch: ranks and deltas are relative
// to the full set, so a partial result would be wrong rather than incomplete.
func (e *Engine) Transform(raw []RawValidator, previous *Snapshot) (Snapshot, error) {
	records, err := classify(raw)
	if err != nil {
		return Snapshot{}, err
	}

	sortByTokensDesc(records)

	previousByAddress := indexByAddress(previous)

	data := make([]ValidatorResult, 0, len(records))
	for _, r := range assignRanks(records) {
		data = append(data, r.result(previousByAddress[r.Address]))
	}

	return Snapshot{
		Data:               data,
		ExecutedAt:         e.executedAt(previous),
		PreviousExecutedAt: previousExecutedAt(previous),
	}, nil
}

// classify resolves the status of every record, failing on the first unknown code
func classify(raw []RawValidator) ([]classified, error) {
	records := make([]classified, len(raw))
	for i, v := range raw {
		status, err := ClassifyStatus(v.StatusCode)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.Address, err)
		}
		if v.RawTokens.IsNil() {
			v.RawTokens = math.ZeroInt()
		}
		records[i] = classified{RawValidator: v, status: status}
	}
	return records, nil
}

// sortByTokensDesc orders records by raw tokens, largest first, keeping input order on ties
func sortByTokensDesc(records []classified) {
	slices.SortStableFunc(records, func(a, b classified) int {
		switch {
		case a.RawTokens.GT(b.RawTokens):
			return -1
		case a.RawTokens.LT(b.RawTokens):
			return 1
		}
		return 0
	})
}

// assignRanks folds a rankCounter over sorted records
func assignRanks(records []classified) []ranked {
	out := make([]ranked, len(records))

	var counter rankCounter
	for i, rec := range records {
		var rank *int
		counter, rank = counter.next(rec.status)
		out[i] = ranked{classified: rec, rank: rank}
	}

	return out
}

// indexByAddress maps addresses of the previous snapshot to their results.
// The first occurrence wins, matching a front-to-back scan.
func indexByAddress(previous *Snapshot) map[string]*ValidatorResult {
	if previous == nil {
		return nil
	}

	index := make(map[string]*ValidatorResult, len(previous.Data))
	for i := range previous.Data {
		r := &previous.Data[i]
		if _, seen := index[r.Address]; !seen {
			index[r.Address] = r
		}
	}
	return index
}

func (r ranked) result(previous *ValidatorResult) ValidatorResult {
	res := ValidatorResult{
		Moniker:          r.Moniker,
		Address:          r.Address,
		Status:           r.status,
		DelegatedBalance: ToDisplay(r.RawTokens),
		Rank:             r.rank,
	}

	if previous == nil {
		return res
	}

	// Subtract in raw units and convert once.
	delta := new(big.Int).Sub(r.RawTokens.BigInt(), fromDisplay(previous.DelegatedBalance))
	change := toDisplay(delta)
	res.DelegatedBalanceChange = &change
	res.RankChange = rankChange(previous.Rank, r.rank)

	return res
}

func rankChange(previous, current *int) *int {
	if previous == nil || current == nil {
		return nil
	}
	change := *previous - *current
	return &change
}

// executedAt returns a storage-precision timestamp strictly after the previous run
func (e *Engine) executedAt(previous *Snapshot) time.Time {
	now := e.clock.Now().UTC().Truncate(time.Microsecond)
	if previous != nil && !now.After(previous.ExecutedAt) {
		return previous.ExecutedAt.UTC().Add(time.Microsecond)
	}
	return now
}

func previousExecutedAt(previous *Snapshot) *time.Time {
	if previous == nil {
		return nil
	}
	at := previous.ExecutedAt
	return &at
}
