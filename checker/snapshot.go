package checker

import (
	"time"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// RawValidator is a validator as fetched from the staking API, before ranking
type RawValidator struct {
	Moniker    string
	Address    string
	StatusCode int
	RawTokens  math.Int
}

// ValidatorResult is a ranked, delta-annotated validator within a Snapshot.
// Nil pointers mean "not applicable" and serialize as JSON null.
type ValidatorResult struct {
	Moniker                string           `json:"moniker"`
	Address                string           `json:"address"`
	Status                 Status           `json:"status"`
	DelegatedBalance       decimal.Decimal  `json:"delegated_balance"`
	DelegatedBalanceChange *decimal.Decimal `json:"delegated_balance_change"`
	Rank                   *int             `json:"rank"`
	RankChange             *int             `json:"rank_change"`
}

// Snapshot is the persisted result of a single run.
// PreviousExecutedAt is nil when there was no prior run.
type Snapshot struct {
	Data               []ValidatorResult `json:"data"`
	ExecutedAt         time.Time         `json:"executed_at"`
	PreviousExecutedAt *time.Time        `json:"previous_executed_at"`
}

// FirstRun reports whether the snapshot was computed without a prior snapshot
func (s Snapshot) FirstRun() bool {
	return s.PreviousExecutedAt == nil
}

// Bonded returns the number of ranked validators
func (s Snapshot) Bonded() int {
	var n int
	for _, r := range s.Data {
		if r.Rank != nil {
			n++
		}
	}
	return n
}
