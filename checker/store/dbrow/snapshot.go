package dbrow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/screwyprof/stakecheck/checker"
)

// Snapshot represents a snapshot record as stored in the database
type Snapshot struct {
	ExecutedAt time.Time `db:"executed_at"`
	Body       []byte    `db:"body"`
}

// FromSnapshot encodes a checker snapshot into its stored form
func FromSnapshot(s checker.Snapshot) (Snapshot, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding snapshot %s: %w", s.ExecutedAt.Format(time.RFC3339Nano), err)
	}
	return Snapshot{ExecutedAt: s.ExecutedAt, Body: body}, nil
}

// ToSnapshot decodes the stored body back into a checker snapshot
func (r Snapshot) ToSnapshot() (*checker.Snapshot, error) {
	var s checker.Snapshot
	if err := json.Unmarshal(r.Body, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", r.ExecutedAt.Format(time.RFC3339Nano), err)
	}
	return &s, nil
}
