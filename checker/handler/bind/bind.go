package bind

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ExecutedAtParam is the path wildcard naming a snapshot
const ExecutedAtParam = "executed_at"

// Sentinel errors for request binding
var (
	ErrInvalidExecutedAt = errors.New("invalid executed_at parameter")
	ErrNotRFC3339        = errors.New("executed_at must be an RFC 3339 timestamp")
)

// ExecutedAt binds the executed_at path value to a UTC time
func ExecutedAt(r *http.Request) (time.Time, error) {
	raw := r.PathValue(ExecutedAtParam)

	executedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidExecutedAt, raw, ErrNotRFC3339)
	}

	return executedAt.UTC(), nil
}
