package checker

import (
	"errors"
	"fmt"
)

// Status is the bonding state of a validator
type Status string

// Bonding states as reported by the staking module
const (
	StatusUnbonded  Status = "unbonded"
	StatusUnbonding Status = "unbonding"
	StatusBonded    Status = "bonded"
)

// ErrInvalidStatusCode is returned for a bonding status code outside 0..2
var ErrInvalidStatusCode = errors.New("invalid status code")

// StatusFilters lists the upstream status filters in fetch order.
// Validators are concatenated in this order before sorting, which makes it the tie-break.
var StatusFilters = []Status{StatusBonded, StatusUnbonding, StatusUnbonded}

// ClassifyStatus maps a numeric bonding status code to its Status
func ClassifyStatus(code int) (Status, error) {
	switch code {
	case 0:
		return StatusUnbonded, nil
	case 1:
		return StatusUnbonding, nil
	case 2:
		return StatusBonded, nil
	}
	return "", fmt.Errorf("%w: %d", ErrInvalidStatusCode, code)
}

// Valid reports whether s is one of the known bonding states
func (s Status) Valid() bool {
	switch s {
	case StatusUnbonded, StatusUnbonding, StatusBonded:
		return true
	}
	return false
}

// Icon returns the marker used for s in chat notifications
func (s Status) Icon() string {
	switch s {
	case StatusBonded:
		return "🟢"
	case StatusUnbonding:
		return "🟡"
	case StatusUnbonded:
		return "🔴"
	}
	return "⚪"
}

func (s Status) String() string {
	return string(s)
}
