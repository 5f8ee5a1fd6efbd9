// Package notify renders snapshots as chat text and delivers them to their audiences
package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/screwyprof/stakecheck/checker"
)

const (
	arrowSteady = "→"
	arrowUp     = "↑"
	arrowDown   = "↓"
)

// Render renders one line per validator, in snapshot order:
//
//	#<rank> (<rank change>) <moniker> <status icon> delegated_balance: <balance>(<balance change>)
//
// Unranked validators show "#-".
func Render(s checker.Snapshot) string {
	lines := make([]string, len(s.Data))
	for i, r := range s.Data {
		lines[i] = RenderLine(r)
	}
	return strings.Join(lines, "\n")
}

// RenderLine renders a single validator result
func RenderLine(r checker.ValidatorResult) string {
	return fmt.Sprintf("#%s (%s) %s %s delegated_balance: %s(%s)",
		rank(r.Rank),
		rankArrow(r.RankChange),
		r.Moniker,
		r.Status.Icon(),
		r.DelegatedBalance.String(),
		balanceArrow(r.DelegatedBalanceChange),
	)
}

func rank(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r)
}

func rankArrow(change *int) string {
	switch {
	case change == nil || *change == 0:
		return arrowSteady
	case *change > 0:
		return arrowUp + "+" + strconv.Itoa(*change)
	default:
		return arrowDown + strconv.Itoa(*change)
	}
}

func balanceArrow(change *decimal.Decimal) string {
	switch {
	case change == nil || change.IsZero():
		return arrowSteady
	case change.IsPositive():
		return arrowUp + "+" + change.String()
	default:
		return arrowDown + change.String()
	}
}
