package checker_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecheck/checker"
)

func TestSnapshotJSON(t *testing.T) {
	t.Parallel()

	t.Run("it writes null for values that do not apply", func(t *testing.T) {
		t.Parallel()

		// Arrange
		snapshot := firstSnapshot(t)

		// Act
		body, err := json.Marshal(snapshot)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"data": [
				{"moniker":"A","address":"a1","status":"bonded","delegated_balance":"0.0001","delegated_balance_change":null,"rank":1,"rank_change":null},
				{"moniker":"B","address":"a2","status":"unbonding","delegated_balance":"0.00002","delegated_balance_change":null,"rank":null,"rank_change":null},
				{"moniker":"C","address":"a3","status":"unbonded","delegated_balance":"0.000005","delegated_balance_change":null,"rank":null,"rank_change":null}
			],
			"executed_at": "2024-03-01T12:00:00Z",
			"previous_executed_at": null
		}`, string(body))
	})

	t.Run("it reads back exactly what it wrote", func(t *testing.T) {
		t.Parallel()

		// Arrange
		previous := firstSnapshot(t)
		engine := engineAt(firstRunAt.Add(90*time.Minute + 123456*time.Microsecond))
		original, err := engine.Transform([]checker.RawValidator{
			rawValidator("A", "a1", 2, 150),
			rawValidator("B", "a2", 2, 19),
			rawValidatorBig(t, "W", "w1", 0, "340282366920938463463374607431768211456"),
		}, &previous)
		require.NoError(t, err)

		// Act
		body, err := json.Marshal(original)
		require.NoError(t, err)

		var restored checker.Snapshot
		err = json.Unmarshal(body, &restored)

		// Assert
		require.NoError(t, err)
		if diff := cmp.Diff(original, restored); diff != "" {
			t.Errorf("snapshot changed after round trip (-want +got):\n%s", diff)
		}
	})
}
