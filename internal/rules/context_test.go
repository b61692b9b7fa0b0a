package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
)

// Nil and empty transfer whitelists mean opposite things (unrestricted vs.
// block everyone), so serialized rule state must keep them apart: null for
// nil, [] for empty, never an absent field.
func TestRuleSetJSON_TransferWhitelistNilVersusEmpty(t *testing.T) {
	t.Run("nil whitelist serializes as null", func(t *testing.T) {
		data, err := json.Marshal(RuleSet{})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"transfer_whitelist":null`)

		var back RuleSet
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Nil(t, back.TransferWhitelist)
	})

	t.Run("empty whitelist serializes as an empty list", func(t *testing.T) {
		data, err := json.Marshal(RuleSet{TransferWhitelist: []id.InvestorID{}})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"transfer_whitelist":[]`)

		var back RuleSet
		require.NoError(t, json.Unmarshal(data, &back))
		require.NotNil(t, back.TransferWhitelist)
		assert.Empty(t, back.TransferWhitelist)
	})

	t.Run("block-all rule state survives a round trip", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.Rules.TransferWhitelist = []id.InvestorID{}

		data, err := json.Marshal(ctx.Rules)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &ctx.Rules))

		result := Evaluate(ctx)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			`Recipient investor "Beta Vermoegen GmbH" not in transfer whitelist.`)
	})
}
