package services

import (
	"testing"

	"meritbot/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGrants_CapsOutgoingTotal(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"alice": testUser("discord-alice", 10),
		"bob":   testUser("discord-bob", 1),
	}
	grants := map[string]map[string]float64{
		"bob": {"alice": 3},
	}

	// Alice may spend at most 10 * 0.05 = 0.5 per round
	normalized := NormalizeGrants(grants, users, 0.05, 0)
	assert.InDelta(t, 0.5, normalized["bob"]["alice"], 1e-9)
}

func TestNormalizeGrants_UnderCapPassesThrough(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"alice": testUser("discord-alice", 100),
		"bob":   testUser("discord-bob", 1),
	}
	grants := map[string]map[string]float64{
		"bob": {"alice": 3},
	}

	// Cap is 100 * 0.05 = 5, so the grant is untouched
	normalized := NormalizeGrants(grants, users, 0.05, 0)
	assert.Equal(t, 3.0, normalized["bob"]["alice"])
}

func TestNormalizeGrants_ScalesProportionally(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"alice": testUser("discord-alice", 10),
		"bob":   testUser("discord-bob", 1),
		"carol": testUser("discord-carol", 1),
	}
	grants := map[string]map[string]float64{
		"bob":   {"alice": 3},
		"carol": {"alice": 1},
	}

	// Total 4 over a cap of 0.5: each grant keeps its share of the cap
	normalized := NormalizeGrants(grants, users, 0.05, 0)
	assert.InDelta(t, 0.375, normalized["bob"]["alice"], 1e-9)
	assert.InDelta(t, 0.125, normalized["carol"]["alice"], 1e-9)

	var sent float64
	for _, amount := range SentGrants(normalized, "alice") {
		sent += amount
	}
	assert.InDelta(t, 0.5, sent, 1e-9)
}

func TestNormalizeGrants_DegenerateSenders(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"zero":  testUser("discord-zero", 0, 0),
		"fresh": {DiscordID: "discord-fresh", Reputations: []float64{5}},
		"bob":   testUser("discord-bob", 1),
	}
	grants := map[string]map[string]float64{
		"bob": {
			"zero":  4, // zero reputation
			"ghost": 4, // unknown user
			"fresh": 4, // history shorter than the requested shift
		},
	}

	normalized := NormalizeGrants(grants, users, 0.05, 1)
	assert.Zero(t, normalized["bob"]["zero"])
	assert.Zero(t, normalized["bob"]["ghost"])
	assert.Zero(t, normalized["bob"]["fresh"])
}

func TestNormalizeGrants_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"alice": testUser("discord-alice", 10),
		"bob":   testUser("discord-bob", 1),
	}
	grants := map[string]map[string]float64{
		"bob": {"alice": 3},
	}

	NormalizeGrants(grants, users, 0.05, 0)
	assert.Equal(t, 3.0, grants["bob"]["alice"])
}

func TestReceivedAndSentGrants_AreProjectionsOfTheSameResult(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"alice": testUser("discord-alice", 10),
		"bob":   testUser("discord-bob", 20),
		"carol": testUser("discord-carol", 1),
	}
	grants := map[string]map[string]float64{
		"carol": {"alice": 3, "bob": 1},
		"bob":   {"alice": 2},
	}

	normalized := NormalizeGrants(grants, users, 0.05, 0)

	received := ReceivedGrants(normalized, "carol")
	require.Len(t, received, 2)
	assert.Equal(t, normalized["carol"]["alice"], received["alice"])
	assert.Equal(t, normalized["carol"]["bob"], received["bob"])

	sent := SentGrants(normalized, "alice")
	require.Len(t, sent, 2)
	assert.Equal(t, normalized["carol"]["alice"], sent["carol"])
	assert.Equal(t, normalized["bob"]["alice"], sent["bob"])
}
