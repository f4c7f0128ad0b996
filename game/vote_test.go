package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVote_StrictMajorityEliminates(t *testing.T) {
	roster := testRoster()
	votes := map[string]string{
		"h-seer":     "h-killer",
		"h-guardian": "h-killer",
		"h-villager": "h-killer",
		"h-killer":   "h-villager",
	}

	result := ResolveVote(votes, roster)

	require.NotNil(t, result.Eliminated)
	assert.Equal(t, "h-killer", result.Eliminated.Handle)
	assert.False(t, result.NoConsensus)
	assert.False(t, FindByHandle(roster, "h-killer").Alive)
	assert.Equal(t, map[string]int{"h-killer": 3, "h-villager": 1}, result.Tally)
}

func TestResolveVote_TieMeansNoConsensus(t *testing.T) {
	roster := testRoster()
	votes := map[string]string{
		"h-killer":   "h-villager",
		"h-seer":     "h-villager",
		"h-guardian": "h-killer",
		"h-villager": "h-killer",
	}

	result := ResolveVote(votes, roster)

	assert.True(t, result.NoConsensus)
	assert.Nil(t, result.Eliminated)
	assert.Equal(t, 4, CountAlive(roster), "a tied round must not change any alive flag")
	assert.Equal(t, map[string]int{"h-killer": 2, "h-villager": 2}, result.Tally)
}

func TestResolveVote_EmptyBallot(t *testing.T) {
	roster := testRoster()
	result := ResolveVote(map[string]string{}, roster)

	assert.True(t, result.NoConsensus)
	assert.Nil(t, result.Eliminated)
	assert.Empty(t, result.Tally)
}

func TestResolveVote_SingleVoterDecides(t *testing.T) {
	roster := testRoster()
	votes := map[string]string{"h-seer": "h-killer"}

	result := ResolveVote(votes, roster)

	require.NotNil(t, result.Eliminated)
	assert.Equal(t, "h-killer", result.Eliminated.Handle)
}
