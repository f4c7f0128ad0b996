package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateWin(t *testing.T) {
	cases := []struct {
		name   string
		roster []*Player
		want   Verdict
	}{
		{
			"no living killer",
			[]*Player{
				{Handle: "a", Role: RoleKiller, Alive: false},
				{Handle: "b", Role: RoleVillager, Alive: true},
				{Handle: "c", Role: RoleSeer, Alive: true},
			},
			VerdictTownWins,
		},
		{
			"two killers vs two others",
			[]*Player{
				{Handle: "a", Role: RoleKiller, Alive: true},
				{Handle: "b", Role: RoleKiller, Alive: true},
				{Handle: "c", Role: RoleVillager, Alive: true},
				{Handle: "d", Role: RoleSeer, Alive: true},
			},
			VerdictKillersWin,
		},
		{
			"one killer vs two others",
			[]*Player{
				{Handle: "a", Role: RoleKiller, Alive: true},
				{Handle: "b", Role: RoleVillager, Alive: true},
				{Handle: "c", Role: RoleSeer, Alive: true},
			},
			VerdictUndecided,
		},
		{
			"dead players do not count",
			[]*Player{
				{Handle: "a", Role: RoleKiller, Alive: true},
				{Handle: "b", Role: RoleVillager, Alive: false},
				{Handle: "c", Role: RoleVillager, Alive: false},
				{Handle: "d", Role: RoleVillager, Alive: true},
			},
			VerdictKillersWin,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EvaluateWin(tc.roster))
		})
	}
}

func TestVerdict_Decided(t *testing.T) {
	assert.False(t, VerdictUndecided.Decided())
	assert.True(t, VerdictTownWins.Decided())
	assert.True(t, VerdictKillersWin.Decided())
}
