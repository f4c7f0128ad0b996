// game/vote.go
package game

// VoteResult describes one resolved voting round. Eliminated is nil when
// the round ends in no consensus. The tally (target handle -> votes) is
// always returned for broadcast transparency.
type VoteResult struct {
	Eliminated  *Player
	NoConsensus bool
	Tally       map[string]int
}

// ResolveVote tallies the round's votes (voter handle -> target handle)
// and eliminates the target with strictly the most votes. A tie for the
// maximum means nobody is eliminated; ties never resolve randomly or by
// insertion order. Target validity (alive, not self, known) is enforced
// at submission time, not here.
func ResolveVote(votes map[string]string, roster []*Player) VoteResult {
	tally := make(map[string]int, len(votes))
	for _, target := range votes {
		tally[target]++
	}

	result := VoteResult{Tally: tally}

	max := 0
	leaders := 0
	var top string
	for target, count := range tally {
		switch {
		case count > max:
			max = count
			leaders = 1
			top = target
		case count == max:
			leaders++
		}
	}

	if max == 0 || leaders != 1 {
		result.NoConsensus = true
		return result
	}

	victim := FindByHandle(roster, top)
	if victim == nil || !victim.Alive {
		// submission-time checks should make this unreachable
		result.NoConsensus = true
		return result
	}

	victim.Alive = false
	result.Eliminated = victim
	return result
}
