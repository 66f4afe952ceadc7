package entities

// CandidateVotes is one tally row.
type CandidateVotes struct {
	Candidate Address
	VoteCount uint64
}

// Result is the resolved outcome of a voting at a given instant.
type Result struct {
	VotingID   uint64
	Phase      Phase
	Final      bool
	Tally      []CandidateVotes
	Winners    []Address
	TotalVotes uint64
}

// Tally counts ballots per candidate, in candidate order.
func Tally(v Voting) []CandidateVotes {
	index := make(map[Address]int, len(v.Candidates))
	rows := make([]CandidateVotes, len(v.Candidates))
	for i, candidate := range v.Candidates {
		index[candidate] = i
		rows[i] = CandidateVotes{Candidate: candidate}
	}
	for _, ballot := range v.Ballots {
		if i, ok := index[ballot.Candidate]; ok {
			rows[i].VoteCount++
		}
	}
	return rows
}

// Winners returns every candidate holding the maximum count, in tally order.
// Ties are never broken: all tied candidates are co-winners.
func Winners(tally []CandidateVotes) []Address {
	var top uint64
	for _, row := range tally {
		if row.VoteCount > top {
			top = row.VoteCount
		}
	}
	winners := make([]Address, 0, 1)
	for _, row := range tally {
		if row.VoteCount == top {
			winners = append(winners, row.Candidate)
		}
	}
	return winners
}

// Resolve builds the Result of v as observed at phase.
func Resolve(v Voting, phase Phase) Result {
	tally := Tally(v)
	var total uint64
	for _, row := range tally {
		total += row.VoteCount
	}
	return Result{
		VotingID:   v.ID,
		Phase:      phase,
		Final:      phase == PhasePast,
		Tally:      tally,
		Winners:    Winners(tally),
		TotalVotes: total,
	}
}
