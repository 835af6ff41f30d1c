package game

import (
	"github.com/wfunc/impostor/models"
)

// VoteOutcome tells the caller what a ballot did to the round.
type VoteOutcome string

const (
	// OutcomePending: not every active player has voted yet.
	OutcomePending VoteOutcome = "pending"
	// OutcomeRevote: the ballot tied, a revote among the leaders follows. A tie in the
	// revote itself closes the ballot; it takes OpenVoting to cast again.
	OutcomeRevote VoteOutcome = "revote"
	// OutcomeResult: an innocent player was voted out.
	OutcomeResult VoteOutcome = "result"
	// OutcomeResolution: an impostor was voted out and may guess the word.
	OutcomeResolution VoteOutcome = "resolution"
	// OutcomeBallotReset: the revote lost its candidates, a fresh open vote replaced it.
	OutcomeBallotReset VoteOutcome = "ballot_reset"
)

// RegisterVote records or replaces voterID's ballot in the current bucket and closes
// the ballot once every active player has voted.
func (e *Engine) RegisterVote(room *models.Room, voterID, targetID string, isRevote bool) (VoteOutcome, error) {
	round := room.Round
	if round == nil {
		return "", ErrNoActiveRound
	}
	vs, ok := round.State.(*models.VoteState)
	if !ok {
		return "", ErrNotVotingPhase
	}
	if !vs.Open {
		return "", ErrVotingClosed
	}
	if isRevote != vs.Revote {
		return "", ErrStaleBallot
	}
	if !isActive(room, voterID) {
		return "", ErrVoterIneligible
	}
	if !isActive(room, targetID) {
		return "", ErrInvalidTarget
	}
	if vs.Revote && !contains(vs.Candidates, targetID) {
		return "", ErrInvalidTarget
	}

	replaced := false
	for i := range vs.Votes {
		if vs.Votes[i].VoterID == voterID && vs.Votes[i].IsRevote == isRevote {
			vs.Votes[i].TargetID = targetID
			replaced = true
			break
		}
	}
	if !replaced {
		vs.Votes = append(vs.Votes, models.Vote{VoterID: voterID, TargetID: targetID, IsRevote: isRevote})
	}
	return e.evaluateBallots(room, round, vs)
}

// liveBallots are the ballots of the current bucket cast by players who are still active.
func liveBallots(room *models.Room, vs *models.VoteState) []models.Vote {
	var ballots []models.Vote
	for _, v := range vs.Votes {
		if v.IsRevote == vs.Revote && isActive(room, v.VoterID) {
			ballots = append(ballots, v)
		}
	}
	return ballots
}

// activeCandidates are the revote candidates who can still be voted for.
func activeCandidates(room *models.Room, vs *models.VoteState) []string {
	var ids []string
	for _, id := range vs.Candidates {
		if isActive(room, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// freshBallot replaces a revote that has fewer than two candidates left.
func (e *Engine) freshBallot(round *models.Round) error {
	return e.machine.ChangeState(round, &models.VoteState{Open: true, Candidates: []string{}, Votes: []models.Vote{}})
}

// settleBallot re-checks the ballot after players left the electorate: a revote without
// two candidates starts over, a ballot every remaining voter has filled is counted.
func (e *Engine) settleBallot(room *models.Room) (VoteOutcome, error) {
	round := room.Round
	if round == nil {
		return OutcomePending, nil
	}
	vs, ok := round.State.(*models.VoteState)
	if !ok {
		return OutcomePending, nil
	}
	if vs.Revote && len(activeCandidates(room, vs)) < 2 {
		if err := e.freshBallot(round); err != nil {
			return "", err
		}
		return OutcomeBallotReset, nil
	}
	if !vs.Open {
		return OutcomePending, nil
	}
	return e.evaluateBallots(room, round, vs)
}

func (e *Engine) evaluateBallots(room *models.Room, round *models.Round, vs *models.VoteState) (VoteOutcome, error) {
	ballots := liveBallots(room, vs)
	if len(ballots) == 0 || len(ballots) < ActivePlayerCount(room) {
		return OutcomePending, nil
	}

	leaders, counts := tally(ballots)
	if len(leaders) > 1 {
		next := &models.VoteState{Revote: true, Open: true, Candidates: leaders, Votes: []models.Vote{}}
		if vs.Revote {
			// a tied revote waits for the admin to reopen it
			next = &models.VoteState{Revote: true, Open: false, Candidates: vs.Candidates, Votes: []models.Vote{}}
		}
		if err := e.machine.ChangeState(round, next); err != nil {
			return "", err
		}
		return OutcomeRevote, nil
	}

	accusedID := leaders[0]
	result := buildVoteResult(room, round, accusedID, ballots, counts)
	var next models.PhaseState = &models.ResultState{AccusedID: accusedID, Result: result}
	outcome := OutcomeResult
	if result.WasImpostor {
		next = &models.ResolutionState{AccusedID: accusedID, GuessPending: true, Result: &result}
		outcome = OutcomeResolution
	}
	if err := e.machine.ChangeState(round, next); err != nil {
		return "", err
	}
	if accused, ok := room.Players[accusedID]; ok {
		accused.Status = models.PlayerBenched
	}
	return outcome, nil
}

// tally returns the most voted targets in order of first appearance.
func tally(ballots []models.Vote) ([]string, map[string]int) {
	counts := make(map[string]int)
	var order []string
	for _, v := range ballots {
		if _, seen := counts[v.TargetID]; !seen {
			order = append(order, v.TargetID)
		}
		counts[v.TargetID]++
	}

	best := 0
	for _, n := range counts {
		best = max(best, n)
	}
	var leaders []string
	for _, id := range order {
		if counts[id] == best {
			leaders = append(leaders, id)
		}
	}
	return leaders, counts
}

func buildVoteResult(room *models.Room, round *models.Round, accusedID string, ballots []models.Vote, counts map[string]int) models.VoteResult {
	nickname := "unknown"
	if p, ok := room.Players[accusedID]; ok {
		nickname = p.Nickname
	}
	details := make([]models.VoteDetail, 0, len(ballots))
	for _, v := range ballots {
		details = append(details, models.VoteDetail{VoterID: v.VoterID, TargetID: v.TargetID})
	}
	return models.VoteResult{
		EliminatedID:       accusedID,
		EliminatedNickname: nickname,
		WasImpostor:        round.IsImpostor(accusedID),
		VoteCount:          counts,
		VoteDetails:        details,
	}
}
