package game

import (
	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/utils"
)

// ContinueOutcome tells the caller what ContinueAfterResult did.
type ContinueOutcome string

const (
	OutcomeContinue    ContinueOutcome = "continue"
	OutcomeSurvivalWin ContinueOutcome = "survival_win"
)

// StartRound picks the secret word, the impostors and the starting player.
func (e *Engine) StartRound(room *models.Room) (*models.Round, error) {
	if room.Status == models.RoomClosed {
		return nil, ErrRoomClosed
	}
	if room.Round != nil {
		return nil, ErrRoundInProgress
	}
	active := activePlayers(room)
	if len(active) < MinActivePlayers {
		return nil, ErrNotEnoughPlayers
	}
	secret, err := utils.PickRandom(e.rng, sortedWords(room))
	if err != nil {
		return nil, ErrEmptyDictionary
	}

	var eligible []*models.Player
	for _, p := range active {
		if p.ID != secret.AuthorID && !p.BlockedForImpostor {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleImpostor
	}

	count := utils.Clamp(room.Config.ImpostorCount, 1, max(1, utils.CeilDiv(len(eligible), PlayersPerImpostor)))
	impostorIDs := make([]string, 0, count)
	for _, p := range utils.Shuffle(e.rng, eligible)[:count] {
		impostorIDs = append(impostorIDs, p.ID)
	}
	starter, err := utils.PickRandom(e.rng, active)
	if err != nil {
		return nil, err
	}

	round := &models.Round{
		ID:           e.newID(),
		SecretWord:   secret.Word,
		Category:     secret.Category,
		WordAuthorID: secret.AuthorID,
		ImpostorIDs:  impostorIDs,
		StarterID:    starter.ID,
		CreatedAt:    e.now(),
	}
	if err := e.machine.ChangeState(round, &models.ClueState{}); err != nil {
		return nil, err
	}

	// a block only lasts for the round that follows the collision
	for _, p := range room.Players {
		p.BlockedForImpostor = false
	}
	room.Round = round
	room.Status = models.RoomInRound
	return round, nil
}

// OpenVoting starts the ballot after clues, or reopens a revote with a fresh ballot. A
// revote whose candidates are no longer active falls back to a full vote.
func (e *Engine) OpenVoting(room *models.Room) error {
	round := room.Round
	if round == nil {
		return ErrNoActiveRound
	}
	var next models.PhaseState
	switch st := round.State.(type) {
	case *models.ClueState:
		next = &models.VoteState{Open: true, Candidates: []string{}, Votes: []models.Vote{}}
	case *models.VoteState:
		if !st.Revote {
			return ErrCannotOpenVoting
		}
		if len(activeCandidates(room, st)) < 2 {
			return e.freshBallot(round)
		}
		candidates := append([]string(nil), st.Candidates...)
		next = &models.VoteState{Revote: true, Open: true, Candidates: candidates, Votes: []models.Vote{}}
	default:
		return ErrCannotOpenVoting
	}
	return e.machine.ChangeState(round, next)
}

// ContinueAfterResult moves on after an innocent was voted out. With too few active
// players left the impostors have survived; the round stays in resolution until
// FinalizeImpostorWinsBySurvival.
func (e *Engine) ContinueAfterResult(room *models.Room) (ContinueOutcome, error) {
	round := room.Round
	if round == nil {
		return "", ErrNoActiveRound
	}
	rs, ok := round.State.(*models.ResultState)
	if !ok || rs.AccusedID == "" {
		return "", ErrNotResultPhase
	}

	if ActivePlayerCount(room) <= SurvivalThreshold {
		result := rs.Result
		next := &models.ResolutionState{AccusedID: rs.AccusedID, Survival: true, Result: &result}
		if err := e.machine.ChangeState(round, next); err != nil {
			return "", err
		}
		return OutcomeSurvivalWin, nil
	}
	if err := e.machine.ChangeState(round, &models.ClueState{}); err != nil {
		return "", err
	}
	return OutcomeContinue, nil
}
