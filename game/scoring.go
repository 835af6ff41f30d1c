package game

import (
	"github.com/wfunc/impostor/models"
)

const (
	impostorGuessPoints    = 2
	impostorAssistPoints   = 1
	villagerWinPoints      = 1
	survivingImpostorBonus = 2
	fallenImpostorPoints   = 1
)

// ResolveImpostorGuess settles the accused impostor's guess of the secret word. A wrong
// guess with impostors still active sends the round back to clues and returns nil.
func (e *Engine) ResolveImpostorGuess(room *models.Room, success bool) (*models.RoundSummary, error) {
	round := room.Round
	if round == nil {
		return nil, ErrNoActiveRound
	}
	rs, ok := round.State.(*models.ResolutionState)
	if !ok || !rs.GuessPending {
		return nil, ErrNoGuessPending
	}

	if success {
		guesser := rs.AccusedID
		if guesser == "" && len(round.ImpostorIDs) > 0 {
			guesser = round.ImpostorIDs[0]
		}
		points := make(map[string]int)
		for _, id := range round.ImpostorIDs {
			if id == guesser {
				points[id] = impostorGuessPoints
			} else {
				points[id] = impostorAssistPoints
			}
		}
		guessed := true
		return e.finishRound(room, models.WinnerImpostor, rs.AccusedID, &guessed, points), nil
	}

	remaining := 0
	for _, id := range round.ImpostorIDs {
		if isActive(room, id) {
			remaining++
		}
	}
	if remaining == 0 {
		points := make(map[string]int)
		for id := range room.Players {
			if !round.IsImpostor(id) {
				points[id] = villagerWinPoints
			}
		}
		guessed := false
		return e.finishRound(room, models.WinnerVillagers, rs.AccusedID, &guessed, points), nil
	}

	if err := e.machine.ChangeState(round, &models.ClueState{LastVoteResult: rs.Result}); err != nil {
		return nil, err
	}
	return nil, nil
}

// FinalizeImpostorWinsBySurvival closes a round the impostors survived.
func (e *Engine) FinalizeImpostorWinsBySurvival(room *models.Room) (*models.RoundSummary, error) {
	round := room.Round
	if round == nil {
		return nil, ErrNoActiveRound
	}
	rs, ok := round.State.(*models.ResolutionState)
	if !ok || !rs.Survival {
		return nil, ErrNoSurvivalWin
	}

	points := make(map[string]int)
	for _, id := range round.ImpostorIDs {
		if isActive(room, id) {
			points[id] = survivingImpostorBonus
		} else {
			points[id] = fallenImpostorPoints
		}
	}
	return e.finishRound(room, models.WinnerImpostor, rs.AccusedID, nil, points), nil
}

// finishRound applies points, records the summary and returns the room to its lobby.
func (e *Engine) finishRound(room *models.Room, winner models.Winner, accusedID string, guessSuccess *bool, points map[string]int) *models.RoundSummary {
	round := room.Round
	round.Winner = winner
	for id, pts := range points {
		if p, ok := room.Players[id]; ok {
			p.Points += pts
		}
	}

	summary := models.RoundSummary{
		RoundID:              round.ID,
		Winner:               winner,
		AccusedID:            accusedID,
		ImpostorGuessSuccess: guessSuccess,
		PointsAwarded:        points,
		SecretWord:           round.SecretWord,
		ImpostorIDs:          append([]string(nil), round.ImpostorIDs...),
		FinishedAt:           e.now(),
	}
	room.History = append(room.History, summary)
	e.cancelRound(room)
	return &summary
}
