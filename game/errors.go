package game

import (
	"errors"
	"fmt"
)

// Every engine failure belongs to one of two families, test with errors.Is.
var (
	// ErrPrecondition: the request does not fit the room's current state.
	ErrPrecondition = errors.New("precondition not met")
	// ErrStructural: the room is configured so that no valid round can be formed.
	ErrStructural = errors.New("round cannot be formed")
)

var (
	ErrRoomClosed       = fmt.Errorf("%w: room is closed", ErrPrecondition)
	ErrRoundInProgress  = fmt.Errorf("%w: a round is already in progress", ErrPrecondition)
	ErrNotEnoughPlayers = fmt.Errorf("%w: at least %d active players are required", ErrPrecondition, MinActivePlayers)
	ErrEmptyDictionary  = fmt.Errorf("%w: the dictionary is empty", ErrPrecondition)
	ErrNoActiveRound    = fmt.Errorf("%w: no round in progress", ErrPrecondition)
	ErrCannotOpenVoting = fmt.Errorf("%w: voting can only be opened after clues or to reopen a revote", ErrPrecondition)
	ErrNotVotingPhase   = fmt.Errorf("%w: not a voting phase", ErrPrecondition)
	ErrVotingClosed     = fmt.Errorf("%w: voting is closed", ErrPrecondition)
	ErrStaleBallot      = fmt.Errorf("%w: ballot does not match the current voting round", ErrPrecondition)
	ErrVoterIneligible  = fmt.Errorf("%w: player cannot vote", ErrPrecondition)
	ErrInvalidTarget    = fmt.Errorf("%w: invalid vote target", ErrPrecondition)
	ErrNotResultPhase   = fmt.Errorf("%w: not in result phase", ErrPrecondition)
	ErrNoGuessPending   = fmt.Errorf("%w: no impostor guess pending", ErrPrecondition)
	ErrNoSurvivalWin    = fmt.Errorf("%w: impostors have not won by survival", ErrPrecondition)
	ErrEmptyWord        = fmt.Errorf("%w: word is empty", ErrPrecondition)
	ErrPlayerNotFound   = fmt.Errorf("%w: player not found", ErrPrecondition)

	ErrNoEligibleImpostor = fmt.Errorf("%w: no player is eligible to be impostor", ErrStructural)
)
