package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/impostor/models"
)

func TestEngine_RegisterVote_Validation(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara := p[0], p[1], p[2]

	_, err := e.RegisterVote(room, ana.ID, bob.ID, false)
	assert.ErrorIs(t, err, ErrNoActiveRound)

	startWithImpostors(t, e, room, p[3])
	_, err = e.RegisterVote(room, ana.ID, bob.ID, false)
	assert.ErrorIs(t, err, ErrNotVotingPhase)

	require.NoError(t, e.OpenVoting(room))
	assert.Equal(t, models.PhaseVote, room.Round.Phase())
	assert.ErrorIs(t, e.OpenVoting(room), ErrCannotOpenVoting)

	_, err = e.RegisterVote(room, ana.ID, bob.ID, true)
	assert.ErrorIs(t, err, ErrStaleBallot)
	_, err = e.RegisterVote(room, "ghost", bob.ID, false)
	assert.ErrorIs(t, err, ErrVoterIneligible)
	_, err = e.RegisterVote(room, ana.ID, "ghost", false)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	e.MarkDisconnected(cara)
	_, err = e.RegisterVote(room, cara.ID, bob.ID, false)
	assert.ErrorIs(t, err, ErrVoterIneligible)
	_, err = e.RegisterVote(room, ana.ID, cara.ID, false)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	vs := room.Round.State.(*models.VoteState)
	assert.Empty(t, vs.Votes, "rejected ballots leave no trace")
}

func TestEngine_RegisterVote_ReplacesBallot(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	startWithImpostors(t, e, room, p[3])
	require.NoError(t, e.OpenVoting(room))

	outcome := castVotes(t, e, room, false, [2]*models.Player{p[0], p[1]}, [2]*models.Player{p[0], p[2]})
	assert.Equal(t, OutcomePending, outcome)

	vs := room.Round.State.(*models.VoteState)
	require.Len(t, vs.Votes, 1)
	assert.Equal(t, p[2].ID, vs.Votes[0].TargetID)
	requireInvariants(t, room)
}

func TestEngine_InnocentVotedOut_Continue(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara, dan := p[0], p[1], p[2], p[3]
	startWithImpostors(t, e, room, dan)
	require.NoError(t, e.OpenVoting(room))

	outcome := castVotes(t, e, room, false,
		[2]*models.Player{ana, bob},
		[2]*models.Player{bob, cara},
		[2]*models.Player{cara, bob},
	)
	assert.Equal(t, OutcomePending, outcome)
	outcome = castVotes(t, e, room, false, [2]*models.Player{dan, bob})
	assert.Equal(t, OutcomeResult, outcome)

	rs, ok := room.Round.State.(*models.ResultState)
	require.True(t, ok)
	assert.Equal(t, bob.ID, rs.AccusedID)
	assert.False(t, rs.Result.WasImpostor)
	assert.Equal(t, "Bob", rs.Result.EliminatedNickname)
	assert.Equal(t, 3, rs.Result.VoteCount[bob.ID])
	assert.Len(t, rs.Result.VoteDetails, 4)
	assert.Equal(t, models.PlayerBenched, bob.Status)
	requireInvariants(t, room)

	next, err := e.ContinueAfterResult(room)
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, next)
	assert.Equal(t, models.PhaseClues, room.Round.Phase())
	assert.Nil(t, room.Round.State.(*models.ClueState).LastVoteResult)

	_, err = e.ContinueAfterResult(room)
	assert.ErrorIs(t, err, ErrNotResultPhase)

	// the benched player sits out the next ballot
	require.NoError(t, e.OpenVoting(room))
	_, err = e.RegisterVote(room, bob.ID, ana.ID, false)
	assert.ErrorIs(t, err, ErrVoterIneligible)
	outcome = castVotes(t, e, room, false,
		[2]*models.Player{ana, dan},
		[2]*models.Player{cara, dan},
	)
	assert.Equal(t, OutcomePending, outcome)
}

func TestEngine_TieGoesToRevote(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara, dan := p[0], p[1], p[2], p[3]
	startWithImpostors(t, e, room, dan)
	require.NoError(t, e.OpenVoting(room))

	tie := [][2]*models.Player{{ana, bob}, {bob, ana}, {cara, bob}, {dan, ana}}
	outcome := castVotes(t, e, room, false, tie...)
	assert.Equal(t, OutcomeRevote, outcome)

	vs, ok := room.Round.State.(*models.VoteState)
	require.True(t, ok)
	assert.Equal(t, models.PhaseRevote, room.Round.Phase())
	assert.True(t, vs.Open)
	assert.Equal(t, []string{bob.ID, ana.ID}, vs.Candidates)
	assert.Empty(t, vs.Votes)
	for _, pl := range p {
		assert.Equal(t, models.PlayerActive, pl.Status, "nobody is benched on a tie")
	}

	_, err := e.RegisterVote(room, ana.ID, bob.ID, false)
	assert.ErrorIs(t, err, ErrStaleBallot)
	_, err = e.RegisterVote(room, ana.ID, cara.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	// a second tie keeps the candidates and waits for the admin
	outcome = castVotes(t, e, room, true, tie...)
	assert.Equal(t, OutcomeRevote, outcome)
	vs = room.Round.State.(*models.VoteState)
	assert.Equal(t, models.PhaseRevote, room.Round.Phase())
	assert.False(t, vs.Open)
	assert.Equal(t, []string{bob.ID, ana.ID}, vs.Candidates)
	assert.Empty(t, vs.Votes)
	requireInvariants(t, room)

	_, err = e.RegisterVote(room, ana.ID, bob.ID, true)
	assert.ErrorIs(t, err, ErrVotingClosed)

	require.NoError(t, e.OpenVoting(room))
	vs = room.Round.State.(*models.VoteState)
	assert.True(t, vs.Open)
	assert.Equal(t, models.PhaseRevote, room.Round.Phase())

	outcome = castVotes(t, e, room, true,
		[2]*models.Player{ana, bob},
		[2]*models.Player{bob, ana},
		[2]*models.Player{cara, bob},
		[2]*models.Player{dan, bob},
	)
	assert.Equal(t, OutcomeResult, outcome)
	assert.Equal(t, bob.ID, room.Round.State.(*models.ResultState).AccusedID)
}

func TestEngine_ThreeWayTie(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara")
	ana, bob, cara := p[0], p[1], p[2]
	startWithImpostors(t, e, room, cara)
	require.NoError(t, e.OpenVoting(room))

	ring := [][2]*models.Player{{ana, bob}, {bob, cara}, {cara, ana}}
	outcome := castVotes(t, e, room, false, ring...)
	assert.Equal(t, OutcomeRevote, outcome)
	vs := room.Round.State.(*models.VoteState)
	assert.True(t, vs.Open)
	assert.Equal(t, []string{bob.ID, cara.ID, ana.ID}, vs.Candidates)

	outcome = castVotes(t, e, room, true, ring...)
	assert.Equal(t, OutcomeRevote, outcome)
	vs = room.Round.State.(*models.VoteState)
	assert.Equal(t, models.PhaseRevote, room.Round.Phase())
	assert.False(t, vs.Open)
	assert.Equal(t, []string{bob.ID, cara.ID, ana.ID}, vs.Candidates)
	for _, pl := range p {
		assert.Equal(t, models.PlayerActive, pl.Status)
	}
	requireInvariants(t, room)
}

func TestEngine_ImpostorGuessesRight(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara, dan := p[0], p[1], p[2], p[3]
	round := startWithImpostors(t, e, room, dan, cara)
	require.NoError(t, e.OpenVoting(room))

	outcome := castVotes(t, e, room, false,
		[2]*models.Player{ana, dan},
		[2]*models.Player{bob, dan},
		[2]*models.Player{cara, ana},
		[2]*models.Player{cara, dan},
		[2]*models.Player{dan, ana},
	)
	assert.Equal(t, OutcomeResolution, outcome)
	rs := round.State.(*models.ResolutionState)
	assert.True(t, rs.GuessPending)
	assert.False(t, rs.Survival)
	assert.Equal(t, dan.ID, rs.AccusedID)
	assert.True(t, rs.Result.WasImpostor)
	assert.Equal(t, models.PlayerBenched, dan.Status)

	_, err := e.FinalizeImpostorWinsBySurvival(room)
	assert.ErrorIs(t, err, ErrNoSurvivalWin)

	summary, err := e.ResolveImpostorGuess(room, true)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, models.WinnerImpostor, summary.Winner)
	assert.Equal(t, map[string]int{dan.ID: 2, cara.ID: 1}, summary.PointsAwarded)
	require.NotNil(t, summary.ImpostorGuessSuccess)
	assert.True(t, *summary.ImpostorGuessSuccess)
	assert.Equal(t, "gato", summary.SecretWord)

	assert.Equal(t, 2, dan.Points)
	assert.Equal(t, 1, cara.Points)
	assert.Zero(t, ana.Points)
	assert.Equal(t, models.PlayerActive, dan.Status)
	assert.Nil(t, room.Round)
	assert.Equal(t, models.RoomLobby, room.Status)
	assert.Len(t, room.History, 1)
	requireInvariants(t, room)

	_, err = e.ResolveImpostorGuess(room, true)
	assert.ErrorIs(t, err, ErrNoActiveRound)
}

func TestEngine_ImpostorGuessFails_VillagersWin(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara, dan := p[0], p[1], p[2], p[3]
	startWithImpostors(t, e, room, dan)
	require.NoError(t, e.OpenVoting(room))
	castVotes(t, e, room, false,
		[2]*models.Player{ana, dan},
		[2]*models.Player{bob, dan},
		[2]*models.Player{cara, dan},
		[2]*models.Player{dan, ana},
	)

	summary, err := e.ResolveImpostorGuess(room, false)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, models.WinnerVillagers, summary.Winner)
	assert.Equal(t, map[string]int{ana.ID: 1, bob.ID: 1, cara.ID: 1}, summary.PointsAwarded)
	assert.Zero(t, dan.Points)
	assert.Equal(t, models.PlayerActive, dan.Status)
	assert.Equal(t, models.RoomLobby, room.Status)
	requireInvariants(t, room)
}

func TestEngine_ImpostorGuessFails_OthersRemain(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan", "Eve")
	ana, bob, cara, dan, eve := p[0], p[1], p[2], p[3], p[4]
	startWithImpostors(t, e, room, dan, eve)
	require.NoError(t, e.OpenVoting(room))
	castVotes(t, e, room, false,
		[2]*models.Player{ana, dan},
		[2]*models.Player{bob, dan},
		[2]*models.Player{cara, dan},
		[2]*models.Player{dan, ana},
		[2]*models.Player{eve, ana},
	)

	summary, err := e.ResolveImpostorGuess(room, false)
	require.NoError(t, err)
	assert.Nil(t, summary)
	require.NotNil(t, room.Round)
	cs, ok := room.Round.State.(*models.ClueState)
	require.True(t, ok)
	require.NotNil(t, cs.LastVoteResult)
	assert.Equal(t, dan.ID, cs.LastVoteResult.EliminatedID)
	assert.Equal(t, models.PlayerBenched, dan.Status)
	assert.Empty(t, room.History)
	requireInvariants(t, room)

	// the next ballot drops the previous result
	require.NoError(t, e.OpenVoting(room))
	assert.Equal(t, models.PhaseVote, room.Round.Phase())
}

func TestEngine_SurvivalWin(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara")
	ana, bob, cara := p[0], p[1], p[2]
	startWithImpostors(t, e, room, cara)
	require.NoError(t, e.OpenVoting(room))
	outcome := castVotes(t, e, room, false,
		[2]*models.Player{ana, bob},
		[2]*models.Player{bob, cara},
		[2]*models.Player{cara, bob},
	)
	require.Equal(t, OutcomeResult, outcome)

	_, err := e.ResolveImpostorGuess(room, true)
	assert.ErrorIs(t, err, ErrNoGuessPending)

	next, err := e.ContinueAfterResult(room)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSurvivalWin, next)
	rs := room.Round.State.(*models.ResolutionState)
	assert.True(t, rs.Survival)
	assert.False(t, rs.GuessPending)

	_, err = e.ResolveImpostorGuess(room, true)
	assert.ErrorIs(t, err, ErrNoGuessPending)

	summary, err := e.FinalizeImpostorWinsBySurvival(room)
	require.NoError(t, err)
	assert.Equal(t, models.WinnerImpostor, summary.Winner)
	assert.Equal(t, map[string]int{cara.ID: 2}, summary.PointsAwarded)
	assert.Nil(t, summary.ImpostorGuessSuccess)
	assert.Equal(t, 2, cara.Points)
	assert.Equal(t, models.PlayerActive, bob.Status)
	assert.Equal(t, models.RoomLobby, room.Status)
	requireInvariants(t, room)
}

func TestEngine_SurvivalWin_FallenImpostorScores(t *testing.T) {
	e := newTestEngine(1)
	room, p := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
	ana, bob, cara, dan := p[0], p[1], p[2], p[3]
	startWithImpostors(t, e, room, cara, dan)
	require.NoError(t, e.OpenVoting(room))
	castVotes(t, e, room, false,
		[2]*models.Player{ana, dan},
		[2]*models.Player{bob, dan},
		[2]*models.Player{cara, dan},
		[2]*models.Player{dan, ana},
	)
	_, err := e.ResolveImpostorGuess(room, false)
	require.NoError(t, err)

	require.NoError(t, e.OpenVoting(room))
	castVotes(t, e, room, false,
		[2]*models.Player{ana, bob},
		[2]*models.Player{bob, cara},
		[2]*models.Player{cara, bob},
	)
	next, err := e.ContinueAfterResult(room)
	require.NoError(t, err)
	require.Equal(t, OutcomeSurvivalWin, next)

	summary, err := e.FinalizeImpostorWinsBySurvival(room)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{cara.ID: 2, dan.ID: 1}, summary.PointsAwarded)
}
