package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/impostor/models"
)

func newTestEngine(seed uint64) *Engine {
	n := 0
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return New(
		WithRand(rand.NewPCG(seed, seed+1)),
		WithIDs(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
}

// newTestRoom creates a room whose admin is the first nickname and whose dictionary
// holds one word authored by the admin.
func newTestRoom(t *testing.T, e *Engine, nicknames ...string) (*models.Room, []*models.Player) {
	t.Helper()
	room, admin := e.CreateRoom("ROOM1", nicknames[0])
	players := []*models.Player{admin}
	for _, nick := range nicknames[1:] {
		players = append(players, e.AddPlayer(room, nick))
	}
	_, err := e.AddWord(room, admin.ID, "gato", "animales")
	require.NoError(t, err)
	return room, players
}

// startWithImpostors starts a round and overrides the drawn roles.
func startWithImpostors(t *testing.T, e *Engine, room *models.Room, impostors ...*models.Player) *models.Round {
	t.Helper()
	round, err := e.StartRound(room)
	require.NoError(t, err)
	round.ImpostorIDs = nil
	for _, p := range impostors {
		round.ImpostorIDs = append(round.ImpostorIDs, p.ID)
	}
	return round
}

func castVotes(t *testing.T, e *Engine, room *models.Room, revote bool, ballots ...[2]*models.Player) VoteOutcome {
	t.Helper()
	var outcome VoteOutcome
	for _, b := range ballots {
		var err error
		outcome, err = e.RegisterVote(room, b[0].ID, b[1].ID, revote)
		require.NoError(t, err)
	}
	return outcome
}

func requireInvariants(t *testing.T, room *models.Room) {
	t.Helper()
	if room.Status != models.RoomClosed {
		require.Equal(t, room.Round == nil, room.Status == models.RoomLobby, "lobby iff no round")
	}
	admins := 0
	for _, p := range room.Players {
		if p.IsAdmin {
			admins++
		}
		require.GreaterOrEqual(t, p.Points, 0)
	}
	require.Equal(t, 1, admins)
	if room.Round == nil {
		return
	}
	for _, id := range room.Round.ImpostorIDs {
		require.Contains(t, room.Players, id)
	}
	if vs, ok := room.Round.State.(*models.VoteState); ok {
		for _, v := range vs.Votes {
			require.Equal(t, vs.Revote, v.IsRevote, "ballot in wrong bucket")
		}
	}
}

func TestEngine_CreateRoom(t *testing.T) {
	e := newTestEngine(1)
	room, admin := e.CreateRoom("ABCD", "Ana")

	assert.Equal(t, models.RoomLobby, room.Status)
	assert.Equal(t, admin.ID, room.AdminID)
	assert.Len(t, room.Players, 1)
	assert.True(t, admin.IsAdmin)
	assert.Zero(t, admin.Points)
	assert.Equal(t, models.PlayerActive, admin.Status)
	assert.NotEmpty(t, admin.SessionToken)
	assert.Equal(t, 1, room.Config.ImpostorCount)
	assert.Nil(t, room.Round)

	bob := e.AddPlayer(room, "  Bob ")
	assert.Equal(t, "Bob", bob.Nickname)
	assert.False(t, bob.IsAdmin)
	requireInvariants(t, room)

	found, ok := FindPlayerBySession(room, bob.SessionToken)
	require.True(t, ok)
	assert.Equal(t, bob.ID, found.ID)
	_, ok = FindPlayerBySession(room, "")
	assert.False(t, ok)
	_, ok = FindPlayerBySession(room, "nope")
	assert.False(t, ok)
}

func TestEngine_AddWord(t *testing.T) {
	e := newTestEngine(1)
	room, players := newTestRoom(t, e, "Ana", "Bob", "Cara")
	bob := players[1]

	res, err := e.AddWord(room, bob.ID, "  Gató ", "animales")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.True(t, bob.BlockedForImpostor)
	assert.Len(t, room.Dictionary, 1)

	res, err = e.AddWord(room, bob.ID, "Perro", " animales ")
	require.NoError(t, err)
	require.True(t, res.Added)
	assert.Equal(t, "perro", res.Entry.Normalized)
	assert.Equal(t, "Perro", res.Entry.Word)
	assert.Equal(t, "animales", res.Entry.Category)
	assert.Equal(t, bob.ID, room.Dictionary["perro"].AuthorID)

	_, err = e.AddWord(room, bob.ID, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyWord)
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = e.AddWord(room, "ghost", "lobo", "")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestEngine_AnaAndBobStartRound(t *testing.T) {
	e := newTestEngine(7)
	room, ana := e.CreateRoom("ROOM1", "Ana")
	assert.Equal(t, models.RoomLobby, room.Status)
	require.Len(t, room.Players, 1)
	assert.True(t, ana.IsAdmin)
	assert.Zero(t, ana.Points)

	bob := e.AddPlayer(room, "Bob")
	e.AddPlayer(room, "Cara")
	_, err := e.AddWord(room, ana.ID, "gato", "animales")
	require.NoError(t, err)
	_, err = e.AddWord(room, bob.ID, "perro", "animales")
	require.NoError(t, err)
	assert.True(t, CanStartRound(room))

	round, err := e.StartRound(room)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseClues, round.Phase())
	assert.Equal(t, "animales", round.Category)
	assert.Contains(t, []string{"gato", "perro"}, round.SecretWord)
	require.Len(t, round.ImpostorIDs, 1)
	assert.NotEqual(t, round.WordAuthorID, round.ImpostorIDs[0])
	if round.SecretWord == "gato" {
		assert.Equal(t, ana.ID, round.WordAuthorID)
	} else {
		assert.Equal(t, bob.ID, round.WordAuthorID)
	}
	requireInvariants(t, room)
}

func TestEngine_StartRound_Preconditions(t *testing.T) {
	e := newTestEngine(1)

	room, _ := newTestRoom(t, e, "Ana", "Bob")
	assert.False(t, CanStartRound(room))
	_, err := e.StartRound(room)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	room, _ = e.CreateRoom("EMPTY", "Ana")
	e.AddPlayer(room, "Bob")
	e.AddPlayer(room, "Cara")
	_, err = e.StartRound(room)
	assert.ErrorIs(t, err, ErrEmptyDictionary)

	room, _ = newTestRoom(t, e, "Ana", "Bob", "Cara")
	require.True(t, CanStartRound(room))
	_, err = e.StartRound(room)
	require.NoError(t, err)
	_, err = e.StartRound(room)
	assert.ErrorIs(t, err, ErrRoundInProgress)
	assert.False(t, CanStartRound(room))

	e.CloseRoom(room)
	_, err = e.StartRound(room)
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestEngine_StartRound_ImpostorPool(t *testing.T) {
	e := newTestEngine(7)
	room, players := newTestRoom(t, e, "Ana", "Bob", "Cara")
	ana, bob, cara := players[0], players[1], players[2]

	// Bob collided with the admin's word, Ana authored it: only Cara is eligible
	_, err := e.AddWord(room, bob.ID, "GATO", "")
	require.NoError(t, err)

	round, err := e.StartRound(room)
	require.NoError(t, err)
	assert.Equal(t, []string{cara.ID}, round.ImpostorIDs)
	assert.Equal(t, "gato", round.SecretWord)
	assert.Equal(t, ana.ID, round.WordAuthorID)
	assert.Equal(t, models.PhaseClues, round.Phase())
	assert.Equal(t, models.RoomInRound, room.Status)
	assert.False(t, bob.BlockedForImpostor, "block is cleared at round start")
	requireInvariants(t, room)
}

func TestEngine_StartRound_NoEligibleImpostor(t *testing.T) {
	e := newTestEngine(1)
	room, players := newTestRoom(t, e, "Ana", "Bob", "Cara")
	for _, p := range players[1:] {
		_, err := e.AddWord(room, p.ID, "gato", "")
		require.NoError(t, err)
	}

	_, err := e.StartRound(room)
	assert.ErrorIs(t, err, ErrNoEligibleImpostor)
	assert.ErrorIs(t, err, ErrStructural)
	assert.False(t, errors.Is(err, ErrPrecondition))
	assert.Nil(t, room.Round)
	assert.Equal(t, models.RoomLobby, room.Status)
}

func TestEngine_StartRound_RoleProperties(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		e := newTestEngine(seed)
		room, _ := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan", "Eve", "Fer", "Gus")
		_, err := e.AddWord(room, room.AdminID, "perro", "")
		require.NoError(t, err)

		// 7 active players allow 3, but 6 eligible players only allow 2
		assert.Equal(t, 3, e.UpdateConfig(room, 5))
		round, err := e.StartRound(room)
		require.NoError(t, err)

		require.Len(t, round.ImpostorIDs, 2, "seed %d", seed)
		seen := make(map[string]bool)
		for _, id := range round.ImpostorIDs {
			assert.False(t, seen[id], "duplicate impostor")
			seen[id] = true
			assert.NotEqual(t, round.WordAuthorID, id)
			assert.Equal(t, models.PlayerActive, room.Players[id].Status)
		}
		assert.Contains(t, room.Players, round.StarterID)
		requireInvariants(t, room)
	}
}

func TestEngine_StartRound_Reproducible(t *testing.T) {
	draw := func() *models.Round {
		e := newTestEngine(42)
		room, _ := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")
		_, err := e.AddWord(room, room.AdminID, "perro", "")
		require.NoError(t, err)
		round, err := e.StartRound(room)
		require.NoError(t, err)
		return round
	}
	a, b := draw(), draw()
	assert.Equal(t, a.SecretWord, b.SecretWord)
	assert.Equal(t, a.ImpostorIDs, b.ImpostorIDs)
	assert.Equal(t, a.StarterID, b.StarterID)
}

func TestEngine_UpdateConfig(t *testing.T) {
	e := newTestEngine(1)
	room, _ := newTestRoom(t, e, "Ana", "Bob", "Cara", "Dan")

	assert.Equal(t, 2, e.UpdateConfig(room, 9))
	assert.Equal(t, 1, e.UpdateConfig(room, 0))
	assert.Equal(t, 1, e.UpdateConfig(room, -3))
	assert.Equal(t, 2, e.UpdateConfig(room, 2))
	assert.Equal(t, 2, room.Config.ImpostorCount)
}
