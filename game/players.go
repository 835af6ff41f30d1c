package game

import (
	"sort"
	"strings"
	"time"

	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/utils"
)

// KickOutcome reports how removing a player affected the active round.
type KickOutcome struct {
	// RoundCancelled: the last impostor left, the round ended without scoring.
	RoundCancelled bool
	// Summary is set when the kick resolved a pending guess as a failure.
	Summary *models.RoundSummary
	// Vote is set when the kick completed an open ballot.
	Vote VoteOutcome
}

func (e *Engine) newPlayer(nickname string, admin bool) *models.Player {
	now := e.now()
	return &models.Player{
		ID:            e.newID(),
		Nickname:      strings.TrimSpace(nickname),
		SessionToken:  e.newID(),
		Connected:     true,
		Status:        models.PlayerActive,
		IsAdmin:       admin,
		LastHeartbeat: now,
		JoinedAt:      now,
	}
}

// CreateRoom builds a lobby whose only player is its admin.
func (e *Engine) CreateRoom(roomID, adminNickname string) (*models.Room, *models.Player) {
	admin := e.newPlayer(adminNickname, true)
	room := &models.Room{
		ID:         roomID,
		Status:     models.RoomLobby,
		AdminID:    admin.ID,
		Players:    map[string]*models.Player{admin.ID: admin},
		Dictionary: make(map[string]models.WordEntry),
		History:    []models.RoundSummary{},
		Config:     models.RoomConfig{ImpostorCount: 1},
		CreatedAt:  e.now(),
	}
	return room, admin
}

// AddPlayer joins a fresh player. Players joining mid-round are active but hold no role.
func (e *Engine) AddPlayer(room *models.Room, nickname string) *models.Player {
	player := e.newPlayer(nickname, false)
	room.Players[player.ID] = player
	return player
}

func FindPlayerBySession(room *models.Room, token string) (*models.Player, bool) {
	if token == "" {
		return nil, false
	}
	for _, p := range room.Players {
		if p.SessionToken == token {
			return p, true
		}
	}
	return nil, false
}

// ReconnectPlayer revives a disconnected player. Benched players stay benched.
func (e *Engine) ReconnectPlayer(player *models.Player) {
	if player == nil {
		return
	}
	player.Connected = true
	player.LastHeartbeat = e.now()
	if player.Status == models.PlayerDisconnected {
		player.Status = models.PlayerActive
	}
}

func (e *Engine) MarkHeartbeat(player *models.Player) {
	e.ReconnectPlayer(player)
}

func (e *Engine) MarkDisconnected(player *models.Player) {
	if player == nil {
		return
	}
	player.Connected = false
	player.Status = models.PlayerDisconnected
}

// Disconnect marks the player away and re-checks an open ballot, which may now be
// complete or have lost its revote candidates.
func (e *Engine) Disconnect(room *models.Room, player *models.Player) (VoteOutcome, error) {
	e.MarkDisconnected(player)
	return e.settleBallot(room)
}

// SweepDisconnected disconnects connected players whose last heartbeat is older than
// cutoff and returns their IDs.
func (e *Engine) SweepDisconnected(room *models.Room, cutoff time.Time) ([]string, error) {
	var ids []string
	for _, p := range room.Players {
		if p.Connected && p.LastHeartbeat.Before(cutoff) {
			e.MarkDisconnected(p)
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	_, err := e.settleBallot(room)
	return ids, err
}

// KickPlayer removes a player and scrubs them from the active round.
func (e *Engine) KickPlayer(room *models.Room, playerID string) (KickOutcome, error) {
	var outcome KickOutcome
	if _, ok := room.Players[playerID]; !ok {
		return outcome, ErrPlayerNotFound
	}
	delete(room.Players, playerID)

	round := room.Round
	if round == nil {
		return outcome, nil
	}
	round.ImpostorIDs = without(round.ImpostorIDs, playerID)
	if vs, ok := round.State.(*models.VoteState); ok {
		// ballots cast for the kicked player are void, their voters vote again
		votes := vs.Votes[:0]
		for _, v := range vs.Votes {
			if v.VoterID != playerID && v.TargetID != playerID {
				votes = append(votes, v)
			}
		}
		vs.Votes = votes
		vs.Candidates = without(vs.Candidates, playerID)
	}

	if len(round.ImpostorIDs) == 0 {
		e.cancelRound(room)
		outcome.RoundCancelled = true
		return outcome, nil
	}

	if _, ok := round.State.(*models.VoteState); ok {
		vote, err := e.settleBallot(room)
		if err != nil {
			return outcome, err
		}
		if vote != OutcomePending {
			outcome.Vote = vote
		}
		return outcome, nil
	}

	if rs, ok := round.State.(*models.ResolutionState); ok && rs.GuessPending && rs.AccusedID == playerID {
		summary, err := e.ResolveImpostorGuess(room, false)
		if err != nil {
			return outcome, err
		}
		outcome.Summary = summary
	}
	return outcome, nil
}

// UpdateConfig stores the requested impostor count clamped to what the room supports.
func (e *Engine) UpdateConfig(room *models.Room, impostorCount int) int {
	upper := max(1, utils.CeilDiv(ActivePlayerCount(room), PlayersPerImpostor))
	room.Config.ImpostorCount = utils.Clamp(impostorCount, 1, upper)
	return room.Config.ImpostorCount
}

// CloseRoom ends the room for good. An active round is discarded unscored.
func (e *Engine) CloseRoom(room *models.Room) {
	if room.Round != nil {
		e.cancelRound(room)
	}
	room.Status = models.RoomClosed
}

func (e *Engine) cancelRound(room *models.Room) {
	unbenchAll(room)
	room.Round = nil
	if room.Status == models.RoomInRound {
		room.Status = models.RoomLobby
	}
}
