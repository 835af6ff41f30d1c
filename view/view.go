// Package view projects a room into what one player is allowed to see.
package view

import (
	"time"

	"github.com/wfunc/impostor/game"
	"github.com/wfunc/impostor/models"
)

type PublicPlayer struct {
	ID        string              `json:"id"`
	Nickname  string              `json:"nickname"`
	Connected bool                `json:"connected"`
	Status    models.PlayerStatus `json:"status"`
	Points    int                 `json:"points"`
	IsAdmin   bool                `json:"isAdmin"`
}

type PublicRound struct {
	ID                   string             `json:"id"`
	Phase                models.Phase       `json:"phase"`
	Category             string             `json:"category"`
	StarterID            string             `json:"starterId"`
	SecretWord           string             `json:"secretWord,omitempty"`
	ImpostorIDs          []string           `json:"impostorIds,omitempty"`
	IsImpostor           bool               `json:"isImpostor"`
	Votes                []models.Vote      `json:"votes"`
	VotingOpen           bool               `json:"votingOpen"`
	RevoteCandidates     []string           `json:"revoteCandidates"`
	TotalVotesReceived   int                `json:"totalVotesReceived"`
	TotalVotesNeeded     int                `json:"totalVotesNeeded"`
	AccusedID            string             `json:"accusedId,omitempty"`
	ImpostorGuessPending bool               `json:"impostorGuessPending"`
	SurvivalWin          bool               `json:"survivalWin"`
	LastVoteResult       *models.VoteResult `json:"lastVoteResult,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
}

type PublicRoom struct {
	ID              string                      `json:"id"`
	Status          models.RoomStatus           `json:"status"`
	AdminID         string                      `json:"adminId"`
	Players         map[string]PublicPlayer     `json:"players"`
	Dictionary      map[string]models.WordEntry `json:"dictionary"`
	DictionaryCount int                         `json:"dictionaryCount"`
	Round           *PublicRound                `json:"round"`
	History         []models.RoundSummary       `json:"history"`
	Config          models.RoomConfig           `json:"config"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

// Project never exposes session tokens, impostor blocks or other players' words.
// The secret word only reaches players of the room who are not impostors, the
// impostor list only reaches the impostors themselves.
func Project(room *models.Room, viewerID string) PublicRoom {
	out := PublicRoom{
		ID:              room.ID,
		Status:          room.Status,
		AdminID:         room.AdminID,
		Players:         make(map[string]PublicPlayer, len(room.Players)),
		Dictionary:      make(map[string]models.WordEntry),
		DictionaryCount: len(room.Dictionary),
		History:         append([]models.RoundSummary{}, room.History...),
		Config:          room.Config,
		CreatedAt:       room.CreatedAt,
	}
	for id, p := range room.Players {
		out.Players[id] = PublicPlayer{
			ID:        p.ID,
			Nickname:  p.Nickname,
			Connected: p.Connected,
			Status:    p.Status,
			Points:    p.Points,
			IsAdmin:   p.IsAdmin,
		}
	}
	for key, entry := range room.Dictionary {
		if viewerID != "" && entry.AuthorID == viewerID {
			out.Dictionary[key] = entry
		}
	}
	if room.Round != nil {
		out.Round = projectRound(room, room.Round, viewerID)
	}
	return out
}

func projectRound(room *models.Room, round *models.Round, viewerID string) *PublicRound {
	_, member := room.Players[viewerID]
	impostor := round.IsImpostor(viewerID)

	out := &PublicRound{
		ID:               round.ID,
		Phase:            round.Phase(),
		Category:         round.Category,
		StarterID:        round.StarterID,
		IsImpostor:       impostor,
		Votes:            []models.Vote{},
		RevoteCandidates: []string{},
		TotalVotesNeeded: game.ActivePlayerCount(room),
		CreatedAt:        round.CreatedAt,
	}
	if member && !impostor {
		out.SecretWord = round.SecretWord
	}
	if impostor {
		out.ImpostorIDs = append([]string{}, round.ImpostorIDs...)
	}

	switch st := round.State.(type) {
	case *models.ClueState:
		out.LastVoteResult = st.LastVoteResult
	case *models.VoteState:
		out.VotingOpen = st.Open
		out.Votes = append(out.Votes, st.Votes...)
		out.RevoteCandidates = append(out.RevoteCandidates, st.Candidates...)
		for _, v := range st.Votes {
			if v.IsRevote == st.Revote {
				if p, ok := room.Players[v.VoterID]; ok && p.Status == models.PlayerActive {
					out.TotalVotesReceived++
				}
			}
		}
	case *models.ResultState:
		out.AccusedID = st.AccusedID
		result := st.Result
		out.LastVoteResult = &result
	case *models.ResolutionState:
		out.AccusedID = st.AccusedID
		out.ImpostorGuessPending = st.GuessPending
		out.SurvivalWin = st.Survival
		out.LastVoteResult = st.Result
	}
	return out
}
