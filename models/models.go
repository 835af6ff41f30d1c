// models/models.go
package models

import (
	"time"
)

type RoomStatus string

const (
	RoomLobby   RoomStatus = "lobby"
	RoomInRound RoomStatus = "in_round"
	RoomClosed  RoomStatus = "closed"
)

type PlayerStatus string

const (
	PlayerActive       PlayerStatus = "active"
	PlayerBenched      PlayerStatus = "benched"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Player is a participant of a room. SessionToken is the only credential a client holds.
type Player struct {
	ID            string       `json:"id"`
	Nickname      string       `json:"nickname"`
	SessionToken  string       `json:"sessionToken"`
	Connected     bool         `json:"connected"`
	Status        PlayerStatus `json:"status"`
	Points        int          `json:"points"`
	IsAdmin       bool         `json:"isAdmin"`
	LastHeartbeat time.Time    `json:"lastHeartbeat"`
	JoinedAt      time.Time    `json:"joinedAt"`
	// BlockedForImpostor excludes the player from the impostor pool of the next round.
	BlockedForImpostor bool `json:"blockedForImpostor"`
}

// WordEntry is a dictionary candidate, keyed in Room.Dictionary by Normalized.
type WordEntry struct {
	Word       string    `json:"word"`
	Normalized string    `json:"normalized"`
	Category   string    `json:"category"`
	AuthorID   string    `json:"authorId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RoomConfig struct {
	ImpostorCount int `json:"impostorCount"`
}

// Room is the unit of storage: everything a game needs lives here.
type Room struct {
	ID         string               `json:"id"`
	Status     RoomStatus           `json:"status"`
	AdminID    string               `json:"adminId"`
	Players    map[string]*Player   `json:"players"`
	Dictionary map[string]WordEntry `json:"dictionary"`
	Round      *Round               `json:"round"`
	History    []RoundSummary       `json:"history"`
	Config     RoomConfig           `json:"config"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type Winner string

const (
	WinnerImpostor  Winner = "impostor"
	WinnerVillagers Winner = "villagers"
)

// RoundSummary is the immutable record of a finished round.
type RoundSummary struct {
	RoundID              string         `json:"roundId"`
	Winner               Winner         `json:"winner"`
	AccusedID            string         `json:"accusedId,omitempty"`
	ImpostorGuessSuccess *bool          `json:"impostorGuessSuccess,omitempty"`
	PointsAwarded        map[string]int `json:"pointsAwarded"`
	SecretWord           string         `json:"secretWord"`
	ImpostorIDs          []string       `json:"impostorIds"`
	FinishedAt           time.Time      `json:"finishedAt"`
}

// GameRecord is what the history archive keeps for one finished round.
type GameRecord struct {
	RoomID  string       `json:"room_id"`
	Summary RoundSummary `json:"summary"`
	Players []PlayerInfo `json:"players"`
}

const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
)

// PlayerInfo describes one participant of an archived round.
type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Outcome  string `json:"outcome"` // win/lose
	Points   int    `json:"points"`
}

// LeaderboardEntry is one row of a room leaderboard.
type LeaderboardEntry struct {
	PlayerID     string `json:"playerId"`
	Nickname     string `json:"nickname"`
	Points       int    `json:"points"`
	RoundsPlayed int    `json:"roundsPlayed"`
	RoundsWon    int    `json:"roundsWon"`
}
