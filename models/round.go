// models/round.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClues      Phase = "clues"
	PhaseVote       Phase = "vote"
	PhaseRevote     Phase = "revote"
	PhaseResult     Phase = "result"
	PhaseResolution Phase = "resolution"
)

// Vote is one ballot. IsRevote selects the bucket it belongs to.
type Vote struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
	IsRevote bool   `json:"isRevote,omitempty"`
}

// VoteDetail records who voted for whom in a closed ballot.
type VoteDetail struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
}

// VoteResult is the outcome of a ballot that produced a unique accused player.
type VoteResult struct {
	EliminatedID       string         `json:"eliminatedId"`
	EliminatedNickname string         `json:"eliminatedNickname"`
	WasImpostor        bool           `json:"wasImpostor"`
	VoteCount          map[string]int `json:"voteCount"`
	VoteDetails        []VoteDetail   `json:"voteDetails"`
}

// PhaseState carries the data that is only meaningful in one phase of a round.
type PhaseState interface {
	Phase() Phase
}

// ClueState: players describe the word. LastVoteResult survives from a ballot that
// ended in a failed impostor guess, until the next ballot opens.
type ClueState struct {
	LastVoteResult *VoteResult `json:"lastVoteResult,omitempty"`
}

func (*ClueState) Phase() Phase { return PhaseClues }

// VoteState covers both the first ballot and revotes among tied candidates.
type VoteState struct {
	Revote     bool     `json:"revote"`
	Open       bool     `json:"open"`
	Candidates []string `json:"candidates"`
	Votes      []Vote   `json:"votes"`
}

func (s *VoteState) Phase() Phase {
	if s.Revote {
		return PhaseRevote
	}
	return PhaseVote
}

// ResultState: an innocent player was voted out.
type ResultState struct {
	AccusedID string     `json:"accusedId"`
	Result    VoteResult `json:"result"`
}

func (*ResultState) Phase() Phase { return PhaseResult }

// ResolutionState: either an accused impostor gets to guess the word (GuessPending),
// or the impostors survived down to two active players (Survival).
type ResolutionState struct {
	AccusedID    string      `json:"accusedId"`
	GuessPending bool        `json:"guessPending"`
	Survival     bool        `json:"survival"`
	Result       *VoteResult `json:"result,omitempty"`
}

func (*ResolutionState) Phase() Phase { return PhaseResolution }

// Round is the single active round of a room.
type Round struct {
	ID           string     `json:"id"`
	SecretWord   string     `json:"secretWord"`
	Category     string     `json:"category"`
	WordAuthorID string     `json:"wordAuthorId"`
	ImpostorIDs  []string   `json:"impostorIds"`
	StarterID    string     `json:"starterId"`
	Winner       Winner     `json:"winner,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	State        PhaseState `json:"-"`
}

func (r *Round) Phase() Phase {
	if r.State == nil {
		return PhaseIdle
	}
	return r.State.Phase()
}

func (r *Round) IsImpostor(playerID string) bool {
	for _, id := range r.ImpostorIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

func (r Round) MarshalJSON() ([]byte, error) {
	type alias Round
	return json.Marshal(struct {
		alias
		Phase Phase      `json:"phase"`
		State PhaseState `json:"state"`
	}{alias(r), r.Phase(), r.State})
}

func (r *Round) UnmarshalJSON(data []byte) error {
	type alias Round
	aux := struct {
		*alias
		Phase Phase           `json:"phase"`
		State json.RawMessage `json:"state"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	state, err := newPhaseState(aux.Phase)
	if err != nil {
		return err
	}
	if state != nil && len(aux.State) > 0 && string(aux.State) != "null" {
		if err := json.Unmarshal(aux.State, state); err != nil {
			return fmt.Errorf("decode %s state: %w", aux.Phase, err)
		}
	}
	r.State = state
	return nil
}

func newPhaseState(phase Phase) (PhaseState, error) {
	switch phase {
	case PhaseIdle, "":
		return nil, nil
	case PhaseClues:
		return &ClueState{}, nil
	case PhaseVote:
		return &VoteState{}, nil
	case PhaseRevote:
		return &VoteState{Revote: true}, nil
	case PhaseResult:
		return &ResultState{}, nil
	case PhaseResolution:
		return &ResolutionState{}, nil
	}
	return nil, fmt.Errorf("unknown round phase %q", phase)
}
