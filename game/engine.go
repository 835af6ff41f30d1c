// Package game is the authoritative Impostor rules engine. Every operation mutates the
// Room it is given and performs no I/O; callers serialize access per room.
package game

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/state"
	"github.com/wfunc/impostor/utils"
)

const (
	// MinActivePlayers is the minimum number of active players to start a round
	MinActivePlayers = 3

	// PlayersPerImpostor bounds the impostor count to ceil(players/PlayersPerImpostor)
	PlayersPerImpostor = 3

	// SurvivalThreshold: once active players drop to this, surviving impostors win
	SurvivalThreshold = 2
)

type Engine struct {
	rng     *rand.Rand
	now     func() time.Time
	newID   func() string
	machine *state.Machine
}

type Option func(*Engine)

// WithRand makes role and word selection reproducible.
func WithRand(src rand.Source) Option {
	return func(e *Engine) {
		e.rng = rand.New(&lockedSource{src: src})
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		rng:     rand.New(&lockedSource{src: rand.NewPCG(rand.Uint64(), rand.Uint64())}),
		now:     time.Now,
		newID:   utils.NewID,
		machine: state.NewRoundMachine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockedSource lets one Engine serve many rooms from concurrent handlers.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// sortedPlayers returns players in join order.
func sortedPlayers(room *models.Room) []*models.Player {
	players := make([]*models.Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
	return players
}

func activePlayers(room *models.Room) []*models.Player {
	var active []*models.Player
	for _, p := range sortedPlayers(room) {
		if p.Status == models.PlayerActive {
			active = append(active, p)
		}
	}
	return active
}

// ActivePlayerCount counts players with status active.
func ActivePlayerCount(room *models.Room) int {
	count := 0
	for _, p := range room.Players {
		if p.Status == models.PlayerActive {
			count++
		}
	}
	return count
}

func isActive(room *models.Room, playerID string) bool {
	p, ok := room.Players[playerID]
	return ok && p.Status == models.PlayerActive
}

func unbenchAll(room *models.Room) {
	for _, p := range room.Players {
		if p.Status == models.PlayerBenched {
			p.Status = models.PlayerActive
		}
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
