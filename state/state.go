package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/impostor/models"
)

// ErrTransitionNotAllowed is returned when a phase change is not in the machine's table.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// Condition guards a transition; it sees the round before the change.
type Condition func(round *models.Round) bool

// Machine 回合阶段状态机：只负责校验与切换，不做任何 I/O
type Machine struct {
	transitions map[models.Phase]map[models.Phase]Condition // from -> to -> condition
}

func NewMachine() *Machine {
	return &Machine{
		transitions: make(map[models.Phase]map[models.Phase]Condition),
	}
}

// NewRoundMachine returns the table of a normal Impostor round.
func NewRoundMachine() *Machine {
	m := NewMachine()
	m.AddTransition(models.PhaseIdle, models.PhaseClues, nil)
	m.AddTransition(models.PhaseClues, models.PhaseVote, nil)

	m.AddTransition(models.PhaseVote, models.PhaseRevote, nil)
	m.AddTransition(models.PhaseVote, models.PhaseResult, nil)
	m.AddTransition(models.PhaseVote, models.PhaseResolution, nil)

	// a revote may be reopened or tie again any number of times
	m.AddTransition(models.PhaseRevote, models.PhaseRevote, nil)
	m.AddTransition(models.PhaseRevote, models.PhaseResult, nil)
	m.AddTransition(models.PhaseRevote, models.PhaseResolution, nil)
	// candidates gone: start the ballot over
	m.AddTransition(models.PhaseRevote, models.PhaseVote, nil)

	m.AddTransition(models.PhaseResult, models.PhaseClues, nil)
	m.AddTransition(models.PhaseResult, models.PhaseResolution, nil)

	m.AddTransition(models.PhaseResolution, models.PhaseClues, func(round *models.Round) bool {
		rs, ok := round.State.(*models.ResolutionState)
		return ok && !rs.Survival
	})
	return m
}

func (m *Machine) AddTransition(from, to models.Phase, condition Condition) {
	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[models.Phase]Condition)
	}
	m.transitions[from][to] = condition
}

// CanTransition reports whether round may move to phase to.
func (m *Machine) CanTransition(round *models.Round, to models.Phase) bool {
	conditions, exists := m.transitions[round.Phase()]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition(round)
}

// ChangeState swaps the round's phase variant after checking the table.
func (m *Machine) ChangeState(round *models.Round, next models.PhaseState) error {
	if !m.CanTransition(round, next.Phase()) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, round.Phase(), next.Phase())
	}
	round.State = next
	return nil
}
