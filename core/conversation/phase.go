package conversation

import "fmt"

// Phase is the stage of a training session.
type Phase string

const (
	PhaseInit           Phase = "init"
	PhaseTopicSelection Phase = "topic_selection"
	PhaseRolePlay       Phase = "roleplay"
	PhaseEvaluate       Phase = "evaluate"
	PhaseGuardian       Phase = "guardian"
	PhaseEnd            Phase = "end"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseInit:           {PhaseTopicSelection, PhaseRolePlay, PhaseEnd},
	PhaseTopicSelection: {PhaseRolePlay, PhaseEnd},
	PhaseRolePlay:       {PhaseEvaluate, PhaseEnd},
	PhaseEvaluate:       {PhaseRolePlay, PhaseGuardian, PhaseEnd},
	PhaseGuardian:       {PhaseRolePlay, PhaseEnd},
	PhaseEnd:            {},
}

// AllPhases lists every phase in declaration order.
func AllPhases() []Phase {
	return []Phase{
		PhaseInit,
		PhaseTopicSelection,
		PhaseRolePlay,
		PhaseEvaluate,
		PhaseGuardian,
		PhaseEnd,
	}
}

func (p Phase) String() string {
	return string(p)
}

func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

// CanTransitionTo reports whether the edge p -> next is declared.
// Staying in the same phase is always allowed.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p == next {
		return p.Valid()
	}
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Successors returns the phases reachable from p in one step.
func (p Phase) Successors() []Phase {
	next := phaseTransitions[p]
	out := make([]Phase, len(next))
	copy(out, next)
	return out
}

// ParsePhase converts a stored phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}
