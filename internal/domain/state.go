package domain

// State is the per-item decision state.
type State string

const (
	StateUngrouped       State = "ungrouped"
	StateActiveCandidate State = "active-candidate"
	StateShortlisted     State = "shortlisted"
	StateDismissed       State = "dismissed"
	StateChosen          State = "chosen"
)

// StateOf derives the decision state from the stored flags.
// Dismissed and chosen are terminal and win over everything else.
func StateOf(it *SavedItem) State {
	switch {
	case it.Dismissed:
		return StateDismissed
	case it.Chosen && it.HasGroup():
		return StateChosen
	case !it.HasGroup():
		return StateUngrouped
	case it.Shortlisted:
		return StateShortlisted
	default:
		return StateActiveCandidate
	}
}

// IsTerminal reports whether no transition out of s is exposed.
func (s State) IsTerminal() bool {
	return s == StateChosen || s == StateDismissed
}
