package forms

// State is the position of a form in its submission cycle.
type State int

const (
	// Editing is the initial state.
	Editing State = iota
	// Invalid means the last submit failed and its issues are shown.
	Invalid
	// Accepted means the last submit passed and the preview is open.
	Accepted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Invalid:
		return "invalid"
	case Accepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Gate tracks the submission state.
type Gate struct {
	state State
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// Edit records a field edit. Invalid and Accepted return to Editing.
func (g *Gate) Edit() {
	g.state = Editing
}

// Reject records a failed submit.
func (g *Gate) Reject() {
	g.state = Invalid
}

// Accept records a successful submit.
func (g *Gate) Accept() {
	g.state = Accepted
}

// Dismiss closes the preview. It only has an effect in Accepted.
func (g *Gate) Dismiss() {
	if g.state == Accepted {
		g.state = Editing
	}
}
