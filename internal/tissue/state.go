package tissue

import "strconv"

// State is a cell's position in its state machine. The numeric codes are
// stable: they are written to result files and the results database.
type State int

const (
	StateRemoved          State = -1
	StateInactive         State = 0
	StateRETLigand        State = 1
	StateInducerContact   State = 2
	StateActiveExpressing State = 3
	StateLTinMigrating    State = 4
	StateLTinContact      State = 5
	StateDecoy            State = 6
	StateLTiMigrating     State = 7
	StateLTiAdhered       State = 8
	StateProliferating    State = 9
)

var stateNames = map[State]string{
	StateRemoved:          "removed",
	StateInactive:         "inactive",
	StateRETLigand:        "ret_ligand",
	StateInducerContact:   "inducer_contact",
	StateActiveExpressing: "active_expressing",
	StateLTinMigrating:    "ltin_migrating",
	StateLTinContact:      "ltin_contact",
	StateDecoy:            "decoy",
	StateLTiMigrating:     "lti_migrating",
	StateLTiAdhered:       "lti_adhered",
	StateProliferating:    "proliferating",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Expressing reports whether a stromal cell in this state emits chemokine
// and presents adhesion factors.
func (s State) Expressing() bool {
	return s == StateActiveExpressing || s == StateProliferating
}

// Immature reports whether a cell in this state is removed once it outlives
// its immature bound.
func (s State) Immature() bool {
	return s == StateRETLigand || s == StateInducerContact || s == StateDecoy
}

// CanDivide reports whether a cell in this state attempts division.
func (s State) CanDivide() bool {
	return s == StateActiveExpressing || s == StateDecoy || s == StateProliferating
}
