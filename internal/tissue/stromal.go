package tissue

import "github.com/kalden/ppsim/internal/expressor"

// StromalCell is an LTo organizer cell. It matures on contact with LTin
// cells and, once expressing, attracts and binds LTi cells.
type StromalCell struct {
	gridCell
}

// SignalInducerContact records one LTin contact. A RET-ligand-expressing
// cell moves to the contacted state, and to the expressing state once it
// has seen enough contacts.
func (s *StromalCell) SignalInducerContact() {
	if s.stopped {
		return
	}
	switch s.state {
	case StateRETLigand, StateInducerContact:
		s.contacts++
		if s.contacts >= s.pop.ActivationContacts {
			s.setState(StateActiveExpressing)
		} else {
			s.setState(StateInducerContact)
		}
	}
}

// SignalAdhesion records an LTi adhering to this cell. Every expressor that
// strengthens with contact is upregulated and the cell starts proliferating.
func (s *StromalCell) SignalAdhesion() {
	if s.stopped || !s.state.Expressing() {
		return
	}
	for _, e := range s.expressors {
		if u, ok := e.(expressor.Upregulator); ok {
			u.Upregulate()
		}
	}
	s.setState(StateProliferating)
}

// DecoyCell is a RET-ligand-expressing non-stromal cell. It never becomes an
// organizer: it divides on the same cadence as an active LTo and is removed
// once it outlives the immature bound.
type DecoyCell struct {
	gridCell
}
