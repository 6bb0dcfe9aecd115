package expressor

import "sort"

// SignalMap is a sorted map from scaled signal strength to neighbour index.
// Putting an existing key overwrites its index, so among equal signals the
// most recently recorded neighbour wins.
type SignalMap struct {
	keys  []float64
	index map[float64]int
}

// Put records signal for neighbour k.
func (m *SignalMap) Put(signal float64, k int) {
	if m.index == nil {
		m.index = make(map[float64]int, 9)
	}
	if _, ok := m.index[signal]; !ok {
		i := sort.SearchFloat64s(m.keys, signal)
		m.keys = append(m.keys, 0)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = signal
	}
	m.index[signal] = k
}

// Last returns the greatest key and its neighbour index.
func (m *SignalMap) Last() (signal float64, k int, ok bool) {
	if len(m.keys) == 0 {
		return 0, 0, false
	}
	signal = m.keys[len(m.keys)-1]
	return signal, m.index[signal], true
}

// Get returns the neighbour index stored under signal.
func (m *SignalMap) Get(signal float64) (int, bool) {
	k, ok := m.index[signal]
	return k, ok
}

// Keys returns the keys in ascending order.
func (m *SignalMap) Keys() []float64 {
	out := make([]float64, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of distinct keys.
func (m *SignalMap) Len() int { return len(m.keys) }
