package dom

type listenerEntry struct {
	fn      Listener
	removed bool
}

// listenerSet keeps listeners per event type in registration order.
type listenerSet struct {
	byType map[EventType][]*listenerEntry
}

func newListenerSet() *listenerSet {
	return &listenerSet{byType: make(map[EventType][]*listenerEntry)}
}

func (s *listenerSet) add(t EventType, fn Listener) func() {
	entry := &listenerEntry{fn: fn}
	s.byType[t] = append(s.byType[t], entry)
	return func() {
		if entry.removed {
			return
		}
		entry.removed = true
		entries := s.byType[t]
		for i, e := range entries {
			if e == entry {
				s.byType[t] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
	}
}

// fire invokes a snapshot of the listeners. Listeners removed during the
// dispatch are skipped.
func (s *listenerSet) fire(ev *Event) {
	entries := s.byType[ev.Type]
	if len(entries) == 0 {
		return
	}
	snapshot := make([]*listenerEntry, len(entries))
	copy(snapshot, entries)
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		e.fn(ev)
	}
}

func (s *listenerSet) count(t EventType) int {
	return len(s.byType[t])
}
