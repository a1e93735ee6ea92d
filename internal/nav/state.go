package nav

import "sync"

// DefaultHistoryLimit bounds the number of history entries kept
const DefaultHistoryLimit = 256

// Source says what caused a location change
type Source int

const (
	// SourceSet is a change made through Set
	SourceSet Source = iota
	// SourceHistory is a back/forward traversal
	SourceHistory
)

// String returns the name of the source
func (s Source) String() string {
	switch s {
	case SourceSet:
		return "set"
	case SourceHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Listener is notified after every location change
type Listener func(pos Position, src Source)

// State is the single owner of the location and its history. The current
// position is always derived from the current history entry, so it is
// reconstructible from the location by construction.
type State struct {
	mu        sync.Mutex
	entries   []string
	index     int
	limit     int
	listeners map[int]Listener
	nextID    int
}

// New creates a state hydrated from location. The initial location becomes
// the first history entry.
func New(location string) *State {
	return &State{
		entries:   []string{Encode(Parse(location))},
		limit:     DefaultHistoryLimit,
		listeners: make(map[int]Listener),
	}
}

// Current returns the current position
func (s *State) Current() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Parse(s.entries[s.index])
}

// Location returns the encoded current location
func (s *State) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[s.index]
}

// Set moves to p. With push, a new history entry is added and any forward
// entries are discarded; otherwise the current entry is replaced. Setting
// the location already current is a no-op and reports false.
func (s *State) Set(p Position, push bool) bool {
	loc := Encode(p)

	s.mu.Lock()
	if s.entries[s.index] == loc {
		s.mu.Unlock()
		return false
	}
	if push {
		s.entries = append(s.entries[:s.index+1], loc)
		s.index++
		if over := len(s.entries) - s.limit; over > 0 {
			s.entries = append([]string(nil), s.entries[over:]...)
			s.index -= over
		}
	} else {
		s.entries[s.index] = loc
	}
	s.mu.Unlock()

	s.notify(SourceSet)
	return true
}

// Back moves one entry back in history, if possible
func (s *State) Back() bool {
	return s.traverse(-1)
}

// Forward moves one entry forward in history, if possible
func (s *State) Forward() bool {
	return s.traverse(1)
}

// CanBack reports whether Back would move
func (s *State) CanBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index > 0
}

// CanForward reports whether Forward would move
func (s *State) CanForward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index < len(s.entries)-1
}

func (s *State) traverse(delta int) bool {
	s.mu.Lock()
	next := s.index + delta
	if next < 0 || next >= len(s.entries) {
		s.mu.Unlock()
		return false
	}
	s.index = next
	s.mu.Unlock()

	s.notify(SourceHistory)
	return true
}

// Len returns the number of history entries
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Index returns the position of the current entry in history
func (s *State) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Subscribe registers fn for change notifications and returns a function
// that removes it
func (s *State) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notify calls listeners outside the lock so they may read the state
func (s *State) notify(src Source) {
	s.mu.Lock()
	pos := Parse(s.entries[s.index])
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(pos, src)
	}
}
