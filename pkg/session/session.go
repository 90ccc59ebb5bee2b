package session

import (
	"sync"
	"time"

	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

// Roles of stored entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultObservationLimit caps stored observations, in runes.
const DefaultObservationLimit = 500

// Step is the stored form of one reasoning step.
type Step struct {
	Tool        string
	Input       string
	Observation string
}

// Entry is one message of a conversation.
type Entry struct {
	Role      string
	Content   string
	Steps     []Step
	CreatedAt time.Time
}

// Session is the in-memory state of one chat. Selections start empty and are
// filled by the handler from the catalogue defaults.
type Session struct {
	mu         sync.RWMutex
	mode       string
	persona    string
	credential string
	entries    []Entry
	obsLimit   int
}

func (s *Session) Mode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) Persona() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

func (s *Session) SetMode(id string) {
	s.mu.Lock()
	s.mode = id
	s.mu.Unlock()
}

func (s *Session) SetPersona(id string) {
	s.mu.Lock()
	s.persona = id
	s.mu.Unlock()
}

func (s *Session) SetCredential(c string) {
	s.mu.Lock()
	s.credential = c
	s.mu.Unlock()
}

// Append stores an entry. Step observations longer than the session limit
// are truncated; the caller's slice is not modified.
func (s *Session) Append(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if len(e.Steps) > 0 {
		steps := make([]Step, len(e.Steps))
		for i, st := range e.Steps {
			st.Observation = utils.Truncate(st.Observation, s.obsLimit)
			steps[i] = st
		}
		e.Steps = steps
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// History returns a copy of the stored entries in order.
func (s *Session) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Reset clears the history. Selections and credential are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Store holds sessions isolated by key. Nothing is written to disk.
type Store struct {
	sessions map[string]*Session
	obsLimit int
	mu       sync.RWMutex
}

// NewStore creates a store. A non-positive limit uses DefaultObservationLimit.
func NewStore(observationLimit int) *Store {
	if observationLimit <= 0 {
		observationLimit = DefaultObservationLimit
	}
	return &Store{
		sessions: make(map[string]*Session),
		obsLimit: observationLimit,
	}
}

// Get returns the session for key, creating it on first use.
func (st *Store) Get(key string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[key]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double check under lock
	if s, ok = st.sessions[key]; ok {
		return s
	}
	s = &Session{obsLimit: st.obsLimit}
	st.sessions[key] = s
	return s
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
